package core

import "testing"

func TestNewID_Unique(t *testing.T) {
	seen := make(map[ID]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Fatal("NewID returned empty ID")
		}
		if seen[id] {
			t.Fatalf("duplicate ID generated: %s", id)
		}
		seen[id] = true
	}
}

func TestParseAnalysisID(t *testing.T) {
	if _, err := ParseAnalysisID(""); err == nil {
		t.Error("empty string should not parse")
	}
	if _, err := ParseAnalysisID("   "); err == nil {
		t.Error("whitespace-only string should not parse")
	}
	id, err := ParseAnalysisID("abc-123")
	if err != nil {
		t.Fatalf("ParseAnalysisID failed: %v", err)
	}
	if id.String() != "abc-123" {
		t.Errorf("round-trip mismatch: %s", id)
	}
}
