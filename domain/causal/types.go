package causal

import (
	"gocausal/domain/core"
)

// Metadata note attached to every simulated-intervention result. The
// descendant-resampling procedure approximates backdoor adjustment; it is
// not a full do-calculus implementation and consumers must be told so.
const ApproximationNote = "intervention simulated by resampling causal descendants from the empirical distribution; approximates backdoor adjustment, not exact do-calculus"

// EstimatedGraphNote flags results computed over a heuristically estimated
// graph rather than a caller-supplied one.
const EstimatedGraphNote = "causal graph estimated by pairwise correlation heuristic; structure may contain spurious edges and must not be relied on for regulated decisions"

// CausalEffect is the result record of an interventional effect query.
// Invariants: ConfoundingBias == ObservationalEffect - ATE and
// CILower <= CIUpper.
type CausalEffect struct {
	AnalysisID   core.AnalysisID `json:"analysis_id"`
	FeatureIndex int             `json:"feature_index"`
	FeatureName  string          `json:"feature_name,omitempty"`

	ATE                 float64 `json:"ate"`
	ObservationalEffect float64 `json:"observational_effect"`
	ConfoundingBias     float64 `json:"confounding_bias"`
	CILower             float64 `json:"ci_lower"`
	CIUpper             float64 `json:"ci_upper"`
	UncertaintyWidth    float64 `json:"uncertainty_width"`

	// Degraded is set when some samples were excluded as non-finite but
	// enough remained to compute a result. Compliance consumers must check
	// it before treating the record as reliable.
	Degraded       bool `json:"degraded"`
	ValidSamples   int  `json:"valid_samples"`
	SkippedSamples int  `json:"skipped_samples"`

	ComputedAt core.Timestamp         `json:"computed_at"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// CounterfactualResult answers a single closest-possible-world query: only
// the queried feature changes, nothing else is resampled. It is not a
// population-level treatment effect.
type CounterfactualResult struct {
	AnalysisID   core.AnalysisID `json:"analysis_id"`
	FeatureIndex int             `json:"feature_index"`
	FeatureName  string          `json:"feature_name,omitempty"`

	FactualValue        float64 `json:"factual_value"`
	CounterfactualValue float64 `json:"counterfactual_value"`

	FactualPrediction        float64 `json:"factual_prediction"`
	CounterfactualPrediction float64 `json:"counterfactual_prediction"`
	Effect                   float64 `json:"effect"`

	ComputedAt core.Timestamp         `json:"computed_at"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// MediationPath is one directed, cycle-free path from a source feature to
// the outcome sink, with its measured effect contribution.
type MediationPath struct {
	Features     []int   `json:"features"`
	Contribution float64 `json:"contribution"`
}

// MediationReport decomposes a feature's total effect into the controlled
// direct effect and the path-mediated indirect effect.
type MediationReport struct {
	AnalysisID   core.AnalysisID `json:"analysis_id"`
	FeatureIndex int             `json:"feature_index"`
	OutcomeSink  int             `json:"outcome_sink"`

	TotalEffect    float64         `json:"total_effect"`
	DirectEffect   float64         `json:"direct_effect"`
	IndirectEffect float64         `json:"indirect_effect"`
	Paths          []MediationPath `json:"paths"`

	// AdditivityGap is |IndirectEffect - sum of path contributions|.
	// AdditivityOK reports whether the gap is within the configured
	// tolerance; a large gap is surfaced here, never silently discarded.
	AdditivityGap float64 `json:"additivity_gap"`
	AdditivityOK  bool    `json:"additivity_ok"`

	Degraded   bool                   `json:"degraded"`
	ComputedAt core.Timestamp         `json:"computed_at"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// FairnessReport decomposes a protected feature's total effect into the
// legitimate (agreed proxy paths) and discriminatory components.
// Invariant, bounded by tolerance under sampling noise:
// TotalEffect ≈ LegitimateEffect + DiscriminationEffect.
type FairnessReport struct {
	AnalysisID       core.AnalysisID `json:"analysis_id"`
	ProtectedFeature int             `json:"protected_feature"`
	OutcomeSink      int             `json:"outcome_sink"`

	TotalEffect          float64 `json:"total_effect"`
	LegitimateEffect     float64 `json:"legitimate_effect"`
	DiscriminationEffect float64 `json:"discrimination_effect"`

	LegitimatePaths     []MediationPath `json:"legitimate_paths"`
	DiscriminatoryPaths []MediationPath `json:"discriminatory_paths"`

	// Warning is raised when DiscriminationEffect exceeds the configured
	// regulatory threshold.
	Threshold float64 `json:"threshold"`
	Warning   bool    `json:"warning"`

	AdditivityGap float64 `json:"additivity_gap"`
	AdditivityOK  bool    `json:"additivity_ok"`

	Degraded   bool                   `json:"degraded"`
	ComputedAt core.Timestamp         `json:"computed_at"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// QueryKind tags the analysis variants the engine dispatches over.
type QueryKind string

const (
	QueryInterventional QueryKind = "interventional"
	QueryCounterfactual QueryKind = "counterfactual"
	QueryMediation      QueryKind = "mediation"
	QueryFairness       QueryKind = "fairness"
)

// InterventionalQuery asks for the average treatment effect of forcing a
// feature to a value.
type InterventionalQuery struct {
	Instance     []float64
	FeatureIndex int
	Value        float64
}

// CounterfactualQuery asks for a single-instance closest-world comparison.
type CounterfactualQuery struct {
	Instance            []float64
	FeatureIndex        int
	CounterfactualValue float64
}

// MediationQuery asks for a direct/indirect decomposition toward a sink.
type MediationQuery struct {
	Instance     []float64
	FeatureIndex int
	Value        float64
	OutcomeSink  int
}

// FairnessQuery asks for a legitimate/discriminatory decomposition of a
// protected feature's effect.
type FairnessQuery struct {
	Instance          []float64
	ProtectedFeature  int
	Value             float64
	OutcomeSink       int
	LegitimateProxies []int
}

// Query is the tagged variant the engine dispatches over. Exactly the field
// matching Kind must be populated.
type Query struct {
	Kind           QueryKind
	Interventional *InterventionalQuery
	Counterfactual *CounterfactualQuery
	Mediation      *MediationQuery
	Fairness       *FairnessQuery
}

// Result bundles the per-kind outputs of Query dispatch; exactly one field
// matching the query kind is populated.
type Result struct {
	Kind           QueryKind
	Effect         *CausalEffect
	Counterfactual *CounterfactualResult
	Mediation      *MediationReport
	Fairness       *FairnessReport
}
