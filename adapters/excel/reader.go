// Package excel loads training corpora from spreadsheet and CSV files.
package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"gocausal/domain/causal"
	"gocausal/internal"
	apperrors "gocausal/internal/errors"
	"gocausal/ports"
)

// CorpusReader reads a feature matrix from an .xlsx or .csv file. The first
// row is treated as a header; when labelColumn names one of the headers that
// column becomes the label array, otherwise labels are nil.
type CorpusReader struct {
	filePath    string
	fileType    string // "xlsx" or "csv"
	labelColumn string
	logger      *internal.Logger
}

// NewCorpusReader creates a reader for the given file; the extension decides
// the format.
func NewCorpusReader(filePath, labelColumn string) *CorpusReader {
	fileType := "xlsx"
	if strings.ToLower(filepath.Ext(filePath)) == ".csv" {
		fileType = "csv"
	}
	return &CorpusReader{
		filePath:    filePath,
		fileType:    fileType,
		labelColumn: labelColumn,
		logger:      internal.DefaultLogger.WithScope("corpus-reader"),
	}
}

// FeatureNames returns the header names of the feature columns after a Load.
func (r *CorpusReader) FeatureNames(ctx context.Context) ([]string, error) {
	_, names, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	return names, nil
}

// Load reads and validates the corpus.
func (r *CorpusReader) Load(ctx context.Context) (*causal.Corpus, error) {
	corpus, _, err := r.load(ctx)
	return corpus, err
}

func (r *CorpusReader) load(ctx context.Context) (*causal.Corpus, []string, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, nil, apperrors.New(apperrors.CodeIOError, fmt.Sprintf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath))
	}

	var records [][]string
	var err error
	switch r.fileType {
	case "csv":
		records, err = r.readCSV()
	case "xlsx":
		records, err = r.readExcel()
	default:
		return nil, nil, apperrors.New(apperrors.CodeIOError, "unsupported file type: "+r.fileType)
	}
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return nil, nil, apperrors.New(apperrors.CodeIOError, "corpus file needs a header row and at least one data row")
	}

	header := records[0]
	labelIdx := -1
	if r.labelColumn != "" {
		for i, name := range header {
			if strings.EqualFold(strings.TrimSpace(name), r.labelColumn) {
				labelIdx = i
				break
			}
		}
		if labelIdx < 0 {
			return nil, nil, apperrors.New(apperrors.CodeIOError, "label column not found: "+r.labelColumn)
		}
	}

	featureNames := make([]string, 0, len(header))
	for i, name := range header {
		if i != labelIdx {
			featureNames = append(featureNames, strings.TrimSpace(name))
		}
	}

	rows := make([][]float64, 0, len(records)-1)
	var labels []float64
	if labelIdx >= 0 {
		labels = make([]float64, 0, len(records)-1)
	}
	for lineNo, record := range records[1:] {
		row := make([]float64, 0, len(featureNames))
		for i, cell := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, nil, apperrors.New(apperrors.CodeIOError,
					fmt.Sprintf("non-numeric cell %q at row %d column %q", cell, lineNo+2, header[i]))
			}
			if i == labelIdx {
				labels = append(labels, v)
			} else {
				row = append(row, v)
			}
		}
		if len(row) != len(featureNames) {
			return nil, nil, apperrors.New(apperrors.CodeIOError,
				fmt.Sprintf("row %d has %d values, expected %d", lineNo+2, len(row), len(featureNames)))
		}
		rows = append(rows, row)
	}

	corpus, err := causal.NewCorpus(rows, labels)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "corpus validation failed")
	}
	r.logger.Info("loaded %d rows x %d features from %s", corpus.NumRows(), corpus.NumFeatures(), r.filePath)
	return corpus, featureNames, nil
}

func (r *CorpusReader) readCSV() ([][]string, error) {
	f, err := os.Open(r.filePath)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open CSV file")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse CSV file")
	}
	return records, nil
}

func (r *CorpusReader) readExcel() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open Excel file")
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.Wrapf(err, "failed to read sheet %s", sheet)
	}
	return rows, nil
}

var _ ports.CorpusSource = (*CorpusReader)(nil)
