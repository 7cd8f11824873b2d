// Package postgres loads training corpora from a relational store.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"gocausal/domain/causal"
	apperrors "gocausal/internal/errors"
	"gocausal/ports"
)

// CorpusRepository pulls a feature matrix out of a single table. Feature
// columns are read in the declared order; the optional label column fills
// the parallel label array.
type CorpusRepository struct {
	db             *sqlx.DB
	table          string
	featureColumns []string
	labelColumn    string
}

// NewCorpusRepository creates a repository over an open sqlx handle.
func NewCorpusRepository(db *sqlx.DB, table string, featureColumns []string, labelColumn string) *CorpusRepository {
	return &CorpusRepository{
		db:             db,
		table:          table,
		featureColumns: featureColumns,
		labelColumn:    labelColumn,
	}
}

// Open connects to postgres and returns a repository.
func Open(dsn, table string, featureColumns []string, labelColumn string) (*CorpusRepository, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, apperrors.WithCode(apperrors.CodeDatabaseError, err)
	}
	return NewCorpusRepository(db, table, featureColumns, labelColumn), nil
}

// Close releases the underlying connection pool.
func (r *CorpusRepository) Close() error {
	return r.db.Close()
}

// Load reads every row of the configured table into a validated corpus.
func (r *CorpusRepository) Load(ctx context.Context) (*causal.Corpus, error) {
	if len(r.featureColumns) == 0 {
		return nil, apperrors.New(apperrors.CodeConfigInvalid, "no feature columns configured")
	}

	columns := make([]string, len(r.featureColumns))
	for i, c := range r.featureColumns {
		columns[i] = quoteIdent(c)
	}
	selectList := strings.Join(columns, ", ")
	if r.labelColumn != "" {
		selectList += ", " + quoteIdent(r.labelColumn)
	}
	query := fmt.Sprintf("SELECT %s FROM %s", selectList, quoteIdent(r.table))

	sqlRows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.WithCode(apperrors.CodeDatabaseError, err), "failed to query corpus table %s", r.table)
	}
	defer sqlRows.Close()

	var rows [][]float64
	var labels []float64
	for sqlRows.Next() {
		width := len(r.featureColumns)
		scan := make([]float64, width)
		dest := make([]interface{}, 0, width+1)
		for i := range scan {
			dest = append(dest, &scan[i])
		}
		var label float64
		if r.labelColumn != "" {
			dest = append(dest, &label)
		}
		if err := sqlRows.Scan(dest...); err != nil {
			return nil, apperrors.Wrap(apperrors.WithCode(apperrors.CodeDatabaseError, err), "failed to scan corpus row")
		}
		rows = append(rows, scan)
		if r.labelColumn != "" {
			labels = append(labels, label)
		}
	}
	if err := sqlRows.Err(); err != nil {
		return nil, apperrors.WithCode(apperrors.CodeDatabaseError, err)
	}

	corpus, err := causal.NewCorpus(rows, labels)
	if err != nil {
		return nil, apperrors.Wrap(err, "corpus validation failed")
	}
	return corpus, nil
}

// quoteIdent double-quotes an identifier, escaping embedded quotes.
func quoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

var _ ports.CorpusSource = (*CorpusRepository)(nil)
