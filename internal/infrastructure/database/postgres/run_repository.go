// Package postgres persists screening runs.  A run is one row in
// screening_runs plus one row per returned match in screening_matches,
// written in a single transaction.
package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/turtacn/ligandscreen/internal/application/screening"
	"github.com/turtacn/ligandscreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ligandscreen/pkg/errors"
)

// DB is the subset of *pgxpool.Pool the repository uses.
type DB interface {
	Beginner
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var matchColumns = []string{
	"run_id", "query_index", "query_name", "query_source", "query_encoding", "outcome",
	"match_rank", "identifier", "score", "ligand_name", "status", "molecular_weight",
	"organisms", "is_target", "annotation_origin",
}

const insertRunSQL = `
INSERT INTO screening_runs (
    run_id, started_at, finished_at, duration_ms,
    corpus_seen, corpus_valid, corpus_invalid,
    queries_seen, queries_valid, queries_matched,
    comparisons, escalations, fallbacks, errors, summary
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

// RunRepository writes screening runs.
type RunRepository struct {
	db     DB
	logger logging.Logger
}

// NewRunRepository returns a repository over db.
func NewRunRepository(db DB, logger logging.Logger) *RunRepository {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &RunRepository{db: db, logger: logger}
}

// SaveRun stores the run summary and bulk-copies its matches.
func (r *RunRepository) SaveRun(ctx context.Context, run *screening.Run) error {
	s := run.Summary
	summary, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encode run summary")
	}
	rows := matchRows(run)

	err = WithTransaction(ctx, r.db, func(tx pgx.Tx, ctx context.Context) error {
		if _, err := tx.Exec(ctx, insertRunSQL,
			s.RunID, s.StartedAt, s.FinishedAt, s.Duration.Milliseconds(),
			s.Corpus.Seen, s.Corpus.Valid, s.Corpus.Invalid,
			s.Engine.QueriesSeen, s.Engine.QueriesValid, s.Engine.QueriesMatched,
			s.Engine.Comparisons, s.Engine.Escalations, s.Engine.Fallbacks, s.Errors, summary,
		); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "insert run").WithDetail(s.RunID)
		}
		if len(rows) == 0 {
			return nil
		}
		n, err := tx.CopyFrom(ctx, pgx.Identifier{"screening_matches"}, matchColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "copy matches").WithDetail(s.RunID)
		}
		if int(n) != len(rows) {
			return errors.Newf(errors.ErrCodeDatabaseError, "copied %d of %d matches", n, len(rows))
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.logger.Info("screening run persisted",
		logging.String("run_id", s.RunID),
		logging.Int("matches", len(rows)))
	return nil
}

// MatchCount returns the number of stored matches for a run.
func (r *RunRepository) MatchCount(ctx context.Context, runID string) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM screening_matches WHERE run_id = $1`, runID).Scan(&n); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "count matches").WithDetail(runID)
	}
	return n, nil
}

func matchRows(run *screening.Run) [][]any {
	var rows [][]any
	for _, res := range run.Results {
		q := res.Query
		for _, m := range res.Matches {
			var weight any
			if m.MolecularWeight != 0 {
				weight = m.MolecularWeight
			}
			organisms := m.Annotation.Organisms
			if organisms == nil {
				organisms = []string{}
			}
			rows = append(rows, []any{
				run.Summary.RunID, res.Index, q.Name, q.Source, q.Encoding, string(res.Outcome),
				m.Rank, m.Identifier, m.Score, m.Name, m.Status, weight,
				organisms, m.Annotation.IsTarget, string(m.Annotation.Origin),
			})
		}
	}
	return rows
}

//Personal.AI order the ending
