package storage

import (
	"context"
	"fmt"

	"techbriefing/internal/domain"
	"techbriefing/internal/ports"
)

// RunRepository is the Postgres-backed run ledger.
type RunRepository struct {
	db DB
}

var _ ports.RunLedger = (*RunRepository)(nil)

// NewRunRepository wires a DB handle.
func NewRunRepository(db DB) *RunRepository {
	return &RunRepository{db: db}
}

const runColumns = `id, source, started_at, completed_at, status, posts_collected, error_message`

// Save inserts the run record at cycle start, while still running.
func (r *RunRepository) Save(ctx context.Context, run domain.CollectionRun) error {
	const stmt = `INSERT INTO collection_runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, stmt,
		run.ID, run.Source, run.StartedAt, run.CompletedAt,
		string(run.Status), run.PostsCollected, nullable(run.ErrorMessage))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Update writes the terminal state of a run.
func (r *RunRepository) Update(ctx context.Context, run domain.CollectionRun) error {
	const stmt = `UPDATE collection_runs SET
		completed_at = $2, status = $3, posts_collected = $4, error_message = $5
		WHERE id = $1`

	_, err := r.db.Exec(ctx, stmt,
		run.ID, run.CompletedAt, string(run.Status),
		run.PostsCollected, nullable(run.ErrorMessage))
	if err != nil {
		return fmt.Errorf("update run %s: %w", run.ID, err)
	}
	return nil
}

// GetRecent returns the newest runs across all sources.
func (r *RunRepository) GetRecent(ctx context.Context, limit int) ([]domain.CollectionRun, error) {
	const query = `SELECT ` + runColumns + ` FROM collection_runs
		ORDER BY started_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.CollectionRun
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return runs, nil
}

// CountConsecutiveFailures counts failed runs for a source newest
// first, stopping at the first run that did not fail. Only the last
// ten runs are considered.
func (r *RunRepository) CountConsecutiveFailures(ctx context.Context, source string) (int, error) {
	const query = `SELECT status FROM collection_runs
		WHERE source = $1
		ORDER BY started_at DESC
		LIMIT 10`

	rows, err := r.db.Query(ctx, query, source)
	if err != nil {
		return 0, fmt.Errorf("query run statuses: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var status string
		if err := rows.Scan(&status); err != nil {
			return 0, fmt.Errorf("scan status: %w", err)
		}
		if status != string(domain.RunFailed) {
			break
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("rows iteration: %w", err)
	}
	return count, nil
}

// GetLastSuccessful returns the most recent successful run for a
// source, or nil if it has never succeeded.
func (r *RunRepository) GetLastSuccessful(ctx context.Context, source string) (*domain.CollectionRun, error) {
	const query = `SELECT ` + runColumns + ` FROM collection_runs
		WHERE source = $1 AND status = $2
		ORDER BY completed_at DESC
		LIMIT 1`

	rows, err := r.db.Query(ctx, query, source, string(domain.RunSuccess))
	if err != nil {
		return nil, fmt.Errorf("query last successful run: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	run, err := scanRun(rows.Scan)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func scanRun(scan func(dest ...any) error) (domain.CollectionRun, error) {
	var run domain.CollectionRun
	var status string
	var errMsg *string

	err := scan(&run.ID, &run.Source, &run.StartedAt, &run.CompletedAt,
		&status, &run.PostsCollected, &errMsg)
	if err != nil {
		return domain.CollectionRun{}, fmt.Errorf("scan run: %w", err)
	}

	run.Status = domain.RunStatus(status)
	run.ErrorMessage = deref(errMsg)
	return run, nil
}
