package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS analysis_runs (
    company_number TEXT PRIMARY KEY,
    runs           BIGINT NOT NULL DEFAULT 0,
    first_run      TIMESTAMPTZ NOT NULL,
    last_run       TIMESTAMPTZ NOT NULL
)`

// PostgresTracker persists run counts in Postgres so usage survives restarts
// and is shared across replicas.
type PostgresTracker struct {
	pool *pgxpool.Pool
}

// NewPostgresTracker connects to Postgres and ensures the counters table
// exists.
func NewPostgresTracker(ctx context.Context, dsn string) (*PostgresTracker, error) {
	if dsn == "" {
		return nil, errors.New("postgres DSN is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure usage table: %w", err)
	}
	return &PostgresTracker{pool: pool}, nil
}

// Record upserts the per-company row and returns the updated stats.
func (t *PostgresTracker) Record(ctx context.Context, companyNumber string) (Stats, error) {
	now := time.Now().UTC()

	var stats Stats
	row := t.pool.QueryRow(ctx, `
		INSERT INTO analysis_runs (company_number, runs, first_run, last_run)
		VALUES ($1, 1, $2, $2)
		ON CONFLICT (company_number) DO UPDATE
		SET runs = analysis_runs.runs + 1, last_run = EXCLUDED.last_run
		RETURNING runs, first_run, last_run`,
		companyNumber, now)

	var first, last time.Time
	if err := row.Scan(&stats.CompanyRuns, &first, &last); err != nil {
		return Stats{}, fmt.Errorf("record run: %w", err)
	}
	stats.FirstRun = &first
	stats.LastRun = &last

	if err := t.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(runs), 0) FROM analysis_runs`).Scan(&stats.GlobalRuns); err != nil {
		return Stats{}, fmt.Errorf("read global runs: %w", err)
	}
	return stats, nil
}

// Stats reads counters without recording a run.
func (t *PostgresTracker) Stats(ctx context.Context, companyNumber string) (Stats, error) {
	var stats Stats
	if err := t.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(runs), 0) FROM analysis_runs`).Scan(&stats.GlobalRuns); err != nil {
		return Stats{}, fmt.Errorf("read global runs: %w", err)
	}

	var first, last time.Time
	err := t.pool.QueryRow(ctx, `
		SELECT runs, first_run, last_run FROM analysis_runs
		WHERE company_number = $1`, companyNumber).
		Scan(&stats.CompanyRuns, &first, &last)
	if errors.Is(err, pgx.ErrNoRows) {
		return stats, nil
	}
	if err != nil {
		return Stats{}, fmt.Errorf("read company runs: %w", err)
	}
	stats.FirstRun = &first
	stats.LastRun = &last
	return stats, nil
}

// Close releases the connection pool.
func (t *PostgresTracker) Close() error {
	t.pool.Close()
	return nil
}
