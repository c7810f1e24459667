package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"flowbuilder/backend/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS flows (
	seq        BIGSERIAL,
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	graph      JSON NOT NULL,
	created_by TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
ALTER TABLE flows ALTER COLUMN graph TYPE JSON;
CREATE TABLE IF NOT EXISTS results (
	seq       BIGSERIAL,
	id        TEXT PRIMARY KEY,
	test_name TEXT NOT NULL,
	status    TEXT NOT NULL,
	ran_at    TIMESTAMPTZ NOT NULL,
	duration  TEXT NOT NULL,
	steps     JSONB NOT NULL,
	log       TEXT NOT NULL DEFAULT '',
	analysis  JSONB,
	test_file TEXT NOT NULL DEFAULT ''
);`

// PostgresStore is a PostgreSQL implementation of Repository. Graphs are
// kept as JSON text so node config keys keep their order; steps and analyses
// are JSONB documents.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the tables if they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveFlow(ctx context.Context, flow *models.Flow) error {
	_, err := s.db.Exec(ctx,
		"INSERT INTO flows (id, name, graph, created_by, created_at) VALUES ($1, $2, $3, $4, $5)",
		flow.ID, flow.Name, flow.Graph, flow.CreatedBy, flow.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save flow %s: %w", flow.ID, err)
	}
	return nil
}

func (s *PostgresStore) ListFlows(ctx context.Context) ([]*models.Flow, error) {
	rows, err := s.db.Query(ctx, "SELECT id, name, graph, created_by, created_at FROM flows ORDER BY seq DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}
	defer rows.Close()

	flows := []*models.Flow{}
	for rows.Next() {
		flow, err := scanFlow(rows)
		if err != nil {
			return nil, err
		}
		flows = append(flows, flow)
	}
	return flows, rows.Err()
}

func (s *PostgresStore) GetFlow(ctx context.Context, id string) (*models.Flow, error) {
	row := s.db.QueryRow(ctx, "SELECT id, name, graph, created_by, created_at FROM flows WHERE id = $1", id)
	flow, err := scanFlow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return flow, err
}

func (s *PostgresStore) SaveResult(ctx context.Context, result *models.Result) error {
	steps := result.Steps
	if steps == nil {
		steps = []models.StepResult{}
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO results (id, test_name, status, ran_at, duration, steps, log, analysis, test_file)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		result.ID, result.TestName, string(result.Status), result.Timestamp, result.Duration,
		steps, result.Log, result.Analysis, result.TestFile)
	if err != nil {
		return fmt.Errorf("failed to save result %s: %w", result.ID, err)
	}
	return nil
}

func (s *PostgresStore) ListResults(ctx context.Context) ([]*models.Result, error) {
	rows, err := s.db.Query(ctx,
		"SELECT id, test_name, status, ran_at, duration, steps, log, analysis, test_file FROM results ORDER BY seq DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	results := []*models.Result{}
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

func (s *PostgresStore) GetResult(ctx context.Context, id string) (*models.Result, error) {
	row := s.db.QueryRow(ctx,
		"SELECT id, test_name, status, ran_at, duration, steps, log, analysis, test_file FROM results WHERE id = $1", id)
	result, err := scanResult(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return result, err
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func scanFlow(row pgx.Row) (*models.Flow, error) {
	var flow models.Flow
	if err := row.Scan(&flow.ID, &flow.Name, &flow.Graph, &flow.CreatedBy, &flow.CreatedAt); err != nil {
		return nil, err
	}
	return &flow, nil
}

func scanResult(row pgx.Row) (*models.Result, error) {
	var (
		result models.Result
		status string
	)
	err := row.Scan(&result.ID, &result.TestName, &status, &result.Timestamp, &result.Duration,
		&result.Steps, &result.Log, &result.Analysis, &result.TestFile)
	if err != nil {
		return nil, err
	}
	result.Status = models.Status(status)
	return &result, nil
}

// Connect opens a pool for dsn and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}
