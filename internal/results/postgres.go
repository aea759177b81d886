package results

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/signup-harvester/internal/pipeline/domain"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const schemaSQL = `
	CREATE TABLE IF NOT EXISTS signup_results (
		id          UUID PRIMARY KEY,
		run_id      UUID NOT NULL,
		email       TEXT NOT NULL,
		code        TEXT NOT NULL,
		status      TEXT NOT NULL,
		attempts    INTEGER NOT NULL DEFAULT 0,
		recorded_at TIMESTAMPTZ NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_signup_results_recorded_at
		ON signup_results (recorded_at DESC, id DESC);
	CREATE INDEX IF NOT EXISTS idx_signup_results_run_id
		ON signup_results (run_id);
`

// PostgresStore appends records to the signup_results table
type PostgresStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewPostgresStore creates a new PostgresStore instance
func NewPostgresStore(db *sqlx.DB, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: logger,
	}
}

// Init creates the result table if it does not exist
func (s *PostgresStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create signup_results table: %w", err)
	}

	s.logger.Info("Result table ready",
		slog.String("table", "signup_results"),
	)
	return nil
}

// Append inserts one record. Connection-level failures are returned as
// retryable errors.
func (s *PostgresStore) Append(ctx context.Context, rec Record) error {
	query := `
		INSERT INTO signup_results (id, run_id, email, code, status, attempts, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.ExecContext(ctx, query, rec.ID, rec.RunID, rec.Address, rec.Code, rec.Status, rec.Attempts, rec.RecordedAt)
	if err != nil {
		return classifyPostgresError(fmt.Errorf("failed to insert result: %w", err))
	}

	s.logger.Debug("Result inserted",
		slog.String("id", rec.ID),
		slog.String("email", rec.Address),
		slog.String("status", rec.Status),
	)
	return nil
}

// Close is a no-op; the connection pool is owned by the caller
func (s *PostgresStore) Close() error {
	return nil
}

func classifyPostgresError(err error) error {
	if errors.Is(err, driver.ErrBadConn) {
		return domain.NewRetryableError(err)
	}

	// Class 08: connection exception
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == "08" {
		return domain.NewRetryableError(err)
	}

	return err
}
