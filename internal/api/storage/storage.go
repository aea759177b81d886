package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cuongbtq/signup-harvester/internal/api/domain"
	"github.com/cuongbtq/signup-harvester/internal/api/model"
	"github.com/jmoiron/sqlx"
)

type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{
		db: db,
	}
}

const resultColumns = `id, run_id, email, code, status, attempts, recorded_at, created_at`

func (s *Storage) GetResultByID(ctx context.Context, id string) (*model.Result, error) {
	var result model.Result
	query := `SELECT ` + resultColumns + ` FROM signup_results WHERE id = $1`

	err := s.db.GetContext(ctx, &result, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	return &result, nil
}

type ResultFilter struct {
	Status   string
	RunID    string
	Email    string
	PageSize int
	Cursor   *ResultCursor
}

// ResultCursor marks the last row of the previous page
type ResultCursor struct {
	RecordedAt time.Time
	ID         string
}

// ListResults returns up to PageSize+1 rows, newest first. The extra row tells
// the caller whether another page exists.
func (s *Storage) ListResults(ctx context.Context, filter ResultFilter) ([]model.Result, error) {
	query := `SELECT ` + resultColumns + ` FROM signup_results WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.RunID != "" {
		query += fmt.Sprintf(" AND run_id = $%d", argIdx)
		args = append(args, filter.RunID)
		argIdx++
	}

	if filter.Email != "" {
		query += fmt.Sprintf(" AND email = $%d", argIdx)
		args = append(args, filter.Email)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (recorded_at, id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.RecordedAt, filter.Cursor.ID)
		argIdx += 2
	}

	query += " ORDER BY recorded_at DESC, id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var results []model.Result
	if err := s.db.SelectContext(ctx, &results, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	return results, nil
}

// CountByStatus counts results per status, optionally within one run
func (s *Storage) CountByStatus(ctx context.Context, runID string) ([]model.StatusCount, error) {
	query := `SELECT status, COUNT(*) AS count FROM signup_results`
	args := []interface{}{}
	if runID != "" {
		query += ` WHERE run_id = $1`
		args = append(args, runID)
	}
	query += ` GROUP BY status ORDER BY status`

	var counts []model.StatusCount
	if err := s.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to count results: %w", err)
	}

	return counts, nil
}
