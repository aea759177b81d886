// Package results persists terminal signup outcomes.
package results

import (
	"context"
	"time"

	"github.com/cuongbtq/signup-harvester/internal/pipeline/domain"
)

// TimestampLayout is the timestamp format used in the CSV result file
const TimestampLayout = "2006-01-02 15:04:05"

// Record is one persisted outcome
type Record struct {
	ID         string    `json:"id" db:"id"`
	RunID      string    `json:"run_id" db:"run_id"`
	Address    string    `json:"email" db:"email"`
	Code       string    `json:"code" db:"code"`
	RecordedAt time.Time `json:"timestamp" db:"recorded_at"`
	Status     string    `json:"status" db:"status"`
	Attempts   int       `json:"attempts" db:"attempts"`
}

// Store is an append-only sink for outcome records
type Store interface {
	// Init prepares the store (header row, schema) before the first Append
	Init(ctx context.Context) error
	Append(ctx context.Context, rec Record) error
	Close() error
}

// FromJob builds the record for a terminal job. Failed jobs carry the
// FailedCodeMarker in place of a code and are stamped with now.
func FromJob(runID string, job *domain.Job, now time.Time) Record {
	rec := Record{
		ID:         job.ID,
		RunID:      runID,
		Address:    job.Address,
		RecordedAt: now,
		Status:     string(job.Status),
		Attempts:   job.Attempts,
	}

	switch job.Status {
	case domain.JobStatusVerified:
		rec.Code = job.Code
		if job.CompletedAt != nil {
			rec.RecordedAt = *job.CompletedAt
		}
	default:
		rec.Code = domain.FailedCodeMarker
	}

	return rec
}
