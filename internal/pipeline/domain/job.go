package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Job is one address's progress through registration and verification.
// A job is owned by exactly one stage at a time and only that stage mutates it.
type Job struct {
	ID            string
	Address       string
	Status        JobStatus
	Code          string
	CompletedAt   *time.Time
	Attempts      int
	FailureReason string
}

// NewJob creates a pending job for address
func NewJob(address string) *Job {
	return &Job{
		ID:      uuid.NewString(),
		Address: address,
		Status:  JobStatusPending,
	}
}

// RecordMiss counts one failed verification lookup and returns the new total
func (j *Job) RecordMiss() int {
	j.Attempts++
	return j.Attempts
}

// MarkVerified moves a pending job to VERIFIED with its code
func (j *Job) MarkVerified(code string, at time.Time) error {
	if j.Status != JobStatusPending {
		return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, j.Address, j.Status)
	}
	if code == "" {
		return fmt.Errorf("empty code for %s: %w", j.Address, ErrNoCode)
	}

	j.Status = JobStatusVerified
	j.Code = code
	j.CompletedAt = &at
	return nil
}

// MarkFailed moves a pending job to FAILED
func (j *Job) MarkFailed(reason string, at time.Time) error {
	if j.Status != JobStatusPending {
		return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, j.Address, j.Status)
	}

	j.Status = JobStatusFailed
	j.Code = ""
	j.FailureReason = reason
	j.CompletedAt = &at
	return nil
}
