package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJob(t *testing.T) {
	job := NewJob("a@x.com")

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "a@x.com", job.Address)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Zero(t, job.Attempts)
	assert.Empty(t, job.Code)
	assert.Nil(t, job.CompletedAt)
}

func TestJob_Transitions(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name       string
		apply      func(j *Job) error
		wantStatus JobStatus
		wantCode   string
		wantErr    error
	}{
		{
			name:       "verify pending job",
			apply:      func(j *Job) error { return j.MarkVerified("ABC123", now) },
			wantStatus: JobStatusVerified,
			wantCode:   "ABC123",
		},
		{
			name:       "fail pending job",
			apply:      func(j *Job) error { return j.MarkFailed(FailureMaxAttempts, now) },
			wantStatus: JobStatusFailed,
		},
		{
			name:       "verify with empty code",
			apply:      func(j *Job) error { return j.MarkVerified("", now) },
			wantStatus: JobStatusPending,
			wantErr:    ErrNoCode,
		},
		{
			name: "verified job cannot fail",
			apply: func(j *Job) error {
				require.NoError(t, j.MarkVerified("XYZ", now))
				return j.MarkFailed(FailureMaxAttempts, now)
			},
			wantStatus: JobStatusVerified,
			wantCode:   "XYZ",
			wantErr:    ErrInvalidTransition,
		},
		{
			name: "failed job cannot be verified",
			apply: func(j *Job) error {
				require.NoError(t, j.MarkFailed(FailureRegistration, now))
				return j.MarkVerified("XYZ", now)
			},
			wantStatus: JobStatusFailed,
			wantErr:    ErrInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewJob("a@x.com")
			err := tt.apply(job)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
			} else {
				require.NoError(t, err)
				require.NotNil(t, job.CompletedAt)
				assert.Equal(t, now, *job.CompletedAt)
			}
			assert.Equal(t, tt.wantStatus, job.Status)
			assert.Equal(t, tt.wantCode, job.Code)
		})
	}
}

func TestJob_RecordMiss(t *testing.T) {
	job := NewJob("b@x.com")
	for i := 1; i <= 3; i++ {
		assert.Equal(t, i, job.RecordMiss())
	}
	assert.Equal(t, 3, job.Attempts)
}

func TestRetryableError(t *testing.T) {
	base := errors.New("connection reset")
	err := NewRetryableError(base)

	assert.True(t, IsRetryable(err))
	assert.True(t, errors.Is(err, base))
	assert.Equal(t, "retryable error: connection reset", err.Error())
	assert.False(t, IsRetryable(base))
}

func TestJobStatus_IsTerminal(t *testing.T) {
	assert.False(t, JobStatusPending.IsTerminal())
	assert.True(t, JobStatusVerified.IsTerminal())
	assert.True(t, JobStatusFailed.IsTerminal())
}
