package results

import (
	"testing"
	"time"

	"github.com/cuongbtq/signup-harvester/internal/pipeline/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromJob(t *testing.T) {
	completed := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	now := completed.Add(time.Minute)

	verified := domain.NewJob("a@x.com")
	verified.RecordMiss()
	require.NoError(t, verified.MarkVerified("K7Q2ZX", completed))

	failed := domain.NewJob("b@x.com")
	for i := 0; i < domain.DefaultMaxAttempts; i++ {
		failed.RecordMiss()
	}
	require.NoError(t, failed.MarkFailed(domain.FailureMaxAttempts, completed))

	tests := []struct {
		name       string
		job        *domain.Job
		wantCode   string
		wantStatus string
		wantAt     time.Time
		wantTries  int
	}{
		{name: "verified keeps code and completion time", job: verified, wantCode: "K7Q2ZX", wantStatus: "verified", wantAt: completed, wantTries: 1},
		{name: "failed carries marker", job: failed, wantCode: domain.FailedCodeMarker, wantStatus: "failed", wantAt: now, wantTries: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := FromJob("run-1", tt.job, now)

			assert.Equal(t, tt.job.ID, rec.ID)
			assert.Equal(t, "run-1", rec.RunID)
			assert.Equal(t, tt.job.Address, rec.Address)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantStatus, rec.Status)
			assert.Equal(t, tt.wantAt, rec.RecordedAt)
			assert.Equal(t, tt.wantTries, rec.Attempts)
		})
	}
}
