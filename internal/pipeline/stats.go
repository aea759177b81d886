package pipeline

import (
	"sync/atomic"
	"time"
)

// Summary reports the accounting of one pipeline run
type Summary struct {
	RunID                string
	Submitted            int
	Registered           int
	RegistrationFailures int
	Dropped              int
	Verified             int
	Failed               int
	Retries              int
	Persisted            int
	PersistErrors        int
	Abandoned            int
	Duration             time.Duration
}

// Accounted returns the number of jobs whose fate is known: persisted,
// lost to a store error, dropped after registration or abandoned on shutdown
func (s *Summary) Accounted() int {
	return s.Persisted + s.PersistErrors + s.Dropped + s.Abandoned
}

type stats struct {
	submitted            atomic.Int64
	registered           atomic.Int64
	registrationFailures atomic.Int64
	dropped              atomic.Int64
	verified             atomic.Int64
	failed               atomic.Int64
	retries              atomic.Int64
	persisted            atomic.Int64
	persistErrors        atomic.Int64
	abandoned            atomic.Int64
}

func (s *stats) summary(runID string, elapsed time.Duration) *Summary {
	return &Summary{
		RunID:                runID,
		Submitted:            int(s.submitted.Load()),
		Registered:           int(s.registered.Load()),
		RegistrationFailures: int(s.registrationFailures.Load()),
		Dropped:              int(s.dropped.Load()),
		Verified:             int(s.verified.Load()),
		Failed:               int(s.failed.Load()),
		Retries:              int(s.retries.Load()),
		Persisted:            int(s.persisted.Load()),
		PersistErrors:        int(s.persistErrors.Load()),
		Abandoned:            int(s.abandoned.Load()),
		Duration:             elapsed,
	}
}
