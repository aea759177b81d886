package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/cuongbtq/signup-harvester/internal/pipeline/domain"
)

// verificationStage makes one code lookup per received job. A miss puts the
// job back on the verification queue after the retry delay until maxAttempts
// lookups have missed, at which point the job fails.
type verificationStage struct {
	*run
}

func (s *verificationStage) name() string { return "verification" }

func (s *verificationStage) drainOnStop() bool { return false }

func (s *verificationStage) handle(ctx context.Context, w *worker, job *domain.Job) {
	if job.Status != domain.JobStatusPending {
		s.logger.Warn("Skipping non-pending job in verification queue",
			slog.String("worker_name", w.name),
			slog.String("job_id", job.ID),
			slog.String("status", string(job.Status)),
		)
		s.stats.abandoned.Add(1)
		return
	}

	var code string
	err := guard(func() error {
		var lookupErr error
		code, lookupErr = s.finder.FindCode(context.WithoutCancel(ctx), job.Address)
		return lookupErr
	})
	found := err == nil && code != ""
	s.metrics.Lookup(found)

	if found {
		if err := job.MarkVerified(code, s.now()); err != nil {
			s.logger.Error("Failed to mark job as verified",
				slog.String("job_id", job.ID),
				slog.Any("error", err),
			)
			s.stats.abandoned.Add(1)
			return
		}

		s.stats.verified.Add(1)
		s.logger.Info("Found code",
			slog.String("worker_name", w.name),
			slog.String("address", job.Address),
			slog.String("code", code),
			slog.Int("misses", job.Attempts),
		)
		s.completion.Put(job)
		return
	}

	attempts := job.RecordMiss()
	attrs := []any{
		slog.String("worker_name", w.name),
		slog.String("address", job.Address),
		slog.Int("attempt", attempts),
		slog.Int("max_attempts", s.maxAttempts),
	}
	if err != nil {
		attrs = append(attrs, slog.Any("error", err))
	}
	s.logger.Warn("No code found", attrs...)

	if attempts >= s.maxAttempts {
		if err := job.MarkFailed(domain.FailureMaxAttempts, s.now()); err != nil {
			s.logger.Error("Failed to mark job as failed",
				slog.String("job_id", job.ID),
				slog.Any("error", err),
			)
			s.stats.abandoned.Add(1)
			return
		}

		s.stats.failed.Add(1)
		s.logger.Error("Max attempts reached",
			slog.String("worker_name", w.name),
			slog.String("address", job.Address),
			slog.Any("error", domain.ErrMaxAttemptsExceeded),
		)
		s.completion.Put(job)
		return
	}

	s.stats.retries.Add(1)
	s.metrics.Retry()
	s.requeue(ctx, w, job)
}

// requeue puts a missed job back on the verification queue after retryDelay
func (s *verificationStage) requeue(ctx context.Context, w *worker, job *domain.Job) {
	if s.retryMode == RetryTimer {
		s.verification.PutAfter(job, s.retryDelay)
		return
	}

	timer := time.NewTimer(s.retryDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		s.verification.Put(job)
	case <-ctx.Done():
		s.stats.abandoned.Add(1)
		s.logger.Warn("Abandoning job during retry delay",
			slog.String("worker_name", w.name),
			slog.String("address", job.Address),
			slog.Int("attempts", job.Attempts),
		)
	}
}
