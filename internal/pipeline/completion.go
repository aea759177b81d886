package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/cuongbtq/signup-harvester/internal/pipeline/domain"
	"github.com/cuongbtq/signup-harvester/internal/results"
)

// forgetter is implemented by stores that keep per-record retry state
type forgetter interface {
	Forget(id string)
}

// completionStage writes one result record per terminal job
type completionStage struct {
	*run
}

func (s *completionStage) name() string { return "completion" }

// Terminal jobs already in the queue are still persisted on shutdown
func (s *completionStage) drainOnStop() bool { return true }

func (s *completionStage) handle(ctx context.Context, w *worker, job *domain.Job) {
	if !job.Status.IsTerminal() {
		s.logger.Error("Non-terminal job reached completion queue",
			slog.String("job_id", job.ID),
			slog.String("status", string(job.Status)),
		)
		s.stats.abandoned.Add(1)
		return
	}

	rec := results.FromJob(s.id, job, s.now())
	if err := s.persist(context.WithoutCancel(ctx), rec); err != nil {
		if f, ok := s.store.(forgetter); ok {
			f.Forget(rec.ID)
		}
		s.stats.persistErrors.Add(1)
		s.metrics.PersistError()
		s.logger.Error("Failed to record result",
			slog.String("worker_name", w.name),
			slog.String("address", job.Address),
			slog.String("status", rec.Status),
			slog.Any("error", err),
		)
		return
	}

	w.processed++
	s.stats.persisted.Add(1)
	s.metrics.Outcome(rec.Status)
	s.logger.Info("Result recorded",
		slog.String("address", rec.Address),
		slog.String("code", rec.Code),
		slog.String("status", rec.Status),
	)
}

// persist appends rec, retrying errors marked retryable
func (s *completionStage) persist(ctx context.Context, rec results.Record) error {
	var err error
	for attempt := 1; attempt <= s.persistAttempts; attempt++ {
		err = s.store.Append(ctx, rec)
		if err == nil || !domain.IsRetryable(err) {
			return err
		}

		if attempt < s.persistAttempts {
			s.logger.Warn("Result store write failed, retrying",
				slog.String("id", rec.ID),
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", s.persistAttempts),
				slog.Duration("retry_after", s.persistRetryDelay),
				slog.Any("error", err),
			)
			time.Sleep(s.persistRetryDelay)
		}
	}
	return err
}
