package pipeline

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/signup-harvester/internal/pipeline/domain"
)

// registrationStage submits each address once and forwards successes to
// verification. Failures are dropped unless recordRegistrationFailures is set.
type registrationStage struct {
	*run
}

func (s *registrationStage) name() string { return "registration" }

func (s *registrationStage) drainOnStop() bool { return false }

func (s *registrationStage) handle(ctx context.Context, w *worker, job *domain.Job) {
	if job.Status != domain.JobStatusPending {
		s.logger.Warn("Skipping non-pending job in registration queue",
			slog.String("worker_name", w.name),
			slog.String("job_id", job.ID),
			slog.String("status", string(job.Status)),
		)
		s.stats.abandoned.Add(1)
		return
	}

	w.processed++
	s.logger.Info("Starting signup",
		slog.String("worker_name", w.name),
		slog.Int("signup", w.processed),
		slog.Int("signups_per_worker", s.jobsPerWorker),
		slog.String("address", job.Address),
	)

	// The registration call is allowed to finish even when the run is stopping
	err := guard(func() error {
		return s.registrar.Register(context.WithoutCancel(ctx), job.Address)
	})
	s.metrics.Registration(err == nil)

	if err != nil {
		s.logger.Error("Signup failed",
			slog.String("worker_name", w.name),
			slog.Int("signup", w.processed),
			slog.String("address", job.Address),
			slog.Any("error", err),
		)
		s.stats.registrationFailures.Add(1)

		if !s.recordRegistrationFailures {
			s.stats.dropped.Add(1)
			return
		}

		if err := job.MarkFailed(domain.FailureRegistration, s.now()); err != nil {
			s.logger.Error("Failed to mark job as failed",
				slog.String("job_id", job.ID),
				slog.Any("error", err),
			)
			s.stats.dropped.Add(1)
			return
		}
		s.stats.failed.Add(1)
		s.completion.Put(job)
		return
	}

	s.stats.registered.Add(1)
	s.logger.Info("Signup submitted",
		slog.String("worker_name", w.name),
		slog.String("address", job.Address),
	)
	s.verification.Put(job)
}
