// Package pipeline runs the registration → verification → completion
// producer/consumer stages over in-process work queues.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/signup-harvester/internal/metrics"
	"github.com/cuongbtq/signup-harvester/internal/pipeline/domain"
	"github.com/google/uuid"
)

// RetryMode selects how a verification miss waits before the next attempt
type RetryMode string

const (
	// RetrySleep holds the worker for the delay, then requeues the job
	RetrySleep RetryMode = "sleep"
	// RetryTimer frees the worker and lets the queue admit the job after the delay
	RetryTimer RetryMode = "timer"
)

const (
	DefaultVerificationWorkers = 5
	DefaultRetryDelay          = 2 * time.Second
	DefaultPersistAttempts     = 3
	DefaultPersistRetryDelay   = 500 * time.Millisecond
)

// Queue names
const (
	QueueRegistration = "registration"
	QueueVerification = "verification"
	QueueCompletion   = "completion"
)

// Config holds pipeline configuration and collaborators
type Config struct {
	Logger    *slog.Logger
	Generator AddressGenerator
	Registrar Registrar
	Finder    CodeFinder
	Store     ResultStore
	Metrics   *metrics.Metrics

	VerificationWorkers int
	MaxAttempts         int
	RetryDelay          time.Duration
	RetryMode           RetryMode

	// RecordRegistrationFailures sends jobs whose registration failed to the
	// completion stage as FAILED instead of dropping them
	RecordRegistrationFailures bool

	PersistAttempts   int
	PersistRetryDelay time.Duration

	// Now defaults to time.Now
	Now func() time.Time
}

// Pipeline owns the stage configuration; each Run builds fresh queues
type Pipeline struct {
	logger    *slog.Logger
	generator AddressGenerator
	registrar Registrar
	finder    CodeFinder
	store     ResultStore
	metrics   *metrics.Metrics

	verificationWorkers        int
	maxAttempts                int
	retryDelay                 time.Duration
	retryMode                  RetryMode
	recordRegistrationFailures bool
	persistAttempts            int
	persistRetryDelay          time.Duration
	now                        func() time.Time
}

// New creates a new pipeline, applying defaults to unset tuning values
func New(cfg *Config) (*Pipeline, error) {
	if cfg.Generator == nil {
		return nil, fmt.Errorf("address generator is required")
	}
	if cfg.Registrar == nil {
		return nil, fmt.Errorf("registrar is required")
	}
	if cfg.Finder == nil {
		return nil, fmt.Errorf("code finder is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("result store is required")
	}

	p := &Pipeline{
		logger:                     cfg.Logger,
		generator:                  cfg.Generator,
		registrar:                  cfg.Registrar,
		finder:                     cfg.Finder,
		store:                      cfg.Store,
		metrics:                    cfg.Metrics,
		verificationWorkers:        cfg.VerificationWorkers,
		maxAttempts:                cfg.MaxAttempts,
		retryDelay:                 cfg.RetryDelay,
		retryMode:                  cfg.RetryMode,
		recordRegistrationFailures: cfg.RecordRegistrationFailures,
		persistAttempts:            cfg.PersistAttempts,
		persistRetryDelay:          cfg.PersistRetryDelay,
		now:                        cfg.Now,
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.verificationWorkers <= 0 {
		p.verificationWorkers = DefaultVerificationWorkers
	}
	if p.maxAttempts <= 0 {
		p.maxAttempts = domain.DefaultMaxAttempts
	}
	if p.retryDelay <= 0 {
		p.retryDelay = DefaultRetryDelay
	}
	switch p.retryMode {
	case RetrySleep, RetryTimer:
	case "":
		p.retryMode = RetrySleep
	default:
		return nil, fmt.Errorf("unknown retry mode %q", p.retryMode)
	}
	if p.persistAttempts <= 0 {
		p.persistAttempts = DefaultPersistAttempts
	}
	if p.persistRetryDelay <= 0 {
		p.persistRetryDelay = DefaultPersistRetryDelay
	}
	if p.now == nil {
		p.now = time.Now
	}

	return p, nil
}

// run is the state of one Run call
type run struct {
	*Pipeline

	id                  string
	registrationWorkers int
	jobsPerWorker       int

	registration *Queue
	verification *Queue
	completion   *Queue

	stats stats
	wg    sync.WaitGroup
}

// Run seeds registrationWorkers*jobsPerWorker jobs, processes them through
// all stages and returns once every queue has drained. If ctx is canceled
// first, no new jobs are picked up, in-flight jobs finish their current step
// and the summary is returned together with ctx.Err().
func (p *Pipeline) Run(ctx context.Context, registrationWorkers, jobsPerWorker int) (*Summary, error) {
	if registrationWorkers <= 0 {
		return nil, fmt.Errorf("registration worker count must be greater than 0")
	}
	if jobsPerWorker <= 0 {
		return nil, fmt.Errorf("jobs per worker must be greater than 0")
	}

	if err := p.store.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize result store: %w", err)
	}

	r := &run{
		Pipeline:            p,
		id:                  uuid.NewString(),
		registrationWorkers: registrationWorkers,
		jobsPerWorker:       jobsPerWorker,
		registration:        NewQueue(QueueRegistration),
		verification:        NewQueue(QueueVerification),
		completion:          NewQueue(QueueCompletion),
	}
	start := time.Now()

	total := registrationWorkers * jobsPerWorker
	p.logger.Info("Starting pipeline run",
		slog.String("run_id", r.id),
		slog.Int("total_signups", total),
		slog.Int("registration_workers", registrationWorkers),
		slog.Int("jobs_per_worker", jobsPerWorker),
		slog.Int("verification_workers", p.verificationWorkers),
		slog.String("retry_mode", string(p.retryMode)),
	)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	r.spawnWorkerPool(workerCtx, &verificationStage{run: r}, r.verification, p.verificationWorkers)
	r.spawnWorkerPool(workerCtx, &registrationStage{run: r}, r.registration, registrationWorkers)
	r.spawnWorkerPool(workerCtx, &completionStage{run: r}, r.completion, 1)

	r.seed(total)

	waitErr := r.waitDrained(ctx)
	if waitErr != nil {
		p.logger.Warn("Pipeline interrupted, stopping workers",
			slog.String("run_id", r.id),
			slog.Any("error", waitErr),
		)
	}

	stopWorkers()
	r.wg.Wait()
	r.shutdown(workerCtx)

	summary := r.stats.summary(r.id, time.Since(start))
	if waitErr == nil {
		p.logger.Info("All tasks completed",
			slog.String("run_id", r.id),
			slog.Int("submitted", summary.Submitted),
			slog.Int("verified", summary.Verified),
			slog.Int("failed", summary.Failed),
			slog.Int("dropped", summary.Dropped),
			slog.Int("persisted", summary.Persisted),
			slog.Duration("duration", summary.Duration),
		)
	}

	return summary, waitErr
}

// shutdown persists terminal jobs that reached the completion queue after its
// worker exited and counts everything else left behind as abandoned
func (r *run) shutdown(ctx context.Context) {
	completion := &completionStage{run: r}
	flusher := &worker{name: "completion-flush"}
	for r.completion.Len() > 0 {
		job, err := r.completion.Get(ctx)
		if err != nil {
			break
		}
		completion.handle(ctx, flusher, job)
		r.completion.Done()
	}

	r.registration.Close()
	r.verification.Close()
	r.completion.Close()

	// Whatever was not persisted, dropped or already abandoned by a stage is
	// still sitting in a queue or a retry timer
	counted := r.stats.persisted.Load() + r.stats.persistErrors.Load() +
		r.stats.dropped.Load() + r.stats.abandoned.Load()
	if left := r.stats.submitted.Load() - counted; left > 0 {
		r.stats.abandoned.Add(left)
		r.logger.Warn("Abandoned unfinished jobs",
			slog.String("run_id", r.id),
			slog.Int64("count", left),
		)
	}
}

// seed fills the registration queue with freshly generated addresses
func (r *run) seed(total int) {
	for i := 0; i < total; i++ {
		job := domain.NewJob(r.generator.Generate())
		r.registration.Put(job)
		r.stats.submitted.Add(1)
		r.metrics.JobSubmitted()

		r.logger.Debug("Job enqueued",
			slog.String("job_id", job.ID),
			slog.String("address", job.Address),
		)
	}
	r.metrics.QueueDepth(r.registration.Name(), r.registration.Len())
}

// waitDrained joins the queues in pipeline order
func (r *run) waitDrained(ctx context.Context) error {
	for _, q := range []*Queue{r.registration, r.verification, r.completion} {
		if err := q.Join(ctx); err != nil {
			return fmt.Errorf("waiting for %s queue: %w", q.Name(), err)
		}
	}
	return nil
}

// stage handles one job taken from its input queue
type stage interface {
	name() string
	// drainOnStop reports whether the stage keeps consuming queued jobs after
	// the workers have been told to stop
	drainOnStop() bool
	handle(ctx context.Context, w *worker, job *domain.Job)
}

type worker struct {
	name      string
	num       int
	processed int
}

// spawnWorkerPool spawns count goroutines consuming in
func (r *run) spawnWorkerPool(ctx context.Context, s stage, in *Queue, count int) {
	r.logger.Info("Spawning worker pool",
		slog.String("stage", s.name()),
		slog.Int("concurrency", count),
	)

	for i := 0; i < count; i++ {
		r.wg.Add(1)
		go r.workerLoop(ctx, s, in, i+1)
	}
}

// workerLoop is the main processing loop for each worker goroutine
func (r *run) workerLoop(ctx context.Context, s stage, in *Queue, num int) {
	defer r.wg.Done()

	w := &worker{
		name: fmt.Sprintf("%s-%d", s.name(), num),
		num:  num,
	}
	r.logger.Debug("Worker goroutine started",
		slog.String("worker_name", w.name),
	)

	for {
		if ctx.Err() != nil && !s.drainOnStop() {
			r.logger.Debug("Worker goroutine stopping - context canceled",
				slog.String("worker_name", w.name),
			)
			return
		}

		job, err := in.Get(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, domain.ErrQueueClosed) {
				r.logger.Error("Worker failed to receive job",
					slog.String("worker_name", w.name),
					slog.Any("error", err),
				)
			}
			r.logger.Debug("Worker goroutine stopping",
				slog.String("worker_name", w.name),
			)
			return
		}
		r.metrics.QueueDepth(in.Name(), in.Len())

		s.handle(ctx, w, job)
		in.Done()
	}
}
