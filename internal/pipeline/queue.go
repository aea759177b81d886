package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/cuongbtq/signup-harvester/internal/pipeline/domain"
)

// Queue is an unbounded FIFO hand-off between stages.
//
// Every Put (and every PutAfter reservation) counts as one outstanding unit of
// work until the consumer that received the job calls Done. Join returns once
// nothing is queued, reserved or held by a worker. A worker that forwards a job
// downstream must Put it there before calling Done here, so a sequence of Joins
// from the first queue to the last observes the whole pipeline drained.
type Queue struct {
	name string

	mu          sync.Mutex
	items       []*domain.Job
	outstanding int
	ready       chan struct{}
	idle        chan struct{}
	timers      map[*time.Timer]struct{}
	closed      bool
	closedCh    chan struct{}
}

// NewQueue creates an empty queue
func NewQueue(name string) *Queue {
	idle := make(chan struct{})
	close(idle)

	return &Queue{
		name:     name,
		ready:    make(chan struct{}, 1),
		idle:     idle,
		timers:   make(map[*time.Timer]struct{}),
		closedCh: make(chan struct{}),
	}
}

// Name returns the queue name used in logs and metrics
func (q *Queue) Name() string {
	return q.name
}

// Put appends job to the queue
func (q *Queue) Put(job *domain.Job) {
	q.mu.Lock()
	q.reserveLocked()
	q.items = append(q.items, job)
	q.mu.Unlock()

	q.signal()
}

// PutAfter reserves an outstanding slot now and appends job once delay has
// elapsed. The job is invisible to consumers during the delay but the queue
// does not report drained.
func (q *Queue) PutAfter(job *domain.Job, delay time.Duration) {
	if delay <= 0 {
		q.Put(job)
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.reserveLocked()
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		q.mu.Lock()
		delete(q.timers, timer)
		q.items = append(q.items, job)
		q.mu.Unlock()

		q.signal()
	})
	q.timers[timer] = struct{}{}
}

// Get removes the oldest job, blocking until one is available or ctx is done
func (q *Queue) Get(ctx context.Context) (*domain.Job, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			job := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			more := len(q.items) > 0
			q.mu.Unlock()

			// Pass the wake-up on so another waiter sees the remaining items
			if more {
				q.signal()
			}
			return job, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return nil, domain.ErrQueueClosed
		}

		select {
		case <-q.ready:
		case <-q.closedCh:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Done acknowledges that a job obtained from Get has been fully handled
func (q *Queue) Done() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.outstanding <= 0 {
		panic("pipeline: Done called more times than jobs were put on queue " + q.name)
	}
	q.releaseLocked()
}

// Join blocks until every job put on the queue has been acknowledged
func (q *Queue) Join(ctx context.Context) error {
	for {
		q.mu.Lock()
		if q.outstanding == 0 {
			q.mu.Unlock()
			return nil
		}
		idle := q.idle
		q.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close wakes all consumers; Get returns ErrQueueClosed once the queue is empty.
// Delayed jobs that have not been admitted yet are discarded.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.closedCh)

	for timer := range q.timers {
		if timer.Stop() {
			delete(q.timers, timer)
			q.releaseLocked()
		}
	}
}

// Len returns the number of jobs waiting to be received
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Outstanding returns queued, delayed and in-flight jobs not yet acknowledged
func (q *Queue) Outstanding() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.outstanding
}

func (q *Queue) reserveLocked() {
	if q.outstanding == 0 {
		q.idle = make(chan struct{})
	}
	q.outstanding++
}

func (q *Queue) releaseLocked() {
	q.outstanding--
	if q.outstanding == 0 {
		close(q.idle)
	}
}

func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
