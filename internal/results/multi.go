package results

import (
	"context"
	"errors"
	"sync"

	"github.com/cuongbtq/signup-harvester/internal/pipeline/domain"
)

// MultiStore fans every call out to several stores. Appends are serialized so
// each sink sees records in the same order. When an Append partially fails,
// a later Append of the same record only goes to the stores that missed it.
type MultiStore struct {
	mu      sync.Mutex
	stores  []Store
	written map[string][]bool
}

// NewMultiStore creates a fan-out over stores
func NewMultiStore(stores ...Store) *MultiStore {
	return &MultiStore{
		stores:  stores,
		written: make(map[string][]bool),
	}
}

// Init initializes every store, stopping at the first failure
func (m *MultiStore) Init(ctx context.Context) error {
	for _, s := range m.stores {
		if err := s.Init(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Append writes rec to every store and joins the errors of those that failed
func (m *MultiStore) Append(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	written, ok := m.written[rec.ID]
	if !ok {
		written = make([]bool, len(m.stores))
	}

	var errs []error
	for i, s := range m.stores {
		if written[i] {
			continue
		}
		if err := s.Append(ctx, rec); err != nil {
			errs = append(errs, err)
			continue
		}
		written[i] = true
	}

	if len(errs) == 0 {
		delete(m.written, rec.ID)
		return nil
	}

	err := errors.Join(errs...)
	if !domain.IsRetryable(err) {
		delete(m.written, rec.ID)
		return err
	}
	m.written[rec.ID] = written
	return err
}

// Forget drops the partial-write state of a record the caller stopped retrying
func (m *MultiStore) Forget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.written, id)
}

func (m *MultiStore) pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.written)
}

// Close closes every store
func (m *MultiStore) Close() error {
	var errs []error
	for _, s := range m.stores {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
