package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cuongbtq/signup-harvester/internal/results"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sequenceGenerator hands out fixed addresses, then numbered ones
type sequenceGenerator struct {
	mu        sync.Mutex
	addresses []string
	calls     int
}

func (g *sequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls++
	if g.calls <= len(g.addresses) {
		return g.addresses[g.calls-1]
	}
	return fmt.Sprintf("user%d@x.com", g.calls)
}

func (g *sequenceGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// scriptedFinder returns a code once an address has been looked up hitOn
// times; addresses without a script never get a code
type scriptedFinder struct {
	mu       sync.Mutex
	hitOn    map[string]int
	code     map[string]string
	calls    map[string]int
	inFlight map[string]int
	overlap  atomic.Bool
	lookupFn func(address string, call int) error
}

func newScriptedFinder() *scriptedFinder {
	return &scriptedFinder{
		hitOn:    make(map[string]int),
		code:     make(map[string]string),
		calls:    make(map[string]int),
		inFlight: make(map[string]int),
	}
}

func (f *scriptedFinder) succeedOn(address string, call int, code string) *scriptedFinder {
	f.hitOn[address] = call
	f.code[address] = code
	return f
}

func (f *scriptedFinder) FindCode(ctx context.Context, address string) (string, error) {
	f.mu.Lock()
	f.calls[address]++
	call := f.calls[address]
	f.inFlight[address]++
	if f.inFlight[address] > 1 {
		f.overlap.Store(true)
	}
	hitOn, scripted := f.hitOn[address]
	code := f.code[address]
	lookupFn := f.lookupFn
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight[address]--
		f.mu.Unlock()
	}()

	// Give other workers a chance to overlap if ownership were broken
	time.Sleep(time.Millisecond)

	if lookupFn != nil {
		if err := lookupFn(address, call); err != nil {
			return "", err
		}
	}
	if scripted && call >= hitOn {
		return code, nil
	}
	return "", nil
}

func (f *scriptedFinder) Calls(address string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[address]
}

func (f *scriptedFinder) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

// failingRegistrar fails for the listed addresses
type failingRegistrar struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls map[string]int
}

func newFailingRegistrar(addresses ...string) *failingRegistrar {
	r := &failingRegistrar{
		fail:  make(map[string]bool),
		calls: make(map[string]int),
	}
	for _, a := range addresses {
		r.fail[a] = true
	}
	return r
}

func (r *failingRegistrar) Register(ctx context.Context, address string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls[address]++
	if r.fail[address] {
		return errors.New("submit button not found")
	}
	return nil
}

func (r *failingRegistrar) Calls(address string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[address]
}

// memoryStore keeps appended records in memory
type memoryStore struct {
	mu        sync.Mutex
	records   []results.Record
	initCalls int
	appendFn  func(rec results.Record) error
}

func (s *memoryStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initCalls++
	return nil
}

func (s *memoryStore) Append(ctx context.Context, rec results.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.appendFn != nil {
		if err := s.appendFn(rec); err != nil {
			return err
		}
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *memoryStore) Records() []results.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]results.Record(nil), s.records...)
}

func (s *memoryStore) ByAddress(address string) []results.Record {
	var out []results.Record
	for _, rec := range s.Records() {
		if rec.Address == address {
			out = append(out, rec)
		}
	}
	return out
}

func newTestPipeline(t *testing.T, cfg Config) *Pipeline {
	t.Helper()

	if cfg.Logger == nil {
		cfg.Logger = discardLogger()
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Millisecond
	}
	if cfg.PersistRetryDelay == 0 {
		cfg.PersistRetryDelay = time.Millisecond
	}

	p, err := New(&cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func runWithTimeout(t *testing.T, p *Pipeline, workers, perWorker int) *Summary {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	summary, err := p.Run(ctx, workers, perWorker)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return summary
}
