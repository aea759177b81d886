package results

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/cuongbtq/signup-harvester/internal/pipeline/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStore struct {
	initErr   error
	failNext  int
	appendErr error
	appended  []string
	inits     int
	closed    bool
}

func (s *recordingStore) Init(context.Context) error {
	s.inits++
	return s.initErr
}

func (s *recordingStore) Append(_ context.Context, rec Record) error {
	if s.failNext > 0 {
		s.failNext--
		return s.appendErr
	}
	s.appended = append(s.appended, rec.ID)
	return nil
}

func (s *recordingStore) Close() error {
	s.closed = true
	return nil
}

func TestMultiStore_Init(t *testing.T) {
	initErr := errors.New("schema failed")
	first := &recordingStore{initErr: initErr}
	second := &recordingStore{}

	err := NewMultiStore(first, second).Init(context.Background())
	assert.ErrorIs(t, err, initErr)
	assert.Equal(t, 0, second.inits)
}

func TestMultiStore_AppendFanOut(t *testing.T) {
	a, b := &recordingStore{}, &recordingStore{}
	m := NewMultiStore(a, b)

	require.NoError(t, m.Append(context.Background(), Record{ID: "1"}))
	require.NoError(t, m.Append(context.Background(), Record{ID: "2"}))

	assert.Equal(t, []string{"1", "2"}, a.appended)
	assert.Equal(t, []string{"1", "2"}, b.appended)
}

func TestMultiStore_RetryOnlyMissedStores(t *testing.T) {
	csvStore := &recordingStore{}
	dbStore := &recordingStore{
		failNext:  1,
		appendErr: domain.NewRetryableError(errors.New("connection reset")),
	}
	m := NewMultiStore(csvStore, dbStore)

	err := m.Append(context.Background(), Record{ID: "1"})
	require.Error(t, err)
	assert.True(t, domain.IsRetryable(err))

	require.NoError(t, m.Append(context.Background(), Record{ID: "1"}))

	assert.Equal(t, []string{"1"}, csvStore.appended)
	assert.Equal(t, []string{"1"}, dbStore.appended)
}

func TestMultiStore_PartialWriteState(t *testing.T) {
	tests := []struct {
		name        string
		appendErr   error
		forget      bool
		wantPending int
	}{
		{name: "permanent failure is not kept", appendErr: errors.New("duplicate key")},
		{name: "retryable failure is kept", appendErr: domain.NewRetryableError(errors.New("connection reset")), wantPending: 1000},
		{name: "forget clears retryable state", appendErr: domain.NewRetryableError(errors.New("connection reset")), forget: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			csvStore := &recordingStore{}
			dbStore := &recordingStore{failNext: 1000, appendErr: tt.appendErr}
			m := NewMultiStore(csvStore, dbStore)

			for i := 0; i < 1000; i++ {
				id := strconv.Itoa(i)
				require.Error(t, m.Append(context.Background(), Record{ID: id}))
				if tt.forget {
					m.Forget(id)
				}
			}

			assert.Equal(t, tt.wantPending, m.pending())
		})
	}
}

func TestMultiStore_Close(t *testing.T) {
	a, b := &recordingStore{}, &recordingStore{}
	require.NoError(t, NewMultiStore(a, b).Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}
