package results

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
)

var csvHeader = []string{"email", "code", "timestamp", "status"}

// CSVStore appends records to a CSV file. The file is never truncated, so
// repeated runs accumulate rows.
type CSVStore struct {
	path   string
	logger *slog.Logger

	mu   sync.Mutex
	file *os.File
	w    *csv.Writer
}

// NewCSVStore creates a store writing to path
func NewCSVStore(path string, logger *slog.Logger) *CSVStore {
	return &CSVStore{
		path:   path,
		logger: logger,
	}
}

// Init creates the file with a header row if it does not exist and opens it
// for appending
func (s *CSVStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file != nil {
		return nil
	}

	_, err := os.Stat(s.path)
	needHeader := errors.Is(err, fs.ErrNotExist)
	if err != nil && !needHeader {
		return fmt.Errorf("failed to stat result file: %w", err)
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open result file: %w", err)
	}

	w := csv.NewWriter(file)
	if needHeader {
		if err := w.Write(csvHeader); err != nil {
			file.Close()
			return fmt.Errorf("failed to write result header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			file.Close()
			return fmt.Errorf("failed to write result header: %w", err)
		}

		s.logger.Info("Created result file",
			slog.String("path", s.path),
		)
	}

	s.file = file
	s.w = w
	return nil
}

// Append writes one row and flushes it to disk
func (s *CSVStore) Append(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.w == nil {
		return fmt.Errorf("result file %s is not initialized", s.path)
	}

	row := []string{rec.Address, rec.Code, rec.RecordedAt.Format(TimestampLayout), rec.Status}
	if err := s.w.Write(row); err != nil {
		return fmt.Errorf("failed to write result row: %w", err)
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return fmt.Errorf("failed to flush result row: %w", err)
	}

	return nil
}

// Close flushes and closes the file
func (s *CSVStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}

	s.w.Flush()
	err := s.file.Close()
	s.file = nil
	s.w = nil
	if err != nil {
		return fmt.Errorf("failed to close result file: %w", err)
	}
	return nil
}
