package handler

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/signup-harvester/internal/api/model"
	"github.com/cuongbtq/signup-harvester/internal/api/storage"
)

// ResultReader is the read side of the result table
type ResultReader interface {
	GetResultByID(ctx context.Context, id string) (*model.Result, error)
	ListResults(ctx context.Context, filter storage.ResultFilter) ([]model.Result, error)
	CountByStatus(ctx context.Context, runID string) ([]model.StatusCount, error)
}

// HealthChecker reports whether the backing database is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger      *slog.Logger
	Results     ResultReader
	Health      HealthChecker
	ServiceName string
}

// ResultHandler handles result-related HTTP requests
type ResultHandler struct {
	logger  *slog.Logger
	results ResultReader
}

// NewResultHandler creates a new ResultHandler instance
func NewResultHandler(deps *Dependencies) *ResultHandler {
	return &ResultHandler{
		logger:  deps.Logger,
		results: deps.Results,
	}
}
