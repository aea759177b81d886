package results

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// EventTypeCompleted is the event type published for every terminal job
const EventTypeCompleted = "signup.completed"

// Publisher publishes a message body to the configured exchange
type Publisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// Event is the message published for each record
type Event struct {
	Type   string `json:"type"`
	Record Record `json:"record"`
}

// AMQPStore publishes each record as a JSON event
type AMQPStore struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewAMQPStore creates a new AMQPStore instance
func NewAMQPStore(publisher Publisher, logger *slog.Logger) *AMQPStore {
	return &AMQPStore{
		publisher: publisher,
		logger:    logger,
	}
}

// Init is a no-op; the exchange is declared when the client connects
func (s *AMQPStore) Init(ctx context.Context) error {
	return nil
}

// Append publishes the record event
func (s *AMQPStore) Append(ctx context.Context, rec Record) error {
	body, err := json.Marshal(Event{Type: EventTypeCompleted, Record: rec})
	if err != nil {
		return fmt.Errorf("failed to marshal result event: %w", err)
	}

	if err := s.publisher.PublishWithRetry(ctx, body, "application/json"); err != nil {
		return fmt.Errorf("failed to publish result event: %w", err)
	}

	s.logger.Debug("Result event published",
		slog.String("id", rec.ID),
		slog.String("status", rec.Status),
	)
	return nil
}

// Close is a no-op; the connection is owned by the caller
func (s *AMQPStore) Close() error {
	return nil
}
