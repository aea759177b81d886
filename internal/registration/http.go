// Package registration submits signup requests to the waitlist endpoint.
package registration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cuongbtq/signup-harvester/internal/pipeline/domain"
)

// Body encodings
const (
	EncodingJSON = "json"
	EncodingForm = "form"
)

// Config holds HTTP registrar configuration
type Config struct {
	Endpoint  string
	Field     string
	Encoding  string
	Headers   map[string]string
	Timeout   time.Duration
	UserAgent string
}

// HTTPRegistrar posts an address to the waitlist endpoint once per call
type HTTPRegistrar struct {
	config *Config
	client *http.Client
	logger *slog.Logger
}

// NewHTTPRegistrar creates a new HTTPRegistrar instance
func NewHTTPRegistrar(config *Config, logger *slog.Logger) (*HTTPRegistrar, error) {
	if _, err := url.ParseRequestURI(config.Endpoint); err != nil {
		return nil, fmt.Errorf("invalid registration endpoint: %w", err)
	}

	switch config.Encoding {
	case EncodingJSON, EncodingForm:
	default:
		return nil, fmt.Errorf("unsupported registration encoding %q", config.Encoding)
	}

	if config.Field == "" {
		return nil, fmt.Errorf("registration field name is required")
	}

	return &HTTPRegistrar{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
	}, nil
}

// Register submits address. Any transport error or non-2xx response is a failure.
func (r *HTTPRegistrar) Register(ctx context.Context, address string) error {
	body, contentType, err := r.encode(address)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRegistrationFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.Endpoint, body)
	if err != nil {
		return fmt.Errorf("%w: failed to build request: %v", domain.ErrRegistrationFailed, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.8")
	if r.config.UserAgent != "" {
		req.Header.Set("User-Agent", r.config.UserAgent)
	}
	for k, v := range r.config.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRegistrationFailed, err)
	}
	defer resp.Body.Close()

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	r.logger.Debug("Registration response",
		slog.String("address", address),
		slog.Int("status", resp.StatusCode),
		slog.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: endpoint returned %d: %s",
			domain.ErrRegistrationFailed, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	return nil
}

func (r *HTTPRegistrar) encode(address string) (io.Reader, string, error) {
	if r.config.Encoding == EncodingForm {
		form := url.Values{}
		form.Set(r.config.Field, address)
		return strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", nil
	}

	payload, err := json.Marshal(map[string]string{r.config.Field: address})
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request: %w", err)
	}
	return bytes.NewReader(payload), "application/json", nil
}
