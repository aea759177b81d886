package registration

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cuongbtq/signup-harvester/internal/pipeline/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewHTTPRegistrar(t *testing.T) {
	tests := []struct {
		name      string
		config    *Config
		wantErr   bool
		errString string
	}{
		{
			name:   "valid json config",
			config: &Config{Endpoint: "https://example.com/waitlist", Field: "email", Encoding: EncodingJSON},
		},
		{
			name:      "relative endpoint",
			config:    &Config{Endpoint: "waitlist", Field: "email", Encoding: EncodingJSON},
			wantErr:   true,
			errString: "invalid registration endpoint",
		},
		{
			name:      "unknown encoding",
			config:    &Config{Endpoint: "https://example.com/waitlist", Field: "email", Encoding: "xml"},
			wantErr:   true,
			errString: "unsupported registration encoding",
		},
		{
			name:      "missing field",
			config:    &Config{Endpoint: "https://example.com/waitlist", Encoding: EncodingForm},
			wantErr:   true,
			errString: "field name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewHTTPRegistrar(tt.config, testLogger())
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, r)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, r)
		})
	}
}

func TestHTTPRegistrar_Register(t *testing.T) {
	tests := []struct {
		name     string
		encoding string
		status   int
		wantErr  bool
	}{
		{name: "json accepted", encoding: EncodingJSON, status: http.StatusOK},
		{name: "form accepted", encoding: EncodingForm, status: http.StatusCreated},
		{name: "rejected", encoding: EncodingJSON, status: http.StatusTooManyRequests, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotEmail, gotHeader string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				gotHeader = r.Header.Get("X-Campaign")

				if tt.encoding == EncodingForm {
					require.NoError(t, r.ParseForm())
					gotEmail = r.PostForm.Get("email")
				} else {
					var body map[string]string
					require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
					gotEmail = body["email"]
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			r, err := NewHTTPRegistrar(&Config{
				Endpoint: srv.URL,
				Field:    "email",
				Encoding: tt.encoding,
				Headers:  map[string]string{"X-Campaign": "spring"},
				Timeout:  time.Second,
			}, testLogger())
			require.NoError(t, err)

			err = r.Register(context.Background(), "a@x.com")

			assert.Equal(t, "a@x.com", gotEmail)
			assert.Equal(t, "spring", gotHeader)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrRegistrationFailed))
				assert.Contains(t, err.Error(), "429")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHTTPRegistrar_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	r, err := NewHTTPRegistrar(&Config{
		Endpoint: srv.URL,
		Field:    "email",
		Encoding: EncodingJSON,
		Timeout:  20 * time.Millisecond,
	}, testLogger())
	require.NoError(t, err)

	err = r.Register(context.Background(), "slow@x.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRegistrationFailed))
}
