package handler

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/cuongbtq/signup-harvester/internal/api/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultCursor_RoundTrip(t *testing.T) {
	in := &storage.ResultCursor{
		RecordedAt: time.Date(2024, 3, 1, 10, 30, 5, 123456789, time.UTC),
		ID:         "0f8fad5b-d9cb-469f-a165-70867728950e",
	}

	out, err := DecodeResultCursor(EncodeResultCursor(in))
	require.NoError(t, err)
	assert.True(t, in.RecordedAt.Equal(out.RecordedAt))
	assert.Equal(t, in.ID, out.ID)
}

func TestDecodeResultCursor(t *testing.T) {
	encode := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }

	tests := []struct {
		name    string
		cursor  string
		wantNil bool
		wantErr string
	}{
		{name: "empty is first page", cursor: "", wantNil: true},
		{name: "not base64", cursor: "%%%", wantErr: "invalid cursor encoding"},
		{name: "missing separator", cursor: encode("12345"), wantErr: "invalid cursor format"},
		{name: "missing id", cursor: encode("12345|"), wantErr: "invalid cursor format"},
		{name: "bad timestamp", cursor: encode("yesterday|0f8fad5b-d9cb-469f-a165-70867728950e"), wantErr: "invalid recorded_at"},
		{name: "id is not a uuid", cursor: encode("12345|abc"), wantErr: "invalid id in cursor"},
		{name: "valid", cursor: encode("12345|0f8fad5b-d9cb-469f-a165-70867728950e")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cursor, err := DecodeResultCursor(tt.cursor)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, cursor)
			}
		})
	}
}
