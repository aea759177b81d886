package handler

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cuongbtq/signup-harvester/internal/api/storage"
	"github.com/google/uuid"
)

// DecodeResultCursor parses a cursor produced by EncodeResultCursor. An empty
// string means the first page.
func DecodeResultCursor(cursorStr string) (*storage.ResultCursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor encoding: %w", err)
	}

	recordedAt, id, ok := strings.Cut(string(decoded), "|")
	if !ok || id == "" {
		return nil, fmt.Errorf("invalid cursor format")
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid id in cursor: %w", err)
	}

	nanos, err := strconv.ParseInt(recordedAt, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid recorded_at in cursor: %w", err)
	}

	return &storage.ResultCursor{
		RecordedAt: time.Unix(0, nanos).UTC(),
		ID:         id,
	}, nil
}

func EncodeResultCursor(cursor *storage.ResultCursor) string {
	cs := fmt.Sprintf("%d|%s", cursor.RecordedAt.UnixNano(), cursor.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(cs))
}
