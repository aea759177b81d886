package domain

import (
	"errors"
)

// Result status labels as stored in signup_results.status
const (
	ResultStatusVerified = "verified"
	ResultStatusFailed   = "failed"
)

var (
	ErrResultNotFound = errors.New("result not found")
)

// ValidStatus reports whether s is a stored status label
func ValidStatus(s string) bool {
	return s == ResultStatusVerified || s == ResultStatusFailed
}
