package domain

import "errors"

var (
	// ErrNoCode is returned by a code finder when no verification email matched
	ErrNoCode = errors.New("verification code not found")

	// ErrInvalidTransition is returned when a terminal job is transitioned again
	ErrInvalidTransition = errors.New("job is not in PENDING status")

	// ErrRegistrationFailed wraps failures of the registration collaborator
	ErrRegistrationFailed = errors.New("registration failed")

	// ErrMaxAttemptsExceeded is recorded when the lookup budget is exhausted
	ErrMaxAttemptsExceeded = errors.New("max verification attempts exceeded")

	// ErrQueueClosed is returned by a closed, empty work queue
	ErrQueueClosed = errors.New("queue closed")
)

// RetryableError wraps transient errors that should put a job back in its queue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err carries a RetryableError
func IsRetryable(err error) bool {
	var retryableErr *RetryableError
	return errors.As(err, &retryableErr)
}
