package domain

// JobStatus is the lifecycle state of a signup job
type JobStatus string

// Job status constants
const (
	JobStatusPending  JobStatus = "pending"
	JobStatusVerified JobStatus = "verified"
	JobStatusFailed   JobStatus = "failed"
)

// Failure reasons recorded on failed jobs
const (
	FailureMaxAttempts  = "max_attempts"
	FailureRegistration = "registration"
)

const (
	// DefaultMaxAttempts is the verification lookup budget per job
	DefaultMaxAttempts = 10

	// FailedCodeMarker is written in place of a code for failed jobs
	FailedCodeMarker = "FAILED"
)

// IsTerminal reports whether no further processing happens in this status
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusVerified || s == JobStatusFailed
}
