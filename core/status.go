package core

import "fmt"

// RegistrationStatus is the remote-side lifecycle state of a workflow type.
type RegistrationStatus string

const (
	RegistrationStatusRegistered RegistrationStatus = "REGISTERED"
	RegistrationStatusDeprecated RegistrationStatus = "DEPRECATED"
)

// ExecutionStatus is the coarse-grained state of a workflow execution. The
// detailed outcome of a closed execution is only available through its
// history.
type ExecutionStatus string

const (
	ExecutionStatusOpen   ExecutionStatus = "OPEN"
	ExecutionStatusClosed ExecutionStatus = "CLOSED"
)

// CloseStatus describes how a closed workflow execution ended.
type CloseStatus string

const (
	CloseStatusCompleted      CloseStatus = "COMPLETED"
	CloseStatusFailed         CloseStatus = "FAILED"
	CloseStatusCanceled       CloseStatus = "CANCELED"
	CloseStatusTerminated     CloseStatus = "TERMINATED"
	CloseStatusContinuedAsNew CloseStatus = "CONTINUED_AS_NEW"
	CloseStatusTimedOut       CloseStatus = "TIMED_OUT"
)

// Validate checks cs against the set of close statuses the remote service
// reports.
func (cs CloseStatus) Validate() error {
	switch cs {
	case CloseStatusCompleted, CloseStatusFailed, CloseStatusCanceled,
		CloseStatusTerminated, CloseStatusContinuedAsNew, CloseStatusTimedOut:
		return nil
	default:
		return fmt.Errorf("invalid close status: %q", cs)
	}
}
