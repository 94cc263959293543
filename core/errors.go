package core

import (
	"fmt"

	goerrors "github.com/go-errors/errors"
)

// NotFoundError indicates the referenced domain, workflow type, or workflow
// execution does not exist remote-side.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("does not exist: %s", e.Message)
}

// AlreadyExistsError indicates a registration collided with an existing
// workflow type of the same name and version.
type AlreadyExistsError struct {
	Message string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("already exists: %s", e.Message)
}

// InvalidChildPolicyError indicates a child policy value outside the set the
// remote service accepts. It is raised locally, before any remote call.
type InvalidChildPolicyError struct {
	Policy ChildPolicy
}

func (e *InvalidChildPolicyError) Error() string {
	return fmt.Sprintf("invalid child policy value: %q", e.Policy)
}

// ResponseError is the catch-all for remote faults that do not map to a more
// specific error. It carries the provider's message and the stack at the
// point of translation for diagnostics.
type ResponseError struct {
	Message string

	stack string
}

func NewResponseError(message string) *ResponseError {
	return &ResponseError{
		Message: message,
		stack:   string(goerrors.New(message).Stack()),
	}
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("response error: %s", e.Message)
}

// Stack returns the call stack captured when the error was translated.
func (e *ResponseError) Stack() string {
	return e.stack
}
