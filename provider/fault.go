package provider

import "fmt"

// FaultKind tags a remote fault so callers can match on its meaning instead
// of its message.
type FaultKind int

const (
	// FaultGeneric is any remote fault without a more specific kind.
	FaultGeneric FaultKind = iota

	// FaultUnknownResource means the referenced domain, workflow type, or
	// workflow execution does not exist.
	FaultUnknownResource

	// FaultTypeAlreadyExists means a workflow type with the same name and
	// version is already registered.
	FaultTypeAlreadyExists

	// FaultTypeDeprecated means the workflow type is already deprecated.
	FaultTypeDeprecated

	// FaultDomainNotFound means the domain the operation addressed does not
	// exist.
	FaultDomainNotFound
)

func (fk FaultKind) String() string {
	switch fk {
	case FaultUnknownResource:
		return "UnknownResource"
	case FaultTypeAlreadyExists:
		return "TypeAlreadyExists"
	case FaultTypeDeprecated:
		return "TypeDeprecated"
	case FaultDomainNotFound:
		return "DomainNotFound"
	default:
		return "Generic"
	}
}

// Fault is the error type connection providers use for every remote fault.
type Fault struct {
	Kind    FaultKind
	Message string
}

func NewFault(kind FaultKind, format string, args ...any) *Fault {
	return &Fault{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}
