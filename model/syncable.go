// Package model contains local representations of remote workflow
// orchestration entities. Entities are plain values owned by the caller; the
// remote service stays the source of truth and every remote read goes
// through the configured connection provider, nothing is cached in between.
package model

import (
	"context"
	"errors"

	"github.com/simple-workflow/swf/core"
	"github.com/simple-workflow/swf/diff"
	"github.com/simple-workflow/swf/provider"
)

// Syncable is the contract shared by remote-backed entities: detect drift
// from the remote description and report it as a changeset.
type Syncable interface {
	// Diff fetches the current remote description and returns the attributes
	// that differ from the local values. Fails with *core.NotFoundError when
	// the remote entity does not exist.
	Diff(ctx context.Context) ([]diff.Change, error)

	// Exists reports whether the remote entity exists. An unknown-resource
	// fault is not an error here, it maps to false.
	Exists(ctx context.Context) (bool, error)

	// IsSynced reports whether Diff yields an empty changeset.
	IsSynced(ctx context.Context) (bool, error)

	// Changes returns the same changeset as Diff. Recomputed on every call,
	// remote state can change between calls.
	Changes(ctx context.Context) ([]diff.Change, error)
}

// translateFault maps a provider fault onto the error taxonomy callers
// match on. Faults reach this point tagged with a kind, so no message
// inspection happens here.
func translateFault(err error) error {
	var f *provider.Fault
	if !errors.As(err, &f) {
		return core.NewResponseError(err.Error())
	}

	switch f.Kind {
	case provider.FaultUnknownResource, provider.FaultDomainNotFound, provider.FaultTypeDeprecated:
		return &core.NotFoundError{Message: f.Message}
	case provider.FaultTypeAlreadyExists:
		return &core.AlreadyExistsError{Message: f.Message}
	default:
		return core.NewResponseError(f.Message)
	}
}

// isUnknownResource reports whether err is the provider's unknown-resource
// fault, the one fault Exists downgrades to a boolean.
func isUnknownResource(err error) bool {
	var f *provider.Fault
	return errors.As(err, &f) && f.Kind == provider.FaultUnknownResource
}
