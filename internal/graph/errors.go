package graph

import (
	"errors"
	"fmt"

	"github.com/rpad300/godmode-sub011/internal/types"
)

// errNotConnected is returned by every operation on a provider that has no
// usable client or has not connected yet.
func errNotConnected() *types.Error {
	return types.NewError(types.ErrNotConnected, "graph provider is not connected")
}

// errNotFound reports a missing node or relationship.
func errNotFound(kind string, id types.ID) *types.Error {
	return types.NewError(types.ErrNotFound, fmt.Sprintf("%s not found: %s", kind, id)).
		WithContext("id", id.String())
}

// errAccessDenied reports a cross-project mutation attempt.
func errAccessDenied(id types.ID, nodeProject, scopeProject string) *types.Error {
	return types.NewError(types.ErrAccessDenied,
		fmt.Sprintf("node %s belongs to project %q, not %q", id, nodeProject, scopeProject)).
		WithContext("node_project", nodeProject).
		WithContext("scope_project", scopeProject)
}

// wrapStore converts an arbitrary store error into the package taxonomy,
// passing structured errors through untouched.
func wrapStore(message string, err error) error {
	var te *types.Error
	if errors.As(err, &te) {
		return err
	}
	return types.WrapError(types.ErrStore, message, err)
}

// isSchemaMissing reports whether err signals absent tables (a pending
// migration rather than a store fault).
func isSchemaMissing(err error) bool {
	return types.CodeOf(err) == types.ErrSchemaMissing
}
