// Package callstore holds scratch key/value data on the side of a live
// call, keyed by call id. It is a convenience collaborator for call flows
// that want state outside the call's own request snapshot; the yemot
// router clears a call's entries when the call is torn down.
package callstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get for a key with no stored value.
var ErrNotFound = errors.New("callstore: value not found")

// Store is per-call scratch storage. Implementations must be safe for
// concurrent use; call flows for different call ids run in parallel.
type Store interface {
	// Set stores value under key for the given call.
	Set(ctx context.Context, callID, key, value string) error
	// Get returns the value under key, or ErrNotFound.
	Get(ctx context.Context, callID, key string) (string, error)
	// Has reports whether key has a stored value.
	Has(ctx context.Context, callID, key string) (bool, error)
	// Delete removes one key. Removing an absent key is not an error.
	Delete(ctx context.Context, callID, key string) error
	// All returns a copy of every value stored for the call.
	All(ctx context.Context, callID string) (map[string]string, error)
	// Len counts the values stored for the call.
	Len(ctx context.Context, callID string) (int, error)
	// Clear removes everything stored for the call.
	Clear(ctx context.Context, callID string) error
	// ActiveCalls lists call ids that currently have stored values.
	ActiveCalls(ctx context.Context) ([]string, error)
}
