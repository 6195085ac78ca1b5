package testutil

import (
	"context"

	"github.com/kbukum/bucketgate/component"
)

// TestComponent is a component whose state tests can rewind. The memory
// object store implements it so table cases can share one started store.
type TestComponent interface {
	component.Component

	// Reset drops all state, buckets included.
	Reset(ctx context.Context) error

	// Snapshot returns an opaque copy of the current state for Restore.
	Snapshot(ctx context.Context) (any, error)

	// Restore replaces the current state with a Snapshot result.
	Restore(ctx context.Context, snapshot any) error
}
