// Package testutil provides lifecycle helpers for components used in tests.
//
// A TestComponent is a regular component.Component that can also be reset
// and snapshotted between cases. The in-memory object store is one:
//
//	func TestUpload(t *testing.T) {
//	    store := memory.New(memory.Options{})
//	    testutil.T(t).Setup(store)
//	    ...
//	}
package testutil
