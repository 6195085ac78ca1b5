package memory

import (
	"context"
	"fmt"

	"github.com/kbukum/bucketgate/component"
	"github.com/kbukum/bucketgate/testutil"
)

var _ testutil.TestComponent = (*Store)(nil)

// Name implements component.Component.
func (s *Store) Name() string { return "storage-memory" }

// Start implements component.Component.
func (s *Store) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("memory store already started")
	}
	s.started = true
	return nil
}

// Stop implements component.Component. Contents are kept until Reset.
func (s *Store) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
	return nil
}

// Health implements component.Component.
func (s *Store) Health(_ context.Context) component.Health {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return component.Health{Name: s.Name(), Status: component.StatusUnhealthy, Message: "not started"}
	}
	return component.Health{Name: s.Name(), Status: component.StatusHealthy}
}

// Reset drops all buckets and injected failures.
func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets = make(map[string]*bucket)
	s.failures = make(map[string]error)
	return nil
}

type snapshot struct {
	buckets map[string]*bucket
}

// Snapshot deep-copies all buckets.
func (s *Store) Snapshot(_ context.Context) (interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot{buckets: cloneBuckets(s.buckets)}, nil
}

// Restore replaces the contents with a value returned by Snapshot.
func (s *Store) Restore(_ context.Context, snap interface{}) error {
	sn, ok := snap.(snapshot)
	if !ok {
		return fmt.Errorf("memory store: invalid snapshot type %T", snap)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets = cloneBuckets(sn.buckets)
	return nil
}

func cloneBuckets(in map[string]*bucket) map[string]*bucket {
	out := make(map[string]*bucket, len(in))
	for name, b := range in {
		nb := &bucket{locking: b.locking, objects: make(map[string][]*version, len(b.objects))}
		if b.lockConfig != nil {
			lc := *b.lockConfig
			nb.lockConfig = &lc
		}
		for key, versions := range b.objects {
			cp := make([]*version, len(versions))
			for i, v := range versions {
				nv := *v
				nv.data = append([]byte(nil), v.data...)
				nv.tags = copyMap(v.tags)
				if v.retention != nil {
					r := *v.retention
					nv.retention = &r
				}
				cp[i] = &nv
			}
			nb.objects[key] = cp
		}
		out[name] = nb
	}
	return out
}
