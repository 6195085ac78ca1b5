package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/kbukum/bucketgate/component"
)

type counterComponent struct {
	started bool
	stopped bool
	value   int
}

func (c *counterComponent) Name() string                  { return "counter" }
func (c *counterComponent) Start(ctx context.Context) error { c.started = true; return nil }
func (c *counterComponent) Stop(ctx context.Context) error  { c.stopped = true; return nil }
func (c *counterComponent) Health(ctx context.Context) component.Health {
	return component.Health{Name: "counter", Status: component.StatusHealthy}
}
func (c *counterComponent) Reset(ctx context.Context) error { c.value = 0; return nil }
func (c *counterComponent) Snapshot(ctx context.Context) (interface{}, error) {
	return c.value, nil
}
func (c *counterComponent) Restore(ctx context.Context, s interface{}) error {
	v, ok := s.(int)
	if !ok {
		return errors.New("bad snapshot")
	}
	c.value = v
	return nil
}

func TestTHelperLifecycle(t *testing.T) {
	c := &counterComponent{}
	t.Run("inner", func(t *testing.T) {
		h := T(t)
		h.Setup(c)
		if !c.started {
			t.Fatal("expected component to be started")
		}

		c.value = 7
		snap := h.Snapshot(c)
		c.value = 99
		h.Restore(c, snap)
		if c.value != 7 {
			t.Errorf("expected restored value 7, got %d", c.value)
		}

		h.Reset(c)
		if c.value != 0 {
			t.Errorf("expected reset value 0, got %d", c.value)
		}
	})
	if !c.stopped {
		t.Error("expected component to be stopped by cleanup")
	}
}
