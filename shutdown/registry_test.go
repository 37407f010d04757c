package shutdown

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestRegistry_PriorityOrder(t *testing.T) {
	registry := NewRegistry()

	var order []string
	record := func(name string) func(context.Context) error {
		return func(ctx context.Context) error {
			order = append(order, name)
			return nil
		}
	}

	registry.Register("database", 30, record("database"))
	registry.Register("flush-logs", 0, record("flush-logs"))
	registry.Register("async-writer", 20, record("async-writer"))

	if registry.Count() != 3 {
		t.Fatalf("expected 3 registered functions, got %d", registry.Count())
	}

	errs := registry.Shutdown(context.Background())
	if len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}

	want := []string{"flush-logs", "async-writer", "database"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("execution order = %v, want %v", order, want)
	}
}

func TestRegistry_CollectsErrorsAndRunsAll(t *testing.T) {
	registry := NewRegistry()

	failErr := errors.New("close failed")
	var lastRan bool

	registry.Register("failing", 10, func(ctx context.Context) error {
		return failErr
	})
	registry.Register("after-failure", 20, func(ctx context.Context) error {
		lastRan = true
		return nil
	})

	errs := registry.Shutdown(context.Background())
	if len(errs) != 1 || !errors.Is(errs[0], failErr) {
		t.Errorf("expected [close failed], got %v", errs)
	}
	if !lastRan {
		t.Error("later cleanup should run even after an earlier failure")
	}
}

func TestRegistry_ClosedAfterShutdown(t *testing.T) {
	registry := NewRegistry()
	registry.Register("noop", 0, func(ctx context.Context) error { return nil })

	registry.Shutdown(context.Background())
	if !registry.IsClosed() {
		t.Error("registry should be closed after Shutdown")
	}

	// Second shutdown and late registration are no-ops.
	if errs := registry.Shutdown(context.Background()); errs != nil {
		t.Errorf("repeat Shutdown should return nil, got %v", errs)
	}
	registry.Register("late", 0, func(ctx context.Context) error {
		t.Error("function registered after Shutdown must not run")
		return nil
	})
	if registry.Count() != 1 {
		t.Errorf("late registration should be ignored, count = %d", registry.Count())
	}
}

func TestRegistry_Names(t *testing.T) {
	registry := NewRegistry()
	registry.Register("b", 20, func(ctx context.Context) error { return nil })
	registry.Register("a", 10, func(ctx context.Context) error { return nil })

	want := []string{"a", "b"}
	if got := registry.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}
