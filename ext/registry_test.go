package ext_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/pyxol/protostar/ext"
	"github.com/pyxol/protostar/job"
)

// ──────────────────────────────────────────────────
// Test extensions
// ──────────────────────────────────────────────────

// allHooksExt implements every lifecycle hook for testing.
type allHooksExt struct {
	calls []string
}

func (e *allHooksExt) Name() string { return "all-hooks" }

func (e *allHooksExt) OnJobStarted(_ context.Context, _ *job.Delivery) error {
	e.calls = append(e.calls, "OnJobStarted")
	return nil
}

func (e *allHooksExt) OnJobCompleted(_ context.Context, _ *job.Delivery, _ time.Duration) error {
	e.calls = append(e.calls, "OnJobCompleted")
	return nil
}

func (e *allHooksExt) OnJobRetrying(_ context.Context, _ *job.Delivery, _ time.Duration) error {
	e.calls = append(e.calls, "OnJobRetrying")
	return nil
}

func (e *allHooksExt) OnJobFailed(_ context.Context, _ *job.Delivery, _ error) error {
	e.calls = append(e.calls, "OnJobFailed")
	return nil
}

func (e *allHooksExt) OnJobDropped(_ context.Context, _ string, _ error) error {
	e.calls = append(e.calls, "OnJobDropped")
	return nil
}

func (e *allHooksExt) OnWorkerRestarting(_ context.Context, _, _ string) error {
	e.calls = append(e.calls, "OnWorkerRestarting")
	return nil
}

func (e *allHooksExt) OnShutdown(_ context.Context) error {
	e.calls = append(e.calls, "OnShutdown")
	return nil
}

// jobOnlyExt only implements some job hooks.
type jobOnlyExt struct {
	calls []string
}

func (e *jobOnlyExt) Name() string { return "job-only" }

func (e *jobOnlyExt) OnJobStarted(_ context.Context, _ *job.Delivery) error {
	e.calls = append(e.calls, "OnJobStarted")
	return nil
}

func (e *jobOnlyExt) OnJobCompleted(_ context.Context, _ *job.Delivery, _ time.Duration) error {
	e.calls = append(e.calls, "OnJobCompleted")
	return nil
}

// failingExt returns errors from hooks.
type failingExt struct{}

func (e *failingExt) Name() string { return "failing" }

func (e *failingExt) OnJobStarted(_ context.Context, _ *job.Delivery) error {
	return errors.New("boom")
}

func (e *failingExt) OnShutdown(_ context.Context) error {
	return errors.New("shutdown boom")
}

func testDelivery() *job.Delivery {
	return &job.Delivery{
		Record:      &job.Record{Queue: "default", MaxTries: 3},
		HandlerType: "test-job",
	}
}

// ──────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────

func TestRegistry_RegisterDiscoversInterfaces(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	r.Register(&allHooksExt{})

	if got := len(r.Extensions()); got != 1 {
		t.Fatalf("expected 1 extension, got %d", got)
	}
	if got := r.Extensions()[0].Name(); got != "all-hooks" {
		t.Fatalf("expected name 'all-hooks', got %q", got)
	}
}

func TestRegistry_EmitFiresOnlyImplementors(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	all := &allHooksExt{}
	jo := &jobOnlyExt{}
	r.Register(all)
	r.Register(jo)

	ctx := context.Background()
	d := testDelivery()

	// Both implement OnJobStarted → both called.
	r.EmitJobStarted(ctx, d)
	if len(all.calls) != 1 || all.calls[0] != "OnJobStarted" {
		t.Fatalf("all: expected [OnJobStarted], got %v", all.calls)
	}
	if len(jo.calls) != 1 || jo.calls[0] != "OnJobStarted" {
		t.Fatalf("jo: expected [OnJobStarted], got %v", jo.calls)
	}

	// Only all implements OnJobFailed → jo not called.
	r.EmitJobFailed(ctx, d, errors.New("x"))
	if len(all.calls) != 2 || all.calls[1] != "OnJobFailed" {
		t.Fatalf("all: expected OnJobFailed as 2nd, got %v", all.calls)
	}
	if len(jo.calls) != 1 {
		t.Fatalf("jo: should still have 1 call, got %v", jo.calls)
	}
}

func TestRegistry_AllHooksFire(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	all := &allHooksExt{}
	r.Register(all)

	ctx := context.Background()
	d := testDelivery()

	r.EmitJobStarted(ctx, d)
	r.EmitJobCompleted(ctx, d, time.Second)
	r.EmitJobRetrying(ctx, d, 5*time.Second)
	r.EmitJobFailed(ctx, d, errors.New("fail"))
	r.EmitJobDropped(ctx, "default", errors.New("malformed"))
	r.EmitWorkerRestarting(ctx, "host-1", "default")
	r.EmitShutdown(ctx)

	expected := []string{
		"OnJobStarted", "OnJobCompleted", "OnJobRetrying",
		"OnJobFailed", "OnJobDropped", "OnWorkerRestarting", "OnShutdown",
	}
	if len(all.calls) != len(expected) {
		t.Fatalf("expected %d calls, got %d: %v", len(expected), len(all.calls), all.calls)
	}
	for i, want := range expected {
		if all.calls[i] != want {
			t.Errorf("call[%d] = %q, want %q", i, all.calls[i], want)
		}
	}
}

func TestRegistry_HookErrorsLoggedNotPropagated(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	failing := &failingExt{}
	all := &allHooksExt{}

	// Register failing first, then all-hooks. Both should be called.
	r.Register(failing)
	r.Register(all)

	ctx := context.Background()
	r.EmitJobStarted(ctx, testDelivery())
	r.EmitShutdown(ctx)

	if len(all.calls) != 2 || all.calls[0] != "OnJobStarted" {
		t.Fatalf("all: expected hooks to fire despite failing ext, got %v", all.calls)
	}
}

func TestRegistry_EmptyRegistryNoOp(_ *testing.T) {
	r := ext.NewRegistry(nil)
	ctx := context.Background()

	// None of these should panic or error.
	r.EmitJobStarted(ctx, &job.Delivery{})
	r.EmitJobCompleted(ctx, &job.Delivery{}, time.Second)
	r.EmitJobRetrying(ctx, &job.Delivery{}, 0)
	r.EmitJobFailed(ctx, &job.Delivery{}, errors.New("x"))
	r.EmitJobDropped(ctx, "q", errors.New("x"))
	r.EmitWorkerRestarting(ctx, "w", "q")
	r.EmitShutdown(ctx)
}

func TestRegistry_MultipleExtensionsOrderPreserved(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	var order []string
	r.Register(&orderExt{name: "first", order: &order})
	r.Register(&orderExt{name: "second", order: &order})

	r.EmitJobCompleted(context.Background(), testDelivery(), 0)

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("order = %v, want [first second]", order)
	}
}

type orderExt struct {
	name  string
	order *[]string
}

func (e *orderExt) Name() string { return e.name }

func (e *orderExt) OnJobCompleted(_ context.Context, _ *job.Delivery, _ time.Duration) error {
	*e.order = append(*e.order, e.name)
	return nil
}
