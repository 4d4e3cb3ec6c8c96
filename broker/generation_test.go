package broker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pyxol/protostar"
	"github.com/pyxol/protostar/broker"
)

func TestCheckRestart_StampsAbsentGeneration(t *testing.T) {
	b, mr, clk := newTestBroker(t)
	ctx := context.Background()

	if err := b.CheckRestart(ctx, "q"); err != nil {
		t.Fatalf("check: %v", err)
	}
	got, err := mr.Get("q:version")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if want := clk.Now().Unix(); got != itoa(want) {
		t.Fatalf("version = %s, want %d", got, want)
	}
	if v, ok := b.CachedGeneration("q"); !ok || v != clk.Now().Unix() {
		t.Fatalf("cached = %d,%v", v, ok)
	}

	if err := b.CheckRestart(ctx, "q"); err != nil {
		t.Fatalf("second check: %v", err)
	}
}

func TestCheckRestart_AdoptsStoredGeneration(t *testing.T) {
	b, mr, _ := newTestBroker(t)
	ctx := context.Background()
	_ = mr.Set("q:version", "42")

	if err := b.CheckRestart(ctx, "q"); err != nil {
		t.Fatalf("check: %v", err)
	}
	if v, _ := b.CachedGeneration("q"); v != 42 {
		t.Fatalf("cached = %d, want 42", v)
	}
}

func TestCheckRestart_BumpRequestsRestart(t *testing.T) {
	b, mr, clk := newTestBroker(t)
	ctx := context.Background()

	if err := b.CheckRestart(ctx, "q"); err != nil {
		t.Fatalf("check: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	producer := broker.New(client, broker.WithClock(clk.Now))

	// The producer's clock has not moved; the bump must still go forward.
	v, err := producer.RestartWorkers(ctx, "q")
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if v != clk.Now().Unix()+1 {
		t.Fatalf("version = %d, want %d", v, clk.Now().Unix()+1)
	}

	if err := b.CheckRestart(ctx, "q"); !errors.Is(err, protostar.ErrRestartRequested) {
		t.Fatalf("err = %v, want ErrRestartRequested", err)
	}
}

func TestCheckRestart_DeletedGenerationIsRestamped(t *testing.T) {
	b, mr, clk := newTestBroker(t)
	ctx := context.Background()

	if err := b.CheckRestart(ctx, "q"); err != nil {
		t.Fatalf("check: %v", err)
	}
	mr.Del("q:version")
	clk.Advance(time.Hour)

	if err := b.CheckRestart(ctx, "q"); err != nil {
		t.Fatalf("check: %v", err)
	}
	got, _ := mr.Get("q:version")
	if got != itoa(clk.Now().Add(-time.Hour).Unix()) {
		t.Fatalf("version = %s, want the cached generation", got)
	}
}

func TestCheckRestart_QueuesAreIndependent(t *testing.T) {
	b, mr, _ := newTestBroker(t)
	ctx := context.Background()
	_ = mr.Set("a:version", "1")
	_ = mr.Set("b:version", "1")

	_ = b.CheckRestart(ctx, "a")
	_ = b.CheckRestart(ctx, "b")
	_ = mr.Set("a:version", "2")

	if err := b.CheckRestart(ctx, "a"); !errors.Is(err, protostar.ErrRestartRequested) {
		t.Fatalf("a: err = %v, want ErrRestartRequested", err)
	}
	if err := b.CheckRestart(ctx, "b"); err != nil {
		t.Fatalf("b: %v", err)
	}
}

func TestDequeue_RestartBeforePop(t *testing.T) {
	b, mr, _ := newTestBroker(t)
	ctx := context.Background()
	_ = mr.Set("q:version", "1")

	if _, err := b.Dequeue(ctx, "q", 0, 10); err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	_ = b.Enqueue(ctx, mustRecord(t, "q", "waiting"), 0)
	_, _ = b.BumpGeneration(ctx, "q", 2)

	rec, err := b.Dequeue(ctx, "q", 0, 10)
	if !errors.Is(err, protostar.ErrRestartRequested) {
		t.Fatalf("err = %v, want ErrRestartRequested", err)
	}
	if rec != nil {
		t.Fatal("no record should be popped after a restart request")
	}
	if l, _ := mr.List("q"); len(l) != 1 {
		t.Fatalf("ready list has %d entries, want the record left in place", len(l))
	}
}

func TestGeneration_NotAnInteger(t *testing.T) {
	b, mr, _ := newTestBroker(t)
	_ = mr.Set("q:version", "abc")
	if _, _, err := b.Generation(context.Background(), "q"); err == nil {
		t.Fatal("expected error")
	}
}

func TestBumpGeneration(t *testing.T) {
	b, _, _ := newTestBroker(t)
	ctx := context.Background()

	if v, _ := b.BumpGeneration(ctx, "q", 100); v != 100 {
		t.Fatalf("v = %d, want 100", v)
	}
	if v, _ := b.BumpGeneration(ctx, "q", 50); v != 101 {
		t.Fatalf("v = %d, want 101", v)
	}
	if v, ok, _ := b.Generation(ctx, "q"); !ok || v != 101 {
		t.Fatalf("stored = %d,%v", v, ok)
	}
}

func TestForgetGeneration_AdoptsAgain(t *testing.T) {
	b, _, _ := newTestBroker(t)
	ctx := context.Background()

	if err := b.CheckRestart(ctx, "q"); err != nil {
		t.Fatalf("check: %v", err)
	}
	if _, err := b.RestartWorkers(ctx, "q"); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if err := b.CheckRestart(ctx, "q"); !errors.Is(err, protostar.ErrRestartRequested) {
		t.Fatalf("err = %v, want ErrRestartRequested", err)
	}

	b.ForgetGeneration("q")
	if _, ok := b.CachedGeneration("q"); ok {
		t.Fatal("generation should be forgotten")
	}
	if err := b.CheckRestart(ctx, "q"); err != nil {
		t.Fatalf("check after forget: %v", err)
	}
}
