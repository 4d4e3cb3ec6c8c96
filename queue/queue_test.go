package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Manager basics
// ---------------------------------------------------------------------------

func TestNewManager_Empty(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	release, err := m.Reserve(ctx, "any-queue")
	if err != nil {
		t.Fatalf("expected Reserve to succeed for unconfigured queue: %v", err)
	}
	release()
	if err := m.Throttle(ctx, "any-queue"); err != nil {
		t.Fatalf("expected Throttle to succeed for unconfigured queue: %v", err)
	}
}

func TestNewManager_WithConfig(t *testing.T) {
	m := NewManager(Config{Name: "emails", MaxConcurrency: 2})
	if qs := m.state("emails"); qs == nil || cap(qs.slots) != 2 {
		t.Fatal("expected emails to be capped at 2")
	}
	if qs := m.state("emails"); qs.limiter != nil {
		t.Fatal("expected no rate limiter without RateLimit")
	}
}

// ---------------------------------------------------------------------------
// Concurrency limits
// ---------------------------------------------------------------------------

func TestManager_MaxConcurrency(t *testing.T) {
	m := NewManager(Config{Name: "emails", MaxConcurrency: 2})
	ctx := context.Background()

	r1, err := m.Reserve(ctx, "emails")
	if err != nil {
		t.Fatalf("first reservation should succeed: %v", err)
	}
	if _, err := m.Reserve(ctx, "emails"); err != nil {
		t.Fatalf("second reservation should succeed: %v", err)
	}

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := m.Reserve(short, "emails"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("third reservation: err = %v, want deadline exceeded (max concurrency 2)", err)
	}

	r1()
	r1() // second call is a no-op
	if got := len(m.state("emails").slots); got != 1 {
		t.Fatalf("expected 1 held slot, got %d", got)
	}
	if _, err := m.Reserve(ctx, "emails"); err != nil {
		t.Fatalf("reservation should succeed after release: %v", err)
	}
}

func TestManager_ReserveBlocksUntilRelease(t *testing.T) {
	m := NewManager(Config{Name: "q", MaxConcurrency: 1})
	ctx := context.Background()

	first, err := m.Reserve(ctx, "q")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	var got atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		release, err := m.Reserve(ctx, "q")
		if err != nil {
			t.Errorf("reserve: %v", err)
			return
		}
		got.Store(true)
		release()
	}()

	time.Sleep(50 * time.Millisecond)
	if got.Load() {
		t.Fatal("second reservation should wait for the first release")
	}
	first()
	<-done
	if !got.Load() {
		t.Fatal("second reservation never completed")
	}
}

func TestManager_ReserveHonorsContext(t *testing.T) {
	m := NewManager(Config{Name: "q", MaxConcurrency: 1})
	if _, err := m.Reserve(context.Background(), "q"); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Reserve(ctx, "q"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want canceled", err)
	}
}

func TestManager_ReserveIgnoresRateLimit(t *testing.T) {
	m := NewManager(Config{Name: "q", RateLimit: 0.01, RateBurst: 1})
	ctx := context.Background()

	start := time.Now()
	for i := range 5 {
		release, err := m.Reserve(ctx, "q")
		if err != nil {
			t.Fatalf("reserve %d: %v", i, err)
		}
		release()
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("slot reservations spent rate tokens: %v", elapsed)
	}
}

// ---------------------------------------------------------------------------
// Rate limiting
// ---------------------------------------------------------------------------

// throttleNow reports whether a token is available without waiting.
func throttleNow(m *Manager, queue string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	return m.Throttle(ctx, queue) == nil
}

func TestManager_RateLimit_Throttles(t *testing.T) {
	m := NewManager(Config{Name: "limited", RateLimit: 1.0, RateBurst: 1})

	if !throttleNow(m, "limited") {
		t.Fatal("first token should be available (within burst)")
	}
	if throttleNow(m, "limited") {
		t.Fatal("second token should not be available (rate limited)")
	}

	time.Sleep(1100 * time.Millisecond)
	if !throttleNow(m, "limited") {
		t.Fatal("token should be available after refill")
	}
}

func TestManager_RateLimit_ThrottleWaits(t *testing.T) {
	m := NewManager(Config{Name: "q", RateLimit: 20, RateBurst: 1})
	ctx := context.Background()

	start := time.Now()
	for i := range 3 {
		if err := m.Throttle(ctx, "q"); err != nil {
			t.Fatalf("throttle %d: %v", i, err)
		}
	}
	// Two refills at 20/s take at least ~100ms.
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Fatalf("jobs were not throttled: %v", elapsed)
	}
}

func TestManager_RateLimit_BurstAllows(t *testing.T) {
	m := NewManager(Config{Name: "bursty", RateLimit: 1.0, RateBurst: 3})

	for i := range 3 {
		if !throttleNow(m, "bursty") {
			t.Fatalf("token %d should be available within burst", i)
		}
	}
	if throttleNow(m, "bursty") {
		t.Fatal("token beyond burst should not be available")
	}
}

func TestManager_DefaultBurst(t *testing.T) {
	m := NewManager(Config{Name: "q", RateLimit: 1})
	if !throttleNow(m, "q") {
		t.Fatal("burst should default to 1")
	}
	if throttleNow(m, "q") {
		t.Fatal("second token should be throttled")
	}
}

// ---------------------------------------------------------------------------
// Reconfiguration and concurrency safety
// ---------------------------------------------------------------------------

func TestManager_SetQueueConfig(t *testing.T) {
	m := NewManager()
	m.SetQueueConfig(Config{Name: "late", MaxConcurrency: 1})
	ctx := context.Background()

	release, err := m.Reserve(ctx, "late")
	if err != nil {
		t.Fatalf("reservation should succeed: %v", err)
	}
	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := m.Reserve(short, "late"); err == nil {
		t.Fatal("new config should cap the queue")
	}

	m.SetQueueConfig(Config{Name: "late", MaxConcurrency: 1})
	if _, err := m.Reserve(ctx, "late"); err != nil {
		t.Fatalf("new config starts with free slots: %v", err)
	}
	release() // releases against the old configuration
}

func TestManager_ConcurrentReservations(t *testing.T) {
	const limit = 3
	m := NewManager(Config{Name: "q", MaxConcurrency: limit})
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		current atomic.Int32
		peak    atomic.Int32
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := m.Reserve(ctx, "q")
			if err != nil {
				t.Errorf("reserve: %v", err)
				return
			}
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			current.Add(-1)
			release()
		}()
	}
	wg.Wait()

	if p := peak.Load(); p > limit {
		t.Fatalf("peak concurrency %d exceeds limit %d", p, limit)
	}
	if got := len(m.state("q").slots); got != 0 {
		t.Fatalf("expected all reservations released, got %d", got)
	}
}
