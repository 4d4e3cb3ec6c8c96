package queue

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Config defines per-queue throttling.
type Config struct {
	// Name is the queue identifier.
	Name string

	// MaxConcurrency limits how many workers sharing this Manager may hold
	// a reservation on the queue at once. Zero means no limit.
	MaxConcurrency int

	// RateLimit is the maximum sustained jobs per second. Zero
	// disables rate limiting.
	RateLimit float64

	// RateBurst is the burst size for the token-bucket rate limiter.
	// Defaults to 1 if RateLimit is set but RateBurst is zero.
	RateBurst int
}

// queueState tracks runtime state for a single queue.
type queueState struct {
	config  Config
	limiter *rate.Limiter
	slots   chan struct{}
}

// Manager enforces per-queue rate limits and concurrency caps.
// It is safe for concurrent use.
type Manager struct {
	mu     sync.Mutex
	queues map[string]*queueState
}

// NewManager creates a Manager with the given queue configurations.
func NewManager(configs ...Config) *Manager {
	m := &Manager{queues: make(map[string]*queueState, len(configs))}
	for _, cfg := range configs {
		m.SetQueueConfig(cfg)
	}
	return m
}

func newQueueState(cfg Config) *queueState {
	qs := &queueState{config: cfg}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		qs.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	if cfg.MaxConcurrency > 0 {
		qs.slots = make(chan struct{}, cfg.MaxConcurrency)
	}
	return qs
}

func (m *Manager) state(queue string) *queueState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queues[queue]
}

// SetQueueConfig replaces (or creates) a queue configuration. Reservations
// taken under the old configuration are released against it and do not
// count toward the new cap.
func (m *Manager) SetQueueConfig(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues[cfg.Name] = newQueueState(cfg)
}

// Reserve blocks until queue has a free concurrency slot or ctx is done.
// The returned release func frees the slot; calling it more than once has
// no further effect.
func (m *Manager) Reserve(ctx context.Context, queue string) (release func(), err error) {
	qs := m.state(queue)
	if qs == nil || qs.slots == nil {
		return func() {}, nil
	}

	select {
	case qs.slots <- struct{}{}:
	default:
		select {
		case qs.slots <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	slots := qs.slots
	return sync.OnceFunc(func() { <-slots }), nil
}

// Throttle takes one rate token for queue, waiting until one is available
// or ctx is done. Queues without a rate limit never wait.
func (m *Manager) Throttle(ctx context.Context, queue string) error {
	qs := m.state(queue)
	if qs == nil || qs.limiter == nil {
		return nil
	}
	return qs.limiter.Wait(ctx)
}
