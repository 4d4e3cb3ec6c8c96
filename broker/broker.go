package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pyxol/protostar"
	"github.com/pyxol/protostar/config"
	"github.com/pyxol/protostar/job"
)

// Compile-time interface check.
var _ job.Enqueuer = (*Broker)(nil)

// Option configures the Broker.
type Option func(*Broker)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Broker) { b.logger = l }
}

// WithClock replaces time.Now. Due times and generations are computed from it.
func WithClock(now func() time.Time) Option {
	return func(b *Broker) { b.now = now }
}

// WithDefaultQueue sets the queue QueueName resolves empty names to.
func WithDefaultQueue(name string) Option {
	return func(b *Broker) { b.defaultQueue = name }
}

// WithStatusTTL sets the expiry of worker status keys.
func WithStatusTTL(d time.Duration) Option {
	return func(b *Broker) { b.statusTTL = d }
}

// Broker implements the queue operations on top of Redis.
type Broker struct {
	client redis.Cmdable
	owned  *redis.Client
	logger *slog.Logger
	now    func() time.Time

	defaultQueue string
	statusTTL    time.Duration

	mu          sync.Mutex
	generations map[string]int64
}

// New creates a broker on an existing client. The caller owns the client
// lifecycle.
func New(client redis.Cmdable, opts ...Option) *Broker {
	b := &Broker{
		client:      client,
		logger:      slog.Default(),
		now:         time.Now,
		statusTTL:   time.Hour,
		generations: make(map[string]int64),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Dial connects to the Redis endpoint described by conn and verifies it with
// a PING. The connection's queue name becomes the default queue unless an
// option overrides it. A failed ping is not retried.
func Dial(ctx context.Context, conn config.Connection, opts ...Option) (*Broker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        conn.Addr(),
		Password:    conn.Password,
		DB:          conn.DB,
		DialTimeout: conn.DialTimeout(),
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %s: %w", protostar.ErrConnectionFailed, conn.Addr(), err)
	}

	b := New(client, append([]Option{WithDefaultQueue(conn.Queue())}, opts...)...)
	b.owned = client
	return b, nil
}

// Client returns the underlying Redis client.
func (b *Broker) Client() redis.Cmdable { return b.client }

// Ping verifies the Redis connection is alive.
func (b *Broker) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", protostar.ErrConnectionFailed, err)
	}
	return nil
}

// Close releases the client if the broker created it with Dial.
func (b *Broker) Close() error {
	if b.owned == nil {
		return nil
	}
	return b.owned.Close()
}

// QueueName returns name, or the default queue when name is empty.
func (b *Broker) QueueName(name string) (string, error) {
	if name != "" {
		return name, nil
	}
	if b.defaultQueue != "" {
		return b.defaultQueue, nil
	}
	return "", protostar.ErrMissingQueueName
}

// ── Producer side ──

// Enqueue stores r. A record with a delay goes to the delayed set, due
// delay seconds from now, regardless of priority. Otherwise high priority
// records are pushed to the head of the ready list and normal ones to the
// tail.
func (b *Broker) Enqueue(ctx context.Context, r *job.Record, p job.Priority) error {
	queue, err := b.QueueName(r.Queue)
	if err != nil {
		return err
	}
	payload, err := r.Encode()
	if err != nil {
		return err
	}

	switch {
	case r.Delay > 0:
		due := b.now().Unix() + int64(r.Delay)
		err = b.client.ZAdd(ctx, delayedKey(queue), redis.Z{Score: float64(due), Member: payload}).Err()
	case p == job.PriorityHigh:
		err = b.client.LPush(ctx, readyKey(queue), payload).Err()
	default:
		err = b.client.RPush(ctx, readyKey(queue), payload).Err()
	}
	if err != nil {
		return fmt.Errorf("protostar/broker: enqueue on %q: %w", queue, err)
	}
	return nil
}

// PurgeQueue deletes the ready list of queue. Delayed records are kept.
func (b *Broker) PurgeQueue(ctx context.Context, queue string) error {
	if err := b.client.Del(ctx, readyKey(queue)).Err(); err != nil {
		return fmt.Errorf("protostar/broker: purge %q: %w", queue, err)
	}
	return nil
}

// Stats returns the number of ready and delayed records in queue.
func (b *Broker) Stats(ctx context.Context, queue string) (ready, delayed int64, err error) {
	pipe := b.client.Pipeline()
	llen := pipe.LLen(ctx, readyKey(queue))
	zcard := pipe.ZCard(ctx, delayedKey(queue))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("protostar/broker: stats %q: %w", queue, err)
	}
	return llen.Val(), zcard.Val(), nil
}

// ── Consumer side ──

// Dequeue runs one consumer step: restart check, migration of due delayed
// records, then a pop that waits up to block. It returns nil, nil when no
// record arrived in time.
func (b *Broker) Dequeue(ctx context.Context, queue string, block time.Duration, migrateLimit int) (*job.Record, error) {
	if err := b.CheckRestart(ctx, queue); err != nil {
		return nil, err
	}
	if _, err := b.MigrateDueDelayed(ctx, queue, migrateLimit); err != nil {
		return nil, err
	}
	return b.Pop(ctx, queue, block)
}

// MigrateDueDelayed moves up to limit due records from the delayed set to
// the tail of the ready list and returns how many this call moved. Records
// another worker moved first are skipped.
func (b *Broker) MigrateDueDelayed(ctx context.Context, queue string, limit int) (int, error) {
	if limit <= 0 {
		return 0, nil
	}

	now := b.now().Unix()
	members, err := b.client.ZRangeByScore(ctx, delayedKey(queue), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%d", now),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("protostar/broker: read due records of %q: %w", queue, err)
	}

	keys := []string{delayedKey(queue), readyKey(queue)}
	moved := 0
	for _, m := range members {
		n, err := migrateScript.Run(ctx, b.client, keys, m).Int64()
		if err != nil {
			return moved, fmt.Errorf("protostar/broker: migrate record of %q: %w", queue, err)
		}
		if n > 0 {
			moved++
		}
	}
	if moved > 0 {
		b.logger.Debug("migrated delayed jobs",
			slog.String("queue", queue),
			slog.Int("count", moved),
		)
	}
	return moved, nil
}

// Pop takes the head of the ready list, waiting up to block for one to
// arrive. A block of zero or less does not wait. It returns nil, nil when
// the list stayed empty, and a *protostar.MalformedJobError when the popped
// payload cannot be decoded.
//
// A record that is not yet due is put back in the delayed set and nil is
// returned.
func (b *Broker) Pop(ctx context.Context, queue string, block time.Duration) (*job.Record, error) {
	var payload string
	if block > 0 {
		res, err := b.client.BLPop(ctx, block, readyKey(queue)).Result()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("protostar/broker: pop %q: %w", queue, err)
		}
		if len(res) != 2 {
			return nil, fmt.Errorf("protostar/broker: pop %q: unexpected reply of %d elements", queue, len(res))
		}
		payload = res[1]
	} else {
		res, err := b.client.LPop(ctx, readyKey(queue)).Result()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("protostar/broker: pop %q: %w", queue, err)
		}
		payload = res
	}

	r, err := job.Decode(queue, []byte(payload))
	if err != nil {
		return nil, err
	}

	if !r.CanDeliver(b.now()) {
		due := r.DueAt().Unix()
		// The payload is off the ready list, so put it back even if ctx is done.
		err := b.client.ZAdd(context.WithoutCancel(ctx), delayedKey(queue), redis.Z{Score: float64(due), Member: payload}).Err()
		if err != nil {
			return nil, fmt.Errorf("protostar/broker: reschedule record of %q: %w", queue, err)
		}
		b.logger.Debug("rescheduled job that is not yet due",
			slog.String("queue", queue),
			slog.Int64("due", due),
		)
		return nil, nil
	}
	return r, nil
}
