package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/pyxol/protostar"
)

// Generation reads the stored generation of queue. ok is false when none
// has been stored yet.
func (b *Broker) Generation(ctx context.Context, queue string) (v int64, ok bool, err error) {
	s, err := b.client.Get(ctx, versionKey(queue)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("protostar/broker: read generation of %q: %w", queue, err)
	}
	v, err = strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("protostar/broker: generation of %q is not an integer: %q", queue, s)
	}
	return v, true, nil
}

// BumpGeneration stores v as the generation of queue, or current+1 when v
// is not greater than the stored value. It returns the stored generation.
func (b *Broker) BumpGeneration(ctx context.Context, queue string, v int64) (int64, error) {
	n, err := bumpScript.Run(ctx, b.client, []string{versionKey(queue)}, v).Int64()
	if err != nil {
		return 0, fmt.Errorf("protostar/broker: bump generation of %q: %w", queue, err)
	}
	return n, nil
}

// RestartWorkers asks every worker on queue to exit after its current job.
func (b *Broker) RestartWorkers(ctx context.Context, queue string) (int64, error) {
	v, err := b.BumpGeneration(ctx, queue, b.now().Unix())
	if err != nil {
		return 0, err
	}
	b.logger.Info("requested worker restart",
		slog.String("queue", queue),
		slog.Int64("version", v),
	)
	return v, nil
}

// ForgetGeneration drops the adopted generation of queue so the next
// CheckRestart adopts the stored value again. Workers started after a
// restart in the same process call it first.
func (b *Broker) ForgetGeneration(queue string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.generations, queue)
}

// CachedGeneration returns the generation this broker adopted for queue.
func (b *Broker) CachedGeneration(queue string) (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.generations[queue]
	return v, ok
}

// CheckRestart compares the stored generation of queue with the one this
// broker adopted and returns protostar.ErrRestartRequested once the stored
// value has moved past it.
//
// The first call adopts the stored value. When nothing is stored yet, the
// current time is stamped with SETNX; if another process stamped first,
// its value is adopted instead.
func (b *Broker) CheckRestart(ctx context.Context, queue string) error {
	stored, ok, err := b.Generation(ctx, queue)
	if err != nil {
		return err
	}

	b.mu.Lock()
	cached, seen := b.generations[queue]
	b.mu.Unlock()

	if !ok {
		if !seen {
			cached = b.now().Unix()
		}
		set, err := b.client.SetNX(ctx, versionKey(queue), cached, 0).Result()
		if err != nil {
			return fmt.Errorf("protostar/broker: stamp generation of %q: %w", queue, err)
		}
		if !set && !seen {
			// Another process stamped first.
			if v, ok, err := b.Generation(ctx, queue); err != nil {
				return err
			} else if ok {
				cached = v
			}
		}
		b.adopt(queue, cached)
		return nil
	}

	if !seen {
		b.adopt(queue, stored)
		return nil
	}
	if stored > cached {
		return protostar.ErrRestartRequested
	}
	return nil
}

func (b *Broker) adopt(queue string, v int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.generations[queue]; !ok {
		b.generations[queue] = v
	}
}
