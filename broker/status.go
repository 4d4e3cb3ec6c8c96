package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/pyxol/protostar"
)

// SetWorkerStatus publishes what workerID is doing on queue. A nil status
// clears it. The key expires on its own so a crashed worker does not leave
// a stale entry behind for long.
func (b *Broker) SetWorkerStatus(ctx context.Context, queue, workerID string, st *protostar.WorkerStatus) error {
	key := statusKey(queue, workerID)
	if st == nil {
		if err := b.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("protostar/broker: clear status of %q: %w", workerID, err)
		}
		return nil
	}

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("%w: worker status: %w", protostar.ErrEncoding, err)
	}
	if err := b.client.Set(ctx, key, data, b.statusTTL).Err(); err != nil {
		return fmt.Errorf("protostar/broker: set status of %q: %w", workerID, err)
	}
	return nil
}

// WorkerStatuses returns the status of every busy worker on queue.
func (b *Broker) WorkerStatuses(ctx context.Context, queue string) ([]protostar.WorkerStatus, error) {
	var (
		out    []protostar.WorkerStatus
		cursor uint64
	)
	for {
		keys, next, err := b.client.Scan(ctx, cursor, statusPattern(queue), 100).Result()
		if err != nil {
			return nil, fmt.Errorf("protostar/broker: scan statuses of %q: %w", queue, err)
		}
		for _, key := range keys {
			data, err := b.client.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				continue // expired between scan and get
			}
			if err != nil {
				return nil, fmt.Errorf("protostar/broker: read status %q: %w", key, err)
			}
			var st protostar.WorkerStatus
			if err := json.Unmarshal(data, &st); err != nil {
				b.logger.Warn("skipping unreadable worker status", "key", key, "error", err)
				continue
			}
			out = append(out, st)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return out, nil
}
