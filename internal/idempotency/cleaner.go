package idempotency

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const cleanerBatch = 100

// Cleaner deletes idempotency records without an expiry. Such records are left behind by a
// process that died between writing a record and setting its TTL.
type Cleaner struct {
	client   redis.Cmdable
	log      *slog.Logger
	interval time.Duration
}

func NewCleaner(client redis.Cmdable, log *slog.Logger, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	return &Cleaner{client: client, log: log, interval: interval}
}

// Run sweeps every interval until ctx is done.
func (c *Cleaner) Run(ctx context.Context) {
	if c == nil || c.client == nil || c.interval <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := c.Cleanup(ctx); removed > 0 {
				c.log.Info("orphaned idempotency records removed", slog.Int("removed", removed))
			}
		}
	}
}

// Cleanup runs one pass and returns the number of deleted records.
func (c *Cleaner) Cleanup(ctx context.Context) int {
	removed := 0
	batch := make([]string, 0, cleanerBatch)

	iter := c.client.Scan(ctx, 0, KeyPrefix+"*", cleanerBatch).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cleanerBatch {
			removed += c.purge(ctx, batch)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		c.log.Error("idempotency cleaner scan failed", slog.Any("error", err))
	}
	if len(batch) > 0 {
		removed += c.purge(ctx, batch)
	}

	return removed
}

// purge deletes the keys of batch that have no TTL.
func (c *Cleaner) purge(ctx context.Context, batch []string) int {
	ttls := make([]*redis.DurationCmd, len(batch))
	_, err := c.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, key := range batch {
			ttls[i] = p.TTL(ctx, key)
		}
		return nil
	})
	if err != nil {
		c.log.Warn("idempotency cleaner ttl lookup failed", slog.Any("error", err))
		return 0
	}

	var orphaned []string
	for i, cmd := range ttls {
		// -1: the key exists without an expiry.
		if cmd.Val() == -1 {
			orphaned = append(orphaned, batch[i])
		}
	}
	if len(orphaned) == 0 {
		return 0
	}

	n, err := c.client.Del(ctx, orphaned...).Result()
	if err != nil {
		c.log.Warn("failed to delete orphaned idempotency records", slog.Int("count", len(orphaned)), slog.Any("error", err))
		return 0
	}
	return int(n)
}
