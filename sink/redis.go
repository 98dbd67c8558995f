package sink

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/ridge/solstream/event"
)

// DefaultRecentLimit is how many recent events Redis keeps per channel
const DefaultRecentLimit = 1000

// Redis publishes event envelopes on a Redis channel. The most recent events
// are also kept in the sorted set "events:<channel>", scored by slot, so that
// late subscribers can catch up.
type Redis struct {
	client  *redis.Client
	channel string
	limit   int64
}

// NewRedis connects to the Redis server at url, e.g. redis://localhost:6379/0
func NewRedis(url, channel string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}
	return &Redis{
		client:  redis.NewClient(opts),
		channel: channel,
		limit:   DefaultRecentLimit,
	}, nil
}

// RecentKey returns the name of the sorted set holding recent events
func (r *Redis) RecentKey() string {
	return "events:" + r.channel
}

// Write implements Sink
func (r *Redis) Write(ctx context.Context, ev event.DexEvent) error {
	data, err := Encode(ev)
	if err != nil {
		return err
	}
	_, err = r.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		key := r.RecentKey()
		p.ZAdd(ctx, key, redis.Z{Score: float64(ev.Metadata().Slot), Member: data})
		p.ZRemRangeByRank(ctx, key, 0, -r.limit-1)
		p.Publish(ctx, r.channel, data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to publish to Redis: %w", err)
	}
	return nil
}

// Close implements Sink
func (r *Redis) Close() error {
	return r.client.Close()
}
