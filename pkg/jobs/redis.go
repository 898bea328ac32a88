package jobs

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "askpro:jobs:"
	recentPageSize   = 50
)

// RedisConfig describes the Redis connection backing a RedisLedger.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// TTL is how long an entry survives after its last update.
	TTL time.Duration
	// KeyPrefix namespaces the ledger keys; defaults to "askpro:jobs:".
	KeyPrefix string
}

// RedisLedger stores entries as Redis hashes indexed by a sorted set
// scored by creation time. Each hash expires TTL after its last update;
// the index lives as long as the most recently updated entry and is pruned
// of expired ids on read.
type RedisLedger struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	now    func() time.Time
}

// NewRedisLedger creates a Redis-backed ledger. It does not dial; use Ping
// to check connectivity.
func NewRedisLedger(cfg RedisConfig) *RedisLedger {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultKeyPrefix
	}
	return &RedisLedger{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		ttl:    cfg.TTL,
		prefix: cfg.KeyPrefix,
		now:    time.Now,
	}
}

func (r *RedisLedger) indexKey() string { return r.prefix + "index" }
func (r *RedisLedger) entryKey(id string) string { return r.prefix + "entry:" + id }

// Record upserts the entry and refreshes its TTL.
func (r *RedisLedger) Record(ctx context.Context, id, status string) error {
	now := r.now()
	stamp := strconv.FormatInt(now.UnixNano(), 10)
	key := r.entryKey(id)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "status", status, "updated_at", stamp)
		pipe.HSetNX(ctx, key, "created_at", stamp)
		pipe.Expire(ctx, key, r.ttl)
		pipe.ZAddNX(ctx, r.indexKey(), redis.Z{Score: float64(now.UnixNano()), Member: id})
		pipe.Expire(ctx, r.indexKey(), r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("jobs: record %s: %w", id, err)
	}
	return nil
}

// Recent returns up to limit live entries, newest first. Index members
// whose hash has expired are removed from the index as they are found.
func (r *RedisLedger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	out := make([]Entry, 0)
	for start := int64(0); limit <= 0 || len(out) < limit; {
		ids, err := r.client.ZRevRange(ctx, r.indexKey(), start, start+recentPageSize-1).Result()
		if err != nil {
			return nil, fmt.Errorf("jobs: list index: %w", err)
		}
		if len(ids) == 0 {
			break
		}

		cmds := make([]*redis.MapStringStringCmd, len(ids))
		_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, id := range ids {
				cmds[i] = pipe.HGetAll(ctx, r.entryKey(id))
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("jobs: load entries: %w", err)
		}

		var stale []any
		for i, cmd := range cmds {
			fields := cmd.Val()
			if len(fields) == 0 {
				stale = append(stale, ids[i])
				continue
			}
			if limit > 0 && len(out) >= limit {
				continue
			}
			out = append(out, Entry{
				ID:        ids[i],
				Status:    fields["status"],
				CreatedAt: parseStamp(fields["created_at"]),
				UpdatedAt: parseStamp(fields["updated_at"]),
			})
		}

		next := start + int64(len(ids))
		if len(stale) > 0 {
			if err := r.client.ZRem(ctx, r.indexKey(), stale...).Err(); err == nil {
				next -= int64(len(stale))
			}
		}
		if len(ids) < recentPageSize {
			break
		}
		start = next
	}
	return out, nil
}

func parseStamp(raw string) time.Time {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Ping checks the Redis connection.
func (r *RedisLedger) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (r *RedisLedger) Close() error {
	return r.client.Close()
}
