package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultDedupeTTL = 24 * time.Hour
	dedupeKeyPrefix  = "neumaticos:inbound:"
)

// Deduper claims inbound message ids. Claim reports false when the id was already
// seen, which happens when Twilio retries a webhook. Forget drops a claim so a
// message that could not be enqueued is accepted on the retry.
type Deduper interface {
	Claim(ctx context.Context, messageSID string) (bool, error)
	Forget(ctx context.Context, messageSID string) error
}

// RedisDeduper remembers message ids in Redis for a TTL.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultDedupeTTL
	}
	return &RedisDeduper{client: client, ttl: ttl}
}

func (d *RedisDeduper) Claim(ctx context.Context, messageSID string) (bool, error) {
	if messageSID == "" {
		return true, nil
	}
	ok, err := d.client.SetNX(ctx, dedupeKeyPrefix+messageSID, time.Now().UTC().Unix(), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("conversation: claim inbound %s: %w", messageSID, err)
	}
	return ok, nil
}

func (d *RedisDeduper) Forget(ctx context.Context, messageSID string) error {
	if messageSID == "" {
		return nil
	}
	if err := d.client.Del(ctx, dedupeKeyPrefix+messageSID).Err(); err != nil {
		return fmt.Errorf("conversation: forget inbound %s: %w", messageSID, err)
	}
	return nil
}

// MemoryDeduper is a process-local Deduper for development. Entries never expire.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{seen: make(map[string]struct{})}
}

func (d *MemoryDeduper) Claim(_ context.Context, messageSID string) (bool, error) {
	if messageSID == "" {
		return true, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[messageSID]; ok {
		return false, nil
	}
	d.seen[messageSID] = struct{}{}
	return true, nil
}

func (d *MemoryDeduper) Forget(_ context.Context, messageSID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, messageSID)
	return nil
}
