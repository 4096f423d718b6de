package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultIdempotencyTTL is how long a confirmation can be replayed.
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyStore caches confirmations by idempotency key.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*Confirmation, bool, error)
	Put(ctx context.Context, key string, c *Confirmation, ttl time.Duration) error
}

type memoryEntry struct {
	confirmation Confirmation
	expires      time.Time
}

// MemoryStore is a process-local IdempotencyStore.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Confirmation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !s.now().Before(e.expires) {
		delete(s.entries, key)
		return nil, false, nil
	}
	c := e.confirmation
	return &c, true, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, c *Confirmation, ttl time.Duration) error {
	if c == nil {
		return errors.New("nil confirmation")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, k)
		}
	}
	s.entries[key] = memoryEntry{confirmation: *c, expires: now.Add(ttl)}
	return nil
}

// RedisStore shares confirmations between instances through Redis.
type RedisStore struct {
	rdb    redis.Cmdable
	prefix string
}

// NewRedisStore returns a RedisStore writing keys under prefix.
func NewRedisStore(rdb redis.Cmdable, prefix string) *RedisStore {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "idem"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + ":" + k
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Confirmation, bool, error) {
	data, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var c Confirmation
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, false, fmt.Errorf("decode cached confirmation: %w", err)
	}
	return &c, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, c *Confirmation, ttl time.Duration) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode confirmation: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
