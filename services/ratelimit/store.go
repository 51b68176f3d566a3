package ratelimit

import (
	"context"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Store counts requests per key within a fixed window.
// Increment is atomic: concurrent calls for the same key never
// observe the same count.
type Store interface {
	// Increment adds one request to the key's current window and returns
	// the new count plus the moment the window resets. The first increment
	// for a key starts its window.
	Increment(ctx context.Context, key string, window time.Duration) (int64, time.Time, error)
}

// windowEntry tracks one key's fixed window
type windowEntry struct {
	count   int64
	resetAt time.Time
}

// MemoryStore is an in-process Store for single-instance deployments
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
	logger  *zap.Logger
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*windowEntry),
		logger:  logger,
	}
}

// Increment implements Store. Expired windows are replaced in place,
// so a key's counter restarts from one after its window elapses.
func (s *MemoryStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || !entry.resetAt.After(now) {
		entry = &windowEntry{resetAt: now.Add(window)}
		s.entries[key] = entry
	}
	entry.count++

	return entry.count, entry.resetAt, nil
}

// StartSweeper launches a background worker that drops expired windows
// so the map does not grow without bound. Returns immediately; the
// worker runs until ctx is cancelled.
func (s *MemoryStore) StartSweeper(ctx context.Context, interval time.Duration) {
	s.logger.Info("started rate limit sweeper", zap.Duration("interval", interval))
	go s.sweepLoop(ctx, interval)
}

func (s *MemoryStore) sweepLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := s.sweep(time.Now())
			if removed > 0 {
				s.logger.Debug("swept expired rate limit windows", zap.Int("removed", removed))
			}
		case <-ctx.Done():
			s.logger.Info("stopping rate limit sweeper")
			return
		}
	}
}

func (s *MemoryStore) sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.entries {
		if !entry.resetAt.After(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// RedisStore is a Store backed by Redis, for multi-instance deployments
// where every edge node must share one counter per client.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed store and verifies connectivity
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient wraps an existing client, used by tests
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Increment implements Store using INCR plus a NX expiry so only the
// first increment of a window arms the timer.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	pipe := s.client.TxPipeline()
	counter := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.TTL(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, err
	}

	return counter.Val(), time.Now().Add(ttl.Val()), nil
}

// Close closes the underlying Redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
