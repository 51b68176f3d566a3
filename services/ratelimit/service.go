package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Result represents the outcome of a rate limit check
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Service enforces a fixed-window request limit per client key.
// The limit and window come from the caller on every check so runtime
// configuration changes apply without restarting.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService creates a new rate limit service
func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// Check counts this request against the key's window and reports whether
// it is within the limit. The request is counted even when rejected; a
// client hammering past the limit never makes progress toward a reset.
func (s *Service) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	if limit <= 0 {
		return &Result{Allowed: true, Limit: limit}, nil
	}

	count, resetAt, err := s.store.Increment(ctx, key, window)
	if err != nil {
		return nil, fmt.Errorf("failed to increment rate counter: %w", err)
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	result := &Result{
		Allowed:   count <= int64(limit),
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}

	if !result.Allowed {
		s.logger.Debug("rate limit exceeded",
			zap.String("key", key),
			zap.Int64("count", count),
			zap.Int("limit", limit),
			zap.Time("reset_at", resetAt),
		)
	}

	return result, nil
}
