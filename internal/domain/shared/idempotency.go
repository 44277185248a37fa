package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers processed keys so at-least-once delivery
// paths (outbox replay, webhook retries) collapse to effectively-once.
type IdempotencyStore interface {
	// MarkProcessed records the key with a TTL and reports whether this
	// call was the first to record it.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether the key is currently recorded.
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release discards the key so the next delivery is treated as new.
	// Handlers call it after failing, handing the event back for retry.
	Release(ctx context.Context, key string) error

	Close() error
}

// IdempotencyConfig tunes duplicate suppression.
type IdempotencyConfig struct {
	// TTL bounds how long a processed key is remembered. A key seen
	// again after expiry is treated as new.
	TTL time.Duration

	// Enabled turns suppression off entirely when false.
	Enabled bool
}

// DefaultIdempotencyConfig remembers keys for a day.
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
