package db

import (
	"context"
	"time"
)

// Store is the database facade the composition root wires into repositories.
// Consumers declare the narrow subset they need.
type Store interface {
	Pinger
	HashStore
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// FieldIncr is a single hash field increment.
type FieldIncr struct {
	Field string
	By    int64
}

// HashStore provides hash-based operations.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	// HIncrBy applies all increments, sets ttl on the key if it has none,
	// and returns the hash after the update. Each increment is atomic on its own.
	HIncrBy(ctx context.Context, key string, incrs []FieldIncr, ttl time.Duration) (map[string]string, error)
}

// KVStore provides key-level operations.
type KVStore interface {
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}
