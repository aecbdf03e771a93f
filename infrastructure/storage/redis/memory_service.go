package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/veritaslabs/cogito/domain/service"
)

// ErrConnectionFailed indicates the Redis server could not be reached.
var ErrConnectionFailed = errors.New("redis connection failed")

const defaultScope = "local"

// MemoryService is a Redis-backed implementation of service.MemoryService.
// Entries are stored as JSON values keyed by scope and key.
type MemoryService struct {
	client    *redis.Client
	keyPrefix string
}

// NewMemoryService creates a new Redis memory service with the given
// configuration and verifies the connection.
func NewMemoryService(cfg Config, opts ...ConfigOption) (*MemoryService, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}

	return &MemoryService{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// NewMemoryServiceFromClient creates a memory service from an existing
// Redis client.
func NewMemoryServiceFromClient(client *redis.Client, keyPrefix string) *MemoryService {
	return &MemoryService{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// entryKey builds the storage key for a scope and key pair.
func (m *MemoryService) entryKey(key, scope string) string {
	if scope == "" {
		scope = defaultScope
	}
	return m.keyPrefix + "memory:" + scope + ":" + key
}

// Memorize stores the entry, overwriting any previous value under the
// same key and scope.
func (m *MemoryService) Memorize(ctx context.Context, entry service.MemoryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if entry.Scope == "" {
		entry.Scope = defaultScope
	}
	entry.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode memory entry: %w", err)
	}

	if err := m.client.Set(ctx, m.entryKey(entry.Key, entry.Scope), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store memory entry: %w", err)
	}
	return nil
}

// Recall fetches the entry under the key and scope. A missing key is not
// an error; it returns an empty slice.
func (m *MemoryService) Recall(ctx context.Context, key, scope string) ([]service.MemoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := m.client.Get(ctx, m.entryKey(key, scope)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch memory entry: %w", err)
	}

	var entry service.MemoryEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode memory entry: %w", err)
	}
	return []service.MemoryEntry{entry}, nil
}

// Forget removes the entry under the key and scope. Deleting a missing
// key is not an error.
func (m *MemoryService) Forget(ctx context.Context, key, scope string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.client.Del(ctx, m.entryKey(key, scope)).Err(); err != nil {
		return fmt.Errorf("failed to delete memory entry: %w", err)
	}
	return nil
}

// Healthy implements the registry health probe.
func (m *MemoryService) Healthy(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (m *MemoryService) Close() error {
	return m.client.Close()
}

// Ensure MemoryService implements the domain interfaces.
var (
	_ service.MemoryService = (*MemoryService)(nil)
	_ service.HealthChecker = (*MemoryService)(nil)
)
