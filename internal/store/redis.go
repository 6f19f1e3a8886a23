// Package store implements the correlation-record store on Redis.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shopstack/novapay-connector/internal/core/domain"
)

// recordTTL bounds how long abandoned correlation records linger.
const recordTTL = 90 * 24 * time.Hour

// RedisStore implements ports.CorrelationStore.
type RedisStore struct {
	client *redis.Client
	log    *zap.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(url string, log *zap.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("connected to redis correlation store")
	return &RedisStore{client: client, log: log}, nil
}

// Get returns the record for a key, or domain.ErrRecordNotFound.
func (s *RedisStore) Get(ctx context.Context, key domain.CorrelationKey) (*domain.CorrelationRecord, error) {
	data, err := s.client.Get(ctx, storageKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var record domain.CorrelationRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("corrupt correlation record for %s: %w", storageKey(key), err)
	}
	return &record, nil
}

// Upsert writes the record for a key, creating or replacing it.
func (s *RedisStore) Upsert(ctx context.Context, key domain.CorrelationKey, record *domain.CorrelationRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal correlation record: %w", err)
	}
	if err := s.client.Set(ctx, storageKey(key), data, recordTTL).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping reports store health.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// storageKey flattens a CorrelationKey at the storage boundary only. The
// ids are uuid-shaped and never contain the separator.
func storageKey(key domain.CorrelationKey) string {
	return "correlation:" + key.PaymentID + "|" + key.PSPReference
}
