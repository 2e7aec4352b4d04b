// Package cache provides a Redis read-through cache for transaction summaries.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/spicebot/internal/model"
	"github.com/Veraticus/spicebot/internal/service"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a cached summary stays valid.
const DefaultTTL = 5 * time.Minute

const (
	keyPrefix = "summary"
	openBound = "all"
	scanCount = 100
)

// SummaryStorage wraps a service.Storage so that summary reads go through
// Redis and transaction writes invalidate the user's cached summaries.
// Cache failures are logged and bypassed.
type SummaryStorage struct {
	service.Storage
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// Wrap returns store unchanged when client is nil.
func Wrap(store service.Storage, client *redis.Client, ttl time.Duration, logger *slog.Logger) service.Storage {
	if client == nil {
		return store
	}
	return NewSummaryStorage(store, client, ttl, logger)
}

// NewSummaryStorage creates a caching decorator around store.
func NewSummaryStorage(store service.Storage, client *redis.Client, ttl time.Duration, logger *slog.Logger) *SummaryStorage {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SummaryStorage{
		Storage: store,
		client:  client,
		ttl:     ttl,
		logger:  logger.With("component", "summary_cache"),
	}
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

// SummaryKey builds the cache key for a user's summary over the filter's bounds.
func SummaryKey(userID string, filter service.SummaryFilter) string {
	return fmt.Sprintf("%s:%s:%s:%s", keyPrefix, userID, bound(filter.From), bound(filter.To))
}

func bound(t *time.Time) string {
	if t == nil {
		return openBound
	}
	return t.UTC().Format(time.RFC3339)
}

// GetTransactionSummary serves the summary from Redis when present,
// otherwise loads it from storage and caches it.
func (c *SummaryStorage) GetTransactionSummary(ctx context.Context, userID string, filter service.SummaryFilter) (model.TransactionSummary, error) {
	key := SummaryKey(userID, filter)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var summary model.TransactionSummary
		jsonErr := json.Unmarshal(data, &summary)
		if jsonErr == nil {
			c.logger.Debug("summary cache hit", "key", key)
			return summary, nil
		}
		c.logger.Warn("discarding undecodable cached summary", "key", key, "error", jsonErr)
	case errors.Is(err, redis.Nil):
		c.logger.Debug("summary cache miss", "key", key)
	default:
		c.logger.Warn("summary cache read failed", "key", key, "error", err)
	}

	summary, err := c.Storage.GetTransactionSummary(ctx, userID, filter)
	if err != nil {
		return summary, err
	}

	if encoded, jsonErr := json.Marshal(summary); jsonErr == nil {
		if setErr := c.client.Set(ctx, key, encoded, c.ttl).Err(); setErr != nil {
			c.logger.Warn("summary cache write failed", "key", key, "error", setErr)
		}
	}
	return summary, nil
}

// Invalidate removes every cached summary of a user.
func (c *SummaryStorage) Invalidate(ctx context.Context, userID string) error {
	pattern := fmt.Sprintf("%s:%s:*", keyPrefix, userID)

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return fmt.Errorf("failed to scan summary keys: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete summary keys: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (c *SummaryStorage) invalidate(ctx context.Context, userID string) {
	if err := c.Invalidate(ctx, userID); err != nil {
		c.logger.Warn("summary cache invalidation failed", "user_id", userID, "error", err)
	}
}

// CreateTransaction stores the transaction and drops the user's cached summaries.
func (c *SummaryStorage) CreateTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := c.Storage.CreateTransaction(ctx, txn); err != nil {
		return err
	}
	c.invalidate(ctx, txn.UserID)
	return nil
}

// UpdateTransaction updates the transaction and drops the user's cached summaries.
func (c *SummaryStorage) UpdateTransaction(ctx context.Context, userID, id string, update service.TransactionUpdate) (*model.Transaction, error) {
	txn, err := c.Storage.UpdateTransaction(ctx, userID, id, update)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, userID)
	return txn, nil
}

// DeleteTransaction deletes the transaction and drops the user's cached summaries.
func (c *SummaryStorage) DeleteTransaction(ctx context.Context, userID, id string) error {
	if err := c.Storage.DeleteTransaction(ctx, userID, id); err != nil {
		return err
	}
	c.invalidate(ctx, userID)
	return nil
}
