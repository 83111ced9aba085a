package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/gatekeeper/pkg/session"
	pkgstorage "github.com/jwebster45206/gatekeeper/pkg/storage"
	"github.com/redis/go-redis/v9"
)

const (
	progressKeyPrefix  = "progress:"
	DefaultProgressTTL = 24 * time.Hour
)

// RedisStorage implements the Storage interface using Redis for session progress
// and filesystem for static resources (levels)
type RedisStorage struct {
	client  *redis.Client
	logger  *slog.Logger
	dataDir string
	ttl     time.Duration
}

// Ensure RedisStorage implements Storage interface
var _ pkgstorage.Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance. redisURL may be a
// redis:// URL or a bare host:port.
func NewRedisStorage(redisURL string, dataDir string, ttl time.Duration, logger *slog.Logger) (*RedisStorage, error) {
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}

	if dataDir == "" {
		dataDir = "./data"
	}
	if ttl <= 0 {
		ttl = DefaultProgressTTL
	}

	return &RedisStorage{
		client:  redis.NewClient(opts),
		logger:  logger,
		dataDir: dataDir,
		ttl:     ttl,
	}, nil
}

func parseRedisURL(redisURL string) (*redis.Options, error) {
	if redisURL == "" {
		return nil, errors.New("redis url is required")
	}
	if !strings.Contains(redisURL, "://") {
		return &redis.Options{Addr: redisURL}, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return opts, nil
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// Client returns the underlying Redis client for direct operations
func (r *RedisStorage) Client() *redis.Client {
	return r.client
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context, maxRetries int, retryDelay time.Duration) error {
	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Progress operations (Redis-backed)

func (r *RedisStorage) SaveProgress(ctx context.Context, id uuid.UUID, p *session.Progress) error {
	if p == nil {
		return errors.New("progress cannot be nil")
	}
	p.UpdatedAt = time.Now()

	data, err := json.Marshal(p)
	if err != nil {
		r.logger.Error("Failed to marshal progress", "uuid", id, "error", err)
		return fmt.Errorf("failed to marshal progress: %w", err)
	}

	if err := r.client.Set(ctx, progressKeyPrefix+id.String(), data, r.ttl).Err(); err != nil {
		r.logger.Error("Failed to save progress", "uuid", id, "error", err)
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadProgress(ctx context.Context, id uuid.UUID) (*session.Progress, error) {
	data, err := r.client.Get(ctx, progressKeyPrefix+id.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Warn("Progress not found", "uuid", id)
			return nil, nil // Return nil for not found
		}
		r.logger.Error("Failed to load progress", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	var p session.Progress
	if err := json.Unmarshal(data, &p); err != nil {
		r.logger.Error("Failed to unmarshal progress", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal progress: %w", err)
	}
	return &p, nil
}

func (r *RedisStorage) DeleteProgress(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, progressKeyPrefix+id.String()).Err(); err != nil {
		r.logger.Error("Failed to delete progress", "uuid", id, "error", err)
		return fmt.Errorf("failed to delete progress: %w", err)
	}
	return nil
}
