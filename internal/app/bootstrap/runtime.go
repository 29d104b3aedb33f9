package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/neumaticos-whatsapp/internal/config"
	"github.com/wolfman30/neumaticos-whatsapp/internal/conversation"
	"github.com/wolfman30/neumaticos-whatsapp/internal/whatsapp"
	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
)

// turnLockWait bounds how long a worker waits for a busy conversation before the
// job is left on the queue.
const turnLockWait = 5 * time.Second

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildPostgresPool opens the pgx pool. It returns nil without error when no
// DATABASE_URL is configured.
func BuildPostgresPool(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*pgxpool.Pool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open postgres pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	logger.Info("postgres pool ready")
	return pool, nil
}

// BuildRepository returns the Postgres conversation repository, or an in-memory
// one when no pool is available.
func BuildRepository(pool *pgxpool.Pool, logger *logging.Logger) whatsapp.Repository {
	if pool == nil {
		if logger == nil {
			logger = logging.Default()
		}
		logger.Warn("no database configured; conversations are kept in memory")
		return whatsapp.NewMemoryRepository()
	}
	return whatsapp.NewPostgresRepository(pool)
}

// BuildLocker serializes turns per phone through Redis. Without Redis every turn
// runs unlocked, which is only safe with a single worker.
func BuildLocker(redisClient *redis.Client, cfg *appconfig.Config) conversation.Locker {
	if redisClient == nil || cfg == nil {
		return conversation.NoopLocker{}
	}
	return conversation.NewRedisLocker(redisClient, cfg.TurnLockTTL, turnLockWait)
}

// BuildDeduper drops webhook retries by MessageSid.
func BuildDeduper(redisClient *redis.Client, cfg *appconfig.Config) conversation.Deduper {
	if redisClient == nil || cfg == nil {
		return conversation.NewMemoryDeduper()
	}
	return conversation.NewRedisDeduper(redisClient, cfg.InboundDedupeTTL)
}
