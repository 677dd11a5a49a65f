package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/anthill/accountsvc/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

// RedisService owns the shared *redis.Client used by both TokenStore and
// RedisDistributedLock.
type RedisService struct {
	client *redis.Client
	config RedisConfig
}

func NewRedisService(config RedisConfig) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
		PoolSize: config.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Successfully connected to Redis")
	return &RedisService{client: client, config: config}, nil
}

// GetClient returns the underlying client, shared by TokenStore and the
// distributed credential lock.
func (r *RedisService) GetClient() *redis.Client {
	return r.client
}

func (r *RedisService) Close() error {
	return r.client.Close()
}

func (r *RedisService) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
