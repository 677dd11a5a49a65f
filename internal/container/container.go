// Package container wires the concrete infrastructure adapters into an
// AccountService instance, building the full dependency graph once at
// startup.
package container

import (
	"fmt"

	"github.com/anthill/accountsvc/internal/application/services/account"
	"github.com/anthill/accountsvc/internal/domain"
	"github.com/anthill/accountsvc/internal/infrastructure/database/postgres"
	"github.com/anthill/accountsvc/internal/infrastructure/gamespace"
	"github.com/anthill/accountsvc/internal/infrastructure/registry"
	"github.com/anthill/accountsvc/internal/infrastructure/social"
	"github.com/anthill/accountsvc/internal/infrastructure/token"
	"github.com/anthill/accountsvc/pkg/cache"
	"github.com/anthill/accountsvc/pkg/config"
	"github.com/anthill/accountsvc/pkg/monitoring"
	natssvc "github.com/anthill/accountsvc/pkg/nats"
	"github.com/anthill/accountsvc/pkg/security"

	"gorm.io/gorm"
)

// newInstanceID gives this process a unique identity for the Redis
// distributed lock's ownership token, so Unlock never releases a lock held
// by a different process.
func newInstanceID() (string, error) {
	return security.GenerateSecureToken(16)
}

// Container holds every dependency AccountService and the HTTP layer need,
// along with the infrastructure handles that must be closed on shutdown.
type Container struct {
	Service domain.AccountService

	db    *gorm.DB
	redis *cache.RedisService
	nats  natssvc.Service
}

// New builds the full dependency graph from configuration: a Postgres pool
// backing C1/C2, a Redis client backing C4 and the credential lock, a NATS
// connection backing C6/C7, and an HMAC JWT signer backing C5/C9.
func New(cfg *config.Config) (*Container, error) {
	db, err := postgres.Open(postgres.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Name:     cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	redisService, err := cache.NewRedisService(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		return nil, fmt.Errorf("open redis: %w", err)
	}

	nc := natssvc.NewService()
	if cfg.NATS.URL != "" {
		if err := nc.Connect(cfg.NATS.URL); err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
	}

	instanceID, err := newInstanceID()
	if err != nil {
		return nil, fmt.Errorf("generate instance id: %w", err)
	}

	metrics, err := monitoring.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	deps := domain.AccountServiceDeps{
		Credentials: postgres.NewCredentialStore(db),
		Accounts:    postgres.NewAccountStore(db, metrics),
		Tokens:      token.NewRedisStore(redisService.GetClient()),
		Signer:      token.NewJWTSigner([]byte(cfg.Security.JWTSecret)),
		Gamespaces:  gamespace.NewClient(nc),
		Scopes:      gamespace.NewClient(nc),
		Authenticators: domain.NewMapRegistry(
			registry.NewAnonymousAuthenticator(),
			registry.NewDevAuthenticator(),
		),
		Social:          social.NewBridge(nc),
		Transactions:    postgres.NewTransactionManager(db),
		Locker:          cache.NewRedisDistributedLock(redisService.GetClient(), instanceID),
		ResolveTokenTTL: cfg.Security.ResolveTokenTTL,
		AccessTokenTTL:  cfg.Security.AccessTokenTTL,
	}

	return &Container{
		Service: account.New(deps),
		db:      db,
		redis:   redisService,
		nats:    nc,
	}, nil
}

// Close releases every infrastructure handle the container opened.
func (c *Container) Close() error {
	var errs []error
	if c.nats != nil {
		_ = c.nats.Close()
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.db != nil {
		if sqlDB, err := c.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("container close: %v", errs)
	}
	return nil
}
