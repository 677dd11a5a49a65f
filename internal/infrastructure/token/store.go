package token

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anthill/accountsvc/internal/domain"
	"github.com/anthill/accountsvc/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// record is what's stored per (account, name) slot.
type record struct {
	UUID      string    `json:"uuid"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RedisStore implements domain.TokenStore. invalidate_account revokes every
// unique token for the account regardless of system-name: the merge flow
// (moving a credential off an account) depends on that all-for-account
// semantics to cut off every live session on the losing side.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func slotKey(account, name string) string {
	return fmt.Sprintf("token:%s:%s", account, name)
}

func accountPattern(account string) string {
	return fmt.Sprintf("token:%s:*", account)
}

func (s *RedisStore) Save(ctx context.Context, account, uuid string, expiresAt time.Time, name string) error {
	if name == "" {
		name = domain.DefaultTokenName
	}
	data, err := json.Marshal(record{UUID: uuid, ExpiresAt: expiresAt})
	if err != nil {
		return fmt.Errorf("encode token record: %w", err)
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := s.client.Set(ctx, slotKey(account, name), data, ttl).Err(); err != nil {
		logger.Errorf("failed to save token for account %s: %v", account, err)
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (s *RedisStore) InvalidateAccount(ctx context.Context, account string) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, accountPattern(account), 100).Result()
		if err != nil {
			logger.Errorf("failed to scan tokens for account %s: %v", account, err)
			return fmt.Errorf("scan tokens: %w", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("delete tokens: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return nil
}

func (s *RedisStore) IsLive(ctx context.Context, account, name, uuid string) (bool, error) {
	if name == "" {
		name = domain.DefaultTokenName
	}
	raw, err := s.client.Get(ctx, slotKey(account, name)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load token: %w", err)
	}
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return false, fmt.Errorf("decode token record: %w", err)
	}
	return rec.UUID == uuid, nil
}

var _ domain.TokenStore = (*RedisStore)(nil)
