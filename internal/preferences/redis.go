package preferences

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fjod/storefront-checkout/domain"
	"github.com/fjod/storefront-checkout/internal/wallet"
)

const defaultTTL = 30 * 24 * time.Hour

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func (r *RedisStore) SessionConfig(ctx context.Context, sessionID string) (wallet.SessionConfig, error) {
	if sessionID == "" {
		return wallet.SessionConfig{}, ErrNoSession
	}

	members, err := r.client.SMembers(ctx, cacheKey(sessionID)).Result()
	if err != nil {
		return wallet.SessionConfig{}, fmt.Errorf("redis smembers failed: %w", err)
	}

	cfg := wallet.SessionConfig{DismissedPrompts: make(map[domain.WalletRail]bool, len(members))}
	for _, m := range members {
		if rail, err := ParseRail(m); err == nil {
			cfg.DismissedPrompts[rail] = true
		}
	}
	return cfg, nil
}

// DismissPrompt records the dismissal and restarts the session's TTL.
func (r *RedisStore) DismissPrompt(ctx context.Context, sessionID string, rail domain.WalletRail) error {
	if sessionID == "" {
		return ErrNoSession
	}
	key := cacheKey(sessionID)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, key, string(rail))
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis dismiss failed: %w", err)
	}
	return nil
}

func cacheKey(sessionID string) string {
	return fmt.Sprintf("wallet-prompts:%s", sessionID)
}
