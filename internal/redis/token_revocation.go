package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// revokedKeyPrefix is shared with the identity service, which writes a key per
// revoked token id and lets it expire with the token.
const revokedKeyPrefix = "bl:jti:"

// TokenRevocationList 基于 Redis 检查 Token 是否已被吊销。
type TokenRevocationList struct {
	client *redis.Client
}

// NewTokenRevocationList creates a TokenRevocationList.
func NewTokenRevocationList(client *redis.Client) *TokenRevocationList {
	return &TokenRevocationList{client: client}
}

// IsRevoked reports whether a revocation key exists for jti.
func (r *TokenRevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("check token revocation for jti %s: %w", jti, err)
	}
	return n > 0, nil
}
