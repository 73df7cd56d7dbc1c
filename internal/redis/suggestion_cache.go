package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"neosocial/internal/models"
)

const suggestionKeyPrefix = "sugg:"

// SuggestionCache 将推荐结果缓存在 Redis 哈希中，每个用户一个 key，
// 字段按推荐类型和 limit 区分，整个 key 共享一个 TTL。
type SuggestionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSuggestionCache creates a SuggestionCache whose entries expire after ttl.
func NewSuggestionCache(client *redis.Client, ttl time.Duration) *SuggestionCache {
	return &SuggestionCache{client: client, ttl: ttl}
}

func suggestionKey(userID string) string {
	return suggestionKeyPrefix + userID
}

func suggestionField(kind string, limit int) string {
	return fmt.Sprintf("%s:%d", kind, limit)
}

func (c *SuggestionCache) get(ctx context.Context, userID, field string, out any) (bool, error) {
	raw, err := c.client.HGet(ctx, suggestionKey(userID), field).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read suggestion cache for user %s: %w", userID, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode suggestion cache for user %s: %w", userID, err)
	}
	return true, nil
}

func (c *SuggestionCache) set(ctx context.Context, userID, field string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode suggestion cache for user %s: %w", userID, err)
	}
	key := suggestionKey(userID)
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, field, payload)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write suggestion cache for user %s: %w", userID, err)
	}
	return nil
}

func (c *SuggestionCache) GetFriendSuggestions(ctx context.Context, userID string, limit int) ([]models.FriendSuggestion, bool, error) {
	var out []models.FriendSuggestion
	ok, err := c.get(ctx, userID, suggestionField("friends", limit), &out)
	if !ok || err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (c *SuggestionCache) SetFriendSuggestions(ctx context.Context, userID string, limit int, suggestions []models.FriendSuggestion) error {
	return c.set(ctx, userID, suggestionField("friends", limit), suggestions)
}

func (c *SuggestionCache) GetGroupSuggestions(ctx context.Context, userID string, limit int) ([]models.GroupSuggestion, bool, error) {
	var out []models.GroupSuggestion
	ok, err := c.get(ctx, userID, suggestionField("groups", limit), &out)
	if !ok || err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (c *SuggestionCache) SetGroupSuggestions(ctx context.Context, userID string, limit int, suggestions []models.GroupSuggestion) error {
	return c.set(ctx, userID, suggestionField("groups", limit), suggestions)
}

// Invalidate drops every cached list for the given users.
func (c *SuggestionCache) Invalidate(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, suggestionKey(id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate suggestion cache: %w", err)
	}
	return nil
}
