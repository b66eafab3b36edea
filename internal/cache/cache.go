package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	DelPrefix(ctx context.Context, prefix string) error
}

// MatchKey builds the cache key for one user's match response. The request
// (algorithm + filters + sort + limit) is hashed so distinct filter sets
// never collide.
func MatchKey(userID string, request any) string {
	b, _ := json.Marshal(request)
	sum := sha256.Sum256(b)
	return "match:" + userID + ":" + hex.EncodeToString(sum[:8])
}

// MatchPrefix covers every cached match response for a user, used for
// invalidation when a new interaction lands.
func MatchPrefix(userID string) string {
	return "match:" + userID + ":"
}
