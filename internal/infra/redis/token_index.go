// Package redis provides an optional token -> quiz-code index so master and
// session token resolution can skip the data-directory scan. Entries are
// best-effort hints with a TTL; the service re-verifies every hit against
// the file store, so the index can be lost or stale without affecting
// correctness.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenIndex maps bearer tokens to quiz codes in Redis.
type TokenIndex struct {
	client *redis.Client
	ttl    time.Duration
}

func NewTokenIndex(client *redis.Client, ttl time.Duration) *TokenIndex {
	return &TokenIndex{client: client, ttl: ttl}
}

func (i *TokenIndex) PutMaster(ctx context.Context, token, code string) {
	_ = i.client.Set(ctx, masterKey(token), code, i.ttl).Err()
}

func (i *TokenIndex) LookupMaster(ctx context.Context, token string) (string, bool) {
	code, err := i.client.Get(ctx, masterKey(token)).Result()
	if err != nil {
		return "", false
	}
	return code, true
}

func (i *TokenIndex) PutSession(ctx context.Context, token, code string) {
	_ = i.client.Set(ctx, sessionKey(token), code, i.ttl).Err()
}

func (i *TokenIndex) LookupSession(ctx context.Context, token string) (string, bool) {
	code, err := i.client.Get(ctx, sessionKey(token)).Result()
	if err != nil {
		return "", false
	}
	return code, true
}

func masterKey(token string) string {
	return "quiz:master:" + token
}

func sessionKey(token string) string {
	return "quiz:session:" + token
}
