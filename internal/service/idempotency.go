package service

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// IdempotencyGuard 用 Redis SETNX 做提交重试的第一道挡板，
// 数据库里幂等键的唯一索引是最终兜底。
type IdempotencyGuard struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewIdempotencyGuard(client *redis.Client, ttl time.Duration) *IdempotencyGuard {
	return &IdempotencyGuard{Client: client, TTL: ttl}
}

// Claim 尝试占用幂等键。返回 false 表示该键已被占用，
// 调用方应按重复提交处理。Redis 不可用时放行，由数据库兜底。
func (g *IdempotencyGuard) Claim(ctx context.Context, key string) bool {
	if g == nil || g.Client == nil || key == "" {
		return true
	}
	ok, err := g.Client.SetNX(ctx, "grading:idem:"+key, 1, g.TTL).Result()
	if err != nil {
		return true
	}
	return ok
}

// Release 在提交未落库就失败时归还幂等键，让客户端能重试。
func (g *IdempotencyGuard) Release(ctx context.Context, key string) {
	if g == nil || g.Client == nil || key == "" {
		return
	}
	g.Client.Del(ctx, "grading:idem:"+key)
}
