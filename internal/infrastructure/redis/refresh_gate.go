package redisstore

import (
	"context"
	"time"

	"lspquotes-service/internal/application"

	"github.com/redis/go-redis/v9"
)

// RefreshGate lets one background refresh per key through per TTL across
// every process sharing the redis instance.
type RefreshGate struct {
	Client *redis.Client
	TTL    time.Duration
}

var _ application.RefreshGate = (*RefreshGate)(nil)

func NewRefreshGate(client *redis.Client, ttl time.Duration) *RefreshGate {
	return &RefreshGate{Client: client, TTL: ttl}
}

func (g *RefreshGate) TryReserve(ctx context.Context, key string) (bool, error) {
	ok, err := g.Client.SetNX(ctx, keyPrefix+"gate:"+key, "1", g.TTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}
