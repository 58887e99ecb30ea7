package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis wraps the redis client that carries the outcome stream.
type Redis struct {
	Client *redis.Client
	Addr   string
}

// NewRedis builds a client with short timeouts. It does not connect.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client, Addr: addr}
}

// DialRedis builds a client and pings it once. An unreachable server is
// logged, not fatal: stream consumers back off and retry on their own.
func DialRedis(ctx context.Context, addr string, log *slog.Logger) *Redis {
	r := NewRedis(addr)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.Client.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis not reachable yet", "addr", addr, "err", err)
	} else {
		log.Info("redis connected", "addr", addr)
	}
	return r
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

// Backlog returns how many outcomes wait unconsumed on the list at key.
func (r *Redis) Backlog(ctx context.Context, key string) (int64, error) {
	return r.Client.LLen(ctx, key).Result()
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
