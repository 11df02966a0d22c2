// Package cache memoizes engine decisions. Decisions are a pure function
// of the field and the player to move, so a cached answer never goes stale.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kappines/FourInARow/internal/game"
	"github.com/kappines/FourInARow/internal/grid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

type DecisionCache interface {
	Get(ctx context.Context, key string) (game.Decision, bool, error)
	Set(ctx context.Context, key string, d game.Decision) error
}

// Key identifies a decision request.
func Key(g *grid.Grid, self grid.Disc) string {
	return fmt.Sprintf("decision:%dx%d:%d:%s", g.Columns(), g.Rows(), self, g.String())
}

// Connect opens a client and checks it with a ping.
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	log.WithField("addr", addr).Info("redis connected")
	return client, nil
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (r *RedisCache) Get(ctx context.Context, key string) (game.Decision, bool, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return game.Decision{}, false, nil
	}
	if err != nil {
		return game.Decision{}, false, err
	}
	var d game.Decision
	if err := json.Unmarshal(raw, &d); err != nil {
		return game.Decision{}, false, fmt.Errorf("decode cached decision: %w", err)
	}
	return d, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, d game.Decision) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, r.ttl).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
