package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis guards each cart with a short-lived lock so a double-submitted
// checkout cannot run two sagas against the same cart at once. Inventory
// exclusivity does not depend on it; the reservation ledger is the real
// serialization point.
type Redis struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Redis{Client: client, TTL: ttl}
}

func key(cartID string) string {
	return "cart_checkout:" + cartID
}

// Acquire takes the cart lock for this checkout attempt. Returns false if
// another attempt already holds it.
func (r *Redis) Acquire(ctx context.Context, cartID, orderID string) (bool, error) {
	ok, err := r.Client.SetNX(ctx, key(cartID), orderID, r.TTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis lock error: %w", err)
	}
	return ok, nil
}

// Release frees the cart lock, but only if this checkout still owns it.
func (r *Redis) Release(ctx context.Context, cartID, orderID string) error {
	val, err := r.Client.Get(ctx, key(cartID)).Result()
	if err == redis.Nil {
		return nil // already expired
	}
	if err != nil {
		return err
	}
	if val == orderID {
		_, err := r.Client.Del(ctx, key(cartID)).Result()
		return err
	}
	return nil
}
