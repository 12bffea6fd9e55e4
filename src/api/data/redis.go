package data

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	noncePrefix  = "nonce:"
	streamEvents = "veristake.events"
)

func SetNonce(ctx context.Context, rdb *redis.Client, addr, nonce string) error {
	return rdb.Set(ctx, noncePrefix+addr, nonce, 5*time.Minute).Err()
}

func GetAndDelNonce(ctx context.Context, rdb *redis.Client, addr string) (string, error) {
	nonce, err := rdb.Get(ctx, noncePrefix+addr).Result()
	if err != nil {
		return "", err
	}
	rdb.Del(ctx, noncePrefix+addr)
	return nonce, nil
}

// PublishEvent appends a market event (vote cast, claim settled) to the
// shared stream consumed by downstream services.
func PublishEvent(ctx context.Context, rdb *redis.Client, payload map[string]interface{}) error {
	_, err := rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: streamEvents,
		Values: payload,
	}).Result()
	return err
}
