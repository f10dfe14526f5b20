package ws

import (
	"context"

	"pixelcanvas/internal/logger"

	"github.com/redis/go-redis/v9"
)

// RedisRelay bridges hubs of several server instances over a Redis pub/sub channel.
type RedisRelay struct {
	rdb     *redis.Client
	channel string
}

func NewRedisRelay(rdb *redis.Client, channel string) *RedisRelay {
	return &RedisRelay{rdb: rdb, channel: channel}
}

func (r *RedisRelay) Publish(ctx context.Context, msg []byte) error {
	return r.rdb.Publish(ctx, r.channel, msg).Err()
}

// Run delivers every frame received on the channel to hub until ctx is done.
// The hub publishes through the relay only while the subscription is live; before it is
// confirmed and after Run returns, the hub broadcasts locally.
func (r *RedisRelay) Run(ctx context.Context, hub *Hub) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	hub.SetRelay(r)
	defer hub.SetRelay(nil)
	logger.Info("realtime relay subscribed", "channel", r.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			hub.Broadcast([]byte(m.Payload))
		}
	}
}
