package pubsub

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Bus publishes submission lifecycle events on redis channels
type Bus struct {
	rdb *redis.Client
	log *zap.Logger
	ctx context.Context
}

func New(rdb *redis.Client, log *zap.Logger) *Bus {
	return &Bus{
		rdb: rdb,
		log: log,
		ctx: context.Background(),
	}
}

// AppChannel is the channel carrying an app's events
func AppChannel(appKey string) string {
	return "app:" + appKey
}

// PublishApp publishes an event to an app's channel
func (b *Bus) PublishApp(appKey string, event map[string]interface{}) error {
	return b.Publish(AppChannel(appKey), event)
}

// Publish publishes an event to a channel
func (b *Bus) Publish(channel string, event map[string]interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := b.rdb.Publish(b.ctx, channel, data).Err(); err != nil {
		b.log.Error("Failed to publish event", zap.String("channel", channel), zap.Error(err))
		return err
	}

	b.log.Debug("Published event", zap.String("channel", channel), zap.String("event", string(data)))
	return nil
}

// Ping checks the redis connection
func (b *Bus) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}
