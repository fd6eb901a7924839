package impl_publisher

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStreamPublisher appends each message to a single Redis stream. The
// topic is kept in the "type" field so consumers can filter.
type RedisStreamPublisher struct {
	client redis.UniversalClient
	stream string
	maxLen int64
}

func NewRedisStreamPublisher(client redis.UniversalClient, stream string, maxLen int64) *RedisStreamPublisher {
	return &RedisStreamPublisher{client: client, stream: stream, maxLen: maxLen}
}

func (p *RedisStreamPublisher) Publish(ctx context.Context, topic string, payload []byte, headers map[string]string) error {
	values := make(map[string]any, len(headers)+2)
	for k, v := range headers {
		values[k] = v
	}
	values["type"] = topic
	values["event"] = payload

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("publish to stream %s: %w", p.stream, err)
	}

	return nil
}
