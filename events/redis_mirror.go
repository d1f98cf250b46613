package events

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisMirror republishes hub events on Redis channels named after the
// topics, so hubs in other processes can relay them to their own
// listeners. Delivery stays best effort either way.
type RedisMirror struct {
	client *redis.Client
}

func NewRedisMirror(client *redis.Client) *RedisMirror {
	return &RedisMirror{client: client}
}

func (m *RedisMirror) Publish(topic string, payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return m.client.Publish(ctx, topic, payload).Err()
}
