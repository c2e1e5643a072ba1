// Package events delivers workflow notifications to downstream
// collaborators (document generation, e-mail). Delivery is best effort;
// a failed publish never fails a committed transition.
package events

import (
	"context"
	"encoding/json"

	"avenant/internal/domain"

	"github.com/redis/go-redis/v9"
)

const channel = "avenant.events"

type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(addr, password string, db int) *RedisPublisher {
	return &RedisPublisher{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, channel, payload).Err()
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
