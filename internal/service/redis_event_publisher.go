package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"negaboku/internal/domain"
)

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisEventPublisher difunde cada evento como JSON por un canal pub/sub.
type RedisEventPublisher struct {
	client  redisPublisher
	channel string
	timeout time.Duration
}

func NewRedisEventPublisher(client *redis.Client, channel string) *RedisEventPublisher {
	if client == nil {
		return nil
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = "relationship-events"
	}
	return &RedisEventPublisher{
		client:  client,
		channel: channel,
		timeout: 500 * time.Millisecond,
	}
}

func (p *RedisEventPublisher) Publish(ctx context.Context, events []domain.DomainEvent) error {
	if p == nil || p.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	for _, e := range events {
		payload, err := domain.MarshalEvent(e)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", e.EventID(), err)
		}
		if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
			return fmt.Errorf("publish event %s: %w", e.EventID(), err)
		}
	}
	return nil
}
