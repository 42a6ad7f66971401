package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"negaboku/internal/domain"
)

// redisHashClient es el subconjunto de go-redis que usa el repositorio.
type redisHashClient interface {
	HMGet(ctx context.Context, key string, fields ...string) *redis.SliceCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HExists(ctx context.Context, key, field string) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisRelationshipRepository guarda todas las relaciones en un hash:
// campo "{source}:{target}" -> valor entero.
type RedisRelationshipRepository struct {
	client redisHashClient
	key    string
}

func NewRedisRelationshipRepository(client *redis.Client) *RedisRelationshipRepository {
	if client == nil {
		return nil
	}
	return &RedisRelationshipRepository{
		client: client,
		key:    "negaboku:relationships",
	}
}

func (r *RedisRelationshipRepository) Load(ctx context.Context, ids []domain.CharacterID) (*domain.RelationshipAggregate, error) {
	pairs := orderedPairs(ids)
	stored := make(map[domain.RelationshipKey]int, len(pairs))
	if len(pairs) == 0 {
		return seedAggregate(ids, stored), nil
	}

	fields := make([]string, len(pairs))
	for i, key := range pairs {
		fields[i] = key.String()
	}
	values, err := r.client.HMGet(ctx, r.key, fields...).Result()
	if err != nil {
		return nil, fmt.Errorf("load relationships: %w", err)
	}
	for i, raw := range values {
		if raw == nil || i >= len(pairs) {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("relationship %s: unexpected type %T", pairs[i], raw)
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("relationship %s: %w", pairs[i], err)
		}
		stored[pairs[i]] = v
	}
	return seedAggregate(ids, stored), nil
}

func (r *RedisRelationshipRepository) Save(ctx context.Context, aggregate *domain.RelationshipAggregate) error {
	entries := aggregate.GetAllRelationships()
	if len(entries) == 0 {
		return nil
	}
	values := make(map[string]interface{}, len(entries))
	for key, value := range entries {
		values[key.String()] = value.Value()
	}
	if err := r.client.HSet(ctx, r.key, values).Err(); err != nil {
		return fmt.Errorf("save relationships: %w", err)
	}
	return nil
}

func (r *RedisRelationshipRepository) Exists(ctx context.Context, source, target domain.CharacterID) (bool, error) {
	field := domain.RelationshipKey{Source: source, Target: target}.String()
	return r.client.HExists(ctx, r.key, field).Result()
}

func (r *RedisRelationshipRepository) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}
