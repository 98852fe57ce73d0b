package farmcache

import (
	"context"
	"errors"
	"time"

	"github.com/agribenchmark/farmsync/record"
	"github.com/agribenchmark/farmsync/utils"
	"github.com/redis/go-redis/v9"
)

// Store persists committed row sets outside the process. The cache serves a
// stored row set, marked stale, when a fetch fails without a response.
type Store interface {
	Save(ctx context.Context, key Key, rows []record.Record) error
	Load(ctx context.Context, key Key) ([]record.Record, bool, error)
	Delete(ctx context.Context, key Key) error
}

// RedisStore keeps row sets as JSON under FarmRows:<path>:<scope>.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(key Key) string {
	return "FarmRows:" + key.Path + ":" + key.Scope
}

func (s *RedisStore) Save(ctx context.Context, key Key, rows []record.Record) error {
	val, err := utils.MarshalToJSON(rows)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKey(key), val, s.ttl).Err()
}

func (s *RedisStore) Load(ctx context.Context, key Key) ([]record.Record, bool, error) {
	val, err := s.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var rows []record.Record
	if err := utils.UnmarshalFromJSON(val, &rows); err != nil {
		return nil, false, err
	}
	return rows, true, nil
}

func (s *RedisStore) Delete(ctx context.Context, key Key) error {
	return s.client.Del(ctx, redisKey(key)).Err()
}
