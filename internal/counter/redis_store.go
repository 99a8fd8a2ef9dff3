package counter

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

var _ Store = (*RedisStore)(nil)

const (
	redisFieldCount       = "count"
	redisFieldLastUpdated = "last_updated"
)

// RedisStore keeps each record as a hash at "<prefix>:<id>".
type RedisStore struct {
	prefix string
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{prefix: prefix, client: client}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + ":" + id
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	m, err := s.client.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("HGetAll: %w", err)
	}
	if len(m) == 0 {
		return nil, ErrNotFound
	}

	rec := &Record{ID: id, LastUpdated: m[redisFieldLastUpdated]}
	if v, ok := m[redisFieldCount]; ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("strconv.ParseInt: key=%s, %w", s.key(id), err)
		}
		rec.Count = n
	}
	return rec, nil
}

func (s *RedisStore) Put(ctx context.Context, rec *Record) error {
	key := s.key(rec.ID)
	// Del+HSet in one MULTI so a replace never leaves stray fields behind.
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			redisFieldCount, rec.Count,
			redisFieldLastUpdated, rec.LastUpdated,
		)
		return nil
	})
	if err != nil {
		return fmt.Errorf("TxPipelined: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
