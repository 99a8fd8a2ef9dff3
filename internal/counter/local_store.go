package counter

import (
	"context"

	"github.com/patrickmn/go-cache"
)

var _ Store = (*LocalStore)(nil)

// LocalStore keeps records in process memory. Records never expire.
type LocalStore struct {
	cache *cache.Cache
}

func NewLocalStore() *LocalStore {
	return &LocalStore{cache: cache.New(cache.NoExpiration, 0)}
}

func (s *LocalStore) Get(ctx context.Context, id string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	rec := v.(Record)
	return &rec, nil
}

func (s *LocalStore) Put(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// store a copy so callers can't mutate what we hold
	s.cache.Set(rec.ID, *rec, cache.NoExpiration)
	return nil
}

func (s *LocalStore) Close() error {
	s.cache.Flush()
	return nil
}
