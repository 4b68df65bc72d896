package build

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheKeyPrefix  = "examgen:build:"
	defaultCacheTTL = time.Hour
)

// CachedStore wraps a Store with a Redis read-through cache on GetBuild.
// Cache failures degrade to the underlying store, never to an error.
type CachedStore struct {
	Store
	client *redis.Client
	ttl    time.Duration
}

// NewCachedStore creates a read-through cache around store.
func NewCachedStore(store Store, client *redis.Client) *CachedStore {
	return &CachedStore{
		Store:  store,
		client: client,
		ttl:    defaultCacheTTL,
	}
}

func (s *CachedStore) SaveBuild(ctx context.Context, res *Result) (string, error) {
	id, err := s.Store.SaveBuild(ctx, res)
	if err != nil {
		return "", err
	}
	stored := *res
	stored.ID = id
	s.put(ctx, &stored)
	return id, nil
}

func (s *CachedStore) GetBuild(ctx context.Context, id string) (*Result, error) {
	if data, err := s.client.Get(ctx, cacheKeyPrefix+id).Bytes(); err == nil {
		var res Result
		if err := json.Unmarshal(data, &res); err == nil {
			return &res, nil
		}
	}

	res, err := s.Store.GetBuild(ctx, id)
	if err != nil {
		return nil, err
	}
	s.put(ctx, res)
	return res, nil
}

func (s *CachedStore) put(ctx context.Context, res *Result) {
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, cacheKeyPrefix+res.ID, data, s.ttl).Err(); err != nil {
		slog.Warn("build cache write failed", "id", res.ID, "error", err)
	}
}
