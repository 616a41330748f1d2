package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"ginkana-service/internal/app"
	"ginkana-service/internal/domain"
)

// Dataset snapshot keys. Values are JSON-encoded full datasets with a TTL;
// a DEL after each append is the invalidation.
const (
	keyCatalog     = "hunt:catalog"
	keyRoster      = "hunt:roster"
	keySubmissions = "hunt:submissions"
)

// TTLs holds the per-dataset freshness windows.
type TTLs struct {
	Catalog     time.Duration
	Roster      time.Duration
	Submissions time.Duration
}

// CachedStore decorates a slow app.Store with Redis-backed read-through
// caching so multiple service instances share one view of the datasets.
type CachedStore struct {
	client *redis.Client
	inner  app.Store
	ttls   TTLs
	sf     singleflight.Group
}

func NewCachedStore(client *redis.Client, inner app.Store, ttls TTLs) *CachedStore {
	return &CachedStore{client: client, inner: inner, ttls: ttls}
}

func (s *CachedStore) LoadCatalog(ctx context.Context) ([]domain.Challenge, error) {
	return loadCached[[]domain.Challenge](ctx, s, keyCatalog, s.ttls.Catalog, s.inner.LoadCatalog)
}

func (s *CachedStore) LoadRoster(ctx context.Context) ([]domain.Team, error) {
	return loadCached[[]domain.Team](ctx, s, keyRoster, s.ttls.Roster, s.inner.LoadRoster)
}

func (s *CachedStore) LoadSubmissions(ctx context.Context) ([]domain.Submission, error) {
	return loadCached[[]domain.Submission](ctx, s, keySubmissions, s.ttls.Submissions, s.inner.LoadSubmissions)
}

func (s *CachedStore) AppendSubmission(ctx context.Context, sub domain.Submission) error {
	if err := s.inner.AppendSubmission(ctx, sub); err != nil {
		return err
	}
	return s.client.Del(ctx, keySubmissions).Err()
}

func (s *CachedStore) AppendTeam(ctx context.Context, team domain.Team) error {
	if err := s.inner.AppendTeam(ctx, team); err != nil {
		return err
	}
	return s.client.Del(ctx, keyRoster).Err()
}

// loadCached reads a JSON snapshot from Redis, falling back to the inner
// store under singleflight so concurrent misses trigger one load.
func loadCached[T any](ctx context.Context, s *CachedStore, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	if v, ok := fromRedis[T](ctx, s.client, key); ok {
		return v, nil
	}

	result, err, _ := s.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another goroutine filled the key.
		if v, ok := fromRedis[T](ctx, s.client, key); ok {
			return v, nil
		}

		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(v); err == nil {
			// Caching is best effort; a Redis hiccup must not fail the read.
			_ = s.client.Set(ctx, key, data, ttlWithJitter(ttl)).Err()
		}
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

func fromRedis[T any](ctx context.Context, client *redis.Client, key string) (T, bool) {
	var v T
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false
	}
	return v, true
}

// ttlWithJitter spreads expirations by up to 10% to avoid stampedes.
func ttlWithJitter(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	jitterMax := int64(ttl) / 10
	return ttl + time.Duration(rand.Int63n(jitterMax+1))
}
