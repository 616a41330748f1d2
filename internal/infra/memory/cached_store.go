package memory

import (
	"context"
	"time"

	"ginkana-service/internal/app"
	"ginkana-service/internal/cache"
	"ginkana-service/internal/domain"
)

// Dataset cache keys. One entry per dataset; the whole snapshot is the
// value, mirroring how the spreadsheet is read in full pages.
const (
	keyCatalog     = "catalog"
	keyRoster      = "roster"
	keySubmissions = "submissions"
)

// TTLs holds the per-dataset freshness windows. Submissions must stay
// short: the duplicate guard is only as good as this window.
type TTLs struct {
	Catalog     time.Duration
	Roster      time.Duration
	Submissions time.Duration
}

// CachedStore decorates a slow app.Store with in-process read-through
// caches and invalidates the touched dataset right after each append.
type CachedStore struct {
	inner   app.Store
	ttls    TTLs
	catalog *cache.Cache[[]domain.Challenge]
	roster  *cache.Cache[[]domain.Team]
	subs    *cache.Cache[[]domain.Submission]
}

func NewCachedStore(inner app.Store, ttls TTLs) *CachedStore {
	return NewCachedStoreWithClock(inner, ttls, time.Now)
}

// NewCachedStoreWithClock allows a fake clock in tests.
func NewCachedStoreWithClock(inner app.Store, ttls TTLs, clock func() time.Time) *CachedStore {
	return &CachedStore{
		inner:   inner,
		ttls:    ttls,
		catalog: cache.NewWithClock[[]domain.Challenge](clock),
		roster:  cache.NewWithClock[[]domain.Team](clock),
		subs:    cache.NewWithClock[[]domain.Submission](clock),
	}
}

func (s *CachedStore) LoadCatalog(ctx context.Context) ([]domain.Challenge, error) {
	return s.catalog.Get(ctx, keyCatalog, s.ttls.Catalog, s.inner.LoadCatalog)
}

func (s *CachedStore) LoadRoster(ctx context.Context) ([]domain.Team, error) {
	return s.roster.Get(ctx, keyRoster, s.ttls.Roster, s.inner.LoadRoster)
}

func (s *CachedStore) LoadSubmissions(ctx context.Context) ([]domain.Submission, error) {
	return s.subs.Get(ctx, keySubmissions, s.ttls.Submissions, s.inner.LoadSubmissions)
}

func (s *CachedStore) AppendSubmission(ctx context.Context, sub domain.Submission) error {
	if err := s.inner.AppendSubmission(ctx, sub); err != nil {
		return err
	}
	s.subs.Invalidate(keySubmissions)
	return nil
}

func (s *CachedStore) AppendTeam(ctx context.Context, team domain.Team) error {
	if err := s.inner.AppendTeam(ctx, team); err != nil {
		return err
	}
	s.roster.Invalidate(keyRoster)
	return nil
}
