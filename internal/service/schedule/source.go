package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/avirajsharma-ops/DTPS-sub004/internal/model"
	"github.com/avirajsharma-ops/DTPS-sub004/internal/repository"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/metrics"
)

// Source supplies provider schedules to the slot calculator and the
// booking guard. Schedules are owned by external admin tooling; this
// subsystem only reads them.
type Source interface {
	DaySchedule(ctx context.Context, providerID uuid.UUID, weekday time.Weekday) (*model.DaySchedule, error)
}

// missing marks a negative cache entry so absent schedules do not hit
// the repository on every availability request.
type missing struct{}

// CachedSource caches schedule lookups with a short TTL. Staleness here
// only delays an admin edit becoming visible; it cannot cause a
// double-booking, which is guarded at write time.
type CachedSource struct {
	repo    repository.ScheduleRepository
	cache   *gocache.Cache
	metrics *metrics.Metrics
}

func NewCachedSource(repo repository.ScheduleRepository, ttl time.Duration, m *metrics.Metrics) *CachedSource {
	return &CachedSource{
		repo:    repo,
		cache:   gocache.New(ttl, 2*ttl),
		metrics: m,
	}
}

func (s *CachedSource) DaySchedule(ctx context.Context, providerID uuid.UUID, weekday time.Weekday) (*model.DaySchedule, error) {
	key := fmt.Sprintf("%s:%d", providerID, weekday)

	if cached, ok := s.cache.Get(key); ok {
		s.metrics.IncScheduleCacheHit(true)
		if _, none := cached.(missing); none {
			return nil, nil
		}
		return cached.(*model.DaySchedule), nil
	}
	s.metrics.IncScheduleCacheHit(false)

	sched, err := s.repo.DaySchedule(ctx, providerID, weekday)
	if err != nil {
		return nil, err
	}

	if sched == nil {
		s.cache.SetDefault(key, missing{})
	} else {
		s.cache.SetDefault(key, sched)
	}
	return sched, nil
}
