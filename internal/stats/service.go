package stats

import (
	"time"

	"github.com/airsial/opshub/internal/records"
	"github.com/airsial/opshub/pkg/logger"
)

// Service builds dashboard summaries from the record store, caching the
// result briefly between requests.
type Service struct {
	store  *records.Store
	cache  summaryCache
	ttl    time.Duration
	logger *logger.Logger
}

// NewService creates a stats service. A non-positive ttl disables caching.
func NewService(store *records.Store, ttlSeconds int, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		ttl:    time.Duration(ttlSeconds) * time.Second,
		logger: log.Named("stats"),
	}
}

// Summary returns the current rollup, serving from cache when fresh.
func (s *Service) Summary() (*Summary, error) {
	if s.ttl > 0 {
		if cached := s.cache.get(); cached != nil {
			return cached, nil
		}
	}

	maintenance, err := s.store.Query(records.Maintenance, records.Filter{})
	if err != nil {
		return nil, err
	}
	safety, err := s.store.Query(records.Safety, records.Filter{})
	if err != nil {
		return nil, err
	}
	flight, err := s.store.Query(records.Flight, records.Filter{})
	if err != nil {
		return nil, err
	}

	summary := BuildSummary(maintenance, safety, flight)
	if s.ttl > 0 {
		s.cache.set(summary, s.ttl)
	}

	s.logger.Debug("Summary rebuilt",
		logger.Int("maintenance", summary.TotalMaintenance),
		logger.Int("safety", summary.TotalIncidents),
		logger.Int("flights", summary.TotalFlights))
	return summary, nil
}

// Activities returns recent activity lines for the dashboard.
func (s *Service) Activities(limit int) ([]string, error) {
	maintenance, err := s.store.Query(records.Maintenance, records.Filter{})
	if err != nil {
		return nil, err
	}
	safety, err := s.store.Query(records.Safety, records.Filter{})
	if err != nil {
		return nil, err
	}
	flight, err := s.store.Query(records.Flight, records.Filter{})
	if err != nil {
		return nil, err
	}
	return RecentActivities(maintenance, safety, flight, limit), nil
}

// Invalidate drops the cached summary so the next read recomputes it.
// Callers invoke this after any successful mutation.
func (s *Service) Invalidate() {
	s.cache.invalidate()
}
