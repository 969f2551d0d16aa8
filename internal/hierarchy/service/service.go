// Package service exposes read access to the hierarchy: the full chart and
// per-person lookups. Mutations go through the succession engine only.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"sangha/internal/hierarchy/metrics"
	"sangha/internal/hierarchy/models"
	"sangha/internal/hierarchy/store"
	"sangha/internal/platform/redis"
	"sangha/pkg/domain"
	dErrors "sangha/pkg/domain-errors"
	"sangha/pkg/platform/sentinel"
	"sangha/pkg/platform/tx"
)

const chartCacheKey = "sangha:hierarchy:chart"

type Service struct {
	store    store.Store
	boundary tx.Runner
	cache    *redis.Client
	cacheTTL time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type Option func(*Service)

func WithCache(cache *redis.Client, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithReadBoundary runs reads inside the runner's shared read section, so a
// lookup never observes a transition's commit unit halfway through.
func WithReadBoundary(runner tx.Runner) Option {
	return func(s *Service) { s.boundary = runner }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(st store.Store, opts ...Option) *Service {
	s := &Service{store: st, cacheTTL: 30 * time.Second, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Chart returns the hierarchy grouped by seniority level. The cached copy is
// advisory: a cache outage degrades to a store read, never to an error.
func (s *Service) Chart(ctx context.Context) (*models.Chart, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, chartCacheKey).Bytes()
		if err == nil {
			var chart models.Chart
			if err := json.Unmarshal(raw, &chart); err == nil {
				if s.metrics != nil {
					s.metrics.ChartCacheHits.Inc()
				}
				return &chart, nil
			}
		}
		if s.metrics != nil {
			s.metrics.ChartCacheMisses.Inc()
		}
	}

	var holders []*models.Holder
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		holders, err = s.store.Snapshot(ctx)
		return err
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "load hierarchy snapshot")
	}
	chart := buildChart(holders)

	if s.cache != nil {
		if raw, err := json.Marshal(chart); err == nil {
			if err := s.cache.Set(ctx, chartCacheKey, raw, s.cacheTTL).Err(); err != nil {
				s.logger.WarnContext(ctx, "chart cache write failed", "error", err)
			}
		}
	}
	return chart, nil
}

// InvalidateChart drops the cached chart. The succession engine calls this
// after every committed transition.
func (s *Service) InvalidateChart(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, chartCacheKey).Err(); err != nil {
		s.logger.WarnContext(ctx, "chart cache invalidation failed", "error", err)
	}
}

// HolderOf returns the person's current seat.
// Errors: CodeNotFound when the person holds no seat.
func (s *Service) HolderOf(ctx context.Context, personID domain.PersonID) (*models.Holder, error) {
	var h *models.Holder
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		h, err = s.store.HolderOf(ctx, personID)
		return err
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "person holds no leadership seat")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "load holder")
	}
	return h, nil
}

// Subordinates returns the direct reports of the person, sorted.
func (s *Service) Subordinates(ctx context.Context, personID domain.PersonID) ([]*models.Holder, error) {
	var subs []*models.Holder
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		subs, err = s.store.Subordinates(ctx, personID)
		return err
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "load subordinates")
	}
	return subs, nil
}

func (s *Service) read(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.boundary == nil {
		return fn(ctx)
	}
	return s.boundary.RunInReadTx(ctx, fn)
}

func buildChart(holders []*models.Holder) *models.Chart {
	byRole := make(map[domain.Role][]*models.Holder)
	for _, h := range holders {
		byRole[h.Role] = append(byRole[h.Role], h)
	}
	chart := &models.Chart{}
	for _, role := range domain.RolesBySeniority() {
		chart.Levels = append(chart.Levels, models.ChartLevel{Role: role, Holders: byRole[role]})
	}
	return chart
}
