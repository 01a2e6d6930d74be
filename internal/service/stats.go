package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/risinglions/jobtrack/internal/core"
	"github.com/risinglions/jobtrack/internal/domain/model"
)

// StatsServiceOptions groups dependencies for StatsService.
type StatsServiceOptions struct {
	Stats  core.StatsRepository
	Cache  core.CacheRepository
	TTL    time.Duration
	Logger *slog.Logger
}

// StatsService serves the dashboard aggregates with short-lived cache
// memoization in front of the SQL rollups. Cache failures degrade to a
// direct read, never to an error.
type StatsService struct {
	stats  core.StatsRepository
	cache  core.CacheRepository
	ttl    time.Duration
	logger *slog.Logger
}

// NewStatsService constructs a new StatsService.
func NewStatsService(opts StatsServiceOptions) (*StatsService, error) {
	if opts.Stats == nil {
		return nil, errors.New("StatsRepository is required")
	}
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &StatsService{
		stats:  opts.Stats,
		cache:  opts.Cache,
		ttl:    opts.TTL,
		logger: opts.Logger,
	}, nil
}

// KPIMetrics returns the funnel aggregates, memoized.
func (s *StatsService) KPIMetrics(ctx context.Context) (*model.KPIMetrics, error) {
	var out model.KPIMetrics
	err := memoized(ctx, s, core.CacheKeyKPIMetrics, &out, func() (any, error) {
		return s.stats.KPIMetrics(ctx)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SystemHealth returns the pipeline health summary, memoized.
func (s *StatsService) SystemHealth(ctx context.Context) (*model.SystemHealth, error) {
	var out model.SystemHealth
	err := memoized(ctx, s, core.CacheKeySystemHealth, &out, func() (any, error) {
		return s.stats.SystemHealth(ctx)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func memoized(ctx context.Context, s *StatsService, key string, dst any, compute func() (any, error)) error {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.WarnContext(ctx, "stats cache read failed", "key", key, "error", err)
		} else if raw != nil {
			if err := json.Unmarshal(raw, dst); err == nil {
				return nil
			}
		}
	}

	value, err := compute()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
			s.logger.WarnContext(ctx, "stats cache write failed", "key", key, "error", err)
		}
	}
	return json.Unmarshal(raw, dst)
}
