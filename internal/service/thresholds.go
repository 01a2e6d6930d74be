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

// ThresholdServiceOptions groups dependencies for ThresholdService.
type ThresholdServiceOptions struct {
	Cache  core.CacheRepository
	TTL    time.Duration
	Logger *slog.Logger
}

// ThresholdService reads and writes the operator-configured alert
// thresholds, backed by a single durable cache entry.
type ThresholdService struct {
	cache  core.CacheRepository
	ttl    time.Duration
	logger *slog.Logger
}

// NewThresholdService constructs a new ThresholdService.
func NewThresholdService(opts ThresholdServiceOptions) (*ThresholdService, error) {
	if opts.Cache == nil {
		return nil, errors.New("CacheRepository is required")
	}
	if opts.TTL <= 0 {
		// Effectively durable: one year, matching the config default.
		opts.TTL = 8760 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &ThresholdService{cache: opts.Cache, ttl: opts.TTL, logger: opts.Logger}, nil
}

// Get returns the stored thresholds, falling back to the defaults when
// nothing is stored or the stored entry does not decode.
func (s *ThresholdService) Get(ctx context.Context) (model.Thresholds, error) {
	raw, err := s.cache.Get(ctx, core.CacheKeyThresholds)
	if err != nil {
		return model.Thresholds{}, fmt.Errorf("read thresholds: %w", err)
	}
	if raw == nil {
		return model.DefaultThresholds(), nil
	}

	var stored model.Thresholds
	if err := json.Unmarshal(raw, &stored); err != nil {
		s.logger.WarnContext(ctx, "stored thresholds are malformed; using defaults",
			"error", err)
		return model.DefaultThresholds(), nil
	}
	return stored, nil
}

// Update merges the patch over the defaults (not over the previously
// stored values) and persists the result.
func (s *ThresholdService) Update(ctx context.Context, patch model.ThresholdsPatch) (model.Thresholds, error) {
	merged := patch.Merge()

	raw, err := json.Marshal(merged)
	if err != nil {
		return model.Thresholds{}, fmt.Errorf("encode thresholds: %w", err)
	}
	if err := s.cache.Set(ctx, core.CacheKeyThresholds, raw, s.ttl); err != nil {
		return model.Thresholds{}, fmt.Errorf("store thresholds: %w", err)
	}

	s.logger.InfoContext(ctx, "alert thresholds updated",
		"win_rate_min", merged.WinRateMin,
		"response_time_max_hours", merged.ResponseTimeMaxHours,
		"daily_jobs_min", merged.DailyJobsMin)

	return merged, nil
}
