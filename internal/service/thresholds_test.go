package service

import (
	"context"
	"testing"

	"github.com/risinglions/jobtrack/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestThresholds(t *testing.T, cache *memCache) *ThresholdService {
	t.Helper()
	svc, err := NewThresholdService(ThresholdServiceOptions{Cache: cache})
	require.NoError(t, err)
	return svc
}

func TestThresholds_DefaultsWhenUnset(t *testing.T) {
	svc := newTestThresholds(t, newMemCache(nil))

	got, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultThresholds(), got)
}

func TestThresholds_UpdateMergesOverDefaults(t *testing.T) {
	cache := newMemCache(nil)
	svc := newTestThresholds(t, cache)
	ctx := context.Background()

	winRate := 30.0
	_, err := svc.Update(ctx, model.ThresholdsPatch{WinRateMin: &winRate})
	require.NoError(t, err)

	// A second partial patch resets the untouched fields to defaults, not
	// to the previously stored values.
	daily := 8
	got, err := svc.Update(ctx, model.ThresholdsPatch{DailyJobsMin: &daily})
	require.NoError(t, err)

	assert.Equal(t, model.DefaultThresholds().WinRateMin, got.WinRateMin)
	assert.Equal(t, 8, got.DailyJobsMin)

	stored, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, got, stored)
}

func TestThresholds_MalformedStoredEntryFallsBack(t *testing.T) {
	cache := newMemCache(nil)
	require.NoError(t, cache.Set(context.Background(), "alert_thresholds", []byte("{not json"), 0))
	svc := newTestThresholds(t, cache)

	got, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultThresholds(), got)
}
