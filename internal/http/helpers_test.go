package httpx

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/risinglions/jobtrack/internal/core"
	"github.com/risinglions/jobtrack/internal/data"
	"github.com/risinglions/jobtrack/internal/domain/model"
	"github.com/risinglions/jobtrack/internal/service"
	"github.com/stretchr/testify/require"
)

var testClock = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// stubJobs is an in-memory JobRepository keyed by the external job id.
type stubJobs struct {
	mu   sync.Mutex
	jobs map[string]*model.Job
}

func newStubJobs() *stubJobs {
	return &stubJobs{jobs: map[string]*model.Job{}}
}

func (s *stubJobs) Upsert(_ context.Context, update *model.JobUpdate) (*model.Job, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.jobs[update.JobID]
	if !ok {
		job := model.NewJob(update, testClock)
		job.ID = "id-" + update.JobID
		s.jobs[update.JobID] = job
		out := *job
		return &out, nil
	}
	existing.ApplyUpdate(update, testClock)
	out := *existing
	return &out, nil
}

func (s *stubJobs) GetByJobID(_ context.Context, jobID string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, data.ErrJobNotFound
	}
	out := *job
	return &out, nil
}

func (s *stubJobs) GetByTrackerTaskID(_ context.Context, taskID string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		if job.TrackerTaskID != nil && *job.TrackerTaskID == taskID {
			out := *job
			return &out, nil
		}
	}
	return nil, data.ErrJobNotFound
}

func (s *stubJobs) ListOpenTracked(_ context.Context, limit int) ([]*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Job
	for _, job := range s.jobs {
		if len(out) == limit {
			break
		}
		open := job.Outcome == nil || *job.Outcome == model.OutcomePending
		if job.TrackerTaskID != nil && open {
			cp := *job
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *stubJobs) ApplyTrackerStatus(
	_ context.Context,
	params core.ApplyTrackerStatusParams,
) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		if job.TrackerTaskID == nil || *job.TrackerTaskID != params.TaskID {
			continue
		}
		job.ApplyUpdate(&model.JobUpdate{
			JobID:         job.JobID,
			Title:         job.Title,
			TrackerStatus: &params.Status,
		}, testClock)
		out := *job
		return &out, nil
	}
	return nil, data.ErrJobNotFound
}

func (s *stubJobs) MarkProposalSent(_ context.Context, jobID string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, data.ErrJobNotFound
	}
	if job.ProposalSentAt == nil {
		at := testClock
		job.ProposalSentAt = &at
	}
	out := *job
	return &out, nil
}

// stubRuns records sync runs in memory.
type stubRuns struct {
	mu        sync.Mutex
	seq       int
	runs      []*model.SyncRun
	completed map[string]model.SyncResult
}

func newStubRuns() *stubRuns {
	return &stubRuns{completed: map[string]model.SyncResult{}}
}

func (s *stubRuns) Start(_ context.Context, source model.SyncSource) (*model.SyncRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	run := &model.SyncRun{
		ID:        "run-" + strconv.Itoa(s.seq),
		Source:    source,
		Status:    model.SyncStatusRunning,
		StartedAt: testClock,
	}
	s.runs = append(s.runs, run)
	return run, nil
}

func (s *stubRuns) Complete(_ context.Context, runID string, result model.SyncResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed[runID] = result
	for _, run := range s.runs {
		if run.ID == runID {
			run.Status = result.Status
			run.RecordsSynced = result.RecordsSynced
			run.RecordsUpdated = result.RecordsUpdated
			run.Errors = result.Errors
			at := testClock
			run.CompletedAt = &at
		}
	}
	return nil
}

func (s *stubRuns) List(_ context.Context, limit int) ([]*model.SyncRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.SyncRun, 0, limit)
	for i := len(s.runs) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *s.runs[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *stubRuns) Latest(ctx context.Context) (*model.SyncRun, error) {
	runs, err := s.List(ctx, 1)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return runs[0], nil
}

type stubAgents struct{}

func (stubAgents) GetByTrackerUserID(context.Context, string) (*model.Agent, error) {
	return nil, data.ErrAgentNotFound
}

func (stubAgents) GetByName(context.Context, string) (*model.Agent, error) {
	return nil, data.ErrAgentNotFound
}

type stubProfiles struct{}

func (stubProfiles) GetByFilterTag(context.Context, string) (*model.Profile, error) {
	return nil, data.ErrProfileNotFound
}

func (stubProfiles) GetByName(context.Context, string) (*model.Profile, error) {
	return nil, data.ErrProfileNotFound
}

// memCache is a map-backed CacheRepository without expiry.
type memCache struct {
	mu        sync.Mutex
	entries   map[string][]byte
	healthErr error
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}}
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[key], nil
}

func (c *memCache) Delete(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok, nil
}

func (c *memCache) SetIfNotExists(
	ctx context.Context,
	key string,
	value []byte,
	ttl time.Duration,
) (bool, error) {
	c.mu.Lock()
	_, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		return false, nil
	}
	return true, c.Set(ctx, key, value, ttl)
}

func (c *memCache) Health(context.Context) error { return c.healthErr }

// stubAlerts is a map-backed AlertRepository.
type stubAlerts struct {
	mu     sync.Mutex
	seq    int
	alerts []*model.Alert
}

func (s *stubAlerts) Create(_ context.Context, req *model.CreateAlertRequest) (*model.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	alert := &model.Alert{
		ID:             "alert-" + strconv.Itoa(s.seq),
		AlertType:      req.AlertType,
		Message:        req.Message,
		CurrentValue:   req.CurrentValue,
		ThresholdValue: req.ThresholdValue,
		CreatedAt:      testClock,
	}
	s.alerts = append(s.alerts, alert)
	return alert, nil
}

func (s *stubAlerts) ExistsSince(_ context.Context, alertType model.AlertType, _ time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, alert := range s.alerts {
		if alert.AlertType == alertType && !alert.Dismissed {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubAlerts) ListActive(_ context.Context, limit int) ([]*model.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Alert
	for i := len(s.alerts) - 1; i >= 0 && len(out) < limit; i-- {
		if !s.alerts[i].Dismissed {
			cp := *s.alerts[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *stubAlerts) Dismiss(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, alert := range s.alerts {
		if alert.ID == id {
			alert.Dismissed = true
			return true, nil
		}
	}
	return false, nil
}

// stubStats returns canned aggregates.
type stubStats struct {
	kpi    model.KPIMetrics
	health model.SystemHealth
}

func (s *stubStats) KPIMetrics(context.Context) (*model.KPIMetrics, error) {
	out := s.kpi
	return &out, nil
}

func (s *stubStats) SystemHealth(context.Context) (*model.SystemHealth, error) {
	out := s.health
	return &out, nil
}

// stubTracker is a canned TrackerClient.
type stubTracker struct {
	mu         sync.Mutex
	configured bool
	tasks      map[string]*core.TrackerTask
	updated    map[string]string
}

func (s *stubTracker) GetTask(_ context.Context, taskID string) (*core.TrackerTask, error) {
	task, ok := s.tasks[taskID]
	if !ok {
		return nil, nil
	}
	out := *task
	return &out, nil
}

func (s *stubTracker) UpdateTaskStatus(_ context.Context, taskID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updated == nil {
		s.updated = map[string]string{}
	}
	s.updated[taskID] = status
	return nil
}

func (s *stubTracker) Configured() bool { return s.configured }

// testEnv bundles the router with the fakes behind it.
type testEnv struct {
	handler http.Handler
	jobs    *stubJobs
	runs    *stubRuns
	alerts  *stubAlerts
	tracker *stubTracker
	cache   *memCache
}

type routerConfig struct {
	automationSecret string
	trackerSecret    string
	cronSecret       string
	trackerOn        bool
}

func newTestEnv(t *testing.T, cfg routerConfig) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jobs := newStubJobs()
	runs := newStubRuns()
	alerts := &stubAlerts{}
	cache := newMemCache()
	tracker := &stubTracker{configured: cfg.trackerOn, tasks: map[string]*core.TrackerTask{}}

	recorder, err := service.NewSyncRecorder(service.SyncRecorderOptions{Runs: runs, Logger: logger})
	require.NoError(t, err)
	resolver, err := service.NewResolver(service.ResolverOptions{
		Agents:   stubAgents{},
		Profiles: stubProfiles{},
		Logger:   logger,
	})
	require.NoError(t, err)
	ingest, err := service.NewIngestService(service.IngestServiceOptions{
		Jobs:     jobs,
		Resolver: resolver,
		Recorder: recorder,
		Tracker:  tracker,
		Logger:   logger,
	})
	require.NoError(t, err)
	trackerSvc, err := service.NewTrackerService(service.TrackerServiceOptions{
		Jobs:     jobs,
		Tracker:  tracker,
		Recorder: recorder,
		Cache:    cache,
		SpaceID:  "space-1",
		Logger:   logger,
	})
	require.NoError(t, err)
	thresholds, err := service.NewThresholdService(service.ThresholdServiceOptions{
		Cache:  cache,
		Logger: logger,
	})
	require.NoError(t, err)
	alertSvc, err := service.NewAlertService(service.AlertServiceOptions{
		Alerts:     alerts,
		Stats:      &stubStats{},
		Thresholds: thresholds,
		Logger:     logger,
	})
	require.NoError(t, err)
	stats, err := service.NewStatsService(service.StatsServiceOptions{
		Stats:  &stubStats{kpi: model.KPIMetrics{TotalJobs: 42, WinRate: 33.3}},
		Cache:  cache,
		Logger: logger,
	})
	require.NoError(t, err)

	handler := NewRouter(RouterServices{
		Ingest:           ingest,
		Tracker:          trackerSvc,
		Recorder:         recorder,
		Alerts:           alertSvc,
		Thresholds:       thresholds,
		Stats:            stats,
		Jobs:             jobs,
		Cache:            cache,
		AutomationSecret: cfg.automationSecret,
		TrackerSecret:    cfg.trackerSecret,
		CronSecret:       cfg.cronSecret,
		Logger:           logger,
	})

	return &testEnv{
		handler: handler,
		jobs:    jobs,
		runs:    runs,
		alerts:  alerts,
		tracker: tracker,
		cache:   cache,
	}
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
