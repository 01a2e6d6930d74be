package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/risinglions/jobtrack/internal/core"
	"github.com/risinglions/jobtrack/internal/domain/model"
)

// Hand-written fakes shared by the service tests. Each method delegates to
// an optional func field; unset fields return a not-found style zero.

type fakeAgentRepo struct {
	getByTrackerUserIDFn func(ctx context.Context, id string) (*model.Agent, error)
	getByNameFn          func(ctx context.Context, name string) (*model.Agent, error)
}

func (f *fakeAgentRepo) GetByTrackerUserID(ctx context.Context, id string) (*model.Agent, error) {
	if f.getByTrackerUserIDFn != nil {
		return f.getByTrackerUserIDFn(ctx, id)
	}
	return nil, errors.New("agent not found")
}

func (f *fakeAgentRepo) GetByName(ctx context.Context, name string) (*model.Agent, error) {
	if f.getByNameFn != nil {
		return f.getByNameFn(ctx, name)
	}
	return nil, errors.New("agent not found")
}

type fakeProfileRepo struct {
	getByFilterTagFn func(ctx context.Context, tag string) (*model.Profile, error)
	getByNameFn      func(ctx context.Context, name string) (*model.Profile, error)
}

func (f *fakeProfileRepo) GetByFilterTag(ctx context.Context, tag string) (*model.Profile, error) {
	if f.getByFilterTagFn != nil {
		return f.getByFilterTagFn(ctx, tag)
	}
	return nil, errors.New("profile not found")
}

func (f *fakeProfileRepo) GetByName(ctx context.Context, name string) (*model.Profile, error) {
	if f.getByNameFn != nil {
		return f.getByNameFn(ctx, name)
	}
	return nil, errors.New("profile not found")
}

// memJobRepo is an in-memory JobRepository applying the real model merge,
// so service tests exercise the same field policy as the database path.
type memJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.Job
	now  func() time.Time
}

func newMemJobRepo(now func() time.Time) *memJobRepo {
	if now == nil {
		now = time.Now
	}
	return &memJobRepo{jobs: make(map[string]*model.Job), now: now}
}

func (m *memJobRepo) Upsert(_ context.Context, update *model.JobUpdate) (*model.Job, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	existing, ok := m.jobs[update.JobID]
	if !ok {
		job := model.NewJob(update, now)
		job.ID = "mem-" + update.JobID
		m.jobs[update.JobID] = job
		cp := *job
		return &cp, nil
	}

	existing.ApplyUpdate(update, now)
	cp := *existing
	return &cp, nil
}

func (m *memJobRepo) GetByJobID(_ context.Context, jobID string) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, errors.New("job not found")
	}
	cp := *job
	return &cp, nil
}

func (m *memJobRepo) GetByTrackerTaskID(_ context.Context, taskID string) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		if job.TrackerTaskID != nil && *job.TrackerTaskID == taskID {
			cp := *job
			return &cp, nil
		}
	}
	return nil, errors.New("job not found")
}

func (m *memJobRepo) ListOpenTracked(_ context.Context, limit int) ([]*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Job
	for _, job := range m.jobs {
		if job.TrackerTaskID == nil {
			continue
		}
		if job.Outcome != nil && *job.Outcome != model.OutcomePending {
			continue
		}
		cp := *job
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memJobRepo) ApplyTrackerStatus(
	_ context.Context,
	params core.ApplyTrackerStatusParams,
) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		if job.TrackerTaskID == nil || *job.TrackerTaskID != params.TaskID {
			continue
		}
		update := &model.JobUpdate{
			JobID:         job.JobID,
			Title:         job.Title,
			TrackerStatus: &params.Status,
		}
		job.ApplyUpdate(update, m.now())
		cp := *job
		return &cp, nil
	}
	return nil, errors.New("job not found")
}

func (m *memJobRepo) MarkProposalSent(_ context.Context, jobID string) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, errors.New("job not found")
	}
	now := m.now()
	if job.ProposalSentAt == nil {
		job.ProposalSentAt = &now
	}
	job.UpdatedAt = now
	cp := *job
	return &cp, nil
}

type fakeSyncRunRepo struct {
	mu        sync.Mutex
	started   []*model.SyncRun
	completed map[string]model.SyncResult
	startErr  error
	nextID    int
}

func newFakeSyncRunRepo() *fakeSyncRunRepo {
	return &fakeSyncRunRepo{completed: make(map[string]model.SyncResult)}
}

func (f *fakeSyncRunRepo) Start(_ context.Context, source model.SyncSource) (*model.SyncRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.nextID++
	run := &model.SyncRun{
		ID:        "run-" + string(rune('0'+f.nextID)),
		Source:    source,
		Status:    model.SyncStatusRunning,
		StartedAt: time.Now(),
	}
	f.started = append(f.started, run)
	return run, nil
}

func (f *fakeSyncRunRepo) Complete(_ context.Context, runID string, result model.SyncResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, done := f.completed[runID]; done {
		return errors.New("sync run already completed")
	}
	f.completed[runID] = result
	return nil
}

func (f *fakeSyncRunRepo) List(_ context.Context, _ int) ([]*model.SyncRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.SyncRun, len(f.started))
	copy(out, f.started)
	return out, nil
}

func (f *fakeSyncRunRepo) Latest(_ context.Context) (*model.SyncRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.started) == 0 {
		return nil, nil
	}
	return f.started[len(f.started)-1], nil
}

func (f *fakeSyncRunRepo) resultFor(runID string) (model.SyncResult, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.completed[runID]
	return r, ok
}

type fakeAlertRepo struct {
	mu          sync.Mutex
	created     []*model.Alert
	existsSince func(alertType model.AlertType, cutoff time.Time) (bool, error)
}

func (f *fakeAlertRepo) Create(_ context.Context, req *model.CreateAlertRequest) (*model.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	alert := &model.Alert{
		ID:             "alert-" + string(rune('0'+len(f.created)+1)),
		AlertType:      req.AlertType,
		Message:        req.Message,
		CurrentValue:   req.CurrentValue,
		ThresholdValue: req.ThresholdValue,
		CreatedAt:      time.Now(),
	}
	f.created = append(f.created, alert)
	return alert, nil
}

func (f *fakeAlertRepo) ExistsSince(_ context.Context, alertType model.AlertType, cutoff time.Time) (bool, error) {
	if f.existsSince != nil {
		return f.existsSince(alertType, cutoff)
	}
	return false, nil
}

func (f *fakeAlertRepo) ListActive(_ context.Context, _ int) ([]*model.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.Alert, len(f.created))
	copy(out, f.created)
	return out, nil
}

func (f *fakeAlertRepo) Dismiss(_ context.Context, _ string) (bool, error) {
	return true, nil
}

type fakeStatsRepo struct {
	kpi    *model.KPIMetrics
	health *model.SystemHealth
}

func (f *fakeStatsRepo) KPIMetrics(_ context.Context) (*model.KPIMetrics, error) {
	if f.kpi == nil {
		return &model.KPIMetrics{}, nil
	}
	return f.kpi, nil
}

func (f *fakeStatsRepo) SystemHealth(_ context.Context) (*model.SystemHealth, error) {
	if f.health == nil {
		return &model.SystemHealth{}, nil
	}
	return f.health, nil
}

// memCache is an in-memory CacheRepository with TTL-on-read semantics.
type memCache struct {
	mu      sync.Mutex
	entries map[string]memCacheEntry
	now     func() time.Time
}

type memCacheEntry struct {
	value     []byte
	expiresAt time.Time
}

func newMemCache(now func() time.Time) *memCache {
	if now == nil {
		now = time.Now
	}
	return &memCache{entries: make(map[string]memCacheEntry), now: now}
}

func (m *memCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := memCacheEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = entry
	return nil
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		delete(m.entries, key)
		return nil, nil
	}
	return entry.value, nil
}

func (m *memCache) Delete(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	delete(m.entries, key)
	return ok, nil
}

func (m *memCache) SetIfNotExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	v, err := m.Get(ctx, key)
	if err != nil || v != nil {
		return false, err
	}
	return true, m.Set(ctx, key, value, ttl)
}

func (m *memCache) Health(_ context.Context) error { return nil }

type fakeTracker struct {
	mu             sync.Mutex
	tasks          map[string]*core.TrackerTask
	getErr         error
	updatedStatus  map[string]string
	configured     bool
	getTaskCalls   int
	updateTaskErrs map[string]error
}

func newFakeTracker(tasks map[string]*core.TrackerTask) *fakeTracker {
	return &fakeTracker{
		tasks:         tasks,
		updatedStatus: make(map[string]string),
		configured:    true,
	}
}

func (f *fakeTracker) GetTask(_ context.Context, taskID string) (*core.TrackerTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getTaskCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.tasks[taskID], nil
}

func (f *fakeTracker) UpdateTaskStatus(_ context.Context, taskID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.updateTaskErrs[taskID]; err != nil {
		return err
	}
	f.updatedStatus[taskID] = status
	return nil
}

func (f *fakeTracker) Configured() bool { return f.configured }
