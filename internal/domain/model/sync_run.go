package model

import (
	"fmt"
	"time"
)

// SyncSource identifies the ingestion surface that produced a sync run.
type SyncSource string

const (
	SyncSourceAutomation SyncSource = "n8n_webhook"
	SyncSourceTracker    SyncSource = "clickup"
)

// Valid returns true if the sync source is one of the supported values.
func (s SyncSource) Valid() bool {
	switch s {
	case SyncSourceAutomation, SyncSourceTracker:
		return true
	default:
		return false
	}
}

// String returns the string representation of the sync source.
func (s SyncSource) String() string {
	return string(s)
}

// SyncStatus is the lifecycle status of a sync run.
type SyncStatus string

const (
	SyncStatusRunning SyncStatus = "running"
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusFailed  SyncStatus = "failed"
)

// Valid returns true if the sync status is one of the supported values.
func (s SyncStatus) Valid() bool {
	switch s {
	case SyncStatusRunning, SyncStatusSuccess, SyncStatusFailed:
		return true
	default:
		return false
	}
}

// SyncRun is the audit record for one ingestion invocation. Created at
// start with status running, completed exactly once with a terminal status.
type SyncRun struct {
	ID             string     `json:"id"                       db:"id"`
	Source         SyncSource `json:"source"                   db:"source"`
	RecordsSynced  int        `json:"records_synced"           db:"records_synced"`
	RecordsUpdated int        `json:"records_updated"          db:"records_updated"`
	Errors         []string   `json:"errors,omitempty"         db:"errors"`
	Status         SyncStatus `json:"status"                   db:"status"`
	StartedAt      time.Time  `json:"started_at"               db:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"   db:"completed_at"`
}

// SyncResult carries the terminal counts and status for completing a run.
type SyncResult struct {
	RecordsSynced  int
	RecordsUpdated int
	Errors         []string
	Status         SyncStatus
}

// Truncated returns the error list capped at max entries, appending a
// summary marker when entries were dropped. Keeps audit rows bounded.
// The result is never nil: the errors column is NOT NULL, and a nil
// slice would reach the driver as SQL NULL on clean completions.
func (r SyncResult) Truncated(max int) []string {
	if len(r.Errors) == 0 {
		return []string{}
	}
	if max <= 0 || len(r.Errors) <= max {
		return r.Errors
	}
	out := make([]string, 0, max+1)
	out = append(out, r.Errors[:max]...)
	out = append(out, fmt.Sprintf("... and %d more", len(r.Errors)-max))
	return out
}
