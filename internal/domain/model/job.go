//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"time"

	apperrors "github.com/risinglions/jobtrack/internal/errors"
)

// Job is the canonical job record. Identity is the externally-issued
// JobID (unique, immutable once set); the internal ID is a surrogate key.
type Job struct {
	ID     string  `json:"id"                db:"id"`
	JobID  string  `json:"job_id"            db:"job_id"`
	Title  string  `json:"job_title"         db:"job_title"`
	JobURL *string `json:"job_url,omitempty" db:"job_url"`

	JobDescription *string `json:"job_description,omitempty" db:"job_description"`

	BudgetType *string  `json:"budget_type,omitempty" db:"budget_type"`
	BudgetMin  *float64 `json:"budget_min,omitempty"  db:"budget_min"`
	BudgetMax  *float64 `json:"budget_max,omitempty"  db:"budget_max"`
	HourlyMin  *float64 `json:"hourly_min,omitempty"  db:"hourly_min"`
	HourlyMax  *float64 `json:"hourly_max,omitempty"  db:"hourly_max"`

	Skills []string `json:"skills,omitempty" db:"skills"`

	ClientCountry    *string  `json:"client_country,omitempty"     db:"client_country"`
	ClientRating     *float64 `json:"client_rating,omitempty"      db:"client_rating"`
	ClientTotalSpent *float64 `json:"client_total_spent,omitempty" db:"client_total_spent"`
	ClientHires      *int     `json:"client_hires,omitempty"       db:"client_hires"`

	ProfileID *string `json:"profile_id,omitempty" db:"profile_id"`
	AgentID   *string `json:"agent_id,omitempty"   db:"agent_id"`

	TrackerTaskID  *string `json:"clickup_task_id,omitempty"  db:"clickup_task_id"`
	TrackerTaskURL *string `json:"clickup_task_url,omitempty" db:"clickup_task_url"`
	TrackerStatus  *string `json:"clickup_status,omitempty"   db:"clickup_status"`

	ProposalText  *string `json:"proposal_text,omitempty"   db:"proposal_text"`
	GPTModel      *string `json:"gpt_model,omitempty"       db:"gpt_model"`
	GPTTokensUsed *int    `json:"gpt_tokens_used,omitempty" db:"gpt_tokens_used"`

	Outcome  *Outcome `json:"outcome,omitempty"   db:"outcome"`
	WonValue *float64 `json:"won_value,omitempty" db:"won_value"`

	PostedAt       *time.Time `json:"posted_at,omitempty"        db:"posted_at"`
	ReceivedAt     time.Time  `json:"received_at"                db:"received_at"`
	ProposalSentAt *time.Time `json:"proposal_sent_at,omitempty" db:"proposal_sent_at"`
	OutcomeAt      *time.Time `json:"outcome_at,omitempty"       db:"outcome_at"`
	UpdatedAt      time.Time  `json:"updated_at"                 db:"updated_at"`
	CreatedAt      time.Time  `json:"created_at"                 db:"created_at"`
}

// JobUpdate is the canonical, shape-independent representation of an
// ingestion event prior to merge. Nil pointer fields mean "no information";
// they never clear existing values. Title is the one exception: it is
// authoritative on every ingestion and always overwrites.
type JobUpdate struct {
	JobID  string
	Title  string
	JobURL *string

	JobDescription *string

	BudgetType *string
	BudgetMin  *float64
	BudgetMax  *float64
	HourlyMin  *float64
	HourlyMax  *float64

	Skills []string

	ClientCountry    *string
	ClientRating     *float64
	ClientTotalSpent *float64
	ClientHires      *int

	// Resolved internal references. The flat payload shape carries these
	// directly; the nested shape carries the raw references below instead,
	// which the entity resolver translates before merge.
	ProfileID *string
	AgentID   *string

	// Raw references from the nested payload shape, resolved pre-merge.
	AgentName       string
	AgentExternalID string
	ProfileName     string
	ProfileTag      string

	TrackerTaskID  *string
	TrackerTaskURL *string
	TrackerStatus  *string

	ProposalText  *string
	GPTModel      *string
	GPTTokensUsed *int

	PostedAt       *time.Time
	ProposalSentAt *time.Time
}

// Validate checks that the update carries the mandatory external identifier.
func (u *JobUpdate) Validate() error {
	if u == nil {
		return apperrors.Validation("job update is required")
	}
	if u.JobID == "" {
		return apperrors.ValidationField("job_id", "external job identifier is required")
	}
	return nil
}

// NewJob builds a fresh record from an update at first ingestion.
// ReceivedAt is fixed at this point and never regressed by later merges.
// Skills starts as an empty slice, never nil: the column is NOT NULL and
// a nil slice would reach the driver as SQL NULL.
func NewJob(u *JobUpdate, now time.Time) *Job {
	j := &Job{
		JobID:      u.JobID,
		Title:      u.Title,
		Skills:     []string{},
		ReceivedAt: now,
		UpdatedAt:  now,
		CreatedAt:  now,
	}
	j.mergeFields(u, now)
	return j
}

// ApplyUpdate merges an update into an existing record.
//
// Field policy: incoming wins only when incoming is non-nil, except Title,
// which is always overwritten. The monotonic timestamps (ReceivedAt,
// ProposalSentAt, OutcomeAt) are never regressed, and Outcome moves only
// from null to a mapped value. Applying the same update twice yields the
// same record as applying it once.
func (j *Job) ApplyUpdate(u *JobUpdate, now time.Time) {
	j.Title = u.Title
	j.mergeFields(u, now)
	j.UpdatedAt = now
}

func (j *Job) mergeFields(u *JobUpdate, now time.Time) {
	j.JobURL = mergePtr(j.JobURL, u.JobURL)
	j.JobDescription = mergePtr(j.JobDescription, u.JobDescription)
	j.BudgetType = mergePtr(j.BudgetType, u.BudgetType)
	j.BudgetMin = mergePtr(j.BudgetMin, u.BudgetMin)
	j.BudgetMax = mergePtr(j.BudgetMax, u.BudgetMax)
	j.HourlyMin = mergePtr(j.HourlyMin, u.HourlyMin)
	j.HourlyMax = mergePtr(j.HourlyMax, u.HourlyMax)
	if len(u.Skills) > 0 {
		j.Skills = u.Skills
	}
	j.ClientCountry = mergePtr(j.ClientCountry, u.ClientCountry)
	j.ClientRating = mergePtr(j.ClientRating, u.ClientRating)
	j.ClientTotalSpent = mergePtr(j.ClientTotalSpent, u.ClientTotalSpent)
	j.ClientHires = mergePtr(j.ClientHires, u.ClientHires)
	j.ProfileID = mergePtr(j.ProfileID, u.ProfileID)
	j.AgentID = mergePtr(j.AgentID, u.AgentID)
	j.TrackerTaskID = mergePtr(j.TrackerTaskID, u.TrackerTaskID)
	j.TrackerTaskURL = mergePtr(j.TrackerTaskURL, u.TrackerTaskURL)
	j.ProposalText = mergePtr(j.ProposalText, u.ProposalText)
	j.GPTModel = mergePtr(j.GPTModel, u.GPTModel)
	j.GPTTokensUsed = mergePtr(j.GPTTokensUsed, u.GPTTokensUsed)
	j.PostedAt = mergePtr(j.PostedAt, u.PostedAt)

	// The status label tracks the tracker's current truth and is always
	// overwritten when present. The derived outcome is monotonic.
	if u.TrackerStatus != nil {
		j.TrackerStatus = u.TrackerStatus
		j.applyOutcome(*u.TrackerStatus, now)
	}

	if u.ProposalSentAt != nil && j.ProposalSentAt == nil {
		j.ProposalSentAt = u.ProposalSentAt
	}
}

// applyOutcome applies the status lexicon to the record. The mapped
// outcome is adopted only while the existing outcome is null; OutcomeAt is
// stamped exactly once, together with the outcome.
func (j *Job) applyOutcome(statusLabel string, now time.Time) {
	mapped, ok := MapStatusOutcome(statusLabel)
	if !ok {
		return
	}
	if j.Outcome != nil {
		return
	}
	j.Outcome = &mapped
	j.OutcomeAt = &now
}

func mergePtr[T any](existing, incoming *T) *T {
	if incoming != nil {
		return incoming
	}
	return existing
}
