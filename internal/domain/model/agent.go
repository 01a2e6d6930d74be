package model

import "time"

// Agent is a team member who owns jobs routed to them.
type Agent struct {
	ID            string    `json:"id"              db:"id"`
	Name          string    `json:"name"            db:"name"`
	TrackerUserID *string   `json:"clickup_user_id" db:"clickup_user_id"`
	Active        bool      `json:"active"          db:"active"`
	CreatedAt     time.Time `json:"created_at"      db:"created_at"`
}

// Profile is a sourcing profile. A profile may carry its own linked agent,
// used as a fallback when an ingestion names a profile but no agent.
type Profile struct {
	ID            string    `json:"id"                db:"id"`
	Name          string    `json:"name"              db:"name"`
	FilterTag     *string   `json:"vollna_filter_tag" db:"vollna_filter_tag"`
	TrackerListID *string   `json:"clickup_list_id"   db:"clickup_list_id"`
	AgentID       *string   `json:"agent_id"          db:"agent_id"`
	Active        bool      `json:"active"            db:"active"`
	CreatedAt     time.Time `json:"created_at"        db:"created_at"`
}
