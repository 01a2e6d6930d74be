package model

import "time"

// AlertType tags the threshold rule that produced an alert. Used as the
// dedup key: at most one alert of a given type within the dedup window.
type AlertType string

const (
	AlertTypeWinRateLow        AlertType = "win_rate_low"
	AlertTypeAutomationFailure AlertType = "gpt_failure_high"
	AlertTypeDailyJobsLow      AlertType = "daily_jobs_low"
)

// Valid returns true if the alert type is one of the supported values.
func (t AlertType) Valid() bool {
	switch t {
	case AlertTypeWinRateLow, AlertTypeAutomationFailure, AlertTypeDailyJobsLow:
		return true
	default:
		return false
	}
}

// String returns the string representation of the alert type.
func (t AlertType) String() string {
	return string(t)
}

// Alert is a detected threshold breach. Created by the evaluator,
// dismissed explicitly by an operator, never auto-resolved.
type Alert struct {
	ID             string    `json:"id"              db:"id"`
	AlertType      AlertType `json:"alert_type"      db:"alert_type"`
	Message        string    `json:"message"         db:"message"`
	CurrentValue   float64   `json:"current_value"   db:"current_value"`
	ThresholdValue float64   `json:"threshold_value" db:"threshold_value"`
	Dismissed      bool      `json:"dismissed"       db:"dismissed"`
	CreatedAt      time.Time `json:"created_at"      db:"created_at"`
}

// CreateAlertRequest carries the fields for persisting a new alert.
type CreateAlertRequest struct {
	AlertType      AlertType `json:"alert_type"`
	Message        string    `json:"message"`
	CurrentValue   float64   `json:"current_value"`
	ThresholdValue float64   `json:"threshold_value"`
}
