// Package notify defines the best-effort notification side channel for
// threshold alerts. Sinks are architecturally separate from alert
// persistence: a sink failure never fails the evaluation that produced
// the alert.
package notify

import (
	"context"
	"time"
)

// AlertEvent captures the canonical data we emit for threshold alerts.
type AlertEvent struct {
	AlertType      string
	Message        string
	CurrentValue   float64
	ThresholdValue float64
	OccurredAt     time.Time
}

// Sink describes a destination capable of consuming alert notifications.
type Sink interface {
	SendAlert(ctx context.Context, event AlertEvent) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, event AlertEvent) error

// SendAlert implements the Sink interface.
func (f SinkFunc) SendAlert(ctx context.Context, event AlertEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}
