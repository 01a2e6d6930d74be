package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeScheduler runs the cron-driven sync and alert scheduler.
	ServiceModeScheduler ServiceMode = "scheduler"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeScheduler,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	parts := strings.Split(servicesStr, ",")
	for _, part := range parts {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeScheduler:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, scheduler)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// SyncConfig contains tracker reconciliation configuration.
type SyncConfig struct {
	// Schedule is the cron expression for periodic tracker reconciliation.
	Schedule string `env:"SYNC_SCHEDULE" envDefault:"*/15 * * * *"`

	// BatchSize is the number of tracker fetches issued concurrently.
	// Bounded to respect the tracker's rate limits.
	BatchSize int `env:"SYNC_BATCH_SIZE" envDefault:"10"`

	// ScanLimit is the maximum number of open jobs examined per run.
	ScanLimit int `env:"SYNC_SCAN_LIMIT" envDefault:"100"`
}

// Sanitize applies guardrails to sync configuration values.
func (s *SyncConfig) Sanitize() {
	if s.Schedule == "" {
		s.Schedule = "*/15 * * * *"
	}
	if s.BatchSize < 1 {
		s.BatchSize = 1
	}
	if s.BatchSize > 50 {
		s.BatchSize = 50
	}
	if s.ScanLimit < 1 {
		s.ScanLimit = 100
	}
}

// AlertConfig contains alert evaluation configuration.
type AlertConfig struct {
	// DedupWindow is the lookback used to suppress repeat alerts of the same type.
	DedupWindow time.Duration `env:"ALERT_DEDUP_WINDOW" envDefault:"24h"`

	// AutomationFailureMaxPct is the automation failure rate ceiling, in percent.
	AutomationFailureMaxPct float64 `env:"ALERT_AUTOMATION_FAILURE_MAX_PCT" envDefault:"20"`
}

// Sanitize applies guardrails to alert configuration values.
func (a *AlertConfig) Sanitize() {
	if a.DedupWindow <= 0 {
		a.DedupWindow = 24 * time.Hour
	}
	if a.AutomationFailureMaxPct <= 0 {
		a.AutomationFailureMaxPct = 20
	}
}
