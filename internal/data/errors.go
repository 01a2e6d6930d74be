package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	ErrJobNotFound     = errors.New("job not found")
	ErrAgentNotFound   = errors.New("agent not found")
	ErrProfileNotFound = errors.New("profile not found")
	ErrSyncRunNotFound = errors.New("sync run not found")
	ErrAlertNotFound   = errors.New("alert not found")

	ErrJobIDRequired  = errors.New("job_id is required")
	ErrTaskIDRequired = errors.New("task id is required")
	ErrRunIDRequired  = errors.New("run id is required")
)
