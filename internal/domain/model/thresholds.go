package model

// Thresholds holds the operator-configurable alert thresholds.
type Thresholds struct {
	WinRateMin           float64 `json:"winRateMin"`
	ResponseTimeMaxHours float64 `json:"responseTimeMaxHours"`
	DailyJobsMin         int     `json:"dailyJobsMin"`
}

// DefaultThresholds returns the threshold defaults used when no operator
// configuration exists: 20% win-rate floor, 4h response ceiling, 5 jobs/day.
func DefaultThresholds() Thresholds {
	return Thresholds{
		WinRateMin:           20,
		ResponseTimeMaxHours: 4,
		DailyJobsMin:         5,
	}
}

// ThresholdsPatch is a partial threshold update. Nil fields fall back to
// the defaults, not to the previously stored values.
type ThresholdsPatch struct {
	WinRateMin           *float64 `json:"winRateMin,omitempty"`
	ResponseTimeMaxHours *float64 `json:"responseTimeMaxHours,omitempty"`
	DailyJobsMin         *int     `json:"dailyJobsMin,omitempty"`
}

// Merge applies the patch over the defaults and returns the result.
func (p ThresholdsPatch) Merge() Thresholds {
	out := DefaultThresholds()
	if p.WinRateMin != nil {
		out.WinRateMin = *p.WinRateMin
	}
	if p.ResponseTimeMaxHours != nil {
		out.ResponseTimeMaxHours = *p.ResponseTimeMaxHours
	}
	if p.DailyJobsMin != nil {
		out.DailyJobsMin = *p.DailyJobsMin
	}
	return out
}

// KPIMetrics are the aggregate metrics the alert evaluator reads.
type KPIMetrics struct {
	TotalJobs     int     `json:"totalJobs"`
	ProposalsSent int     `json:"proposalsSent"`
	Won           int     `json:"won"`
	Lost          int     `json:"lost"`
	WinRate       float64 `json:"winRate"`
	TotalRevenue  float64 `json:"totalRevenue"`
}

// SystemHealth summarizes pipeline operational state.
type SystemHealth struct {
	LastSyncAt           *string `json:"lastSyncAt"`
	LastSyncStatus       *string `json:"lastSyncStatus"`
	AutomationFailurePct float64 `json:"gptFailureRate"`
	OpenJobsCount        int     `json:"openJobsCount"`
	JobsReceivedToday    int     `json:"jobsReceivedToday"`
	AvgResponseTimeHours float64 `json:"avgResponseTimeHours"`
}
