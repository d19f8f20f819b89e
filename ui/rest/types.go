package rest

import (
	"time"

	domainAutopilot "github.com/AzielCF/az-pilot/autopilot/domain"
)

// PairStatusResponse is the operator view of one (account, platform) pair:
// its configuration, the checkpoint the chain hangs off, and when the next
// post could realistically go out.
type PairStatusResponse struct {
	AccountID        string     `json:"account_id"`
	Platform         string     `json:"platform"`
	Enabled          bool       `json:"enabled"`
	AutoSchedule     bool       `json:"auto_schedule_enabled"`
	Connected        bool       `json:"connected"`
	IntervalHours    float64    `json:"interval_hours"`
	Checkpoint       *time.Time `json:"checkpoint,omitempty"`
	NextEligibleAt   time.Time  `json:"next_eligible_at"`
	NextEligibleIn   string     `json:"next_eligible_in"`
	ReadyItems       int64      `json:"ready_items"`
	ScheduledEntries int        `json:"scheduled_entries"`
}

// QueueStateResponse summarizes the intake backlog for a pair.
type QueueStateResponse struct {
	AccountID  string                      `json:"account_id"`
	Platform   string                      `json:"platform"`
	ReadyCount int64                       `json:"ready_count"`
	Items      []domainAutopilot.QueueItem `json:"items"`
}

// SystemSettingsResponse mirrors the runtime operator switches.
type SystemSettingsResponse struct {
	SweepPaused    bool   `json:"sweep_paused"`
	DispatchPaused bool   `json:"dispatch_paused"`
	PauseReason    string `json:"pause_reason,omitempty"`
}
