package domain

import (
	"context"
	"time"
)

// AutopilotSettings is the per (account, platform) opt-in record. It is
// written by the configuration surface and read-only to the engine; the
// Connected flag mirrors the external platform-connection state.
type AutopilotSettings struct {
	AccountID           string    `json:"account_id"`
	Platform            Platform  `json:"platform"`
	Enabled             bool      `json:"enabled"`
	AutoScheduleEnabled bool      `json:"auto_schedule_enabled"`
	AutoReplyEnabled    bool      `json:"auto_reply_enabled"`
	IntervalHours       float64   `json:"interval_hours"`
	Connected           bool      `json:"connected"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Interval returns the configured cadence as a duration.
func (s AutopilotSettings) Interval() time.Duration {
	return time.Duration(s.IntervalHours * float64(time.Hour))
}

// CanAutoSchedule reports whether the engine is allowed to act for this pair.
func (s AutopilotSettings) CanAutoSchedule() bool {
	return s.Enabled && s.AutoScheduleEnabled && s.Connected
}

// ISettingsRepository defines the contract for persisting pair settings.
type ISettingsRepository interface {
	Get(ctx context.Context, accountID string, platform Platform) (AutopilotSettings, error)
	Upsert(ctx context.Context, settings AutopilotSettings) error
	SetConnected(ctx context.Context, accountID string, platform Platform, connected bool) error

	// ListAutoSchedulable returns every pair with enabled, auto-schedule and
	// connected all true. The watcher calls this each cycle so configuration
	// changes take effect within one cycle.
	ListAutoSchedulable(ctx context.Context) ([]AutopilotSettings, error)

	// Init creates the necessary tables
	Init(ctx context.Context) error
}
