package domain

import "context"

// Setting represents a dynamic configuration value stored in the database.
type Setting struct {
	Key   string
	Value string
}

// ISettingsRepository defines the contract for persisting dynamic settings.
type ISettingsRepository interface {
	// Basic CRUD
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
	All(ctx context.Context) (map[string]string, error)

	// InitSchema creates the necessary tables
	InitSchema(ctx context.Context) error
}

// Common Keys defined in the system. These are operator switches changed at
// runtime over the API; boot configuration stays in the environment.
const (
	KeySweepPaused    = "autopilot_sweep_paused"
	KeyDispatchPaused = "autopilot_dispatch_paused"
	KeyPauseReason    = "autopilot_pause_reason"
)
