package domain

import "context"

// ItemError records a per-item failure inside a scheduling batch. The item
// stays retryable unless it was marked Failed for invalid input.
type ItemError struct {
	Fingerprint string `json:"fingerprint,omitempty"`
	Message     string `json:"message"`
}

// ScheduleResult is the outcome of one scheduling batch for a pair.
// InProgress reports that another batch already held the pair lock and this
// call was a no-op; it is a signal, not an error.
type ScheduleResult struct {
	Scheduled  int         `json:"scheduled"`
	Skipped    int         `json:"skipped"`
	Errors     []ItemError `json:"errors,omitempty"`
	InProgress bool        `json:"in_progress"`
}

// IAutopilotEngine computes publish times for ready content and persists the
// accepted decisions.
type IAutopilotEngine interface {
	// ScheduleReady runs one batch for the pair. It is a silent no-op when
	// the pair is disabled or disconnected, and a no-op with InProgress set
	// when a batch for the same pair is already running.
	ScheduleReady(ctx context.Context, accountID string, platform Platform) (ScheduleResult, error)

	ResetPair(ctx context.Context, accountID string, platform Platform) error
	ResetAccount(ctx context.Context, accountID string) error
}

// IPlatformPublisher performs the actual platform call for a due entry.
// Implementations live at the system edge; the engine never invokes this
// and the dedup check never consults its outcome.
type IPlatformPublisher interface {
	Publish(ctx context.Context, entry ScheduleEntry) error
}
