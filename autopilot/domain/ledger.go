package domain

import (
	"context"
	"strings"
	"time"
)

type ScheduleEntryStatus string

const (
	ScheduleEntryStatusScheduled ScheduleEntryStatus = "scheduled"
	ScheduleEntryStatusPublished ScheduleEntryStatus = "published"
	ScheduleEntryStatusFailed    ScheduleEntryStatus = "failed"
)

// ScheduleEntry is the engine's output: an accepted publish decision. Rows
// are immutable except for the terminal status the dispatcher sets after the
// platform call.
type ScheduleEntry struct {
	ID                string              `json:"id"`
	AccountID         string              `json:"account_id"`
	Platform          Platform            `json:"platform"`
	Fingerprint       string              `json:"fingerprint"`
	CaptionText       string              `json:"caption_text"`
	NormalizedCaption string              `json:"normalized_caption"`
	TargetPublishAt   time.Time           `json:"target_publish_at"`
	Status            ScheduleEntryStatus `json:"status"`
	PublishError      string              `json:"publish_error,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
}

// IScheduleLedger is the queryable store of persisted schedule entries.
type IScheduleLedger interface {
	Insert(ctx context.Context, entry ScheduleEntry) error

	// FindConflicting looks for an entry of the same pair whose normalized
	// caption matches and whose target time falls within the window around
	// target. The entry status is deliberately not part of the filter: a
	// failed or already published twin still counts as a duplicate.
	FindConflicting(ctx context.Context, accountID string, platform Platform, normalizedCaption string, target time.Time, window time.Duration) (ScheduleEntry, error)

	// ListDue returns entries still in scheduled state whose target time has
	// passed, oldest target first. limit <= 0 means no cap.
	ListDue(ctx context.Context, before time.Time, limit int) ([]ScheduleEntry, error)

	MarkPublished(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, reason string) error

	ListByPair(ctx context.Context, accountID string, platform Platform) ([]ScheduleEntry, error)
	CountScheduled(ctx context.Context) (int64, error)

	// Init creates the necessary tables
	Init(ctx context.Context) error
}

// NormalizeCaption reduces a caption to its comparison form: lower case,
// trimmed, with internal whitespace runs collapsed to single spaces. Two
// captions that normalize equal are the same content for dedup purposes.
func NormalizeCaption(caption string) string {
	return strings.Join(strings.Fields(strings.ToLower(caption)), " ")
}
