package domain

import (
	"context"
	"time"
)

type QueueItemStatus string

const (
	QueueItemStatusReady     QueueItemStatus = "ready"
	QueueItemStatusScheduled QueueItemStatus = "scheduled"
	QueueItemStatusRejected  QueueItemStatus = "rejected"
	QueueItemStatusFailed    QueueItemStatus = "failed"
)

// QueueItem is one unit of pending content. The fingerprint is the stable
// identity of the content; duplicate submissions of the same fingerprint are
// rejected at intake.
type QueueItem struct {
	Fingerprint  string          `json:"fingerprint"`
	AccountID    string          `json:"account_id"`
	Platform     Platform        `json:"platform"`
	CaptionText  string          `json:"caption_text"`
	Status       QueueItemStatus `json:"status"`
	StatusReason string          `json:"status_reason,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// IContentQueue defines the intake side of the pipeline. The engine only
// reads Ready items and requests status transitions; item creation belongs
// to the content producers.
type IContentQueue interface {
	Submit(ctx context.Context, item QueueItem) error

	// ListReady returns Ready items for the pair in stable oldest-created
	// order. limit <= 0 means no cap.
	ListReady(ctx context.Context, accountID string, platform Platform, limit int) ([]QueueItem, error)

	MarkStatus(ctx context.Context, fingerprint string, status QueueItemStatus, reason string) error
	CountReady(ctx context.Context, accountID string, platform Platform) (int64, error)

	// Init creates the necessary tables
	Init(ctx context.Context) error
}
