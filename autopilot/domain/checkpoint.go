package domain

import (
	"context"
	"time"
)

// ICheckpointStore tracks the most recently scheduled publish time per pair.
// Absence (nil) is a valid state: the pair has never scheduled anything, or
// was explicitly reset.
type ICheckpointStore interface {
	Get(ctx context.Context, accountID string, platform Platform) (*time.Time, error)

	// Set persists the checkpoint. Implementations must keep it monotonic:
	// a timestamp older than the stored value is ignored, never written.
	Set(ctx context.Context, accountID string, platform Platform, t time.Time) error

	Clear(ctx context.Context, accountID string, platform Platform) error
	ClearAccount(ctx context.Context, accountID string) error

	// Init creates the necessary tables
	Init(ctx context.Context) error
}
