package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AzielCF/az-pilot/autopilot/domain"
	"github.com/AzielCF/az-pilot/pkg/pairlock"
	"github.com/AzielCF/az-pilot/pkg/pilotmonitor"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// EngineConfig carries the scheduling tunables. Zero values fall back to the
// production defaults in the constructor.
type EngineConfig struct {
	UniversalMinGap time.Duration
	DedupWindow     time.Duration
	ImmediateBuffer time.Duration
	LockTTL         time.Duration
	ItemTimeout     time.Duration
	MaxBatch        int
}

type autopilotEngine struct {
	settings    domain.ISettingsRepository
	queue       domain.IContentQueue
	checkpoints domain.ICheckpointStore
	ledger      domain.IScheduleLedger
	locks       pairlock.Guard
	cfg         EngineConfig
}

func NewAutopilotEngine(
	settings domain.ISettingsRepository,
	queue domain.IContentQueue,
	checkpoints domain.ICheckpointStore,
	ledger domain.IScheduleLedger,
	locks pairlock.Guard,
	cfg EngineConfig,
) domain.IAutopilotEngine {
	if cfg.UniversalMinGap <= 0 {
		cfg.UniversalMinGap = 2 * time.Hour
	}
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = 5 * time.Minute
	}
	if cfg.ImmediateBuffer <= 0 {
		cfg.ImmediateBuffer = 2 * time.Minute
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = pairlock.DefaultTTL
	}
	if cfg.ItemTimeout <= 0 {
		cfg.ItemTimeout = 10 * time.Second
	}
	if locks == nil {
		locks = pairlock.NewMemory()
	}
	return &autopilotEngine{
		settings:    settings,
		queue:       queue,
		checkpoints: checkpoints,
		ledger:      ledger,
		locks:       locks,
		cfg:         cfg,
	}
}

// ScheduleReady runs one scheduling batch for the pair. Items are folded
// sequentially: each accepted target becomes the checkpoint feeding the next
// item, which is what spaces a batch instead of collapsing it onto one
// instant. Parallelizing the fold would break that spacing.
func (e *autopilotEngine) ScheduleReady(ctx context.Context, accountID string, platform domain.Platform) (domain.ScheduleResult, error) {
	var res domain.ScheduleResult
	pairKey := domain.PairKey(accountID, platform)

	settings, err := e.settings.Get(ctx, accountID, platform)
	if err != nil {
		if err == domain.ErrSettingsNotFound {
			return res, nil
		}
		return res, err
	}
	if !settings.CanAutoSchedule() {
		return res, nil
	}

	release, ok := e.locks.TryLock(pairKey, e.cfg.LockTTL)
	if !ok {
		logrus.Debugf("[ENGINE] Batch already in progress for %s, skipping", pairKey)
		res.InProgress = true
		pilotmonitor.Record(pilotmonitor.Event{AccountID: accountID, Platform: string(platform), Stage: "run", Kind: "pair", Status: "busy"})
		return res, nil
	}
	defer release()

	started := time.Now()
	traceID := uuid.NewString()

	items, err := e.queue.ListReady(ctx, accountID, platform, e.cfg.MaxBatch)
	if err != nil {
		return res, fmt.Errorf("list ready items: %w", err)
	}
	if len(items) == 0 {
		return res, nil
	}

	checkpoint, err := e.checkpoints.Get(ctx, accountID, platform)
	if err != nil {
		return res, fmt.Errorf("read checkpoint: %w", err)
	}

	cursor := checkpoint
	interval := settings.Interval()

	for _, item := range items {
		if item.Fingerprint == "" || strings.TrimSpace(item.CaptionText) == "" {
			res.Errors = append(res.Errors, domain.ItemError{Fingerprint: item.Fingerprint, Message: "invalid item: missing fingerprint or caption"})
			if item.Fingerprint != "" {
				if markErr := e.queue.MarkStatus(ctx, item.Fingerprint, domain.QueueItemStatusFailed, "missing fingerprint or caption"); markErr != nil {
					logrus.WithError(markErr).Warnf("[ENGINE] Failed to mark invalid item %s", item.Fingerprint)
				}
			}
			pilotmonitor.Record(pilotmonitor.Event{TraceID: traceID, AccountID: accountID, Platform: string(platform), Stage: "item", Kind: "invalid", Status: "error", Error: "missing fingerprint or caption"})
			continue
		}

		now := time.Now().UTC()
		target := NextPublishTime(cursor, interval, e.cfg.UniversalMinGap, e.cfg.ImmediateBuffer, now)
		normalized := domain.NormalizeCaption(item.CaptionText)

		// The dup scan anchors at the running checkpoint, not the candidate:
		// a twin scheduled moments ago sits exactly there, while the chained
		// candidate has already moved a full interval past it.
		anchor := target
		if cursor != nil {
			anchor = *cursor
		}

		itemCtx, cancel := context.WithTimeout(ctx, e.cfg.ItemTimeout)

		existing, findErr := e.ledger.FindConflicting(itemCtx, accountID, platform, normalized, anchor, e.cfg.DedupWindow)
		switch {
		case findErr == nil:
			// Duplicate: no new row, the existing entry's time drives the chain.
			res.Skipped++
			cursor = advanceCursor(cursor, existing.TargetPublishAt)
			if markErr := e.queue.MarkStatus(itemCtx, item.Fingerprint, domain.QueueItemStatusRejected, "duplicate caption within dedup window"); markErr != nil {
				res.Errors = append(res.Errors, domain.ItemError{Fingerprint: item.Fingerprint, Message: fmt.Sprintf("mark rejected: %v", markErr)})
			}
			logrus.Debugf("[ENGINE] Skipped duplicate %s for %s (existing entry %s)", item.Fingerprint, pairKey, existing.ID)
			pilotmonitor.Record(pilotmonitor.Event{TraceID: traceID, AccountID: accountID, Platform: string(platform), Stage: "item", Kind: "duplicate", Status: "skipped"})

		case findErr != domain.ErrEntryNotFound:
			res.Errors = append(res.Errors, domain.ItemError{Fingerprint: item.Fingerprint, Message: fmt.Sprintf("dedup scan: %v", findErr)})
			logrus.WithError(findErr).Errorf("[ENGINE] Dedup scan failed for %s, item %s left ready", pairKey, item.Fingerprint)
			pilotmonitor.Record(pilotmonitor.Event{TraceID: traceID, AccountID: accountID, Platform: string(platform), Stage: "item", Kind: "scheduled", Status: "error", Error: findErr.Error()})

		default:
			entry := domain.ScheduleEntry{
				ID:                uuid.NewString(),
				AccountID:         accountID,
				Platform:          platform,
				Fingerprint:       item.Fingerprint,
				CaptionText:       item.CaptionText,
				NormalizedCaption: normalized,
				TargetPublishAt:   target,
				Status:            domain.ScheduleEntryStatusScheduled,
				CreatedAt:         now,
			}
			if insErr := e.ledger.Insert(itemCtx, entry); insErr != nil {
				res.Errors = append(res.Errors, domain.ItemError{Fingerprint: item.Fingerprint, Message: fmt.Sprintf("persist entry: %v", insErr)})
				logrus.WithError(insErr).Errorf("[ENGINE] Failed to persist entry for %s, item %s left ready", pairKey, item.Fingerprint)
				pilotmonitor.Record(pilotmonitor.Event{TraceID: traceID, AccountID: accountID, Platform: string(platform), Stage: "item", Kind: "scheduled", Status: "error", Error: insErr.Error()})
			} else {
				res.Scheduled++
				cursor = advanceCursor(cursor, target)
				if markErr := e.queue.MarkStatus(itemCtx, item.Fingerprint, domain.QueueItemStatusScheduled, ""); markErr != nil {
					res.Errors = append(res.Errors, domain.ItemError{Fingerprint: item.Fingerprint, Message: fmt.Sprintf("mark scheduled: %v", markErr)})
				}
				logrus.Infof("[ENGINE] Scheduled %s for %s at %s", item.Fingerprint, pairKey, target.Format(time.RFC3339))
				pilotmonitor.Record(pilotmonitor.Event{TraceID: traceID, AccountID: accountID, Platform: string(platform), Stage: "item", Kind: "scheduled", Status: "ok", Metadata: map[string]string{"target_publish_at": target.Format(time.RFC3339)}})
			}
		}
		cancel()
	}

	if cursor != nil && (checkpoint == nil || cursor.After(*checkpoint)) {
		if setErr := e.checkpoints.Set(ctx, accountID, platform, *cursor); setErr != nil {
			res.Errors = append(res.Errors, domain.ItemError{Message: fmt.Sprintf("persist checkpoint: %v", setErr)})
			logrus.WithError(setErr).Errorf("[ENGINE] Failed to persist checkpoint for %s", pairKey)
		}
	}

	logrus.Infof("[ENGINE] Batch for %s done: %d scheduled, %d skipped, %d errors in %s",
		pairKey, res.Scheduled, res.Skipped, len(res.Errors), time.Since(started).Round(time.Millisecond))
	pilotmonitor.Record(pilotmonitor.Event{TraceID: traceID, AccountID: accountID, Platform: string(platform), Stage: "run", Kind: "pair", Status: "ok", DurationMs: time.Since(started).Milliseconds()})

	return res, nil
}

func (e *autopilotEngine) ResetPair(ctx context.Context, accountID string, platform domain.Platform) error {
	logrus.Infof("[ENGINE] Resetting checkpoint for %s", domain.PairKey(accountID, platform))
	return e.checkpoints.Clear(ctx, accountID, platform)
}

func (e *autopilotEngine) ResetAccount(ctx context.Context, accountID string) error {
	logrus.Infof("[ENGINE] Resetting all checkpoints for account %s", accountID)
	return e.checkpoints.ClearAccount(ctx, accountID)
}

// advanceCursor moves the running checkpoint forward, never backwards.
func advanceCursor(cursor *time.Time, t time.Time) *time.Time {
	if cursor == nil || t.After(*cursor) {
		u := t
		return &u
	}
	return cursor
}
