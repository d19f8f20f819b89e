package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AzielCF/az-pilot/autopilot/application"
	"github.com/AzielCF/az-pilot/autopilot/domain"
	"github.com/AzielCF/az-pilot/pkg/pairlock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// publisherFunc adapts a function to the platform publisher contract.
type publisherFunc func(ctx context.Context, entry domain.ScheduleEntry) error

func (f publisherFunc) Publish(ctx context.Context, entry domain.ScheduleEntry) error {
	return f(ctx, entry)
}

// recordingPublisher collects published entry IDs and fails the configured set.
type recordingPublisher struct {
	mu        sync.Mutex
	published []string
	failIDs   map[string]bool
}

func (p *recordingPublisher) Publish(_ context.Context, entry domain.ScheduleEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failIDs[entry.ID] {
		return errors.New("platform rejected the post")
	}
	p.published = append(p.published, entry.ID)
	return nil
}

func (p *recordingPublisher) ids() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.published...)
}

func insertEntry(t *testing.T, env *engineEnv, id string, target time.Time) {
	t.Helper()
	require.NoError(t, env.ledger.Insert(context.Background(), domain.ScheduleEntry{
		ID:                id,
		AccountID:         "acct-1",
		Platform:          domain.PlatformInstagram,
		Fingerprint:       "fp-" + id,
		CaptionText:       "caption " + id,
		NormalizedCaption: "caption " + id,
		TargetPublishAt:   target,
		Status:            domain.ScheduleEntryStatusScheduled,
	}))
}

func TestDispatchDue_PublishesAndMarksEntries(t *testing.T) {
	env := newEngineEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()

	insertEntry(t, env, "due-1", now.Add(-2*time.Minute))
	insertEntry(t, env, "due-2", now.Add(-1*time.Minute))
	insertEntry(t, env, "future", now.Add(30*time.Minute))

	pub := &recordingPublisher{}
	d := application.NewDispatcher(env.ledger, pub, env.locks, "", 10, 5*time.Second)

	published, failed := d.DispatchDue(ctx)
	assert.Equal(t, 2, published)
	assert.Equal(t, 0, failed)
	assert.ElementsMatch(t, []string{"due-1", "due-2"}, pub.ids())

	entries, err := env.ledger.ListByPair(ctx, "acct-1", domain.PlatformInstagram)
	require.NoError(t, err)
	statuses := map[string]domain.ScheduleEntryStatus{}
	for _, e := range entries {
		statuses[e.ID] = e.Status
	}
	assert.Equal(t, domain.ScheduleEntryStatusPublished, statuses["due-1"])
	assert.Equal(t, domain.ScheduleEntryStatusPublished, statuses["due-2"])
	assert.Equal(t, domain.ScheduleEntryStatusScheduled, statuses["future"])

	// Nothing left due, so the next tick is a no-op.
	published, failed = d.DispatchDue(ctx)
	assert.Equal(t, 0, published)
	assert.Equal(t, 0, failed)
}

func TestDispatchDue_FailureMarksEntryFailed(t *testing.T) {
	env := newEngineEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()

	insertEntry(t, env, "bad", now.Add(-time.Minute))
	insertEntry(t, env, "good", now.Add(-time.Minute))

	pub := &recordingPublisher{failIDs: map[string]bool{"bad": true}}
	d := application.NewDispatcher(env.ledger, pub, env.locks, "", 10, 5*time.Second)

	published, failed := d.DispatchDue(ctx)
	assert.Equal(t, 1, published)
	assert.Equal(t, 1, failed)

	entries, err := env.ledger.ListByPair(ctx, "acct-1", domain.PlatformInstagram)
	require.NoError(t, err)
	for _, e := range entries {
		switch e.ID {
		case "bad":
			assert.Equal(t, domain.ScheduleEntryStatusFailed, e.Status)
			assert.Contains(t, e.PublishError, "platform rejected")
		case "good":
			assert.Equal(t, domain.ScheduleEntryStatusPublished, e.Status)
		}
	}

	// A failed entry is terminal; it must not be retried on the next tick.
	published, failed = d.DispatchDue(ctx)
	assert.Equal(t, 0, published)
	assert.Equal(t, 0, failed)
}

func TestDispatchDue_PausedSkipsTick(t *testing.T) {
	env := newEngineEnv(t)
	ctx := context.Background()

	insertEntry(t, env, "due-1", time.Now().UTC().Add(-time.Minute))

	pub := &recordingPublisher{}
	d := application.NewDispatcher(env.ledger, pub, env.locks, "", 10, 5*time.Second)
	d.Paused = func(context.Context) bool { return true }

	published, failed := d.DispatchDue(ctx)
	assert.Equal(t, 0, published)
	assert.Equal(t, 0, failed)
	assert.Empty(t, pub.ids())

	d.Paused = func(context.Context) bool { return false }
	published, _ = d.DispatchDue(ctx)
	assert.Equal(t, 1, published)
}

func TestDispatchDue_SkipsEntriesClaimedElsewhere(t *testing.T) {
	env := newEngineEnv(t)
	ctx := context.Background()

	insertEntry(t, env, "claimed", time.Now().UTC().Add(-time.Minute))

	// Another node already leased this entry.
	release, ok := env.locks.TryLock("publish:claimed", time.Minute)
	require.True(t, ok)
	defer release()

	pub := &recordingPublisher{}
	d := application.NewDispatcher(env.ledger, pub, env.locks, "", 10, 5*time.Second)

	published, failed := d.DispatchDue(ctx)
	assert.Equal(t, 0, published)
	assert.Equal(t, 0, failed)

	entries, err := env.ledger.ListByPair(ctx, "acct-1", domain.PlatformInstagram)
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleEntryStatusScheduled, entries[0].Status)
}

func TestDispatchDue_RespectsBatchLimit(t *testing.T) {
	env := newEngineEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		insertEntry(t, env, "due-"+string(rune('a'+i)), now.Add(-time.Duration(5-i)*time.Minute))
	}

	pub := &recordingPublisher{}
	d := application.NewDispatcher(env.ledger, pub, env.locks, "", 2, 5*time.Second)

	published, _ := d.DispatchDue(ctx)
	assert.Equal(t, 2, published)

	// Oldest targets go first.
	assert.Equal(t, []string{"due-a", "due-b"}, pub.ids())
}

func TestDispatchDue_ContextTimeoutCountsAsFailure(t *testing.T) {
	env := newEngineEnv(t)
	ctx := context.Background()

	insertEntry(t, env, "slow", time.Now().UTC().Add(-time.Minute))

	slow := publisherFunc(func(ctx context.Context, _ domain.ScheduleEntry) error {
		<-ctx.Done()
		return ctx.Err()
	})
	d := application.NewDispatcher(env.ledger, slow, pairlock.NewMemory(), "", 10, 50*time.Millisecond)

	published, failed := d.DispatchDue(ctx)
	assert.Equal(t, 0, published)
	assert.Equal(t, 1, failed)

	entries, err := env.ledger.ListByPair(ctx, "acct-1", domain.PlatformInstagram)
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleEntryStatusFailed, entries[0].Status)
}
