package application_test

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/AzielCF/az-pilot/autopilot/application"
	"github.com/AzielCF/az-pilot/autopilot/domain"
	"github.com/AzielCF/az-pilot/autopilot/repository"
	"github.com/AzielCF/az-pilot/pkg/pairlock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testEngineConfig = application.EngineConfig{
	UniversalMinGap: 2 * time.Hour,
	DedupWindow:     5 * time.Minute,
	ImmediateBuffer: 2 * time.Minute,
	LockTTL:         30 * time.Second,
	ItemTimeout:     5 * time.Second,
}

type engineEnv struct {
	settings    domain.ISettingsRepository
	queue       domain.IContentQueue
	checkpoints domain.ICheckpointStore
	ledger      domain.IScheduleLedger
	locks       pairlock.Guard
}

func newEngineEnv(t *testing.T) *engineEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "engine.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	env := &engineEnv{
		settings:    repository.NewSettingsGormRepository(db),
		queue:       repository.NewContentQueueGormRepository(db),
		checkpoints: repository.NewCheckpointGormStore(db),
		ledger:      repository.NewScheduleLedgerGormRepository(db),
		locks:       pairlock.NewMemory(),
	}
	ctx := context.Background()
	require.NoError(t, env.settings.Init(ctx))
	require.NoError(t, env.queue.Init(ctx))
	require.NoError(t, env.checkpoints.Init(ctx))
	require.NoError(t, env.ledger.Init(ctx))
	return env
}

func (env *engineEnv) engine() domain.IAutopilotEngine {
	return application.NewAutopilotEngine(env.settings, env.queue, env.checkpoints, env.ledger, env.locks, testEngineConfig)
}

func (env *engineEnv) enablePair(t *testing.T, accountID string, platform domain.Platform, intervalHours float64) {
	t.Helper()
	require.NoError(t, env.settings.Upsert(context.Background(), domain.AutopilotSettings{
		AccountID:           accountID,
		Platform:            platform,
		Enabled:             true,
		AutoScheduleEnabled: true,
		Connected:           true,
		IntervalHours:       intervalHours,
	}))
}

func (env *engineEnv) submit(t *testing.T, fp, accountID string, platform domain.Platform, caption string, createdAt time.Time) {
	t.Helper()
	require.NoError(t, env.queue.Submit(context.Background(), domain.QueueItem{
		Fingerprint: fp,
		AccountID:   accountID,
		Platform:    platform,
		CaptionText: caption,
		CreatedAt:   createdAt,
	}))
}

func sortedTargets(entries []domain.ScheduleEntry) []time.Time {
	targets := make([]time.Time, len(entries))
	for i, e := range entries {
		targets[i] = e.TargetPublishAt
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].Before(targets[j]) })
	return targets
}

func TestScheduleReady_SilentNoopWhenNotSchedulable(t *testing.T) {
	env := newEngineEnv(t)
	eng := env.engine()
	ctx := context.Background()

	env.submit(t, "fp-1", "acc1", domain.PlatformInstagram, "hello", time.Now().UTC())

	// No settings at all
	res, err := eng.ScheduleReady(ctx, "acc1", domain.PlatformInstagram)
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleResult{}, res)

	// Disabled
	require.NoError(t, env.settings.Upsert(ctx, domain.AutopilotSettings{
		AccountID: "acc1", Platform: domain.PlatformInstagram,
		Enabled: false, AutoScheduleEnabled: true, Connected: true, IntervalHours: 6,
	}))
	res, err = eng.ScheduleReady(ctx, "acc1", domain.PlatformInstagram)
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleResult{}, res)

	// Disconnected
	require.NoError(t, env.settings.Upsert(ctx, domain.AutopilotSettings{
		AccountID: "acc1", Platform: domain.PlatformInstagram,
		Enabled: true, AutoScheduleEnabled: true, Connected: false, IntervalHours: 6,
	}))
	res, err = eng.ScheduleReady(ctx, "acc1", domain.PlatformInstagram)
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleResult{}, res)

	// The item was never touched
	count, err := env.queue.CountReady(ctx, "acc1", domain.PlatformInstagram)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestScheduleReady_EmptyQueueIsNoop(t *testing.T) {
	env := newEngineEnv(t)
	env.enablePair(t, "acc1", domain.PlatformInstagram, 6)
	eng := env.engine()
	ctx := context.Background()

	res, err := eng.ScheduleReady(ctx, "acc1", domain.PlatformInstagram)
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleResult{}, res)

	cp, err := env.checkpoints.Get(ctx, "acc1", domain.PlatformInstagram)
	require.NoError(t, err)
	assert.Nil(t, cp, "empty batch must not create a checkpoint")
}

func TestScheduleReady_FirstBatchChainsSpacing(t *testing.T) {
	env := newEngineEnv(t)
	env.enablePair(t, "acc1", domain.PlatformInstagram, 6)
	eng := env.engine()
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	env.submit(t, "fp-1", "acc1", domain.PlatformInstagram, "first caption", base)
	env.submit(t, "fp-2", "acc1", domain.PlatformInstagram, "second caption", base.Add(time.Minute))
	env.submit(t, "fp-3", "acc1", domain.PlatformInstagram, "third caption", base.Add(2*time.Minute))

	before := time.Now().UTC()
	res, err := eng.ScheduleReady(ctx, "acc1", domain.PlatformInstagram)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Scheduled)
	assert.Equal(t, 0, res.Skipped)
	assert.Empty(t, res.Errors)
	assert.False(t, res.InProgress)

	entries, err := env.ledger.ListByPair(ctx, "acc1", domain.PlatformInstagram)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	targets := sortedTargets(entries)

	// First target waits out the minimum gap from now
	assert.WithinDuration(t, before.Add(2*time.Hour), targets[0], 5*time.Second)
	// Subsequent targets chain one interval after the previous result
	assert.WithinDuration(t, targets[0].Add(6*time.Hour), targets[1], time.Second)
	assert.WithinDuration(t, targets[1].Add(6*time.Hour), targets[2], time.Second)

	// Nothing left ready, checkpoint sits at the last accepted target
	count, err := env.queue.CountReady(ctx, "acc1", domain.PlatformInstagram)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	cp, err := env.checkpoints.Get(ctx, "acc1", domain.PlatformInstagram)
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.WithinDuration(t, targets[2], *cp, time.Second)
}

func TestScheduleReady_DuplicateCaptionSameBatch(t *testing.T) {
	env := newEngineEnv(t)
	env.enablePair(t, "acc1", domain.PlatformInstagram, 6)
	eng := env.engine()
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	env.submit(t, "fp-1", "acc1", domain.PlatformInstagram, "Check out  our NEW product!", base)
	env.submit(t, "fp-2", "acc1", domain.PlatformInstagram, "check out our new product!", base.Add(time.Minute))

	res, err := eng.ScheduleReady(ctx, "acc1", domain.PlatformInstagram)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Scheduled)
	assert.Equal(t, 1, res.Skipped, "second identical caption must be skipped, not scheduled")
	assert.Empty(t, res.Errors, "a duplicate is not an error")

	entries, err := env.ledger.ListByPair(ctx, "acc1", domain.PlatformInstagram)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "only one ledger row for identical captions")

	count, err := env.queue.CountReady(ctx, "acc1", domain.PlatformInstagram)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count, "the duplicate leaves the ready set as rejected")
}

func TestScheduleReady_RepeatCallIsIdempotent(t *testing.T) {
	env := newEngineEnv(t)
	env.enablePair(t, "acc1", domain.PlatformInstagram, 6)
	eng := env.engine()
	ctx := context.Background()

	env.submit(t, "fp-1", "acc1", domain.PlatformInstagram, "same caption", time.Now().UTC())
	res, err := eng.ScheduleReady(ctx, "acc1", domain.PlatformInstagram)
	require.NoError(t, err)
	require.Equal(t, 1, res.Scheduled)

	// Same caption arrives again as a fresh item shortly after
	env.submit(t, "fp-2", "acc1", domain.PlatformInstagram, "same caption", time.Now().UTC())
	res, err = eng.ScheduleReady(ctx, "acc1", domain.PlatformInstagram)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Scheduled)
	assert.Equal(t, 1, res.Skipped)

	entries, err := env.ledger.ListByPair(ctx, "acc1", domain.PlatformInstagram)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "repeat scheduling must never create a second row")
}

func TestScheduleReady_DistinctCaptionChainsAcrossCalls(t *testing.T) {
	env := newEngineEnv(t)
	env.enablePair(t, "acc1", domain.PlatformInstagram, 6)
	eng := env.engine()
	ctx := context.Background()

	env.submit(t, "fp-1", "acc1", domain.PlatformInstagram, "caption one", time.Now().UTC())
	_, err := eng.ScheduleReady(ctx, "acc1", domain.PlatformInstagram)
	require.NoError(t, err)

	env.submit(t, "fp-2", "acc1", domain.PlatformInstagram, "caption two", time.Now().UTC())
	res, err := eng.ScheduleReady(ctx, "acc1", domain.PlatformInstagram)
	require.NoError(t, err)
	require.Equal(t, 1, res.Scheduled)

	entries, err := env.ledger.ListByPair(ctx, "acc1", domain.PlatformInstagram)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	targets := sortedTargets(entries)
	// Second call reads the persisted checkpoint and chains one interval on
	assert.WithinDuration(t, targets[0].Add(6*time.Hour), targets[1], time.Second)
}

func TestScheduleReady_InProgressWhenLockHeld(t *testing.T) {
	env := newEngineEnv(t)
	env.enablePair(t, "acc1", domain.PlatformInstagram, 6)
	eng := env.engine()
	ctx := context.Background()

	env.submit(t, "fp-1", "acc1", domain.PlatformInstagram, "caption", time.Now().UTC())

	release, ok := env.locks.TryLock(domain.PairKey("acc1", domain.PlatformInstagram), time.Minute)
	require.True(t, ok)

	res, err := eng.ScheduleReady(ctx, "acc1", domain.PlatformInstagram)
	require.NoError(t, err, "contention is a signal, never an error")
	assert.True(t, res.InProgress)
	assert.Equal(t, 0, res.Scheduled)

	release()

	res, err = eng.ScheduleReady(ctx, "acc1", domain.PlatformInstagram)
	require.NoError(t, err)
	assert.False(t, res.InProgress)
	assert.Equal(t, 1, res.Scheduled)
}

// flakyLedger fails inserts for one fingerprint to simulate a transient
// persistence outage on a single item.
type flakyLedger struct {
	domain.IScheduleLedger
	failFingerprint string
}

func (f *flakyLedger) Insert(ctx context.Context, entry domain.ScheduleEntry) error {
	if entry.Fingerprint == f.failFingerprint {
		return errors.New("ledger unavailable")
	}
	return f.IScheduleLedger.Insert(ctx, entry)
}

func TestScheduleReady_ItemFailureDoesNotAbortBatch(t *testing.T) {
	env := newEngineEnv(t)
	env.enablePair(t, "acc1", domain.PlatformInstagram, 6)
	eng := application.NewAutopilotEngine(
		env.settings, env.queue, env.checkpoints,
		&flakyLedger{IScheduleLedger: env.ledger, failFingerprint: "fp-2"},
		env.locks, testEngineConfig,
	)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	env.submit(t, "fp-1", "acc1", domain.PlatformInstagram, "caption one", base)
	env.submit(t, "fp-2", "acc1", domain.PlatformInstagram, "caption two", base.Add(time.Minute))
	env.submit(t, "fp-3", "acc1", domain.PlatformInstagram, "caption three", base.Add(2*time.Minute))

	res, err := eng.ScheduleReady(ctx, "acc1", domain.PlatformInstagram)
	require.NoError(t, err, "per-item failures never abort the batch")
	assert.Equal(t, 2, res.Scheduled)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "fp-2", res.Errors[0].Fingerprint)

	// The failed item stays ready for the next cycle
	count, err := env.queue.CountReady(ctx, "acc1", domain.PlatformInstagram)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// The third item chained from the first accepted target, not from the failure
	entries, err := env.ledger.ListByPair(ctx, "acc1", domain.PlatformInstagram)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	targets := sortedTargets(entries)
	assert.WithinDuration(t, targets[0].Add(6*time.Hour), targets[1], time.Second)
}

func TestScheduleReady_InvalidItemMarkedFailed(t *testing.T) {
	env := newEngineEnv(t)
	env.enablePair(t, "acc1", domain.PlatformInstagram, 6)
	eng := env.engine()
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	env.submit(t, "fp-bad", "acc1", domain.PlatformInstagram, "   ", base)
	env.submit(t, "fp-good", "acc1", domain.PlatformInstagram, "valid caption", base.Add(time.Minute))

	res, err := eng.ScheduleReady(ctx, "acc1", domain.PlatformInstagram)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Scheduled)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "fp-bad", res.Errors[0].Fingerprint)

	// Invalid item is terminal, not retryable: nothing is left ready
	count, err := env.queue.CountReady(ctx, "acc1", domain.PlatformInstagram)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	entries, err := env.ledger.ListByPair(ctx, "acc1", domain.PlatformInstagram)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestScheduleReady_PairsAreIndependent(t *testing.T) {
	env := newEngineEnv(t)
	env.enablePair(t, "acc1", domain.PlatformInstagram, 6)
	env.enablePair(t, "acc1", domain.PlatformTikTok, 6)
	eng := env.engine()
	ctx := context.Background()

	env.submit(t, "fp-ig", "acc1", domain.PlatformInstagram, "insta caption", time.Now().UTC())
	env.submit(t, "fp-tk", "acc1", domain.PlatformTikTok, "tiktok caption", time.Now().UTC())

	// Holding one pair's lock must not affect the other pair
	release, ok := env.locks.TryLock(domain.PairKey("acc1", domain.PlatformInstagram), time.Minute)
	require.True(t, ok)
	defer release()

	res, err := eng.ScheduleReady(ctx, "acc1", domain.PlatformTikTok)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Scheduled)
	assert.False(t, res.InProgress)
}

func TestEngineReset(t *testing.T) {
	env := newEngineEnv(t)
	env.enablePair(t, "acc1", domain.PlatformInstagram, 6)
	env.enablePair(t, "acc1", domain.PlatformTikTok, 6)
	eng := env.engine()
	ctx := context.Background()

	env.submit(t, "fp-1", "acc1", domain.PlatformInstagram, "caption ig", time.Now().UTC())
	env.submit(t, "fp-2", "acc1", domain.PlatformTikTok, "caption tk", time.Now().UTC())
	_, err := eng.ScheduleReady(ctx, "acc1", domain.PlatformInstagram)
	require.NoError(t, err)
	_, err = eng.ScheduleReady(ctx, "acc1", domain.PlatformTikTok)
	require.NoError(t, err)

	require.NoError(t, eng.ResetPair(ctx, "acc1", domain.PlatformInstagram))
	cp, err := env.checkpoints.Get(ctx, "acc1", domain.PlatformInstagram)
	require.NoError(t, err)
	assert.Nil(t, cp)
	cp, err = env.checkpoints.Get(ctx, "acc1", domain.PlatformTikTok)
	require.NoError(t, err)
	assert.NotNil(t, cp, "resetting one pair leaves the other alone")

	require.NoError(t, eng.ResetAccount(ctx, "acc1"))
	cp, err = env.checkpoints.Get(ctx, "acc1", domain.PlatformTikTok)
	require.NoError(t, err)
	assert.Nil(t, cp)
}
