package application

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/AzielCF/az-pilot/autopilot/domain"
	"github.com/AzielCF/az-pilot/pkg/pairworker"
	"github.com/AzielCF/az-pilot/pkg/pilotmonitor"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Watcher drives the engine on a fixed cadence. Every cycle re-reads the
// settings store, so enabling, disabling or disconnecting a pair takes
// effect within one cycle without restarts.
type Watcher struct {
	engine   domain.IAutopilotEngine
	settings domain.ISettingsRepository
	pool     *pairworker.PairWorkerPool
	spec     string
	cron     *cron.Cron
	running  atomic.Bool

	// Paused, when set, is consulted at the top of every sweep. It is the
	// operator stop switch; pairs keep their state and resume on unpause.
	Paused func(ctx context.Context) bool
}

// NewWatcher creates the sweep loop. pool may be nil, in which case pairs
// are evaluated inline one after another.
func NewWatcher(engine domain.IAutopilotEngine, settings domain.ISettingsRepository, pool *pairworker.PairWorkerPool, spec string) *Watcher {
	if spec == "" {
		spec = "@every 1m"
	}
	return &Watcher{
		engine:   engine,
		settings: settings,
		pool:     pool,
		spec:     spec,
	}
}

func (w *Watcher) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(w.spec, func() { w.Sweep(ctx) }); err != nil {
		return fmt.Errorf("invalid watch spec %q: %w", w.spec, err)
	}
	c.Start()
	w.cron = c
	logrus.Infof("[WATCHER] Started with cadence %q", w.spec)
	return nil
}

// Stop halts the cadence and waits for an in-flight sweep to finish. Pending
// pairs simply wait for the next process start.
func (w *Watcher) Stop() {
	if w.cron != nil {
		<-w.cron.Stop().Done()
	}
	logrus.Info("[WATCHER] Stopped")
}

// Sweep evaluates every schedulable pair once. A failure in one pair never
// blocks the others.
func (w *Watcher) Sweep(ctx context.Context) {
	if !w.running.CompareAndSwap(false, true) {
		logrus.Debug("[WATCHER] Previous sweep still running, skipping")
		return
	}
	defer w.running.Store(false)

	if w.Paused != nil && w.Paused(ctx) {
		logrus.Debug("[WATCHER] Autopilot paused, skipping sweep")
		pilotmonitor.Record(pilotmonitor.Event{Stage: "sweep", Kind: "pair", Status: "skipped", Metadata: map[string]string{"reason": "paused"}})
		return
	}

	pairs, err := w.settings.ListAutoSchedulable(ctx)
	if err != nil {
		logrus.WithError(err).Error("[WATCHER] Failed to list schedulable pairs")
		pilotmonitor.Record(pilotmonitor.Event{Stage: "sweep", Kind: "pair", Status: "error", Error: err.Error()})
		return
	}
	if len(pairs) == 0 {
		return
	}

	logrus.Debugf("[WATCHER] Sweeping %d pairs", len(pairs))
	for _, s := range pairs {
		accountID, platform := s.AccountID, s.Platform
		run := func(jobCtx context.Context) error {
			res, runErr := w.engine.ScheduleReady(jobCtx, accountID, platform)
			if runErr != nil {
				logrus.WithError(runErr).Errorf("[WATCHER] Batch failed for %s", domain.PairKey(accountID, platform))
				return runErr
			}
			if res.InProgress {
				logrus.Debugf("[WATCHER] %s still busy, will retry next cycle", domain.PairKey(accountID, platform))
			}
			return nil
		}

		if w.pool != nil {
			w.pool.Dispatch(pairworker.PairJob{AccountID: accountID, Platform: string(platform), Handler: run})
		} else {
			_ = run(ctx)
		}
	}

	pilotmonitor.Record(pilotmonitor.Event{Stage: "sweep", Kind: "pair", Status: "ok", Metadata: map[string]string{"pairs": strconv.Itoa(len(pairs))}})
}
