package application

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/AzielCF/az-pilot/autopilot/domain"
	"github.com/AzielCF/az-pilot/pkg/pairlock"
	"github.com/AzielCF/az-pilot/pkg/pilotmonitor"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Dispatcher hands due ledger entries to the platform publisher and records
// the terminal status. It never feeds back into scheduling decisions: a
// publish failure does not make a caption schedulable again.
type Dispatcher struct {
	ledger      domain.IScheduleLedger
	publisher   domain.IPlatformPublisher
	locks       pairlock.Guard
	spec        string
	batch       int
	itemTimeout time.Duration
	cron        *cron.Cron
	running     atomic.Bool

	// Paused, when set, is consulted at the top of every tick. Publishing can
	// be held during a platform outage while scheduling keeps running.
	Paused func(ctx context.Context) bool
}

func NewDispatcher(ledger domain.IScheduleLedger, publisher domain.IPlatformPublisher, locks pairlock.Guard, spec string, batch int, itemTimeout time.Duration) *Dispatcher {
	if spec == "" {
		spec = "@every 15s"
	}
	if batch <= 0 {
		batch = 10
	}
	if itemTimeout <= 0 {
		itemTimeout = 10 * time.Second
	}
	return &Dispatcher{
		ledger:      ledger,
		publisher:   publisher,
		locks:       locks,
		spec:        spec,
		batch:       batch,
		itemTimeout: itemTimeout,
	}
}

func (d *Dispatcher) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(d.spec, func() { d.DispatchDue(ctx) }); err != nil {
		return fmt.Errorf("invalid dispatch spec %q: %w", d.spec, err)
	}
	c.Start()
	d.cron = c
	logrus.Infof("[DISPATCHER] Started with cadence %q, batch size %d", d.spec, d.batch)
	return nil
}

func (d *Dispatcher) Stop() {
	if d.cron != nil {
		<-d.cron.Stop().Done()
	}
	logrus.Info("[DISPATCHER] Stopped")
}

// DispatchDue publishes entries whose target time has passed. Each entry is
// handled independently; one failure does not stop the batch. Overlapping
// ticks are collapsed, and each entry is claimed through the lock guard so
// two engine nodes sharing a database never publish the same entry twice.
func (d *Dispatcher) DispatchDue(ctx context.Context) (published, failed int) {
	if !d.running.CompareAndSwap(false, true) {
		logrus.Debug("[DISPATCHER] Previous tick still running, skipping")
		return 0, 0
	}
	defer d.running.Store(false)

	if d.Paused != nil && d.Paused(ctx) {
		logrus.Debug("[DISPATCHER] Publishing paused, skipping tick")
		return 0, 0
	}

	due, err := d.ledger.ListDue(ctx, time.Now().UTC(), d.batch)
	if err != nil {
		logrus.WithError(err).Error("[DISPATCHER] Failed to list due entries")
		return 0, 0
	}

	for _, entry := range due {
		release, ok := d.claim(entry.ID)
		if !ok {
			continue
		}

		if d.publishOne(ctx, entry) {
			published++
		} else {
			failed++
		}
		if release != nil {
			release()
		}
	}

	if published+failed > 0 {
		logrus.Infof("[DISPATCHER] Tick done: %d published, %d failed", published, failed)
	}
	return published, failed
}

// claim leases an entry before publishing. With no guard configured the
// running flag alone is enough, since only one dispatcher exists per process.
func (d *Dispatcher) claim(entryID string) (func(), bool) {
	if d.locks == nil {
		return nil, true
	}
	return d.locks.TryLock("publish:"+entryID, d.itemTimeout+5*time.Second)
}

func (d *Dispatcher) publishOne(ctx context.Context, entry domain.ScheduleEntry) bool {
	itemCtx, cancel := context.WithTimeout(ctx, d.itemTimeout)
	defer cancel()

	if pubErr := d.publisher.Publish(itemCtx, entry); pubErr != nil {
		if markErr := d.ledger.MarkFailed(ctx, entry.ID, pubErr.Error()); markErr != nil {
			logrus.WithError(markErr).Errorf("[DISPATCHER] Failed to mark entry %s failed", entry.ID)
		}
		logrus.WithError(pubErr).Errorf("[DISPATCHER] Publish failed for entry %s (%s)", entry.ID, domain.PairKey(entry.AccountID, entry.Platform))
		pilotmonitor.Record(pilotmonitor.Event{AccountID: entry.AccountID, Platform: string(entry.Platform), Stage: "publish", Kind: "entry", Status: "error", Error: pubErr.Error()})
		return false
	}

	if markErr := d.ledger.MarkPublished(ctx, entry.ID); markErr != nil {
		logrus.WithError(markErr).Errorf("[DISPATCHER] Failed to mark entry %s published", entry.ID)
	}
	pilotmonitor.Record(pilotmonitor.Event{AccountID: entry.AccountID, Platform: string(entry.Platform), Stage: "publish", Kind: "entry", Status: "ok"})
	return true
}
