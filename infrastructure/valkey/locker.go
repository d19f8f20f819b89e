package valkey

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	valkeylib "github.com/valkey-io/valkey-go"

	"github.com/AzielCF/az-pilot/pkg/pairlock"
)

// Lua script for atomic lease release (only delete if token matches)
const releaseLeaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

const lockerCmdTimeout = 2 * time.Second

// Locker is a pairlock.Guard backed by Valkey leases, for deployments where
// several engine nodes share the same pair space. Acquisition is a single
// SET NX EX carrying a unique token; release deletes the key only while the
// token still matches, so a lease that expired and was re-acquired by another
// node is never freed by the previous holder.
type Locker struct {
	client *Client
}

// NewLocker creates a Locker on top of an established Valkey client.
func NewLocker(client *Client) *Locker {
	return &Locker{client: client}
}

// TryLock implements pairlock.Guard. It never waits on a busy key: a nil
// error means the lease is ours, a Valkey NIL reply means another holder is
// active. Connection errors are treated as "busy" so a flaky Valkey degrades
// to skipped sweeps instead of double scheduling.
func (l *Locker) TryLock(key string, ttl time.Duration) (func(), bool) {
	if ttl <= 0 {
		ttl = pairlock.DefaultTTL
	}
	if ttl < time.Second {
		ttl = time.Second
	}

	lockKey := l.client.Key("lock", key)
	token := uuid.New().String()

	ctx, cancel := context.WithTimeout(context.Background(), lockerCmdTimeout)
	defer cancel()

	cmd := l.client.Inner().B().Set().
		Key(lockKey).
		Value(token).
		Nx().
		Ex(ttl).
		Build()

	if err := l.client.Inner().Do(ctx, cmd).Error(); err != nil {
		if !valkeylib.IsValkeyNil(err) {
			logrus.Warnf("[PAIRLOCK] Acquire %s failed: %v", lockKey, err)
		}
		return nil, false
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), lockerCmdTimeout)
		defer cancel()

		cmd := l.client.Inner().B().Eval().
			Script(releaseLeaseScript).
			Numkeys(1).
			Key(lockKey).
			Arg(token).
			Build()

		if err := l.client.Inner().Do(ctx, cmd).Error(); err != nil {
			logrus.Warnf("[PAIRLOCK] Release %s failed, lease will expire on its own: %v", lockKey, err)
		}
	}
	return release, true
}
