package pairlock

import (
	"sync"
	"time"
)

// DefaultTTL bounds a holder that never releases (crash inside a batch).
const DefaultTTL = 60 * time.Second

// Guard is the single-flight lock that keeps one scheduling batch per pair.
// Implementations must fail fast: TryLock never waits for a busy key.
type Guard interface {
	// TryLock attempts to acquire key without blocking. ok=false means
	// another holder is active; callers treat that as "in progress", not an
	// error. The returned release must be called on every exit path; the ttl
	// is the lease after which a crashed holder no longer wedges the key.
	TryLock(key string, ttl time.Duration) (release func(), ok bool)
}

type entry struct {
	expiresAt time.Time
	gen       uint64
}

// Memory is the in-process Guard used for single-node deployments.
type Memory struct {
	mu   sync.Mutex
	gen  uint64
	held map[string]entry
}

func NewMemory() *Memory {
	return &Memory{held: make(map[string]entry)}
}

func (m *Memory) TryLock(key string, ttl time.Duration) (func(), bool) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if e, ok := m.held[key]; ok && now.Before(e.expiresAt) {
		return nil, false
	}

	// Either free or the previous lease expired; reclaim under a new generation
	// so a late release from the dead holder cannot free our lock.
	m.gen++
	gen := m.gen
	m.held[key] = entry{expiresAt: now.Add(ttl), gen: gen}

	var once sync.Once
	release := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if e, ok := m.held[key]; ok && e.gen == gen {
				delete(m.held, key)
			}
		})
	}
	return release, true
}

// HeldKeys returns the keys currently locked, for diagnostics.
func (m *Memory) HeldKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	keys := make([]string, 0, len(m.held))
	for k, e := range m.held {
		if now.Before(e.expiresAt) {
			keys = append(keys, k)
		}
	}
	return keys
}
