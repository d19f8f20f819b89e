package valkey

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires a local Valkey; skipped otherwise.
func TestLocker_SingleFlight(t *testing.T) {
	vk, err := NewClient(Config{Address: "localhost:6379", KeyPrefix: "azpilot_test"})
	if err != nil {
		t.Skip("No valkey")
	}
	defer vk.Close()

	locker := NewLocker(vk)
	key := "acct-lock|instagram"

	release, ok := locker.TryLock(key, 5*time.Second)
	require.True(t, ok)
	require.NotNil(t, release)

	// Second holder is rejected while the lease lives.
	second, ok := locker.TryLock(key, 5*time.Second)
	assert.False(t, ok)
	assert.Nil(t, second)

	release()

	third, ok := locker.TryLock(key, 5*time.Second)
	require.True(t, ok)
	third()
}

func TestLocker_ReleaseIgnoresStolenLease(t *testing.T) {
	vk, err := NewClient(Config{Address: "localhost:6379", KeyPrefix: "azpilot_test"})
	if err != nil {
		t.Skip("No valkey")
	}
	defer vk.Close()

	locker := NewLocker(vk)
	key := "acct-lease|tiktok"

	release, ok := locker.TryLock(key, 1*time.Second)
	require.True(t, ok)

	// Let the lease expire and a new holder take over.
	time.Sleep(1100 * time.Millisecond)
	release2, ok := locker.TryLock(key, 5*time.Second)
	require.True(t, ok)

	// The stale release must not free the new holder's lease.
	release()
	_, ok = locker.TryLock(key, 5*time.Second)
	assert.False(t, ok)

	release2()
}
