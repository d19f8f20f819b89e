package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var timingNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNextPublishTime_FirstPostWaitsMinimumGap(t *testing.T) {
	target := NextPublishTime(nil, 6*time.Hour, 2*time.Hour, 2*time.Minute, timingNow)
	assert.Equal(t, timingNow.Add(2*time.Hour), target)
}

func TestNextPublishTime_CadencePendingHonoredExactly(t *testing.T) {
	last := timingNow.Add(-time.Hour)
	target := NextPublishTime(&last, 2*time.Hour, 2*time.Hour, 2*time.Minute, timingNow)
	assert.Equal(t, last.Add(2*time.Hour), target)
}

func TestNextPublishTime_CadenceElapsedGapSatisfied(t *testing.T) {
	last := timingNow.Add(-3 * time.Hour)
	target := NextPublishTime(&last, 2*time.Hour, 2*time.Hour, 2*time.Minute, timingNow)
	assert.Equal(t, timingNow.Add(2*time.Minute), target)
}

func TestNextPublishTime_CadenceElapsedGapStillOpen(t *testing.T) {
	last := timingNow.Add(-90 * time.Minute)
	target := NextPublishTime(&last, time.Hour, 4*time.Hour, 2*time.Minute, timingNow)
	assert.Equal(t, last.Add(4*time.Hour), target)
}

func TestNextPublishTime_GapFloorsTighterCadence(t *testing.T) {
	// Cadence of 1h has not elapsed yet, but the 2h gap is wider than the
	// cadence. The floor wins over the exact-cadence rule.
	last := timingNow.Add(-30 * time.Minute)
	target := NextPublishTime(&last, time.Hour, 2*time.Hour, 2*time.Minute, timingNow)
	assert.Equal(t, last.Add(2*time.Hour), target)
}

func TestNextPublishTime_FutureCheckpointChainsOnCadence(t *testing.T) {
	// During a batch the running checkpoint moves past now. The next item
	// must land one interval after it, not collapse onto now.
	last := timingNow.Add(2 * time.Hour)
	target := NextPublishTime(&last, 6*time.Hour, 2*time.Hour, 2*time.Minute, timingNow)
	assert.Equal(t, last.Add(6*time.Hour), target)
}

func TestNextPublishTime_Properties(t *testing.T) {
	intervals := []time.Duration{30 * time.Minute, time.Hour, 2 * time.Hour, 6 * time.Hour, 24 * time.Hour}
	gaps := []time.Duration{time.Hour, 2 * time.Hour, 4 * time.Hour}
	elapsedSet := []time.Duration{0, 10 * time.Minute, time.Hour, 3 * time.Hour, 30 * time.Hour}
	buffer := 2 * time.Minute

	for _, interval := range intervals {
		for _, gap := range gaps {
			for _, elapsed := range elapsedSet {
				last := timingNow.Add(-elapsed)
				target := NextPublishTime(&last, interval, gap, buffer, timingNow)

				// Never in the past
				assert.False(t, target.Before(timingNow),
					"target %v before now (interval=%v gap=%v elapsed=%v)", target, interval, gap, elapsed)

				// Gap is a hard floor
				assert.GreaterOrEqual(t, target.Sub(last), gap,
					"gap violated (interval=%v gap=%v elapsed=%v)", interval, gap, elapsed)

				// Pending cadence is honored exactly whenever it clears the floor
				if elapsed < interval && interval >= gap {
					assert.Equal(t, last.Add(interval), target,
						"cadence not exact (interval=%v gap=%v elapsed=%v)", interval, gap, elapsed)
				}
			}
		}
	}
}
