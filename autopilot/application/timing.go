package application

import (
	"time"
)

// NextPublishTime reconciles the pair's configured cadence with the
// platform-wide minimum gap and returns the next eligible publish time.
//
//   - No checkpoint yet: the first post waits out the minimum gap from now.
//   - Cadence already elapsed: publish almost immediately (small buffer keeps
//     the target from landing in the past), unless the minimum gap since the
//     last post is still open, in which case wait for the gap.
//   - Cadence still pending: honor it exactly.
//
// The minimum gap is a hard floor: whenever cadence and gap disagree, the
// gap wins. Every result is >= now.
func NextPublishTime(lastScheduledAt *time.Time, interval, minimumGap, immediateBuffer time.Duration, now time.Time) time.Time {
	if lastScheduledAt == nil {
		return now.Add(minimumGap)
	}

	last := lastScheduledAt.UTC()
	elapsed := now.Sub(last)
	remaining := interval - elapsed

	var target time.Time
	switch {
	case remaining <= 0 && elapsed >= minimumGap:
		target = now.Add(immediateBuffer)
	case remaining <= 0:
		target = last.Add(minimumGap)
	default:
		target = last.Add(interval)
	}

	// Floor clamp for cadences configured tighter than the gap.
	if floor := last.Add(minimumGap); target.Before(floor) {
		target = floor
	}
	return target
}
