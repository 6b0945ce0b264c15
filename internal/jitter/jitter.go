// Package jitter implements the randomized-delay formulas shared by the
// listener's reconnect backoff and the reset-locked ticker's scheduling.
// Keeping both in one place avoids two slightly-different reimplementations
// of "pick a delay with some randomness" drifting apart.
package jitter

import (
	"math"
	"math/rand"
	"time"
)

// Source produces a uniform random float64 in [0, 1). Tests supply a fixed
// or sequenced Source to make delay selection deterministic.
type Source func() float64

// DefaultSource draws from the package-level math/rand generator.
func DefaultSource() float64 {
	return rand.Float64()
}

// Reconnect computes the listener's reconnect delay for the given 0-based
// retry attempt: ceil(j * min(60s, 50*e^attempt)), where j = 0.5 + sqrt(u)/2
// skews the distribution toward the upper half of the range.
func Reconnect(attempt int, source Source) time.Duration {
	u := source()
	j := 0.5 + math.Sqrt(u)/2
	capMs := math.Min(60_000, 50*math.Exp(float64(attempt)))
	return msToDuration(math.Ceil(j * capMs))
}

// ResetLockedInitial picks the ticker's first delay, uniform in
// [0, min(60s, max)), to avoid co-starting processes ticking in lockstep.
func ResetLockedInitial(max time.Duration, source Source) time.Duration {
	capMs := math.Min(60_000, float64(max.Milliseconds()))
	u := source()
	return msToDuration(math.Floor(u * capMs))
}

// ResetLockedNext picks the ticker's delay after the first tick, uniform in
// [min, max]. When min == max the result is exactly min.
func ResetLockedNext(min, max time.Duration, source Source) time.Duration {
	minMs := float64(min.Milliseconds())
	maxMs := float64(max.Milliseconds())
	u := source()
	return msToDuration(math.Ceil(minMs + u*(maxMs-minMs)))
}

func msToDuration(ms float64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
