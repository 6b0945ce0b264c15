package jitter

import (
	"testing"
	"time"
)

func constSource(u float64) Source {
	return func() float64 { return u }
}

func TestReconnect_BoundsAndMonotonicity(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		d := Reconnect(attempt, constSource(0.5))
		if d <= 0 || d > 60_000*time.Millisecond {
			t.Fatalf("attempt %d: delay %v out of (0, 60s]", attempt, d)
		}
	}

	low := Reconnect(1, constSource(0))
	high := Reconnect(1, constSource(0.999))
	if high <= low {
		t.Fatalf("expected higher jitter source to produce a longer delay: low=%v high=%v", low, high)
	}
}

func TestReconnect_CapsAtSixtySeconds(t *testing.T) {
	d := Reconnect(20, constSource(0.999))
	if d != 60_000*time.Millisecond {
		t.Fatalf("expected delay capped at 60s, got %v", d)
	}
}

func TestResetLockedInitial_BoundedByMax(t *testing.T) {
	max := 10 * time.Second
	d := ResetLockedInitial(max, constSource(0.999))
	if d < 0 || d >= max {
		t.Fatalf("expected delay in [0, %v), got %v", max, d)
	}
}

func TestResetLockedInitial_CapsAtSixtySeconds(t *testing.T) {
	max := 5 * time.Minute
	d := ResetLockedInitial(max, constSource(0.999))
	if d >= 60_000*time.Millisecond+time.Millisecond {
		t.Fatalf("expected delay capped near 60s, got %v", d)
	}
}

func TestResetLockedNext_MinEqualsMaxIsExact(t *testing.T) {
	d := ResetLockedNext(5*time.Second, 5*time.Second, constSource(0.37))
	if d != 5*time.Second {
		t.Fatalf("expected exactly min when min == max, got %v", d)
	}
}

func TestResetLockedNext_WithinRange(t *testing.T) {
	min, max := 2*time.Second, 8*time.Second
	for _, u := range []float64{0, 0.25, 0.5, 0.75, 0.999} {
		d := ResetLockedNext(min, max, constSource(u))
		if d < min || d > max {
			t.Fatalf("u=%v: delay %v out of [%v, %v]", u, d, min, max)
		}
	}
}
