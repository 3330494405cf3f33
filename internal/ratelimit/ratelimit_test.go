package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFixedWindowThrottlesWithinWindow(t *testing.T) {
	lim := NewFixedWindow(FixedWindowConfig{Interval: 500 * time.Millisecond, IntervalCap: 1})
	t0 := time.Now()

	paused, _ := lim.IsPausedAt(t0, 0)
	require.False(t, paused, "first consultation, nothing consumed yet")
	lim.Consume(t0)

	paused, delay := lim.IsPausedAt(t0.Add(time.Millisecond), 0)
	require.True(t, paused)
	require.InDelta(t, 500*time.Millisecond, delay, float64(2*time.Millisecond))

	paused, _ = lim.IsPausedAt(t0.Add(501*time.Millisecond), 0)
	require.False(t, paused, "window has rolled over")
}

func TestFixedWindowCarryover(t *testing.T) {
	lim := NewFixedWindow(FixedWindowConfig{Interval: time.Second, IntervalCap: 5, CarryoverIntervalCount: true})
	t0 := time.Now()
	lim.Consume(t0)
	lim.Consume(t0)

	// Window rolls over with 3 tasks still pending: carryover seeds the
	// new window's count from pending, not zero.
	paused, _ := lim.IsPausedAt(t0.Add(2*time.Second), 3)
	require.False(t, paused)
	require.Equal(t, 3, lim.Admitted(t0.Add(2*time.Second)))
}

func TestFixedWindowRollback(t *testing.T) {
	lim := NewFixedWindow(FixedWindowConfig{Interval: time.Second, IntervalCap: 1})
	now := time.Now()
	lim.Consume(now)
	require.Equal(t, 1, lim.Admitted(now))
	lim.Rollback()
	require.Equal(t, 0, lim.Admitted(now))
	require.True(t, lim.ClearCondition(0))
}

func TestFixedWindowSpacingPreservedAfterIdle(t *testing.T) {
	lim := NewFixedWindow(FixedWindowConfig{Interval: time.Second, IntervalCap: 1})
	t0 := time.Now()
	lim.Consume(t0)

	// Long after the window "officially" ended, but the spec requires
	// spacing to still be honored relative to the last admission.
	paused, delay := lim.IsPausedAt(t0.Add(1100*time.Millisecond), 0)
	require.False(t, paused, "1.1s after a 1s interval, spacing is already satisfied")
	require.Zero(t, delay)
}

func TestStrictAdmitsAtMostCapPerRollingWindow(t *testing.T) {
	lim := NewStrict(StrictConfig{Interval: time.Second, IntervalCap: 2})
	t0 := time.Now()

	admits := []time.Time{}
	now := t0
	for len(admits) < 6 {
		paused, delay := lim.IsPausedAt(now, 0)
		if paused {
			now = now.Add(delay)
			continue
		}
		lim.Consume(now)
		admits = append(admits, now)
	}

	for i := 2; i < len(admits); i++ {
		require.GreaterOrEqual(t, admits[i].Sub(admits[i-2]), time.Second)
	}
}

func TestStrictRollback(t *testing.T) {
	lim := NewStrict(StrictConfig{Interval: time.Second, IntervalCap: 1})
	now := time.Now()
	lim.Consume(now)
	require.Equal(t, 1, lim.Admitted(now))
	lim.Rollback()
	require.Equal(t, 0, lim.Admitted(now))

	paused, _ := lim.IsPausedAt(now, 0)
	require.False(t, paused, "rollback must free the slot immediately")
}

func TestStrictCompactReclaimsEvictedTicks(t *testing.T) {
	lim := NewStrict(StrictConfig{Interval: time.Millisecond, IntervalCap: 1000})
	t0 := time.Now()
	for i := 0; i < 200; i++ {
		lim.Consume(t0.Add(time.Duration(i) * time.Microsecond))
	}
	later := t0.Add(time.Second)
	lim.Compact(later)
	require.Equal(t, 0, lim.Admitted(later))
	require.Empty(t, lim.ticks)
}

func TestUnlimitedNeverPauses(t *testing.T) {
	lim := NewUnlimited()
	require.True(t, lim.Ignored())
	paused, _ := lim.IsPausedAt(time.Now(), 100)
	require.False(t, paused)
	require.Equal(t, Unbounded, lim.Cap())
}
