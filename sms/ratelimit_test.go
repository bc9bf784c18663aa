package sms

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	DEST  = "+15551234567"
	DEST2 = "+15559876543"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRateLimiter_AdmitWithinCap(t *testing.T) {
	l := NewRateLimiter(DefaultLimits())
	l.now = fixedClock(time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC))

	for i := 0; i < 10; i++ {
		ok, reason := l.Admit(DEST)
		require.True(t, ok, reason)
		l.Record(DEST)
	}

	ok, reason := l.Admit(DEST)
	require.False(t, ok)
	require.Equal(t, "per-minute limit reached", reason)
}

func TestRateLimiter_PerMinuteCapTwo(t *testing.T) {
	l := NewRateLimiter(Limits{PerMinute: 2, PerHour: 100, PerDay: 1000})
	l.now = fixedClock(time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC))

	ok1, _ := l.Admit(DEST)
	l.Record(DEST)
	ok2, _ := l.Admit(DEST)
	l.Record(DEST)
	ok3, _ := l.Admit(DEST)

	require.True(t, ok1)
	require.True(t, ok2)
	require.False(t, ok3)
}

func TestRateLimiter_AdmitDoesNotCount(t *testing.T) {
	l := NewRateLimiter(Limits{PerMinute: 2, PerHour: 100, PerDay: 1000})
	l.now = fixedClock(time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC))

	//admit alone never consumes the cap
	for i := 0; i < 20; i++ {
		ok, _ := l.Admit(DEST)
		require.True(t, ok)
	}
}

func TestRateLimiter_DestinationsIndependent(t *testing.T) {
	l := NewRateLimiter(Limits{PerMinute: 1, PerHour: 100, PerDay: 1000})
	l.now = fixedClock(time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC))

	l.Record(DEST)

	ok, _ := l.Admit(DEST)
	require.False(t, ok)
	ok, _ = l.Admit(DEST2)
	require.True(t, ok)
}

func TestRateLimiter_MinuteBoundaryResets(t *testing.T) {
	l := NewRateLimiter(Limits{PerMinute: 1, PerHour: 100, PerDay: 1000})
	at := time.Date(2026, 3, 14, 10, 30, 59, 0, time.UTC)
	l.now = fixedClock(at)

	l.Record(DEST)
	ok, _ := l.Admit(DEST)
	require.False(t, ok)

	//next minute bucket admits again
	l.now = fixedClock(at.Add(2 * time.Second))
	ok, _ = l.Admit(DEST)
	require.True(t, ok)
}

func TestRateLimiter_HourCap(t *testing.T) {
	l := NewRateLimiter(Limits{PerMinute: 10, PerHour: 15, PerDay: 1000})
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	//spread sends over minutes of the same hour
	for i := 0; i < 15; i++ {
		l.now = fixedClock(at.Add(time.Duration(i) * time.Minute))
		ok, _ := l.Admit(DEST)
		require.True(t, ok)
		l.Record(DEST)
	}

	l.now = fixedClock(at.Add(16 * time.Minute))
	ok, reason := l.Admit(DEST)
	require.False(t, ok)
	require.Equal(t, "per-hour limit reached", reason)
}

func TestRateLimiter_Prune(t *testing.T) {
	l := NewRateLimiter(DefaultLimits())
	at := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	l.now = fixedClock(at)

	l.Record(DEST)
	l.Record(DEST2)
	require.Equal(t, 6, len(l.counts))

	//nothing has expired yet
	l.prune(at.Add(30 * time.Second))
	require.Equal(t, 6, len(l.counts))

	//minute buckets expire first
	l.prune(at.Add(2 * time.Minute))
	require.Equal(t, 4, len(l.counts))

	//after a day everything is gone
	l.prune(at.Add(25 * time.Hour))
	require.Equal(t, 0, len(l.counts))
}
