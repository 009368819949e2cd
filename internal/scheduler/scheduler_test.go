package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextTimesAlignsToInterval(t *testing.T) {
	ist := time.FixedZone("IST", 19800)
	cases := []struct {
		name     string
		interval time.Duration
		offset   time.Duration
		now      time.Time
		want     time.Time
	}{
		{"mid slot", 15 * time.Minute, 0, time.Date(2025, 6, 10, 9, 7, 30, 0, ist), time.Date(2025, 6, 10, 9, 15, 0, 0, ist)},
		{"exact boundary moves forward", 15 * time.Minute, 0, time.Date(2025, 6, 10, 9, 15, 0, 0, ist), time.Date(2025, 6, 10, 9, 30, 0, 0, ist)},
		{"with offset", 15 * time.Minute, 30 * time.Second, time.Date(2025, 6, 10, 9, 15, 10, 0, ist), time.Date(2025, 6, 10, 9, 15, 30, 0, ist)},
		{"before first offset", time.Hour, 5 * time.Minute, time.Date(2025, 6, 10, 0, 2, 0, 0, ist), time.Date(2025, 6, 10, 0, 5, 0, 0, ist)},
		{"rolls to next day", time.Hour, 0, time.Date(2025, 6, 10, 23, 30, 0, 0, ist), time.Date(2025, 6, 11, 0, 0, 0, 0, ist)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &AlignedScheduler{Interval: tc.interval, Offset: tc.offset, Location: ist}
			wake, wait := s.nextTimes(tc.now)
			assert.True(t, tc.want.Equal(wake), "got %s", wake)
			assert.Equal(t, tc.want.Sub(tc.now), wait)
		})
	}
}

func TestAlignedSchedulerRunsImmediatelyAndStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewAlignedScheduler(ctx, time.Hour, 0)
	s.RunImmediately = true

	var calls atomic.Int32
	done := make(chan struct{})
	go func() {
		s.Start(func() { calls.Add(1) })
		close(done)
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

func TestAlignedSchedulerHonoursWindow(t *testing.T) {
	win, err := ParseDayWindow("09:15-15:30")
	require.NoError(t, err)
	s := &AlignedScheduler{Window: win}
	ist := time.FixedZone("IST", 19800)

	var calls int
	s.fire(time.Date(2025, 6, 10, 8, 0, 0, 0, ist), func() { calls++ })
	s.fire(time.Date(2025, 6, 10, 9, 15, 0, 0, ist), func() { calls++ })
	s.fire(time.Date(2025, 6, 10, 15, 30, 0, 0, ist), func() { calls++ })
	s.fire(time.Date(2025, 6, 10, 15, 45, 0, 0, ist), func() { calls++ })
	assert.Equal(t, 2, calls)
}

func TestAlignedSchedulerRejectsBadInterval(t *testing.T) {
	var called bool
	NewAlignedScheduler(context.Background(), 0, 0).Start(func() { called = true })
	assert.False(t, called)
}

func TestParseIntervalDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"15m": 15 * time.Minute,
		"1H":  time.Hour,
		"1d":  24 * time.Hour,
		"2w":  14 * 24 * time.Hour,
	}
	for in, want := range cases {
		got, ok := ParseIntervalDuration(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "m", "0m", "-5m", "10x", "abc"} {
		_, ok := ParseIntervalDuration(bad)
		assert.False(t, ok, bad)
	}
}

func TestParseDayWindow(t *testing.T) {
	w, err := ParseDayWindow("")
	require.NoError(t, err)
	assert.Nil(t, w)
	assert.Equal(t, "all-day", w.String())

	w, err = ParseDayWindow(" 09:15 - 15:30 ")
	require.NoError(t, err)
	assert.Equal(t, 9*time.Hour+15*time.Minute, w.Start)
	assert.Equal(t, "09:15-15:30", w.String())

	for _, bad := range []string{"09:15", "9-10-11", "25:00-26:00", "15:30-09:15"} {
		_, err := ParseDayWindow(bad)
		assert.Error(t, err, bad)
	}
}

func TestValidateCron(t *testing.T) {
	assert.NoError(t, ValidateCron("*/15 9-15 * * 1-5"))
	assert.NoError(t, ValidateCron("@every 15m"))
	assert.Error(t, ValidateCron("not a cron"))
	assert.Error(t, ValidateCron("* * * *"))
}

func TestCronSchedulerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewCronScheduler(ctx, "@every 1h", nil)
	done := make(chan struct{})
	go func() {
		s.Start(func() {})
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cron scheduler did not stop")
	}
}

func TestCronSchedulerInvalidExprReturns(t *testing.T) {
	s := NewCronScheduler(context.Background(), "bogus", nil)
	done := make(chan struct{})
	go func() {
		s.Start(func() {})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("invalid expression should return immediately")
	}
}
