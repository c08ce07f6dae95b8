package clock

import (
	"testing"
	"time"
)

func TestRealClock(t *testing.T) {
	clock := &RealClock{}

	before := time.Now()
	actual := clock.Now()
	after := time.Now()
	if actual.Before(before) || actual.After(after) {
		t.Errorf("RealClock.Now() = %v, expected between %v and %v", actual, before, after)
	}

	if d := clock.Since(before.Add(-time.Second)); d < time.Second {
		t.Errorf("RealClock.Since() = %v, want at least 1s", d)
	}
}

func TestFakeClock(t *testing.T) {
	start := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		mutate  func(c *FakeClock)
		want    time.Time
		elapsed time.Duration
	}{
		{
			name:   "fixed time",
			mutate: func(c *FakeClock) {},
			want:   start,
		},
		{
			name:    "advance accumulates",
			mutate:  func(c *FakeClock) { c.Advance(time.Hour); c.Advance(30 * time.Minute) },
			want:    start.Add(90 * time.Minute),
			elapsed: 90 * time.Minute,
		},
		{
			name:    "set backwards",
			mutate:  func(c *FakeClock) { c.Set(start.Add(-24 * time.Hour)) },
			want:    start.Add(-24 * time.Hour),
			elapsed: -24 * time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewFakeClock(start)
			tt.mutate(c)

			if got := c.Now(); !got.Equal(tt.want) {
				t.Errorf("Now() = %v, want %v", got, tt.want)
			}
			if got := c.Since(start); got != tt.elapsed {
				t.Errorf("Since(start) = %v, want %v", got, tt.elapsed)
			}
		})
	}
}
