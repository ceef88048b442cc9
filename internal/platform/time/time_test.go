package time_test

import (
	"testing"
	"time"

	ptime "picktrack/internal/platform/time"
)

func TestPtr_ZeroIsNil(t *testing.T) {
	if ptime.Ptr(time.Time{}) != nil {
		t.Fatalf("zero time should be nil")
	}
	at := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	if p := ptime.Ptr(at); p == nil || !p.Equal(at) {
		t.Fatalf("Ptr = %v", p)
	}
}

func TestManual_Advance(t *testing.T) {
	start := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	m := ptime.NewManual(start)
	var clk ptime.Clock = m.Now

	m.Advance(90 * time.Minute)
	if got := clk(); !got.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("after advance = %v", got)
	}
	m.Advance(-2 * time.Hour)
	if got := clk(); !got.Equal(start.Add(-30 * time.Minute)) {
		t.Fatalf("after rewind = %v", got)
	}
}
