package utils

import (
	"testing"
	"time"
)

func TestLatencyTrackerPercentile(t *testing.T) {
	tracker := NewLatencyTracker(10)
	durations := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond, 40 * time.Millisecond, 50 * time.Millisecond}
	for _, d := range durations {
		tracker.Observe(d)
	}

	if tracker.Count() != len(durations) {
		t.Fatalf("expected count %d, got %d", len(durations), tracker.Count())
	}

	p95 := tracker.Percentile(95)
	if p95 < 40*time.Millisecond {
		t.Fatalf("expected percentile >= 40ms, got %v", p95)
	}
}

func TestLatencyTrackerRingEviction(t *testing.T) {
	tracker := NewLatencyTracker(3)
	for i := 0; i < 10; i++ {
		tracker.Observe(time.Duration(i) * time.Millisecond)
	}
	if tracker.Count() != 3 {
		t.Fatalf("expected tracker size 3, got %d", tracker.Count())
	}
	if min := tracker.Percentile(0); min != 7*time.Millisecond {
		t.Fatalf("expected oldest samples evicted, min = %v", min)
	}
}

func TestTimeHelpers(t *testing.T) {
	d, err := ParseDate("2023-11-05")
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	if MonthStart(d).Day() != 1 {
		t.Fatalf("month start not on day 1: %v", MonthStart(d))
	}
	next := NextMonth(d)
	if next.Month() != time.December || next.Day() != 1 {
		t.Fatalf("next month = %v", next)
	}
	if got := DaysBetween(d, d.AddDate(0, 0, 14)); got != 14 {
		t.Fatalf("days between = %d, want 14", got)
	}
}
