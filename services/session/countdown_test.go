package session

import (
	"testing"
	"time"

	"orchid/models"
)

func TestComputeRemainingAtBoundary(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	got := ComputeRemaining(now, now)
	want := models.Remaining{Expired: true}
	if got != want {
		t.Fatalf("now == end: got %+v, want %+v", got, want)
	}

	got = ComputeRemaining(now.Add(-time.Hour), now)
	if !got.Expired {
		t.Fatalf("end in the past should be expired, got %+v", got)
	}
	if got.Days != 0 || got.Hours != 0 || got.Minutes != 0 || got.Seconds != 0 {
		t.Fatalf("expired result must be all zeros, got %+v", got)
	}
}

func TestComputeRemainingOneSecondLeft(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	end := now.Add(time.Second)

	got := ComputeRemaining(end, now)
	want := models.Remaining{Seconds: 1}
	if got != want {
		t.Fatalf("one second left: got %+v, want %+v", got, want)
	}
}

func TestComputeRemainingDecomposition(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	// 1 day, 1 hour, 1 minute, 1 second.
	end := now.Add(90061 * time.Second)

	got := ComputeRemaining(end, now)
	want := models.Remaining{Days: 1, Hours: 1, Minutes: 1, Seconds: 1}
	if got != want {
		t.Fatalf("decomposition: got %+v, want %+v", got, want)
	}
}

func TestComputeRemainingDropsSubSecond(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	end := now.Add(1500 * time.Millisecond)

	got := ComputeRemaining(end, now)
	want := models.Remaining{Seconds: 1}
	if got != want {
		t.Fatalf("sub-second remainder should truncate, got %+v, want %+v", got, want)
	}
}
