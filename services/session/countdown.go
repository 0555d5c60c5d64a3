package session

import (
	"time"

	"orchid/models"
)

const (
	msPerDay    = 86_400_000
	msPerHour   = 3_600_000
	msPerMinute = 60_000
	msPerSecond = 1_000
)

// ComputeRemaining decomposes the time left until end into whole days, hours,
// minutes and seconds. Once now reaches end the result is all zeros with
// Expired set. Pure: no side effects, no error path.
func ComputeRemaining(end, now time.Time) models.Remaining {
	diffMs := end.Sub(now).Milliseconds()
	if diffMs <= 0 {
		return models.Remaining{Expired: true}
	}

	days := diffMs / msPerDay
	rem := diffMs % msPerDay
	hours := rem / msPerHour
	rem %= msPerHour
	minutes := rem / msPerMinute
	rem %= msPerMinute
	seconds := rem / msPerSecond

	return models.Remaining{
		Days:    int(days),
		Hours:   int(hours),
		Minutes: int(minutes),
		Seconds: int(seconds),
	}
}
