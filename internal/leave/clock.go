package leave

import "time"

type Clock interface {
	Today() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Today() time.Time {
	return dateOnly(f())
}

var SystemClock Clock = ClockFunc(time.Now)

// dateOnly drops the time of day, keeping the calendar date as seen in t's location.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
