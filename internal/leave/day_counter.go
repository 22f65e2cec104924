package leave

import (
	"time"

	leaveerrors "go-conge/internal/leave/errors"
)

const secondsPerDay = 24 * 60 * 60

// CountDays returns the number of calendar days from start to end, both included.
func CountDays(start, end time.Time) (int, error) {
	s, e := dateOnly(start), dateOnly(end)
	if e.Before(s) {
		return 0, leaveerrors.ErrInvalidRange
	}
	// Both are UTC midnights, so the Unix difference is a whole number of days.
	return int((e.Unix()-s.Unix())/secondsPerDay) + 1, nil
}

const dateLayout = "2006-01-02"

func parseDate(v string) (time.Time, error) {
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, leaveerrors.ErrInvalidDateFormat
	}
	return t, nil
}
