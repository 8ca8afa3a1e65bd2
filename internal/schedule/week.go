package schedule

import (
	"fmt"
	"time"
)

// WeekWindow is the Monday-aligned 7-day bucket a team's submissions and
// summary are keyed by. Start is the UTC instant of the team's local Monday
// 00:00; the window covers [Start, End).
type WeekWindow struct {
	Start time.Time
	End   time.Time
}

func (w WeekWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// WeekStart returns the UTC instant of the most recent local Monday 00:00 in
// tz at the time `at`. This is the storage key for the team-week.
func WeekStart(tz string, at time.Time) (time.Time, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}
	local := at.In(loc)
	back := mondayIndex(local.Weekday())
	monday := time.Date(local.Year(), local.Month(), local.Day()-back, 0, 0, 0, 0, loc)
	return monday.UTC(), nil
}

// Window returns the full week window containing `at` in tz.
func Window(tz string, at time.Time) (WeekWindow, error) {
	start, err := WeekStart(tz, at)
	if err != nil {
		return WeekWindow{}, err
	}
	loc, _ := time.LoadLocation(tz)
	local := start.In(loc)
	end := time.Date(local.Year(), local.Month(), local.Day()+7, 0, 0, 0, 0, loc)
	return WeekWindow{Start: start, End: end.UTC()}, nil
}
