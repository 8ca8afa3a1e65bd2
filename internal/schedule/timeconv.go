package schedule

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidTimezone = errors.New("unknown timezone")
	ErrInvalidSchedule = errors.New("invalid prompt schedule")
)

// TeamSchedule is the projection of a team's recurring prompt configuration
// consumed by the engine. PromptWeekday uses 0 = Monday .. 6 = Sunday.
type TeamSchedule struct {
	TeamID        string
	PromptWeekday int
	PromptTime    string // "HH:MM", 24h
	Timezone      string // IANA name
}

// Validate rejects bad configuration at the team-settings boundary so it is
// never discovered at dispatch time.
func Validate(s TeamSchedule) error {
	if s.PromptWeekday < 0 || s.PromptWeekday > 6 {
		return fmt.Errorf("%w: weekday %d out of range", ErrInvalidSchedule, s.PromptWeekday)
	}
	if _, _, err := parsePromptTime(s.PromptTime); err != nil {
		return err
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTimezone, s.Timezone)
	}
	return nil
}

// NextOccurrence returns the earliest UTC instant strictly after `after` at
// which the team's local wall clock reads PromptTime on PromptWeekday.
//
// A wall time skipped by a DST spring-forward rolls forward to the zone's
// post-transition instant. A wall time that occurs twice on a fall-back day
// resolves to the first occurrence.
func NextOccurrence(s TeamSchedule, after time.Time) (time.Time, error) {
	if s.PromptWeekday < 0 || s.PromptWeekday > 6 {
		return time.Time{}, fmt.Errorf("%w: weekday %d out of range", ErrInvalidSchedule, s.PromptWeekday)
	}
	hour, min, err := parsePromptTime(s.PromptTime)
	if err != nil {
		return time.Time{}, err
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimezone, s.Timezone)
	}

	local := after.In(loc)
	for d := 0; d <= 8; d++ {
		day := local.AddDate(0, 0, d)
		if mondayIndex(day.Weekday()) != s.PromptWeekday {
			continue
		}
		cand := localInstant(day.Year(), day.Month(), day.Day(), hour, min, loc)
		if cand.After(after) {
			return cand.UTC(), nil
		}
	}
	// A matching weekday always exists within 8 days.
	return time.Time{}, fmt.Errorf("%w: no occurrence found", ErrInvalidSchedule)
}

// localInstant builds the instant for a wall-clock time in loc. time.Date
// already normalizes skipped times forward; for ambiguous fall-back times its
// choice of offset is unspecified, so probe an hour earlier and prefer the
// first occurrence when both read the same wall clock.
func localInstant(year int, month time.Month, day, hour, min int, loc *time.Location) time.Time {
	t := time.Date(year, month, day, hour, min, 0, 0, loc)
	prev := t.Add(-time.Hour)
	if prev.Hour() == hour && prev.Minute() == min && prev.Day() == day {
		return prev
	}
	return t
}

func parsePromptTime(s string) (hour, min int, err error) {
	t, perr := time.Parse("15:04", s)
	if perr != nil {
		return 0, 0, fmt.Errorf("%w: time %q not HH:MM", ErrInvalidSchedule, s)
	}
	return t.Hour(), t.Minute(), nil
}

// mondayIndex maps time.Weekday (Sunday=0) to the 0=Monday convention.
func mondayIndex(w time.Weekday) int {
	return (int(w) + 6) % 7
}
