package match

import (
	"fmt"
	"time"
)

// ValidateDayHourMinute checks the raw bounds before any calendar arithmetic.
func ValidateDayHourMinute(day, hour, minute int) error {
	switch {
	case day < 1 || day > 31:
		return fmt.Errorf("%w: day %d not in 1-31", ErrOutOfRange, day)
	case hour < 0 || hour > 23:
		return fmt.Errorf("%w: hour %d not in 0-23", ErrOutOfRange, hour)
	case minute < 0 || minute > 59:
		return fmt.Errorf("%w: minute %d not in 0-59", ErrOutOfRange, minute)
	}
	return nil
}

// ResolveSchedule turns day/hour/minute into an instant in now's month and location.
// If that instant is already past it moves to the same day/hour/minute of the next
// month, wrapping December into January of the following year. A day that does not
// exist in the chosen month yields ErrInvalidDate.
func ResolveSchedule(now time.Time, day, hour, minute int) (time.Time, error) {
	if err := ValidateDayHourMinute(day, hour, minute); err != nil {
		return time.Time{}, err
	}
	year, month := now.Year(), now.Month()

	at, err := buildDate(year, month, day, hour, minute, now.Location())
	if err != nil {
		return time.Time{}, err
	}
	if !at.Before(now) {
		return at, nil
	}

	month++
	if month > time.December {
		month = time.January
		year++
	}
	return buildDate(year, month, day, hour, minute, now.Location())
}

// buildDate refuses dates that time.Date would normalize into another month.
func buildDate(year int, month time.Month, day, hour, minute int, loc *time.Location) (time.Time, error) {
	t := time.Date(year, month, day, hour, minute, 0, 0, loc)
	if t.Day() != day || t.Month() != month {
		return time.Time{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, int(month), day)
	}
	return t, nil
}
