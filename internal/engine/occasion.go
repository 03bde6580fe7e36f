package engine

import (
	"time"

	"github.com/tartampluch/go-greetings/internal/roster"
)

// IsLeap reports whether year has a February 29.
func IsLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// ObservedDate returns the day an annual occasion falls on in the given year.
// February 29 is observed on February 28 in non-leap years. time.Date would
// otherwise normalize it to March 1.
func ObservedDate(year int, month time.Month, day int, loc *time.Location) time.Time {
	if month == time.February && day == 29 && !IsLeap(year) {
		day = 28
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

// Matches reports whether d recurs on the calendar day of today, year ignored.
func Matches(d roster.Date, today time.Time) bool {
	y, m, day := today.Date()
	observed := ObservedDate(y, d.Month, d.Day, today.Location())
	return observed.Month() == m && observed.Day() == day
}

// Years returns the number of completed years between d and on.
// The boolean is false when d has no year or lies after on.
func Years(d roster.Date, on time.Time) (int, bool) {
	if !d.YearKnown {
		return 0, false
	}
	years := on.Year() - d.Year
	if startOfDay(on).Before(ObservedDate(on.Year(), d.Month, d.Day, on.Location())) {
		years--
	}
	if years < 0 {
		return 0, false
	}
	return years, true
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
