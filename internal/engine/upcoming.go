package engine

import (
	"slices"
	"time"

	"github.com/tartampluch/go-greetings/internal/roster"
)

// Occurrence is one dated instance of an employee's occasion.
type Occurrence struct {
	Record    roster.EmployeeRecord
	Occasion  roster.Occasion
	Date      time.Time
	Years     int // Completed years on Date; zero when YearKnown is false.
	YearKnown bool
}

// NextOccurrence returns the first day on or after from's calendar day on which d recurs.
func NextOccurrence(d roster.Date, from time.Time) time.Time {
	today := startOfDay(from)
	candidate := ObservedDate(today.Year(), d.Month, d.Day, today.Location())
	if candidate.Before(today) {
		candidate = ObservedDate(today.Year()+1, d.Month, d.Day, today.Location())
	}
	return candidate
}

// OccurrenceOn builds the occurrence of rec's occasion on the given day.
func OccurrenceOn(rec roster.EmployeeRecord, o roster.Occasion, d roster.Date, on time.Time) Occurrence {
	years, known := Years(d, on)
	return Occurrence{
		Record:    rec,
		Occasion:  o,
		Date:      startOfDay(on),
		Years:     years,
		YearKnown: known,
	}
}

// Upcoming lists the occurrences from today through today+days, sorted by
// date. Records sharing a date keep birthday-first then load order.
func Upcoming(r *roster.Roster, from time.Time, days int) []Occurrence {
	if r == nil || days < 0 {
		return nil
	}
	today := startOfDay(from)
	limit := today.AddDate(0, 0, days)

	var out []Occurrence
	for _, o := range roster.Occasions {
		if !r.Columns[o].Typed() {
			continue
		}
		for _, rec := range r.Records {
			d, ok := rec.DateFor(o).Get()
			if !ok {
				continue
			}
			next := NextOccurrence(d, today)
			if next.After(limit) {
				continue
			}
			if d.YearKnown && next.Year() < d.Year {
				continue
			}
			out = append(out, OccurrenceOn(rec, o, d, next))
		}
	}

	slices.SortStableFunc(out, func(a, b Occurrence) int {
		return a.Date.Compare(b.Date)
	})
	return out
}
