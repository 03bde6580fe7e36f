package engine

import (
	"log/slog"
	"time"

	"github.com/tartampluch/go-greetings/internal/config"
	"github.com/tartampluch/go-greetings/internal/roster"
)

// Matcher selects the records whose occasion falls on a given day.
type Matcher struct {
	Clock Clock
}

// NewMatcher returns a Matcher bound to clock, or to the real clock when nil.
func NewMatcher(clock Clock) *Matcher {
	if clock == nil {
		clock = RealClock{}
	}
	return &Matcher{Clock: clock}
}

// MatchToday is Match with today taken from the Matcher's clock.
func (m *Matcher) MatchToday(r *roster.Roster, o roster.Occasion) []roster.EmployeeRecord {
	return m.Match(r, o, m.Clock.Now())
}

// Match returns, in load order, every record whose date for o is valid and
// recurs on today's month and day. A column that produced no valid date at
// all yields no matches.
func (m *Matcher) Match(r *roster.Roster, o roster.Occasion, today time.Time) []roster.EmployeeRecord {
	log := slog.With(
		config.LogKeyComponent, config.CompEngine,
		config.LogKeyOccasion, string(o),
	)

	if r == nil {
		return nil
	}
	if stats := r.Columns[o]; !stats.Typed() {
		if stats.Present {
			log.Warn(config.MsgColumnUntyped,
				slog.Int(config.LogKeyCount, stats.Invalid),
			)
		}
		return nil
	}

	var matched []roster.EmployeeRecord
	for _, rec := range r.Records {
		d, ok := rec.DateFor(o).Get()
		if !ok || !Matches(d, today) {
			continue
		}
		log.Debug(config.MsgMatchFound,
			config.LogKeyRecord, rec.ID,
			config.LogKeyName, rec.FullName(),
		)
		matched = append(matched, rec)
	}

	log.Info(config.MsgMatched,
		config.LogKeyToday, today.Format(config.DateFormatFullDash),
		config.LogKeyCount, len(matched),
	)
	return matched
}
