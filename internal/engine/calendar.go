package engine

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/emersion/go-ical"
	"github.com/tartampluch/go-greetings/internal/config"
	"github.com/tartampluch/go-greetings/internal/roster"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CalendarBuilder turns occurrences into an iCalendar document.
type CalendarBuilder struct {
	Clock Clock

	// Summary lets callers inject localized event titles.
	Summary func(o Occurrence) string
}

// Build emits every dated occasion of the roster for the previous, current
// and next year, so calendar clients can scroll either way without a refresh.
// Years before a known birth or hire year are omitted.
func (b *CalendarBuilder) Build(r *roster.Roster) ([]byte, error) {
	now := b.clock().Now()
	years := []int{now.Year() - 1, now.Year(), now.Year() + 1}

	var occ []Occurrence
	if r != nil {
		for _, o := range roster.Occasions {
			if !r.Columns[o].Typed() {
				continue
			}
			for _, rec := range r.Records {
				d, ok := rec.DateFor(o).Get()
				if !ok {
					continue
				}
				for _, y := range years {
					if d.YearKnown && y < d.Year {
						continue
					}
					occ = append(occ, OccurrenceOn(rec, o, d, ObservedDate(y, d.Month, d.Day, now.Location())))
				}
			}
		}
	}
	return b.Encode(occ)
}

// Encode writes one all-day VEVENT per occurrence. An empty list still
// produces a valid, empty VCALENDAR.
func (b *CalendarBuilder) Encode(occ []Occurrence) ([]byte, error) {
	var buf bytes.Buffer
	if len(occ) == 0 {
		buf.WriteString(config.StubVCalendar)
		return buf.Bytes(), nil
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	refresh := ical.NewProp(config.PropRefresh)
	refresh.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refresh)

	stamp := ical.NewProp(config.PropDTStamp)
	stamp.SetDateTime(b.clock().Now().UTC())

	for _, o := range occ {
		event := ical.NewEvent()
		event.Props.SetText(config.PropUID, fmt.Sprintf(config.FormatEventUID, o.Record.ID, o.Occasion, o.Date.Year(), config.ICalDomain))
		event.Props.SetText(config.PropSummary, b.summary(o))
		event.Props.SetText(config.PropCategories, string(o.Occasion))

		start := ical.NewProp(config.PropDTStart)
		start.SetDate(o.Date)
		event.Props.Set(start)
		event.Props.Set(stamp)

		cal.Children = append(cal.Children, event.Component)
	}

	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}

	slog.Debug(config.MsgGenSuccess,
		config.LogKeyComponent, config.CompEngine,
		config.LogKeyCount, len(occ),
	)
	return buf.Bytes(), nil
}

func (b *CalendarBuilder) summary(o Occurrence) string {
	if b.Summary != nil {
		return b.Summary(o)
	}
	return DefaultSummary(o)
}

func (b *CalendarBuilder) clock() Clock {
	if b.Clock == nil {
		return RealClock{}
	}
	return b.Clock
}

// DefaultSummary renders "Birthday: Ada Lovelace".
func DefaultSummary(o Occurrence) string {
	title := cases.Title(language.English).String(string(o.Occasion))
	return fmt.Sprintf(config.FallbackSummary, title, o.Record.FullName())
}
