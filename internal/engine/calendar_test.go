package engine_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-greetings/internal/config"
	"github.com/tartampluch/go-greetings/internal/engine"
	"github.com/tartampluch/go-greetings/internal/roster"
)

func TestNextOccurrence(t *testing.T) {
	now := day(2025, time.June, 15)

	tests := []struct {
		name string
		date roster.Date
		want time.Time
	}{
		{"passed this year", roster.NewDate(1990, time.January, 1), time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)},
		{"later this year", roster.NewDate(1990, time.December, 31), time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC)},
		{"today", roster.NewDate(1990, time.June, 15), time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)},
		{"leapling in non-leap year", roster.NewDate(2000, time.February, 29), time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.NextOccurrence(tt.date, now))
		})
	}

	// From January 2028 the leapling gets a real February 29.
	assert.Equal(t, time.Date(2028, time.February, 29, 0, 0, 0, 0, time.UTC),
		engine.NextOccurrence(roster.NewDate(2000, time.February, 29), day(2028, time.January, 10)))
}

func TestUpcoming(t *testing.T) {
	r := newRoster(
		record("late", "1990-06-20", ""),
		record("soon", "1985-06-16", "2018-06-15"),
		record("today", "1970-06-15", ""),
		record("far", "1970-09-01", ""),
		record("unborn", "2031-06-17", ""),
		record("noyear", "--06-18", ""),
	)

	got := engine.Upcoming(r, day(2025, time.June, 15), 7)
	require.Len(t, got, 5)

	var order []string
	for _, o := range got {
		order = append(order, fmt.Sprintf("%s/%s", o.Record.ID, o.Occasion))
	}
	assert.Equal(t, []string{"today/birthday", "soon/anniversary", "soon/birthday", "noyear/birthday", "late/birthday"}, order)

	assert.Equal(t, 55, got[0].Years)
	assert.True(t, got[0].YearKnown)
	assert.Equal(t, 7, got[1].Years)
	assert.False(t, got[3].YearKnown)

	assert.Len(t, engine.Upcoming(r, day(2025, time.June, 15), 0), 2, "zero days means today only")
	assert.Nil(t, engine.Upcoming(nil, day(2025, time.June, 15), 7))
}

func TestCalendarBuilder_Build(t *testing.T) {
	r := newRoster(
		record("ada", "1990-12-10", "2024-09-01"),
		record("nobody", "NA", ""),
	)
	b := &engine.CalendarBuilder{Clock: MockClock{CurrentTime: day(2025, time.January, 1)}}

	data, err := b.Build(r)
	require.NoError(t, err)

	cal, err := ical.NewDecoder(bytes.NewReader(data)).Decode()
	require.NoError(t, err)

	events := cal.Events()
	// Birthday in 2024, 2025, 2026; anniversary from its first year 2024.
	assert.Len(t, events, 6)

	text := string(data)
	assert.Contains(t, text, "SUMMARY:Birthday: ada Tester")
	assert.Contains(t, text, "SUMMARY:Anniversary: ada Tester")
	assert.Contains(t, text, "DTSTART;VALUE=DATE:20251210")
	assert.Contains(t, text, "UID:ada-anniversary-2026@"+config.ICalDomain)
	assert.Contains(t, text, "CATEGORIES:birthday")
	assert.NotContains(t, text, "nobody")
}

func TestCalendarBuilder_SkipsYearsBeforeBirth(t *testing.T) {
	r := newRoster(record("baby", "2025-03-01", ""))
	b := &engine.CalendarBuilder{Clock: MockClock{CurrentTime: day(2025, time.June, 1)}}

	data, err := b.Build(r)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "BEGIN:VEVENT"))
}

func TestCalendarBuilder_LeapDayEvents(t *testing.T) {
	r := newRoster(record("leap", "2000-02-29", ""))
	b := &engine.CalendarBuilder{Clock: MockClock{CurrentTime: day(2024, time.June, 1)}}

	data, err := b.Build(r)
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, "DTSTART;VALUE=DATE:20230228")
	assert.Contains(t, text, "DTSTART;VALUE=DATE:20240229")
	assert.Contains(t, text, "DTSTART;VALUE=DATE:20250228")
	assert.NotContains(t, text, "0301")
}

func TestCalendarBuilder_InjectedSummary(t *testing.T) {
	r := newRoster(record("ada", "1990-12-10", ""))
	b := &engine.CalendarBuilder{
		Clock: MockClock{CurrentTime: day(2025, time.January, 1)},
		Summary: func(o engine.Occurrence) string {
			return fmt.Sprintf("Anniversaire %s (%d)", o.Record.FirstName, o.Years)
		},
	}

	data, err := b.Build(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), "SUMMARY:Anniversaire ada (35)")
}

func TestCalendarBuilder_EmptyIsStub(t *testing.T) {
	b := &engine.CalendarBuilder{}

	data, err := b.Build(roster.NewRoster())
	require.NoError(t, err)
	assert.Equal(t, config.StubVCalendar, string(data))

	data, err = b.Encode(nil)
	require.NoError(t, err)
	assert.Contains(t, string(data), "BEGIN:VCALENDAR")
}
