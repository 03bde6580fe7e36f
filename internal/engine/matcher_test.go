package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-greetings/internal/engine"
	"github.com/tartampluch/go-greetings/internal/roster"
)

// MockClock controls time for deterministic testing.
type MockClock struct {
	CurrentTime time.Time
}

func (m MockClock) Now() time.Time {
	return m.CurrentTime
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 30, 0, 0, time.UTC)
}

func record(id, birthday, anniversary string) roster.EmployeeRecord {
	b, _ := roster.ParseDate("birthday", birthday)
	a, _ := roster.ParseDate("anniversary", anniversary)
	return roster.EmployeeRecord{
		ID:              id,
		FirstName:       id,
		LastName:        "Tester",
		Email:           id + "@example.com",
		BirthDate:       b,
		AnniversaryDate: a,
	}
}

// newRoster mimics the loader's column accounting.
func newRoster(records ...roster.EmployeeRecord) *roster.Roster {
	r := roster.NewRoster()
	for _, o := range roster.Occasions {
		stats := roster.ColumnStats{Present: true}
		for _, rec := range records {
			switch rec.DateFor(o).State() {
			case roster.DateValid:
				stats.Valid++
			case roster.DateInvalid:
				stats.Invalid++
			default:
				stats.Unset++
			}
		}
		r.Columns[o] = stats
	}
	r.Records = records
	return r
}

func ids(recs []roster.EmployeeRecord) []string {
	var out []string
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

func TestMatch_MonthAndDayOnly(t *testing.T) {
	r := newRoster(
		record("a", "1990-06-09", "NA"),
		record("b", "1985-06-10", "2010-06-09"),
		record("c", "2001-06-09", ""),
		record("d", "garbage", "2019-12-31"),
	)
	m := engine.NewMatcher(nil)

	assert.Equal(t, []string{"a", "c"}, ids(m.Match(r, roster.Birthday, day(2024, time.June, 9))), "load order kept")
	assert.Equal(t, []string{"b"}, ids(m.Match(r, roster.Anniversary, day(2024, time.June, 9))))
	assert.Equal(t, []string{"b"}, ids(m.Match(r, roster.Birthday, day(1999, time.June, 10))), "year is never compared")
	assert.Empty(t, m.Match(r, roster.Birthday, day(2024, time.July, 9)))
}

// TestMatch_IffProperty sweeps a whole leap year and checks the biconditional for every record.
func TestMatch_IffProperty(t *testing.T) {
	r := newRoster(
		record("a", "1990-01-01", "2015-03-15"),
		record("b", "1975-12-31", ""),
		record("c", "NA", "2020-07-04"),
		record("d", "1988-07-04", "garbage"),
	)
	m := engine.NewMatcher(nil)

	for d := day(2024, time.January, 1); d.Year() == 2024; d = d.AddDate(0, 0, 1) {
		for _, o := range roster.Occasions {
			got := map[string]bool{}
			for _, rec := range m.Match(r, o, d) {
				got[rec.ID] = true
			}
			for _, rec := range r.Records {
				date, ok := rec.DateFor(o).Get()
				want := ok && date.Month == d.Month() && date.Day == d.Day()
				assert.Equalf(t, want, got[rec.ID], "%s %s on %s", rec.ID, o, d.Format("2006-01-02"))
			}
		}
	}
}

func TestMatch_Idempotent(t *testing.T) {
	r := newRoster(record("a", "1990-06-09", ""), record("b", "1991-06-09", ""))
	m := engine.NewMatcher(MockClock{CurrentTime: day(2030, time.June, 9)})

	first := m.MatchToday(r, roster.Birthday)
	second := m.MatchToday(r, roster.Birthday)
	assert.Equal(t, first, second)
	assert.Len(t, first, 2)
}

func TestMatch_RoundTripFromLoaderFormat(t *testing.T) {
	r := newRoster(record("a", "2020-06-09", ""))
	m := engine.NewMatcher(nil)

	assert.Len(t, m.Match(r, roster.Birthday, time.Date(2024, time.June, 9, 0, 0, 0, 0, time.Local)), 1)
	assert.Empty(t, m.Match(r, roster.Birthday, time.Date(2024, time.June, 10, 0, 0, 0, 0, time.Local)))
}

func TestMatch_LeapDay(t *testing.T) {
	r := newRoster(record("leap", "2000-02-29", "--02-29"))
	m := engine.NewMatcher(nil)

	tests := []struct {
		name  string
		today time.Time
		want  bool
	}{
		{"non-leap Feb 28 is observed", day(2023, time.February, 28), true},
		{"non-leap Mar 1 is not", day(2023, time.March, 1), false},
		{"leap Feb 29", day(2024, time.February, 29), true},
		{"leap Feb 28 is not", day(2024, time.February, 28), false},
		{"century non-leap", day(2100, time.February, 28), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, o := range roster.Occasions {
				assert.Equal(t, tt.want, len(m.Match(r, o, tt.today)) == 1, o)
			}
		})
	}
}

func TestMatch_UntypedColumnYieldsNothing(t *testing.T) {
	r := newRoster(
		record("a", "soon", ""),
		record("b", "later", ""),
	)
	require.False(t, r.Columns[roster.Birthday].Typed())

	assert.NotPanics(t, func() {
		assert.Empty(t, engine.NewMatcher(nil).Match(r, roster.Birthday, day(2024, time.June, 9)))
	})
}

func TestMatch_AbsentColumnAndNilRoster(t *testing.T) {
	r := roster.NewRoster()
	r.Records = []roster.EmployeeRecord{record("a", "1990-06-09", "")}
	m := engine.NewMatcher(nil)

	assert.Empty(t, m.Match(r, roster.Birthday, day(2024, time.June, 9)), "column never declared")
	assert.Empty(t, m.Match(nil, roster.Birthday, day(2024, time.June, 9)))
}

func TestObservedDate(t *testing.T) {
	assert.Equal(t, time.Date(2023, time.February, 28, 0, 0, 0, 0, time.UTC), engine.ObservedDate(2023, time.February, 29, time.UTC))
	assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), engine.ObservedDate(2024, time.February, 29, time.UTC))
	assert.Equal(t, time.Date(2023, time.June, 9, 0, 0, 0, 0, time.UTC), engine.ObservedDate(2023, time.June, 9, time.UTC))

	assert.True(t, engine.IsLeap(2000))
	assert.False(t, engine.IsLeap(1900))
	assert.True(t, engine.IsLeap(2024))
	assert.False(t, engine.IsLeap(2023))
}

func TestYears(t *testing.T) {
	tests := []struct {
		name   string
		date   roster.Date
		on     time.Time
		want   int
		wantOK bool
	}{
		{"on the day", roster.NewDate(1990, time.June, 9), day(2024, time.June, 9), 34, true},
		{"day before", roster.NewDate(1990, time.June, 9), day(2024, time.June, 8), 33, true},
		{"leapling observed on 28th", roster.NewDate(2000, time.February, 29), day(2023, time.February, 28), 23, true},
		{"not born yet", roster.NewDate(2030, time.January, 1), day(2024, time.June, 9), 0, false},
		{"first day", roster.NewDate(2024, time.June, 9), day(2024, time.June, 9), 0, true},
		{"unknown year", roster.Date{Year: 2000, Month: time.June, Day: 9}, day(2024, time.June, 9), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := engine.Years(tt.date, tt.on)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}
