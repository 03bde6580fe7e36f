package roster_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-greetings/internal/config"
	"github.com/tartampluch/go-greetings/internal/roster"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantState roster.DateState
		want      roster.Date
	}{
		{"iso", "1990-05-15", roster.DateValid, roster.NewDate(1990, time.May, 15)},
		{"iso unpadded", "1990-5-7", roster.DateValid, roster.NewDate(1990, time.May, 7)},
		{"day first", "15/05/1990", roster.DateValid, roster.NewDate(1990, time.May, 15)},
		{"ambiguous slash is day first", "03/04/2001", roster.DateValid, roster.NewDate(2001, time.April, 3)},
		{"month first fallback", "12/25/1985", roster.DateValid, roster.NewDate(1985, time.December, 25)},
		{"dotted", "1.2.1999", roster.DateValid, roster.NewDate(1999, time.February, 1)},
		{"basic", "19900515", roster.DateValid, roster.NewDate(1990, time.May, 15)},
		{"datetime", "2015-09-01 00:00:00", roster.DateValid, roster.NewDate(2015, time.September, 1)},
		{"long", "June 9, 2020", roster.DateValid, roster.NewDate(2020, time.June, 9)},
		{"surrounding spaces", "  2020-06-09 ", roster.DateValid, roster.NewDate(2020, time.June, 9)},
		{"vcard no year", "--02-29", roster.DateValid, roster.Date{Year: config.DefaultLeapYear, Month: time.February, Day: 29}},
		{"vcard basic no year", "--1224", roster.DateValid, roster.Date{Year: config.DefaultLeapYear, Month: time.December, Day: 24}},
		{"empty", "", roster.DateUnset, roster.Date{}},
		{"NA sentinel", "NA", roster.DateUnset, roster.Date{}},
		{"n/a sentinel", "n/a", roster.DateUnset, roster.Date{}},
		{"garbage", "next tuesday", roster.DateInvalid, roster.Date{}},
		{"impossible day", "2021-02-30", roster.DateInvalid, roster.Date{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := roster.ParseDate(config.OccasionBirthday, tt.raw)
			assert.Equal(t, tt.wantState, got.State())

			if tt.wantState == roster.DateInvalid {
				var pe *config.ParseError
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, config.OccasionBirthday, pe.Field)
				return
			}
			require.NoError(t, err)

			d, ok := got.Get()
			assert.Equal(t, tt.wantState == roster.DateValid, ok)
			assert.Equal(t, tt.want, d)
		})
	}
}

func TestDate_String(t *testing.T) {
	assert.Equal(t, "2020-06-09", roster.NewDate(2020, time.June, 9).String())
	assert.Equal(t, "--02-29", roster.Date{Year: 2000, Month: time.February, Day: 29}.String())
}

func TestOptionalDate_InvalidKeepsRaw(t *testing.T) {
	d := roster.InvalidDate("31/31/2020")
	_, ok := d.Get()
	assert.False(t, ok)
	assert.Equal(t, "31/31/2020", d.Raw())
	assert.Equal(t, "invalid", d.State().String())
}

func TestColumnStats_Typed(t *testing.T) {
	assert.False(t, roster.ColumnStats{}.Typed())
	assert.False(t, roster.ColumnStats{Present: true, Invalid: 3}.Typed())
	assert.True(t, roster.ColumnStats{Present: true, Valid: 1, Invalid: 3}.Typed())
}
