package roster

import (
	"fmt"
	"strings"
	"time"

	"github.com/tartampluch/go-greetings/internal/config"
)

// Occasion is a recurring annual event tracked per employee.
type Occasion string

const (
	Birthday    Occasion = config.OccasionBirthday
	Anniversary Occasion = config.OccasionAnniversary
)

// Occasions lists the occasion types in processing order.
var Occasions = []Occasion{Birthday, Anniversary}

// Date is a calendar date without time of day.
// When YearKnown is false, Year holds config.DefaultLeapYear.
type Date struct {
	Year      int
	Month     time.Month
	Day       int
	YearKnown bool
}

// NewDate builds a Date with a known year.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day, YearKnown: true}
}

// In returns midnight of the date in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) String() string {
	if !d.YearKnown {
		return fmt.Sprintf("--%02d-%02d", int(d.Month), d.Day)
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// DateState tells whether an OptionalDate carries a usable value.
type DateState int

const (
	DateUnset   DateState = iota // empty cell or sentinel such as "NA"
	DateValid                    // parsed successfully
	DateInvalid                  // present but unparseable
)

func (s DateState) String() string {
	switch s {
	case DateValid:
		return "valid"
	case DateInvalid:
		return "invalid"
	default:
		return "unset"
	}
}

// OptionalDate is either a Date or nothing. Only valid dates take part in matching.
type OptionalDate struct {
	state DateState
	value Date
	raw   string
}

// ValidDate wraps a parsed date.
func ValidDate(d Date) OptionalDate {
	return OptionalDate{state: DateValid, value: d, raw: d.String()}
}

// UnsetDate is the "no date" value.
func UnsetDate() OptionalDate {
	return OptionalDate{state: DateUnset}
}

// InvalidDate keeps the raw text that failed to parse.
func InvalidDate(raw string) OptionalDate {
	return OptionalDate{state: DateInvalid, raw: raw}
}

// Get returns the date and true only when the value is valid.
func (o OptionalDate) Get() (Date, bool) {
	if o.state != DateValid {
		return Date{}, false
	}
	return o.value, true
}

func (o OptionalDate) State() DateState { return o.state }

func (o OptionalDate) Raw() string { return o.raw }

// EmployeeRecord is one roster row.
type EmployeeRecord struct {
	ID              string
	FirstName       string `validate:"required"`
	LastName        string `validate:"required"`
	Email           string `validate:"required,mailbox"`
	BirthDate       OptionalDate
	AnniversaryDate OptionalDate
	Department      string
}

// FullName joins first and last name.
func (r EmployeeRecord) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// DateFor returns the date tracked for the given occasion.
func (r EmployeeRecord) DateFor(o Occasion) OptionalDate {
	switch o {
	case Birthday:
		return r.BirthDate
	case Anniversary:
		return r.AnniversaryDate
	default:
		return UnsetDate()
	}
}

// ColumnStats summarizes how a date column parsed across the whole load.
type ColumnStats struct {
	Present bool
	Valid   int
	Invalid int
	Unset   int
}

// Typed reports whether the column produced at least one real date.
// A column that never parsed is treated as holding no dates at all.
func (c ColumnStats) Typed() bool {
	return c.Present && c.Valid > 0
}

func (c *ColumnStats) count(d OptionalDate) {
	switch d.State() {
	case DateValid:
		c.Valid++
	case DateInvalid:
		c.Invalid++
	default:
		c.Unset++
	}
}

// Roster is the result of one load, records kept in source order.
type Roster struct {
	Records []EmployeeRecord
	Columns map[Occasion]ColumnStats
	Skipped int
}

// NewRoster returns an empty roster with no date columns.
func NewRoster() *Roster {
	return &Roster{Columns: make(map[Occasion]ColumnStats)}
}
