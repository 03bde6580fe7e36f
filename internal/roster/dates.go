package roster

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/tartampluch/go-greetings/internal/config"
)

// ParseDate converts a roster cell into an OptionalDate.
// Empty cells and sentinels such as "NA" are unset without error.
// Text that matches no layout yields an invalid date and a *config.ParseError.
func ParseDate(field, raw string) (OptionalDate, error) {
	value := strings.TrimSpace(raw)
	if slices.Contains(config.DateSentinels, strings.ToLower(value)) {
		return UnsetDate(), nil
	}

	for _, layout := range config.DateLayoutsWithYear {
		if t, err := time.Parse(layout, value); err == nil {
			return ValidDate(NewDate(t.Year(), t.Month(), t.Day())), nil
		}
	}

	// Truncated vCard dates carry no year; the leap year keeps --02-29 valid.
	for _, layout := range config.DateLayoutsNoYear {
		if t, err := time.Parse(layout, value); err == nil {
			return ValidDate(Date{
				Year:  config.DefaultLeapYear,
				Month: t.Month(),
				Day:   t.Day(),
			}), nil
		}
	}

	return InvalidDate(value), &config.ParseError{
		Field: field,
		Value: value,
		Cause: errors.New(config.ErrDateParse),
	}
}
