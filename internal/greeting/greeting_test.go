package greeting_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-greetings/internal/config"
	"github.com/tartampluch/go-greetings/internal/engine"
	"github.com/tartampluch/go-greetings/internal/greeting"
	"github.com/tartampluch/go-greetings/internal/roster"
)

var ada = roster.EmployeeRecord{ID: "1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}

// TestLocaleIntegrity ensures every translation key used in code exists in every locale file.
func TestLocaleIntegrity(t *testing.T) {
	keys := []string{
		config.TKeyCardBirthday,
		config.TKeyCardAnniversary,
		config.TKeySubjectBirthday,
		config.TKeySubjectAnniversary,
		config.TKeyHeadingBirthday,
		config.TKeyHeadingAnniversary,
		config.TKeyBodyBirthday,
		config.TKeyBodyAnniversary,
		config.TKeyBodyAnniversaryYrs,
		config.TKeyBodyClosing,
		config.TKeySalutation,
		config.TKeySignature,
		config.TKeyEvtBirthday,
		config.TKeyEvtBirthdayAge,
		config.TKeyEvtAnniversary,
		config.TKeyEvtAnniversaryYrs,
		config.TKeySubjectReport,
		config.TKeyBodyReport,
		config.TKeySubjectTest,
		config.TKeyBodyTest,
	}

	for _, lang := range config.SupportedLanguages {
		t.Run(lang, func(t *testing.T) {
			content, err := os.ReadFile(filepath.Join("locales", "active."+lang+".json"))
			require.NoError(t, err)

			var messages map[string]any
			require.NoError(t, json.Unmarshal(content, &messages), "JSON must be valid")

			for _, k := range keys {
				assert.Containsf(t, messages, k, "key %q missing in %s", k, lang)
			}
			for k := range messages {
				assert.Containsf(t, keys, k, "orphan key %q in %s", k, lang)
			}
		})
	}
}

func TestNew_LanguageSelection(t *testing.T) {
	assert.ElementsMatch(t, config.SupportedLanguages, greeting.New("en").Languages())

	tests := []struct {
		in   string
		want string
	}{
		{"en", "en"},
		{"fr", "fr"},
		{"fr-CA", "fr"},
		{"de", "en"},
		{"", "en"},
		{"not a tag!", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, greeting.New(tt.in).Lang())
		})
	}
}

func TestCardLines(t *testing.T) {
	en := greeting.New("en")
	assert.Equal(t, []string{"Happy Birthday Ada"}, en.CardLines(roster.Birthday, ada))
	assert.Equal(t, []string{"Happy Anniversary", "Ada"}, en.CardLines(roster.Anniversary, ada))

	fr := greeting.New("fr")
	assert.Equal(t, []string{"Joyeux anniversaire Ada"}, fr.CardLines(roster.Birthday, ada))
}

func TestSubject(t *testing.T) {
	en := greeting.New("en")
	assert.Contains(t, en.Subject(roster.Birthday, ada), "Happy Birthday, Ada!")
	assert.Contains(t, en.Subject(roster.Anniversary, ada), "Happy Work Anniversary, Ada!")
}

func TestLetter(t *testing.T) {
	en := greeting.New("en")

	bday := en.Letter(engine.Occurrence{Record: ada, Occasion: roster.Birthday, Years: 35, YearKnown: true})
	assert.Equal(t, "Happy Birthday, Ada!", bday.Heading)
	assert.Equal(t, "Dear Ada,", bday.Salutation)
	assert.Len(t, bday.Paragraphs, 2)
	assert.NotEmpty(t, bday.Signature)

	one := en.Letter(engine.Occurrence{Record: ada, Occasion: roster.Anniversary, Years: 1, YearKnown: true})
	assert.Equal(t, "Congratulations on completing 1 wonderful year with us!", one.Paragraphs[0])

	many := en.Letter(engine.Occurrence{Record: ada, Occasion: roster.Anniversary, Years: 10, YearKnown: true})
	assert.Equal(t, "Congratulations on completing 10 wonderful years with us!", many.Paragraphs[0])

	unknown := en.Letter(engine.Occurrence{Record: ada, Occasion: roster.Anniversary})
	assert.Len(t, unknown.Paragraphs, 2, "no year count without a start year")
}

func TestEventSummary(t *testing.T) {
	en := greeting.New("en")

	tests := []struct {
		name string
		occ  engine.Occurrence
		want string
	}{
		{"birthday with age", engine.Occurrence{Record: ada, Occasion: roster.Birthday, Years: 36, YearKnown: true}, "Ada Lovelace turns 36"},
		{"birthday no year", engine.Occurrence{Record: ada, Occasion: roster.Birthday}, "Ada Lovelace's birthday"},
		{"anniversary one year", engine.Occurrence{Record: ada, Occasion: roster.Anniversary, Years: 1, YearKnown: true}, "Ada Lovelace: 1 year with us"},
		{"anniversary years", engine.Occurrence{Record: ada, Occasion: roster.Anniversary, Years: 5, YearKnown: true}, "Ada Lovelace: 5 years with us"},
		{"anniversary first day", engine.Occurrence{Record: ada, Occasion: roster.Anniversary, Years: 0, YearKnown: true}, "Ada Lovelace's work anniversary"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, en.EventSummary(tt.occ))
		})
	}
}

func TestReportSubject(t *testing.T) {
	day := time.Date(2025, time.March, 4, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, "Daily Greetings Report - March 4, 2025", greeting.New("en").ReportSubject(day))
	assert.NotEmpty(t, greeting.New("fr").ReportBody())
	assert.NotEmpty(t, greeting.New("en").TestSubject())
}
