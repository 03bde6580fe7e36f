// Package greeting holds the localized wording of cards, emails and calendar events.
package greeting

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/tartampluch/go-greetings/internal/config"
	"github.com/tartampluch/go-greetings/internal/engine"
	"github.com/tartampluch/go-greetings/internal/roster"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Texts localizes every user-facing string for one language.
type Texts struct {
	lang      string
	languages []string
	localizer *i18n.Localizer
}

// New loads the embedded locales and selects lang, falling back to English
// for unknown languages and missing keys.
func New(lang string) *Texts {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc(config.LocaleFormat, json.Unmarshal)

	t := &Texts{languages: loadLocales(bundle)}

	t.lang = config.LocaleDefault
	if tag, err := language.Parse(lang); err == nil {
		base, _ := tag.Base()
		if slices.Contains(t.languages, base.String()) {
			t.lang = base.String()
		}
	}
	t.localizer = i18n.NewLocalizer(bundle, t.lang, config.LocaleDefault)
	return t
}

// loadLocales registers every active.<lang>.json file and returns the languages found.
func loadLocales(bundle *i18n.Bundle) []string {
	entries, err := localeFS.ReadDir(config.LocalesDir)
	if err != nil {
		slog.Error(config.ErrLocalesAccess,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyError, err,
		)
		return nil
	}

	var langs []string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, config.LocalePrefix) || !strings.HasSuffix(name, config.LocaleSuffix) {
			slog.Debug(config.MsgLocaleSkip,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		code := strings.TrimSuffix(strings.TrimPrefix(name, config.LocalePrefix), config.LocaleSuffix)
		if code == "" {
			slog.Warn(config.MsgLocaleBadName,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		if _, err := bundle.LoadMessageFileFS(localeFS, config.LocalesDir+"/"+name); err != nil {
			slog.Error(config.ErrLocaleLoad,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
				config.LogKeyError, err,
			)
			continue
		}
		langs = append(langs, code)
		slog.Debug(config.MsgLocaleLoaded,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyLang, code,
		)
	}
	return langs
}

// Lang is the language actually in use.
func (t *Texts) Lang() string { return t.lang }

// Languages lists the embedded locales.
func (t *Texts) Languages() []string { return t.languages }

// msg translates key. It returns fallback (or the key) when no locale has it.
func (t *Texts) msg(key string, data map[string]any, count any, fallback string) string {
	out, err := t.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
		PluralCount:  count,
	})
	if err != nil || out == "" {
		slog.Debug(config.MsgTransMissing,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyKey, key,
			config.LogKeyError, err,
		)
		if fallback != "" {
			return fallback
		}
		return key
	}
	return out
}

func firstName(rec roster.EmployeeRecord) map[string]any {
	return map[string]any{config.TDataFirstName: rec.FirstName}
}

// CardLines returns the text drawn on the card, one entry per line.
func (t *Texts) CardLines(o roster.Occasion, rec roster.EmployeeRecord) []string {
	key := config.TKeyCardBirthday
	if o == roster.Anniversary {
		key = config.TKeyCardAnniversary
	}
	text := t.msg(key, firstName(rec), nil, fmt.Sprintf(config.FallbackCardLine, o, rec.FirstName))
	return strings.Split(text, config.LineBreak)
}

// Subject is the greeting email subject.
func (t *Texts) Subject(o roster.Occasion, rec roster.EmployeeRecord) string {
	key := config.TKeySubjectBirthday
	if o == roster.Anniversary {
		key = config.TKeySubjectAnniversary
	}
	return t.msg(key, firstName(rec), nil, fmt.Sprintf(config.FallbackSubject, o, rec.FirstName))
}

// Letter is the localized content of a greeting email body.
type Letter struct {
	Heading    string
	Salutation string
	Paragraphs []string
	Signature  string
}

// Letter assembles the body paragraphs. years is only mentioned for
// anniversaries with a known start year.
func (t *Texts) Letter(occ engine.Occurrence) Letter {
	rec := occ.Record
	l := Letter{
		Salutation: t.msg(config.TKeySalutation, firstName(rec), nil, ""),
		Signature:  t.msg(config.TKeySignature, nil, nil, ""),
	}

	switch occ.Occasion {
	case roster.Anniversary:
		l.Heading = t.msg(config.TKeyHeadingAnniversary, firstName(rec), nil, "")
		if occ.YearKnown && occ.Years > 0 {
			l.Paragraphs = append(l.Paragraphs, t.msg(config.TKeyBodyAnniversaryYrs,
				map[string]any{config.TDataYears: occ.Years}, occ.Years, ""))
		}
		l.Paragraphs = append(l.Paragraphs, t.msg(config.TKeyBodyAnniversary, nil, nil, ""))
	default:
		l.Heading = t.msg(config.TKeyHeadingBirthday, firstName(rec), nil, "")
		l.Paragraphs = append(l.Paragraphs, t.msg(config.TKeyBodyBirthday, nil, nil, ""))
	}
	l.Paragraphs = append(l.Paragraphs, t.msg(config.TKeyBodyClosing, nil, nil, ""))
	return l
}

// EventSummary titles a calendar event. It plugs into engine.CalendarBuilder.Summary.
func (t *Texts) EventSummary(occ engine.Occurrence) string {
	data := map[string]any{
		config.TDataName:  occ.Record.FullName(),
		config.TDataYears: occ.Years,
	}
	fallback := engine.DefaultSummary(occ)

	withYears := occ.YearKnown && occ.Years > 0
	switch {
	case occ.Occasion == roster.Anniversary && withYears:
		return t.msg(config.TKeyEvtAnniversaryYrs, data, occ.Years, fallback)
	case occ.Occasion == roster.Anniversary:
		return t.msg(config.TKeyEvtAnniversary, data, nil, fallback)
	case withYears:
		return t.msg(config.TKeyEvtBirthdayAge, data, nil, fallback)
	default:
		return t.msg(config.TKeyEvtBirthday, data, nil, fallback)
	}
}

// ReportSubject titles the summary email for day.
func (t *Texts) ReportSubject(day time.Time) string {
	date := day.Format(config.DateFormatReport)
	return t.msg(config.TKeySubjectReport, map[string]any{config.TDataDate: date}, nil, date)
}

func (t *Texts) ReportBody() string {
	return t.msg(config.TKeyBodyReport, nil, nil, "")
}

func (t *Texts) TestSubject() string {
	return t.msg(config.TKeySubjectTest, nil, nil, config.AppName)
}

func (t *Texts) TestBody() string {
	return t.msg(config.TKeyBodyTest, nil, nil, "")
}
