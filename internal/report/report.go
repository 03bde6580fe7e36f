// Package report holds the statistics of one run and renders the daily summary.
package report

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"github.com/tartampluch/go-greetings/internal/config"
	"github.com/tartampluch/go-greetings/internal/engine"
	"github.com/tartampluch/go-greetings/internal/roster"
)

// OccasionStats counts what happened to one occasion type.
type OccasionStats struct {
	Matched         int
	Sent            int
	Failed          int
	ImagesGenerated int
	ImagesFailed    int
}

// MatchEntry lists one person celebrated today.
type MatchEntry struct {
	Occasion   roster.Occasion
	RecordID   string
	Name       string
	Email      string
	Department string
	Years      int
	YearKnown  bool
}

// ErrorEntry is a recoverable failure kept for the summary.
type ErrorEntry struct {
	Time     time.Time
	RecordID string
	Occasion roster.Occasion
	Message  string
}

// RunStatistics belongs to exactly one run. The orchestrator creates it,
// every stage updates it and the summary reads it at the end.
type RunStatistics struct {
	RunID string
	Day   time.Time
	Start time.Time
	End   time.Time
	State string

	Birthday    OccasionStats
	Anniversary OccasionStats

	Matches []MatchEntry
	Errors  []ErrorEntry
}

// New returns zeroed statistics for a run on day.
func New(runID string, day, start time.Time) *RunStatistics {
	return &RunStatistics{RunID: runID, Day: day, Start: start}
}

// For returns the counters of occasion o.
func (s *RunStatistics) For(o roster.Occasion) *OccasionStats {
	if o == roster.Anniversary {
		return &s.Anniversary
	}
	return &s.Birthday
}

func (s *RunStatistics) ImagesGenerated() int {
	return s.Birthday.ImagesGenerated + s.Anniversary.ImagesGenerated
}

func (s *RunStatistics) ImagesFailed() int {
	return s.Birthday.ImagesFailed + s.Anniversary.ImagesFailed
}

func (s *RunStatistics) Sent() int {
	return s.Birthday.Sent + s.Anniversary.Sent
}

func (s *RunStatistics) Failed() int {
	return s.Birthday.Failed + s.Anniversary.Failed
}

// Counter names.
const (
	CounterBirthdaySent      = "birthday_emails_sent"
	CounterBirthdayFailed    = "birthday_emails_failed"
	CounterAnniversarySent   = "anniversary_emails_sent"
	CounterAnniversaryFailed = "anniversary_emails_failed"
	CounterImagesGenerated   = "images_generated"
	CounterImagesFailed      = "images_failed"
)

// Counters exposes the flat counter names used in logs and the summary file.
func (s *RunStatistics) Counters() map[string]int {
	return map[string]int{
		CounterBirthdaySent:      s.Birthday.Sent,
		CounterBirthdayFailed:    s.Birthday.Failed,
		CounterAnniversarySent:   s.Anniversary.Sent,
		CounterAnniversaryFailed: s.Anniversary.Failed,
		CounterImagesGenerated:   s.ImagesGenerated(),
		CounterImagesFailed:      s.ImagesFailed(),
	}
}

// AddMatch records a celebrated person.
func (s *RunStatistics) AddMatch(occ engine.Occurrence) {
	s.For(occ.Occasion).Matched++
	s.Matches = append(s.Matches, MatchEntry{
		Occasion:   occ.Occasion,
		RecordID:   occ.Record.ID,
		Name:       occ.Record.FullName(),
		Email:      occ.Record.Email,
		Department: occ.Record.Department,
		Years:      occ.Years,
		YearKnown:  occ.YearKnown,
	})
}

// AddError keeps a recoverable failure. recordID may be empty for run level errors.
func (s *RunStatistics) AddError(at time.Time, recordID string, o roster.Occasion, err error) {
	s.Errors = append(s.Errors, ErrorEntry{Time: at, RecordID: recordID, Occasion: o, Message: err.Error()})
}

// LogValue logs the flat counters.
func (s *RunStatistics) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String(config.LogKeyRunID, s.RunID),
		slog.String(config.LogKeyState, s.State),
		slog.Int(CounterBirthdaySent, s.Birthday.Sent),
		slog.Int(CounterBirthdayFailed, s.Birthday.Failed),
		slog.Int(CounterAnniversarySent, s.Anniversary.Sent),
		slog.Int(CounterAnniversaryFailed, s.Anniversary.Failed),
		slog.Int(CounterImagesGenerated, s.ImagesGenerated()),
		slog.Int(CounterImagesFailed, s.ImagesFailed()),
		slog.Int("errors", len(s.Errors)),
	)
}

const summaryTemplate = `Daily Greetings Report - {{.Day | date}}
================================================================

EXECUTION SUMMARY:
- Run ID: {{.RunID}}
- Start Time: {{.Start | clock}}
- End Time: {{.End | clock}}
- Duration: {{duration .Start .End}}
- State: {{.State}}
{{with .Birthday}}
BIRTHDAY PROCESSING:
- Birthdays Today: {{.Matched}}
- Cards Generated: {{.ImagesGenerated}}
- Cards Failed: {{.ImagesFailed}}
- Emails: {{.Sent}} sent, {{.Failed}} failed
{{end}}{{with .Anniversary}}
ANNIVERSARY PROCESSING:
- Anniversaries Today: {{.Matched}}
- Cards Generated: {{.ImagesGenerated}}
- Cards Failed: {{.ImagesFailed}}
- Emails: {{.Sent}} sent, {{.Failed}} failed
{{end}}
TOTAL SUMMARY:
- Total Cards Generated: {{.ImagesGenerated}}
- Total Emails: {{.Sent}} sent, {{.Failed}} failed
- Total Errors: {{len .Errors}}
{{with matches .Matches "birthday"}}
BIRTHDAYS TODAY:
{{range .}}- {{.Name}} ({{.Email}}){{with .Department}} - {{.}}{{end}}{{if .YearKnown}} - Age: {{.Years}}{{end}}
{{end}}{{end}}{{with matches .Matches "anniversary"}}
ANNIVERSARIES TODAY:
{{range .}}- {{.Name}} ({{.Email}}){{with .Department}} - {{.}}{{end}}{{if .YearKnown}} - {{.Years}} years{{end}}
{{end}}{{end}}{{with .Errors}}
ERRORS ENCOUNTERED ({{len .}}):
{{range $i, $e := .}}{{inc $i}}. {{$e.Time | clock}}{{with $e.Occasion}} [{{.}}]{{end}}{{with $e.RecordID}} {{.}}{{end}} - {{$e.Message}}
{{end}}{{end}}`

var summaryTmpl = template.Must(template.New("summary").Funcs(template.FuncMap{
	"date":  func(t time.Time) string { return t.Format(config.DateFormatReport) },
	"clock": func(t time.Time) string { return t.Format(config.TimeFormatClock) },
	"duration": func(start, end time.Time) string {
		if end.Before(start) {
			return "0s"
		}
		return end.Sub(start).Round(time.Millisecond).String()
	},
	"inc": func(i int) int { return i + 1 },
	"matches": func(all []MatchEntry, occasion string) []MatchEntry {
		var out []MatchEntry
		for _, m := range all {
			if string(m.Occasion) == occasion {
				out = append(out, m)
			}
		}
		return out
	},
}).Parse(summaryTemplate))

// BuildSummary renders the plain text daily report.
func BuildSummary(s *RunStatistics) (string, error) {
	var buf bytes.Buffer
	if err := summaryTmpl.Execute(&buf, s); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrReportBuild, err)
	}
	return buf.String(), nil
}

// FileName is the summary file name for the run's day.
func (s *RunStatistics) FileName() string {
	return fmt.Sprintf(config.FormatReportFile, s.Day.Format(config.DateFormatStamp))
}

// WriteSummary renders the summary and stores it in dir. It returns the path
// and the rendered text.
func WriteSummary(dir string, s *RunStatistics) (string, string, error) {
	text, err := BuildSummary(s)
	if err != nil {
		return "", "", err
	}
	if err := os.MkdirAll(dir, config.DirPermUserRWX); err != nil {
		return "", "", fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}
	path := filepath.Join(dir, s.FileName())
	if err := os.WriteFile(path, []byte(text), config.FilePermUserRW); err != nil {
		return "", "", fmt.Errorf("%s: %w", config.ErrReportWrite, err)
	}

	slog.Info(config.MsgSummaryWritten,
		config.LogKeyComponent, config.CompReport,
		config.LogKeyFile, path,
		config.LogKeyStats, s,
	)
	return path, text, nil
}
