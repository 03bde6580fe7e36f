package report_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-greetings/internal/config"
	"github.com/tartampluch/go-greetings/internal/engine"
	"github.com/tartampluch/go-greetings/internal/report"
	"github.com/tartampluch/go-greetings/internal/roster"
)

var (
	day   = time.Date(2025, time.March, 4, 0, 0, 0, 0, time.UTC)
	start = time.Date(2025, time.March, 4, 8, 0, 0, 0, time.UTC)
)

func occurrence(id, first string, o roster.Occasion, years int) engine.Occurrence {
	return engine.Occurrence{
		Record: roster.EmployeeRecord{
			ID: id, FirstName: first, LastName: "Doe",
			Email: first + "@example.com", Department: "Engineering",
		},
		Occasion:  o,
		Date:      day,
		Years:     years,
		YearKnown: years > 0,
	}
}

func TestRunStatistics_Counters(t *testing.T) {
	s := report.New("run-1", day, start)
	s.For(roster.Birthday).Sent = 2
	s.For(roster.Birthday).Failed = 1
	s.For(roster.Birthday).ImagesGenerated = 3
	s.For(roster.Anniversary).Sent = 1
	s.For(roster.Anniversary).ImagesFailed = 2

	assert.Equal(t, map[string]int{
		report.CounterBirthdaySent:      2,
		report.CounterBirthdayFailed:    1,
		report.CounterAnniversarySent:   1,
		report.CounterAnniversaryFailed: 0,
		report.CounterImagesGenerated:   3,
		report.CounterImagesFailed:      2,
	}, s.Counters())
	assert.Equal(t, 3, s.Sent())
	assert.Equal(t, 1, s.Failed())
}

func TestRunStatistics_FreshPerRun(t *testing.T) {
	a := report.New("run-a", day, start)
	a.For(roster.Birthday).Sent++
	a.AddError(start, "1", roster.Birthday, errors.New("boom"))

	b := report.New("run-b", day, start)
	assert.Zero(t, b.Sent())
	assert.Empty(t, b.Errors)
}

func TestBuildSummary(t *testing.T) {
	s := report.New("run-42", day, start)
	s.End = start.Add(1500 * time.Millisecond)
	s.State = "Done"

	s.AddMatch(occurrence("1", "John", roster.Birthday, 40))
	s.For(roster.Birthday).ImagesGenerated = 1
	s.For(roster.Birthday).Sent = 1

	s.AddMatch(occurrence("2", "Jane", roster.Anniversary, 5))
	s.For(roster.Anniversary).ImagesFailed = 1
	s.AddError(start.Add(time.Second), "2", roster.Anniversary, &config.AssetNotFoundError{Kind: config.AssetTemplate, Path: "anniv.png"})

	text, err := report.BuildSummary(s)
	require.NoError(t, err)

	assert.Contains(t, text, "Daily Greetings Report - March 4, 2025")
	assert.Contains(t, text, "- Run ID: run-42")
	assert.Contains(t, text, "- Start Time: 08:00:00")
	assert.Contains(t, text, "- Duration: 1.5s")
	assert.Contains(t, text, "- State: Done")
	assert.Contains(t, text, "BIRTHDAY PROCESSING:\n- Birthdays Today: 1\n- Cards Generated: 1\n- Cards Failed: 0\n- Emails: 1 sent, 0 failed")
	assert.Contains(t, text, "ANNIVERSARY PROCESSING:\n- Anniversaries Today: 1\n- Cards Generated: 0\n- Cards Failed: 1\n- Emails: 0 sent, 0 failed")
	assert.Contains(t, text, "- Total Emails: 1 sent, 0 failed")
	assert.Contains(t, text, "- Total Errors: 1")
	assert.Contains(t, text, "BIRTHDAYS TODAY:\n- John Doe (John@example.com) - Engineering - Age: 40\n")
	assert.Contains(t, text, "ANNIVERSARIES TODAY:\n- Jane Doe (Jane@example.com) - Engineering - 5 years\n")
	assert.Contains(t, text, "ERRORS ENCOUNTERED (1):\n1. 08:00:01 [anniversary] 2 - template asset unavailable: anniv.png")
}

func TestBuildSummary_Empty(t *testing.T) {
	s := report.New("run-0", day, start)
	s.End = start

	text, err := report.BuildSummary(s)
	require.NoError(t, err)
	assert.Contains(t, text, "- Emails: 0 sent, 0 failed")
	assert.NotContains(t, text, "BIRTHDAYS TODAY")
	assert.NotContains(t, text, "ERRORS ENCOUNTERED")
}

func TestWriteSummary(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s := report.New("run-1", day, start)

	path, text, err := report.WriteSummary(dir, s)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "daily_report_20250304.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, text, string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, config.FilePermUserRW, info.Mode().Perm())
}
