package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-greetings/internal/config"
	"github.com/tartampluch/go-greetings/internal/engine"
	"github.com/zalando/go-keyring"
)

const rosterCSV = `first_name,last_name,email,birthday,anniversary,department
Ada,Lovelace,ada@example.com,1985-03-04,,Engineering
Alan,Turing,alan@example.com,1990-07-01,2018-03-04,Research
Grace,Hopper,grace@example.com,1970-03-09,,Engineering
`

func writeRoster(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "employees.csv")
	require.NoError(t, os.WriteFile(path, []byte(rosterCSV), 0o600))
	return path
}

func TestVersionCommand(t *testing.T) {
	a := &app{}
	root := a.rootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{config.CmdVersion})

	require.NoError(t, root.Execute())
	assert.True(t, strings.HasPrefix(out.String(), config.AppName+" version "+config.Version))
	assert.Nil(t, a.settings)
}

func TestClockFor(t *testing.T) {
	c, err := clockFor("")
	require.NoError(t, err)
	assert.IsType(t, engine.RealClock{}, c)

	c, err = clockFor("2025-03-04")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-04", c.Now().Format(config.DateFormatFullDash))

	_, err = clockFor("04/03/2025")
	assert.Equal(t, config.ExitCodeConfig, config.ExitCode(err))
}

func TestRunMain_DryRun(t *testing.T) {
	keyring.MockInit()
	out := t.TempDir()

	code := runMain([]string{
		config.CmdRun,
		"--" + config.FlagDryRun,
		"--" + config.FlagDate, "2025-03-04",
		"--" + config.FlagRoster, writeRoster(t),
		"--" + config.FlagOutput, out,
	})
	require.Equal(t, config.ExitCodeSuccess, code)

	entries, err := os.ReadDir(filepath.Join(out, config.OutboxDirName))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"0001_ada-example-com.eml", "0002_alan-example-com.eml"}, names)

	assert.FileExists(t, filepath.Join(out, "daily_report_20250304.txt"))
	assert.FileExists(t, filepath.Join(out, config.LogDirName, config.LogFileName))
}

func TestRunMain_ExitCodes(t *testing.T) {
	keyring.MockInit()

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"bad date", []string{config.CmdRun, "--" + config.FlagDate, "tomorrow", "--" + config.FlagOutput, t.TempDir()}, config.ExitCodeConfig},
		{"missing roster", []string{config.CmdUpcoming, "--" + config.FlagOutput, t.TempDir()}, config.ExitCodeConfig},
		{"missing config file", []string{config.CmdRun, "--" + config.FlagConfig, "/does/not/exist.yaml"}, config.ExitCodeConfig},
		{"unknown command", []string{"launch"}, config.ExitCodeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, runMain(tt.args))
		})
	}
}

func TestUpcoming(t *testing.T) {
	a := &app{settings: &config.Settings{
		RosterPath:   writeRoster(t),
		Language:     config.DefaultLanguage,
		UpcomingDays: 7,
	}}
	ics := filepath.Join(t.TempDir(), "upcoming.ics")
	clock := engine.FixedClock{At: time.Date(2025, 3, 3, 8, 0, 0, 0, time.Local)}

	var out bytes.Buffer
	require.NoError(t, a.upcoming(context.Background(), &out, clock, ics))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "2025-03-04  birthday     Ada Lovelace"))
	assert.True(t, strings.HasSuffix(lines[0], "40"))
	assert.True(t, strings.HasPrefix(lines[1], "2025-03-04  anniversary  Alan Turing"))
	assert.True(t, strings.HasSuffix(lines[1], "7"))
	assert.True(t, strings.HasPrefix(lines[2], "2025-03-09  birthday     Grace Hopper"))

	data, err := os.ReadFile(ics)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(data), "BEGIN:VEVENT"))
}
