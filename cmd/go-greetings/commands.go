package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/tartampluch/go-greetings/internal/config"
	"github.com/tartampluch/go-greetings/internal/engine"
	"github.com/tartampluch/go-greetings/internal/greeting"
	"github.com/tartampluch/go-greetings/internal/mail"
	"github.com/tartampluch/go-greetings/internal/pipeline"
	"github.com/tartampluch/go-greetings/internal/report"
	"github.com/tartampluch/go-greetings/internal/roster"
	"github.com/tartampluch/go-greetings/internal/server"
)

func (a *app) runCommand() *cobra.Command {
	var date string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   config.CmdRun,
		Short: config.ShortRun,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			clock, err := clockFor(date)
			if err != nil {
				return err
			}
			stats, err := a.run(cmd.Context(), clock, dryRun)
			if stats != nil {
				printStats(cmd.OutOrStdout(), stats)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&date, config.FlagDate, "", config.FlagDescDate)
	cmd.Flags().BoolVar(&dryRun, config.FlagDryRun, false, config.FlagDescDryRun)
	return cmd
}

func (a *app) run(ctx context.Context, clock engine.Clock, dryRun bool) (*report.RunStatistics, error) {
	s := a.settings
	if dryRun {
		s.Transport = config.TransportPickup
	}
	t, err := mail.NewTransport(s, dryRun)
	if err != nil {
		return nil, err
	}
	o := &pipeline.Orchestrator{
		Settings:  s,
		Loader:    roster.NewLoader(roster.NewHTTPFetcher()),
		Matcher:   engine.NewMatcher(clock),
		Transport: t,
		Texts:     greeting.New(s.Language),
		Clock:     clock,
	}
	return o.Run(ctx)
}

// clockFor pins the clock to the given YYYY-MM-DD day, keeping the current
// time of day. An empty value means the real clock.
func clockFor(date string) (engine.Clock, error) {
	if date == "" {
		return engine.RealClock{}, nil
	}
	d, err := time.ParseInLocation(config.DateFormatFullDash, date, time.Local)
	if err != nil {
		return nil, &config.ConfigurationError{
			Message: config.ErrDateFlag,
			Fields:  []string{config.FlagDate},
			Cause:   &config.ParseError{Field: config.FlagDate, Value: date, Cause: err},
		}
	}
	now := time.Now()
	at := time.Date(d.Year(), d.Month(), d.Day(), now.Hour(), now.Minute(), now.Second(), 0, time.Local)
	return engine.FixedClock{At: at}, nil
}

func printStats(w io.Writer, s *report.RunStatistics) {
	_, _ = fmt.Fprintf(w, config.FormatRunResult, s.RunID, s.State, s.Sent(), s.Failed(), s.ImagesFailed())
}

func (a *app) upcomingCommand() *cobra.Command {
	var icsPath string

	cmd := &cobra.Command{
		Use:   config.CmdUpcoming,
		Short: config.ShortUpcoming,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.upcoming(cmd.Context(), cmd.OutOrStdout(), engine.RealClock{}, icsPath)
		},
	}
	cmd.Flags().Int(config.FlagDays, config.DefaultUpcomingDays, config.FlagDescDays)
	cmd.Flags().StringVar(&icsPath, config.FlagICS, "", config.FlagDescICS)
	return cmd
}

func (a *app) upcoming(ctx context.Context, w io.Writer, clock engine.Clock, icsPath string) error {
	s := a.settings
	if err := s.RequireRoster(); err != nil {
		return err
	}
	r, err := roster.NewLoader(roster.NewHTTPFetcher()).Load(ctx, rosterSource(s))
	if err != nil {
		return err
	}

	texts := greeting.New(s.Language)
	occ := engine.Upcoming(r, clock.Now(), s.UpcomingDays)
	for _, o := range occ {
		years := ""
		if o.YearKnown {
			years = fmt.Sprintf(config.FormatYears, o.Years)
		}
		_, _ = fmt.Fprintf(w, config.FormatUpcoming,
			o.Date.Format(config.DateFormatFullDash),
			string(o.Occasion),
			o.Record.FullName(),
			years,
		)
	}

	if icsPath == "" {
		return nil
	}
	b := &engine.CalendarBuilder{Clock: clock, Summary: texts.EventSummary}
	data, err := b.Encode(occ)
	if err != nil {
		return err
	}
	if err := os.WriteFile(icsPath, data, config.FilePermUserRW); err != nil {
		return fmt.Errorf("%s: %w", config.ErrCalendarWrite, err)
	}
	return nil
}

func (a *app) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   config.CmdServe,
		Short: config.ShortServe,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().String(config.FlagPort, config.DefaultFeedPort, config.FlagDescPort)
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	s := a.settings
	if err := s.RequireRoster(); err != nil {
		return err
	}
	texts := greeting.New(s.Language)
	feed := &server.RosterFeed{
		Loader:  roster.NewLoader(roster.NewHTTPFetcher()),
		Source:  rosterSource(s),
		Builder: &engine.CalendarBuilder{Summary: texts.EventSummary},
	}
	return server.NewCalendarServer(s.FeedPort, feed).Start(ctx)
}

func (a *app) checkCommand() *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:   config.CmdCheck,
		Short: config.ShortCheck,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.check(cmd.Context(), to)
		},
	}
	cmd.Flags().StringVar(&to, config.FlagSendTest, "", config.FlagDescSendTest)
	return cmd
}

func (a *app) check(ctx context.Context, to string) error {
	s := a.settings
	if err := s.Validate(); err != nil {
		return err
	}
	t, err := mail.NewTransport(s, false)
	if err != nil {
		return err
	}
	if to == "" {
		return mail.CheckConnection(ctx, t)
	}
	return mail.SendTest(ctx, t, mail.NewComposer(s, greeting.New(s.Language)), to)
}

func rosterSource(s *config.Settings) roster.Source {
	return roster.Source{Path: s.RosterPath, User: s.RosterUser, Pass: s.RosterPassword}
}
