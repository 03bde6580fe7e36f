package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/tartampluch/go-greetings/internal/config"
	"github.com/tartampluch/go-greetings/internal/engine"
	"github.com/tartampluch/go-greetings/internal/greeting"
	"github.com/tartampluch/go-greetings/internal/mail"
	"github.com/tartampluch/go-greetings/internal/render"
	"github.com/tartampluch/go-greetings/internal/report"
	"github.com/tartampluch/go-greetings/internal/roster"
)

// RecordLoader loads the roster. *roster.Loader satisfies it.
type RecordLoader interface {
	Load(ctx context.Context, src roster.Source) (*roster.Roster, error)
}

// Orchestrator wires the stages of a run. It holds no per-run state and may
// run several times; each Run gets fresh statistics.
type Orchestrator struct {
	Settings  *config.Settings
	Loader    RecordLoader
	Matcher   *engine.Matcher
	Transport mail.Transport
	Texts     *greeting.Texts
	Clock     engine.Clock

	// NewRunID defaults to a random UUID.
	NewRunID func() string
}

// rendered is a card waiting to be sent.
type rendered struct {
	occ  engine.Occurrence
	card *render.Card
}

// run is the state of a single invocation.
type run struct {
	o       *Orchestrator
	clock   engine.Clock
	texts   *greeting.Texts
	today   time.Time
	state   State
	stats   *report.RunStatistics
	log     *slog.Logger
	session mail.Session

	roster  *roster.Roster
	matches []engine.Occurrence
	cards   []rendered
}

// Run executes one batch: load, match, render, dispatch and report.
// Record level failures are counted in the statistics and never abort the
// run. Setup failures end it in Failed; the partial statistics are returned
// with the error.
func (o *Orchestrator) Run(ctx context.Context) (*report.RunStatistics, error) {
	clock := o.Clock
	if clock == nil {
		clock = engine.RealClock{}
	}
	texts := o.Texts
	if texts == nil {
		texts = greeting.New(o.Settings.Language)
	}
	newID := o.NewRunID
	if newID == nil {
		newID = uuid.NewString
	}

	now := clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	runID := newID()
	r := &run{
		o:     o,
		clock: clock,
		texts: texts,
		today: today,
		state: Idle,
		stats: report.New(runID, today, now),
		log: slog.With(
			config.LogKeyComponent, config.CompPipeline,
			config.LogKeyRunID, runID,
		),
	}
	r.stats.State = Idle.String()
	defer r.closeSession()

	r.log.Info(config.MsgRunStarted, config.LogKeyToday, r.today.Format(config.DateFormatFullDash))

	if err := o.Settings.Validate(); err != nil {
		return r.fail(err)
	}

	steps := []struct {
		state State
		fn    func(context.Context) error
	}{
		{LoadingRecords, r.load},
		{MatchingOccasions, r.match},
		{Rendering, r.render},
		{Dispatching, r.dispatch},
		{ReportingSummary, r.summarize},
	}
	for _, step := range steps {
		r.transition(step.state)
		if err := step.fn(ctx); err != nil {
			return r.fail(err)
		}
	}
	r.transition(Done)

	r.log.Info(config.MsgRunFinished, config.LogKeyStats, r.stats)
	return r.stats, nil
}

// transition moves the run forward. An illegal move is a programming error.
func (r *run) transition(to State) {
	if !CanTransition(r.state, to) {
		panic(fmt.Sprintf("%s: %s -> %s", config.ErrIllegalState, r.state, to))
	}
	r.log.Debug(config.MsgStateChange,
		config.LogKeyFrom, r.state.String(),
		config.LogKeyTo, to.String(),
	)
	r.state = to
	r.stats.State = to.String()
}

// fail ends the run and writes whatever summary is reachable.
func (r *run) fail(err error) (*report.RunStatistics, error) {
	from := r.state
	r.transition(Failed)
	r.stats.End = r.clock.Now()
	r.stats.AddError(r.stats.End, "", "", err)

	r.log.Error(config.MsgRunFailed,
		config.LogKeyState, from.String(),
		config.LogKeyError, err,
		config.LogKeyStats, r.stats,
	)

	if dir := r.o.Settings.OutputDir; dir != "" {
		if _, _, werr := report.WriteSummary(dir, r.stats); werr != nil {
			r.log.Warn(config.ErrReportWrite, config.LogKeyError, werr)
		}
	}
	return r.stats, fmt.Errorf("%s: %w", config.ErrRunFailed, err)
}

func (r *run) closeSession() {
	if r.session == nil {
		return
	}
	if err := r.session.Close(); err != nil {
		r.log.Warn(config.MsgSessionClosed, config.LogKeyError, err)
	}
	r.session = nil
}

// openSession opens the transport on first use.
func (r *run) openSession(ctx context.Context) error {
	if r.session != nil {
		return nil
	}
	s, err := r.o.Transport.Open(ctx)
	if err != nil {
		return err
	}
	r.session = s
	return nil
}

func (r *run) load(ctx context.Context) error {
	s := r.o.Settings
	loader := r.o.Loader
	if loader == nil {
		loader = roster.NewLoader(nil)
	}
	rs, err := loader.Load(ctx, roster.Source{Path: s.RosterPath, User: s.RosterUser, Pass: s.RosterPassword})
	if err != nil {
		return err
	}
	r.roster = rs
	return nil
}

// match selects birthdays then anniversaries, each in load order.
func (r *run) match(ctx context.Context) error {
	matcher := r.o.Matcher
	if matcher == nil {
		matcher = engine.NewMatcher(r.clock)
	}
	for _, o := range roster.Occasions {
		for _, rec := range matcher.Match(r.roster, o, r.today) {
			d, _ := rec.DateFor(o).Get()
			occ := engine.OccurrenceOn(rec, o, d, r.today)
			r.matches = append(r.matches, occ)
			r.stats.AddMatch(occ)
		}
	}
	return ctx.Err()
}

func (r *run) render(ctx context.Context) error {
	s := r.o.Settings
	renderer := render.NewRenderer(s.ImageFormat)

	for _, occ := range r.matches {
		if err := ctx.Err(); err != nil {
			return err
		}
		counts := r.stats.For(occ.Occasion)
		card, err := renderer.Render(r.request(occ))
		if err != nil {
			counts.ImagesFailed++
			r.recordError(occ, config.MsgCardFailed, err)
			continue
		}
		counts.ImagesGenerated++

		if s.SaveImages {
			name := render.FileName(string(occ.Occasion), occ.Record.FirstName, occ.Record.LastName, r.today, card.Ext())
			if _, err := render.Save(card, s.OutputDir, name); err != nil {
				r.recordError(occ, config.MsgCardSaveFailed, err)
			}
		}
		r.cards = append(r.cards, rendered{occ: occ, card: card})
	}
	return nil
}

// request maps the occasion layout settings onto a render request.
func (r *run) request(occ engine.Occurrence) render.Request {
	s := r.o.Settings
	name := string(occ.Occasion)
	layout := s.Occasion(name)
	return render.Request{
		Occasion:     name,
		TemplatePath: layout.Template,
		Lines:        r.texts.CardLines(occ.Occasion, occ.Record),
		Position:     image.Pt(layout.TextX, layout.TextY),
		Font: render.FontSpec{
			Path:  s.FontPathFor(name),
			Size:  layout.FontSize,
			Color: render.ColorOrDefault(layout.FontColor),
		},
		CenterAlign: layout.CenterAlign,
	}
}

func (r *run) composer() *mail.Composer {
	return mail.NewComposer(r.o.Settings, r.texts)
}

func (r *run) dispatch(ctx context.Context) error {
	if len(r.cards) == 0 {
		r.log.Info(config.MsgSessionSkip)
		return nil
	}
	if err := r.openSession(ctx); err != nil {
		return err
	}

	composer := r.composer()
	d := &mail.Dispatcher{Session: r.session}
	for _, c := range r.cards {
		if err := ctx.Err(); err != nil {
			return err
		}
		counts := r.stats.For(c.occ.Occasion)

		msg, err := composer.Greeting(c.occ, c.card)
		if err == nil {
			err = d.Deliver(ctx, msg, c.occ.Record.Email)
		}
		if err != nil {
			var authErr *config.AuthenticationError
			if errors.As(err, &authErr) || ctx.Err() != nil {
				return err
			}
			counts.Failed++
			r.recordError(c.occ, config.MsgSendFailed, err)
			continue
		}
		counts.Sent++
	}
	return nil
}

// summarize writes the report and calendar files and emails them. Nothing
// here fails the run: the greetings are already out.
func (r *run) summarize(ctx context.Context) error {
	s := r.o.Settings
	r.stats.End = r.clock.Now()
	r.stats.State = Done.String()

	reportPath, text, err := report.WriteSummary(s.OutputDir, r.stats)
	if err != nil {
		r.log.Warn(config.ErrReportWrite, config.LogKeyError, err)
	}
	attachments := make([]mail.Attachment, 0, 2)
	if err == nil {
		attachments = append(attachments, mail.Attachment{Name: filepath.Base(reportPath), Data: []byte(text)})
	}
	if ics, err := r.writeCalendar(); err != nil {
		r.log.Warn(config.ErrCalendarWrite, config.LogKeyError, err)
	} else {
		attachments = append(attachments, ics)
	}

	to := s.Recipient()
	if !s.SendSummary || to == "" || text == "" {
		r.log.Info(config.MsgSummarySkipped)
		return nil
	}

	msg := r.composer().Summary(to, r.texts.ReportSubject(r.today), text, attachments...)
	err = r.openSession(ctx)
	if err == nil {
		err = (&mail.Dispatcher{Session: r.session}).Deliver(ctx, msg, to)
	}
	if err != nil {
		r.log.Warn(config.MsgSummaryFailed,
			config.LogKeyRecipient, to,
			config.LogKeyError, err,
		)
		return nil
	}
	r.log.Info(config.MsgSummarySent, config.LogKeyRecipient, to)
	return nil
}

// writeCalendar stores today's occasions as an iCalendar file next to the report.
func (r *run) writeCalendar() (mail.Attachment, error) {
	b := &engine.CalendarBuilder{Clock: r.clock, Summary: r.texts.EventSummary}
	data, err := b.Encode(r.matches)
	if err != nil {
		return mail.Attachment{}, err
	}

	name := fmt.Sprintf(config.FormatCalendarFile, r.today.Format(config.DateFormatStamp))
	path := filepath.Join(r.o.Settings.OutputDir, name)
	if err := os.WriteFile(path, data, config.FilePermUserRW); err != nil {
		return mail.Attachment{}, fmt.Errorf("%s: %w", config.ErrCalendarWrite, err)
	}
	r.log.Debug(config.MsgCalendarWritten, config.LogKeyFile, path)
	return mail.Attachment{Name: name, Data: data}, nil
}

func (r *run) recordError(occ engine.Occurrence, msg string, err error) {
	r.stats.AddError(r.clock.Now(), occ.Record.ID, occ.Occasion, err)
	r.log.Warn(msg,
		config.LogKeyRecord, occ.Record.ID,
		config.LogKeyOccasion, string(occ.Occasion),
		config.LogKeyError, err,
	)
}
