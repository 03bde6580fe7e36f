package roster

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/tartampluch/go-greetings/internal/config"
)

// Source identifies a roster: a local path or an http(s) URL with optional basic auth.
type Source struct {
	Path string
	User string
	Pass string
}

// IsRemote reports whether the source must be downloaded.
func (s Source) IsRemote() bool {
	lower := strings.ToLower(s.Path)
	return strings.HasPrefix(lower, config.SchemeHTTP+"://") || strings.HasPrefix(lower, config.SchemeHTTPS+"://")
}

// Loader reads rosters in CSV or vCard format.
type Loader struct {
	Fetcher RosterFetcher // Used for http(s) sources only.
}

// NewLoader creates a Loader using the given fetcher for remote rosters.
func NewLoader(f RosterFetcher) *Loader {
	return &Loader{Fetcher: f}
}

// Load reads the whole roster. Row-level problems are logged and skipped;
// only an unreadable source or missing mandatory columns fail the load.
func (l *Loader) Load(ctx context.Context, src Source) (*Roster, error) {
	start := time.Now()
	log := slog.With(
		config.LogKeyComponent, config.CompRoster,
		config.LogKeyPath, redact(src.Path),
	)
	log.InfoContext(ctx, config.MsgRosterLoading)

	reader, err := l.open(ctx, src)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	var r *Roster
	if isVCard(src.Path) {
		r, err = decodeVCards(ctx, reader)
	} else {
		r, err = decodeCSV(ctx, reader)
	}
	if err != nil {
		return nil, err
	}

	log.Info(config.MsgRosterLoaded,
		config.LogKeyRecords, len(r.Records),
		config.LogKeySkipped, r.Skipped,
		config.LogKeyDuration, time.Since(start).Milliseconds(),
	)
	return r, nil
}

func (l *Loader) open(ctx context.Context, src Source) (io.ReadCloser, error) {
	if strings.TrimSpace(src.Path) == "" {
		return nil, &config.ConfigurationError{Message: config.ErrRosterOpen, Fields: []string{config.KeyRosterPath}}
	}
	if src.IsRemote() {
		if l.Fetcher == nil {
			l.Fetcher = NewHTTPFetcher()
		}
		rc, err := l.Fetcher.Fetch(ctx, src.Path, src.User, src.Pass)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", config.ErrRosterOpen, err)
		}
		return rc, nil
	}

	f, err := os.Open(src.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &config.ConfigurationError{Message: config.ErrRosterOpen, Fields: []string{config.KeyRosterPath}, Cause: err}
		}
		return nil, fmt.Errorf("%s: %w", config.ErrRosterOpen, err)
	}
	return f, nil
}

func isVCard(path string) bool {
	clean := path
	if i := strings.IndexAny(clean, "?#"); i >= 0 {
		clean = clean[:i]
	}
	ext := strings.ToLower(filepath.Ext(clean))
	return ext == config.ExtVCF || ext == config.ExtVCard
}

// columns holds the index of each recognized header, -1 when absent.
type columns struct {
	id, first, last, email, birthday, anniversary, department int
}

func mapColumns(header []string) columns {
	find := func(aliases []string) int {
		for i, h := range header {
			name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, config.UTF8BOM)))
			if slices.Contains(aliases, name) {
				return i
			}
		}
		return -1
	}
	return columns{
		id:          find(config.ColumnsID),
		first:       find(config.ColumnsFirstName),
		last:        find(config.ColumnsLastName),
		email:       find(config.ColumnsEmail),
		birthday:    find(config.ColumnsBirthday),
		anniversary: find(config.ColumnsAnniversary),
		department:  find(config.ColumnsDepartment),
	}
}

func (c columns) missing() []string {
	var out []string
	if c.first < 0 {
		out = append(out, config.ColumnFirstName)
	}
	if c.last < 0 {
		out = append(out, config.ColumnLastName)
	}
	if c.email < 0 {
		out = append(out, config.ColumnEmail)
	}
	if c.birthday < 0 && c.anniversary < 0 {
		out = append(out, config.ColumnDates)
	}
	return out
}

func decodeCSV(ctx context.Context, r io.Reader) (*Roster, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &config.ConfigurationError{Message: config.ErrRosterHeader}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrRosterRead, err)
	}

	cols := mapColumns(header)
	if missing := cols.missing(); len(missing) > 0 {
		return nil, &config.ConfigurationError{Message: config.ErrColumnsMissing, Fields: missing}
	}

	b := newBuilder(cols.birthday >= 0, cols.anniversary >= 0)
	cell := func(row []string, idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.Line
			}
			b.skip(line, fmt.Errorf("%s: %w", config.ErrRowMalformed, err))
			continue
		}
		line, _ := reader.FieldPos(0)
		if blank(row) {
			continue
		}
		b.add(line, rawRecord{
			id:          cell(row, cols.id),
			first:       cell(row, cols.first),
			last:        cell(row, cols.last),
			email:       cell(row, cols.email),
			birthday:    cell(row, cols.birthday),
			anniversary: cell(row, cols.anniversary),
			department:  cell(row, cols.department),
		})
	}
	return b.roster, nil
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// rawRecord is one source row before validation.
type rawRecord struct {
	id, first, last, email, birthday, anniversary, department string
}

// builder turns raw rows into validated records, shared by CSV and vCard decoding.
type builder struct {
	roster   *Roster
	seen     map[string]int
	validate *validator.Validate
}

func newBuilder(hasBirthday, hasAnniversary bool) *builder {
	r := NewRoster()
	if hasBirthday {
		r.Columns[Birthday] = ColumnStats{Present: true}
	}
	if hasAnniversary {
		r.Columns[Anniversary] = ColumnStats{Present: true}
	}
	return &builder{
		roster:   r,
		seen:     make(map[string]int),
		validate: newRecordValidator(),
	}
}

func (b *builder) skip(line int, err error) {
	b.roster.Skipped++
	slog.Warn(config.MsgRowSkipped,
		config.LogKeyComponent, config.CompRoster,
		config.LogKeyLine, line,
		config.LogKeyError, err,
	)
}

func (b *builder) add(line int, raw rawRecord) {
	rec := EmployeeRecord{
		FirstName:  strings.TrimSpace(raw.first),
		LastName:   strings.TrimSpace(raw.last),
		Email:      strings.ToLower(strings.TrimSpace(raw.email)),
		Department: strings.TrimSpace(raw.department),
	}
	if err := b.validate.Struct(rec); err != nil {
		b.skip(line, fmt.Errorf("%s: %w", config.ErrRowInvalid, err))
		return
	}
	rec.ID = b.uniqueID(strings.TrimSpace(raw.id), rec)

	rec.BirthDate = b.date(line, rec.ID, Birthday, raw.birthday)
	rec.AnniversaryDate = b.date(line, rec.ID, Anniversary, raw.anniversary)
	b.roster.Records = append(b.roster.Records, rec)
}

func (b *builder) date(line int, id string, o Occasion, raw string) OptionalDate {
	stats, present := b.roster.Columns[o]
	if !present {
		return UnsetDate()
	}
	d, err := ParseDate(string(o), raw)
	if err != nil {
		slog.Warn(config.MsgDateInvalid,
			config.LogKeyComponent, config.CompRoster,
			config.LogKeyLine, line,
			config.LogKeyRecord, id,
			config.LogKeyColumn, string(o),
			config.LogKeyError, err,
		)
	}
	stats.count(d)
	b.roster.Columns[o] = stats
	return d
}

// uniqueID keeps source identifiers, otherwise derives a stable UUIDv5 from the
// person's name and email. Duplicates get the first free numeric suffix.
func (b *builder) uniqueID(given string, rec EmployeeRecord) string {
	id := given
	if id == "" {
		key := fmt.Sprintf(config.FormatRecordKey, rec.FirstName, rec.LastName, rec.Email)
		id = uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
	}
	if b.seen[id] == 0 {
		b.seen[id] = 1
		return id
	}
	// Suffixes skip any identifier already taken, given or derived.
	for n := b.seen[id] + 1; ; n++ {
		candidate := fmt.Sprintf(config.FormatDupID, id, n)
		if b.seen[candidate] == 0 {
			b.seen[id] = n
			b.seen[candidate] = 1
			return candidate
		}
	}
}

// newRecordValidator registers the "mailbox" rule: one "@" with text on both sides.
func newRecordValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("mailbox", func(fl validator.FieldLevel) bool {
		return ValidEmail(fl.Field().String())
	})
	return v
}

// ValidEmail performs the superficial address check used for roster rows.
func ValidEmail(addr string) bool {
	local, domain, ok := strings.Cut(addr, "@")
	return ok && local != "" && domain != "" && !strings.Contains(domain, "@") && !strings.ContainsAny(addr, " \t\r\n")
}

// redact strips credentials and query strings from remote paths before logging.
func redact(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if scheme, rest, ok := strings.Cut(path, "://"); ok {
		if at := strings.LastIndex(rest, "@"); at >= 0 {
			rest = rest[at+1:]
		}
		return scheme + "://" + rest
	}
	return path
}
