package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client used for remote rosters.
var UserAgent = "Go-Greetings/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName           = "Go Greetings"
	AppID             = "com.github.tartampluch.go-greetings"
	KeyringService    = "com.github.tartampluch.go-greetings"
	BinaryName        = "go-greetings"
	LocalhostBindAddr = "127.0.0.1"
	LogFileName       = "go-greetings.log"
	LogDirName        = "logs"
	OutboxDirName     = "outbox"
	EnvPrefix         = "GREETINGS"
	ConfigFileName    = "greetings"
	ConfigFileType    = "yaml"
	DotEnvFile        = ".env"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
	ExitCodeConfig  = 2
	ExitCodeAuth    = 3
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	// Used for logs, cards, reports and pickup messages.
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Commands, Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	CmdRun      = "run"
	CmdUpcoming = "upcoming"
	CmdServe    = "serve"
	CmdCheck    = "check"
	CmdVersion  = "version"

	FlagConfig   = "config"
	FlagDebug    = "debug"
	FlagRoster   = "roster"
	FlagOutput   = "output"
	FlagLanguage = "lang"
	FlagDate     = "date"
	FlagDryRun   = "dry-run"
	FlagDays     = "days"
	FlagICS      = "ics"
	FlagPort     = "port"
	FlagSendTest = "send-test"

	FlagDescConfig   = "Path to a configuration file (yaml, json or toml)"
	FlagDescDebug    = "Enable debug logging"
	FlagDescRoster   = "Roster file path or http(s) URL (csv or vcf)"
	FlagDescOutput   = "Directory for cards, reports and logs"
	FlagDescLanguage = "Language used for cards and emails"
	FlagDescDate     = "Run as if today were this date (YYYY-MM-DD)"
	FlagDescDryRun   = "Write messages to the outbox directory instead of sending them"
	FlagDescDays     = "Number of days to look ahead"
	FlagDescICS      = "Also write the occurrences as an iCalendar file"
	FlagDescPort     = "Port for the calendar feed"
	FlagDescSendTest = "Send a test message to this address after connecting"

	ShortRoot     = "Send birthday and anniversary greeting cards"
	ShortRun      = "Run today's greeting batch"
	ShortUpcoming = "List birthdays and anniversaries in the next days"
	ShortServe    = "Serve upcoming occasions as an iCalendar feed"
	ShortCheck    = "Verify the mail transport credentials"
	ShortVersion  = "Print version information"

	MsgVersionOutput = "%s version %s (commit %s, built %s, %s/%s)\n"
	FormatUpcoming   = "%s  %-11s  %-30s  %s\n"
	FormatRunResult  = "Run %s: %s, %d sent, %d failed, %d card errors\n"
	FormatYears      = "%d"
)

// -----------------------------------------------------------------------------
// Occasions & Transports
// -----------------------------------------------------------------------------

const (
	OccasionBirthday    = "birthday"
	OccasionAnniversary = "anniversary"

	TransportSMTP   = "smtp"
	TransportGmail  = "gmail"
	TransportPickup = "pickup"

	ImageFormatPNG  = "png"
	ImageFormatJPEG = "jpeg"
	ImageFormatJPG  = "jpg"
)

// -----------------------------------------------------------------------------
// Setting Keys
// -----------------------------------------------------------------------------

const (
	KeyTransport       = "transport"
	KeyTransportHost   = "transport_host"
	KeyTransportPort   = "transport_port"
	KeyUsername        = "credentials.username"
	KeyPassword        = "credentials.password"
	KeyGmailJSON       = "credentials.gmail_json"
	KeySenderName      = "sender_name"
	KeyRosterPath      = "roster_path"
	KeyRosterUser      = "roster_user"
	KeyRosterPassword  = "roster_password"
	KeyOutputDir       = "output_dir"
	KeySaveImages      = "save_images"
	KeyImageFormat     = "image_format"
	KeyLanguage        = "language"
	KeyFontPath        = "font_path"
	KeyReportRecipient = "report_recipient"
	KeySendSummary     = "send_summary"
	KeyUpcomingDays    = "upcoming_days"
	KeyFeedPort        = "feed_port"

	// Per-occasion keys are built as <occasion> + suffix.
	SuffixTemplate    = "_template"
	SuffixTextX       = "_text_x"
	SuffixTextY       = "_text_y"
	SuffixFontSize    = "_font_size"
	SuffixFontColor   = "_font_color"
	SuffixFontPath    = "_font_path"
	SuffixCenterAlign = "_center_align"
)

// LegacyEnvAliases maps setting keys to the environment variable names used by
// older deployments of the greeting scripts. They are bound after the prefixed name.
var LegacyEnvAliases = map[string]string{
	KeyTransportHost:                   "SMTP_SERVER",
	KeyTransportPort:                   "SMTP_PORT",
	KeyUsername:                        "SENDER_EMAIL",
	KeyPassword:                        "EMAIL_PASSWORD",
	KeyOutputDir:                       "OUTPUT_FOLDER",
	KeyRosterPath:                      "CSV_FILE",
	OccasionBirthday + SuffixTemplate:    "BIRTHDAY_CARD",
	OccasionAnniversary + SuffixTemplate: "ANNIVERSARY_CARD",
}

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	DefaultTransport     = TransportSMTP
	DefaultTransportHost = "smtp.gmail.com"
	DefaultTransportPort = 587
	DefaultOutputDir     = "output"
	DefaultImageFormat   = ImageFormatPNG
	DefaultLanguage      = "en"
	DefaultUpcomingDays  = 7
	DefaultFeedPort      = "18080"
	DefaultLeapYear      = 2000 // Leap year used for year-less dates like --02-29

	DefaultBirthdayTextX       = 50
	DefaultBirthdayTextY       = 300
	DefaultBirthdayFontSize    = 64
	DefaultBirthdayFontColor   = "#4b446a"
	DefaultBirthdayCenter      = false
	DefaultAnniversaryTextX    = 0
	DefaultAnniversaryTextY    = 200
	DefaultAnniversaryFontSize = 72
	DefaultAnniversaryColor    = "#72719f"
	DefaultAnniversaryCenter   = true

	// LineSpacing is added to the font size to get the distance between lines.
	LineSpacing = 10
	JPEGQuality = 95

	PlaceholderWidth  = 1200
	PlaceholderHeight = 800
	PlaceholderBorder = 24

	FeedRefreshInterval = 1 * time.Hour
	MaskedSecret        = "******"
)

// SupportedLanguages lists the locales shipped with the binary (ISO 639-1).
var SupportedLanguages = []string{"en", "fr"}

// -----------------------------------------------------------------------------
// Roster Columns
// -----------------------------------------------------------------------------

// Header aliases are compared after trimming and lower-casing.
var (
	ColumnsID          = []string{"id", "empid", "emp_id", "employee_id"}
	ColumnsFirstName   = []string{"first_name", "firstname", "first", "given_name"}
	ColumnsLastName    = []string{"last_name", "lastname", "second_name", "surname", "family_name"}
	ColumnsEmail       = []string{"email", "email_address", "mail"}
	ColumnsBirthday    = []string{"birthday", "birth_date", "birthdate", "dob", "date_of_birth"}
	ColumnsAnniversary = []string{"anniversary", "anniversary_date", "wedding_anniversary", "hire_date"}
	ColumnsDepartment  = []string{"department", "dept", "team"}

	// DateSentinels mean "no date" rather than "bad date".
	DateSentinels = []string{"", "na", "n/a", "none", "null", "nil", "-"}
)

const (
	ColumnFirstName = "first_name"
	ColumnLastName  = "last_name"
	ColumnEmail     = "email"
	ColumnDates     = "birthday|anniversary"

	UTF8BOM         = "\uFEFF"
	FormatRecordKey = "%s|%s|%s"
	FormatDupID     = "%s-%d"

	VCardDepartment = "X-DEPARTMENT"
	VCardOrgSep     = ";"
	ExtVCF          = ".vcf"
	ExtVCard        = ".vcard"
)

// -----------------------------------------------------------------------------
// Date Layouts
// -----------------------------------------------------------------------------

const (
	DateFormatFullDash   = "2006-01-02"
	DateFormatLooseDash  = "2006-1-2"
	DateFormatDayFirst   = "2/1/2006"
	DateFormatMonthFirst = "1/2/2006"
	DateFormatDayDash    = "2-1-2006"
	DateFormatDayDot     = "2.1.2006"
	DateFormatYearSlash  = "2006/1/2"
	DateFormatFullBasic  = "20060102"
	DateFormatRFC3339    = time.RFC3339
	DateFormatFullT      = "2006-01-02T15:04:05Z"
	DateFormatDateTime   = "2006-01-02 15:04:05"
	DateFormatLong       = "January 2, 2006"
	DateFormatShort      = "Jan 2, 2006"
	DateFormatDayLong    = "2 January 2006"
	DateFormatNoYearD    = "--01-02"
	DateFormatNoYearB    = "--0102"

	DateFormatStamp  = "20060102"
	DateFormatReport = "January 2, 2006"
	TimeFormatClock  = "15:04:05"
)

// DateLayoutsWithYear is tried in order. Day-first wins for ambiguous slashed dates.
var DateLayoutsWithYear = []string{
	DateFormatFullDash,
	DateFormatLooseDash,
	DateFormatDayFirst,
	DateFormatMonthFirst,
	DateFormatDayDash,
	DateFormatDayDot,
	DateFormatYearSlash,
	DateFormatFullBasic,
	DateFormatRFC3339,
	DateFormatFullT,
	DateFormatDateTime,
	DateFormatLong,
	DateFormatShort,
	DateFormatDayLong,
}

// DateLayoutsNoYear covers vCard truncated dates.
var DateLayoutsNoYear = []string{DateFormatNoYearD, DateFormatNoYearB}

// -----------------------------------------------------------------------------
// Output Files & Mail
// -----------------------------------------------------------------------------

const (
	FormatCardFile     = "%s_%s_%s_%s.%s"
	FormatReportFile   = "daily_report_%s.txt"
	FormatCalendarFile = "occasions_%s.ics"
	FormatPickupFile   = "%04d_%s.eml"
	FallbackFileName   = "unknown"

	EmbedBaseName = "greeting_card"

	HeaderFrom    = "From"
	HeaderTo      = "To"
	HeaderSubject = "Subject"

	MimeHTML  = "text/html"
	MimePlain = "text/plain"
	MimePNG   = "image/png"
	MimeJPEG  = "image/jpeg"

	GmailUserMe = "me"

	// DefaultSender is used when no sender address is configured (pickup only).
	DefaultSender = "greetings@localhost"
)

// SMTPAuthFailureCodes are reply codes meaning the server rejected the credentials.
var SMTPAuthFailureCodes = []int{530, 534, 535}

// -----------------------------------------------------------------------------
// Standards: iCalendar
// -----------------------------------------------------------------------------

const (
	ICalVersion = "2.0"
	ICalProdid  = "-//Go Greetings//Engine//EN"
	ICalCalName = "Birthdays & Anniversaries"
	ICalMethod  = "PUBLISH"
	ICalScale   = "GREGORIAN"
	ICalDomain  = "gogreetings"

	PropUID        = "UID"
	PropSummary    = "SUMMARY"
	PropDTStart    = "DTSTART"
	PropDTStamp    = "DTSTAMP"
	PropRefresh    = "REFRESH-INTERVAL"
	PropCategories = "CATEGORIES"
	PropVersion    = "VERSION"
	PropProdid     = "PRODID"
	PropXWRCalName = "X-WR-CALNAME"
	PropCalScale   = "CALSCALE"
	PropMethod     = "METHOD"

	FormatEventUID = "%s-%s-%d@%s"

	DefaultICalRefresh = 1 * time.Hour

	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout         = 30 * time.Second
	ShutdownTimeout     = 5 * time.Second
	ServerReadTimeout   = 10 * time.Second
	ServerWriteTimeout  = 30 * time.Second
	ServerIdleTimeout   = 60 * time.Second
	RetryAfterSeconds   = "10"
	AllowedMethods      = "GET, HEAD"
	MaxHTTPResponseSize = 64 * 1024 * 1024 // 64MB
	SchemeHTTP          = "http"
	SchemeHTTPS         = "https"
	RouteRoot           = "/"
	RouteCalendar       = "/occasions.ics"
	AddrSeparator       = ":"
	MinPort             = 1
	MaxPort             = 65535
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType     = "Content-Type"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderRetryAfter      = "Retry-After"
	HeaderAllow           = "Allow"
	HeaderXContentType    = "X-Content-Type-Options"
	HeaderUserAgent       = "User-Agent"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"

	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"

	FormatETag = `"%s"`

	HTTPMsgInitializing = "Calendar initializing, please try again shortly."
	HTTPMsgMethodNotAll = "Method Not Allowed"
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrConfigRead       = "failed to read config file"
	ErrConfigDecode     = "failed to decode settings"
	ErrConfigInvalid    = "invalid settings"
	ErrDotEnv           = "failed to load .env file"
	ErrRosterOpen       = "cannot open roster"
	ErrRosterRead       = "cannot read roster"
	ErrRosterHeader     = "roster has no header row"
	ErrColumnsMissing   = "roster is missing mandatory columns"
	ErrRowMalformed     = "malformed roster row"
	ErrRowInvalid       = "invalid roster row"
	ErrDateParse        = "unable to parse date"
	ErrInvalidURL       = "invalid URL structure"
	ErrProtocol         = "unsupported protocol scheme (http/https only)"
	ErrHTTPRequest      = "failed to create request"
	ErrHTTPNetwork      = "network error during fetch"
	ErrHTTPStatus       = "server returned unexpected status"
	ErrTemplateMissing  = "template image not found"
	ErrTemplateDecode   = "template image cannot be decoded"
	ErrFontMissing      = "font file not found"
	ErrFontParse        = "font file cannot be parsed"
	ErrColorInvalid     = "invalid hex color"
	ErrCardEncode       = "failed to encode card"
	ErrCardSave         = "failed to save card"
	ErrTransportUnknown = "unsupported transport"
	ErrTransportOpen    = "cannot open mail transport"
	ErrGmailCreds       = "invalid gmail credentials"
	ErrGmailService     = "failed to create gmail service"
	ErrRecipient        = "recipient address is malformed"
	ErrSend             = "failed to send message"
	ErrCompose          = "failed to compose message"
	ErrPickupWrite      = "failed to write pickup message"
	ErrReportBuild      = "failed to build summary report"
	ErrReportWrite      = "failed to write summary report"
	ErrICalEncode       = "failed to encode iCalendar data"
	ErrCalendarWrite    = "failed to write calendar file"
	ErrLocalesAccess    = "failed to access embedded locales"
	ErrLocaleLoad       = "failed to load locale file"
	ErrLogFile          = "failed to open log file"
	ErrCreateDir        = "could not create directory"
	ErrServerStartup    = "server startup failed"
	ErrServerShutdown   = "server shutdown failed"
	ErrPortRequired     = "server port is required"
	ErrWriteResp        = "failed to write response body"
	ErrAppFailed        = "application failed"
	ErrRunFailed        = "greeting run failed"
	ErrDateFlag         = "invalid --date value"
	ErrIllegalState     = "illegal state transition"
)

// -----------------------------------------------------------------------------
// Log Messages
// -----------------------------------------------------------------------------

const (
	MsgAppStarting     = "Starting application"
	MsgAppStop         = "Application stopped"
	MsgLogWarning      = "Warning: %s at %s: %v\n"
	MsgSettingsLoaded  = "Settings loaded"
	MsgKeyringMiss     = "Password not found in keyring"
	MsgRosterLoading   = "Loading roster"
	MsgRosterLoaded    = "Roster loaded"
	MsgRowSkipped      = "Skipping roster row"
	MsgDateInvalid     = "Unparseable date, field excluded from matching"
	MsgCardSkipped     = "Skipping malformed vCard"
	MsgColumnUntyped   = "Date column has no usable values, no matches"
	MsgMatched         = "Occasions matched"
	MsgMatchFound      = "Occasion found today"
	MsgFontFallback    = "Font unavailable, using built-in face"
	MsgColorFallback   = "Invalid color, using black"
	MsgTemplateCached  = "Template loaded"
	MsgPlaceholder     = "No template configured, using generated background"
	MsgCardRendered    = "Card rendered"
	MsgCardFailed      = "Card rendering failed"
	MsgCardSaved       = "Card saved"
	MsgCardSaveFailed  = "Card could not be saved"
	MsgCalendarWritten = "Calendar file written"
	MsgSessionOpen     = "Mail session opened"
	MsgSessionClosed   = "Mail session closed"
	MsgSessionReset    = "Mail session reset after failed send"
	MsgSessionSkip     = "Nothing to send, transport not opened"
	MsgSent            = "Message sent"
	MsgSendFailed      = "Message delivery failed"
	MsgSummaryWritten  = "Summary report written"
	MsgSummarySent     = "Summary report emailed"
	MsgSummarySkipped  = "Summary email skipped"
	MsgSummaryFailed   = "Summary email failed"
	MsgStateChange     = "Run state changed"
	MsgRunStarted      = "Greeting run started"
	MsgRunFinished     = "Greeting run finished"
	MsgRunFailed       = "Greeting run aborted"
	MsgConnectionOK    = "Transport connection verified"
	MsgTestSent        = "Test message sent"
	MsgPickupWritten   = "Message written to pickup directory"
	MsgServerListen    = "HTTP server listening"
	MsgServerStop      = "Shutting down HTTP server..."
	MsgCacheUpdated    = "Calendar cache updated"
	MsgFeedRefresh     = "Feed refresh failed, keeping previous calendar"
	MsgLocaleSkip      = "Skipping non-locale file"
	MsgLocaleBadName   = "Skipping malformed locale filename"
	MsgLocaleLoaded    = "Locale loaded successfully"
	MsgTransMissing    = "Missing translation key"
	MsgHTTPDownloading = "Roster downloading"
	MsgHTTPBadStatus   = "Server returned error status"
	MsgGenSuccess      = "Calendar generation successful"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyRunID     = "run_id"
	LogKeyState     = "state"
	LogKeyFrom      = "from"
	LogKeyTo        = "to"
	LogKeyURL       = "url"
	LogKeyStatus    = "status_code"
	LogKeyFile      = "file"
	LogKeyPath      = "path"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyLine      = "line"
	LogKeyColumn    = "column"
	LogKeyValue     = "value"
	LogKeyRecord    = "record_id"
	LogKeyOccasion  = "occasion"
	LogKeyRecipient = "recipient"
	LogKeyTransport = "transport"
	LogKeyUser      = "user"
	LogKeyCount     = "count"
	LogKeyRecords   = "records"
	LogKeySkipped   = "skipped"
	LogKeyName      = "name"
	LogKeyFormat    = "format"
	LogKeySizeBytes = "size_bytes"
	LogKeyLength    = "content_length"
	LogKeyETag      = "etag"
	LogKeyStats     = "stats"
	LogKeySettings  = "settings"
	LogKeyDuration  = "duration_ms"
	LogKeyToday     = "today"

	LogKeyBuild   = "build"
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyGoVer   = "go_version"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompMain     = "main"
	CompConfig   = "config"
	CompRoster   = "roster"
	CompFetcher  = "fetcher"
	CompEngine   = "engine"
	CompRender   = "render"
	CompMail     = "mail"
	CompReport   = "report"
	CompPipeline = "pipeline"
	CompServer   = "server"
	CompI18n     = "i18n"
)

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeyCardBirthday       = "card_birthday"
	TKeyCardAnniversary    = "card_anniversary"
	TKeySubjectBirthday    = "subject_birthday"
	TKeySubjectAnniversary = "subject_anniversary"
	TKeyHeadingBirthday    = "heading_birthday"
	TKeyHeadingAnniversary = "heading_anniversary"
	TKeyBodyBirthday       = "body_birthday"
	TKeyBodyAnniversary    = "body_anniversary"
	TKeyBodyAnniversaryYrs = "body_anniversary_years" // Requires Years, plural
	TKeyBodyClosing        = "body_closing"
	TKeySalutation         = "salutation" // Requires FirstName
	TKeySignature          = "signature"
	TKeyEvtBirthday        = "event_birthday"        // Requires Name
	TKeyEvtBirthdayAge     = "event_birthday_age"    // Requires Name, Years
	TKeyEvtAnniversary     = "event_anniversary"     // Requires Name
	TKeyEvtAnniversaryYrs  = "event_anniversary_yrs" // Requires Name, Years
	TKeySubjectReport      = "subject_report"        // Requires Date
	TKeyBodyReport         = "body_report"
	TKeySubjectTest        = "subject_test"
	TKeyBodyTest           = "body_test"
)

// TemplateData field names shared by the locale files.
const (
	TDataFirstName = "FirstName"
	TDataName      = "Name"
	TDataYears     = "Years"
	TDataDate      = "Date"
)

// Locale file layout inside the embedded FS.
const (
	LocalesDir    = "locales"
	LocalePrefix  = "active."
	LocaleSuffix  = ".json"
	LocaleFormat  = "json"
	LocaleDefault = "en"
)

// -----------------------------------------------------------------------------
// Fallbacks
// -----------------------------------------------------------------------------

const (
	FallbackSummary  = "%s: %s"
	FallbackCardLine = "Happy %s %s"
	FallbackSubject  = "Happy %s, %s!"
	LineBreak        = "\n"
)
