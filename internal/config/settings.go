package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// OccasionSettings holds the card layout for one occasion type.
type OccasionSettings struct {
	Template    string  `key:"template"`
	TextX       int     `key:"text_x"`
	TextY       int     `key:"text_y"`
	FontSize    float64 `key:"font_size" validate:"gt=0"`
	FontColor   string  `key:"font_color"`
	FontPath    string  `key:"font_path"`
	CenterAlign bool    `key:"center_align"`
}

// Settings is the resolved configuration of one invocation.
// The key tags name the setting in files, environment and error messages.
type Settings struct {
	Transport     string `key:"transport" validate:"oneof=smtp gmail pickup"`
	TransportHost string `key:"transport_host" validate:"required_if=Transport smtp"`
	TransportPort int    `key:"transport_port" validate:"required_if=Transport smtp,port"`

	Username  string `key:"credentials.username" validate:"required_unless=Transport pickup,omitempty,email"`
	Password  string `key:"credentials.password" validate:"required_if=Transport smtp"`
	GmailJSON string `key:"credentials.gmail_json" validate:"required_if=Transport gmail"`

	SenderName     string `key:"sender_name"`
	RosterPath     string `key:"roster_path" validate:"required"`
	RosterUser     string `key:"roster_user"`
	RosterPassword string `key:"roster_password"`

	OutputDir       string `key:"output_dir" validate:"required"`
	SaveImages      bool   `key:"save_images"`
	ImageFormat     string `key:"image_format" validate:"oneof=png jpeg jpg"`
	Language        string `key:"language"`
	FontPath        string `key:"font_path"`
	ReportRecipient string `key:"report_recipient" validate:"omitempty,email"`
	SendSummary     bool   `key:"send_summary"`
	UpcomingDays    int    `key:"upcoming_days" validate:"min=0,max=366"`
	FeedPort        string `key:"feed_port" validate:"port"`

	Birthday    OccasionSettings `key:"birthday"`
	Anniversary OccasionSettings `key:"anniversary"`

	// PasswordSource records which precedence step supplied Password.
	PasswordSource string `key:"-"`
}

// Password sources, highest precedence first.
const (
	PasswordSourceSettings = "settings"
	PasswordSourceKeyring  = "keyring"
	PasswordSourceNone     = "none"
)

// KeyringLookup matches keyring.Get so tests can inject a fake store.
type KeyringLookup func(service, user string) (string, error)

// LoadOptions controls where Load looks for settings.
type LoadOptions struct {
	ConfigFile  string            // explicit file, overrides the search paths
	SearchPaths []string          // directories searched for greetings.yaml
	EnvFile     string            // .env file, missing file is ignored
	Flags       *pflag.FlagSet    // command line flags
	FlagKeys    map[string]string // flag name -> setting key
	Keyring     KeyringLookup     // nil disables the keyring step
}

// Load resolves settings with this precedence, highest first:
// flags, process environment, .env file, config file, keyring (password only), defaults.
func Load(opts LoadOptions) (*Settings, error) {
	if opts.EnvFile != "" {
		// godotenv never overrides variables already present in the process.
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, &ConfigurationError{Message: ErrDotEnv, Cause: err}
		}
	}

	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	if opts.ConfigFile != "" {
		// An explicit file must exist; only the search is allowed to come up empty.
		if _, err := os.Stat(opts.ConfigFile); err != nil {
			return nil, &ConfigurationError{Message: ErrConfigRead, Cause: err}
		}
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName(ConfigFileName)
		v.SetConfigType(ConfigFileType)
		for _, p := range searchPaths(opts.SearchPaths) {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, &ConfigurationError{Message: ErrConfigRead, Cause: err}
		}
		// No config file is fine: defaults and environment still apply.
	}

	if opts.Flags != nil {
		for name, key := range opts.FlagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, &ConfigurationError{Message: ErrConfigDecode, Fields: []string{key}, Cause: err}
				}
			}
		}
	}

	s := fromViper(v)
	s.Password, s.PasswordSource = ResolvePassword(s.Password, s.Username, opts.Keyring)

	slog.Debug(MsgSettingsLoaded,
		LogKeyComponent, CompConfig,
		LogKeyFile, v.ConfigFileUsed(),
		LogKeySettings, s,
	)
	return s, nil
}

// ResolvePassword applies the credential precedence: an explicit value from
// flags, environment or files wins, then the OS keyring entry for user.
func ResolvePassword(explicit, user string, lookup KeyringLookup) (string, string) {
	if explicit != "" {
		return explicit, PasswordSourceSettings
	}
	if user == "" || lookup == nil {
		return "", PasswordSourceNone
	}
	secret, err := lookup(KeyringService, user)
	if err != nil || secret == "" {
		slog.Debug(MsgKeyringMiss,
			LogKeyComponent, CompConfig,
			LogKeyUser, user,
			LogKeyError, err,
		)
		return "", PasswordSourceNone
	}
	return secret, PasswordSourceKeyring
}

// Occasion returns the layout settings for the named occasion.
func (s *Settings) Occasion(name string) OccasionSettings {
	if name == OccasionAnniversary {
		return s.Anniversary
	}
	return s.Birthday
}

// FontPathFor returns the font file for an occasion: the occasion's own path,
// then the shared font_path. Empty means the built-in face.
func (s *Settings) FontPathFor(name string) string {
	if p := s.Occasion(name).FontPath; p != "" {
		return p
	}
	return s.FontPath
}

// Recipient is the summary report address, defaulting to the sender.
func (s *Settings) Recipient() string {
	if s.ReportRecipient != "" {
		return s.ReportRecipient
	}
	return s.Username
}

// Validate checks every mandatory setting for the selected transport.
func (s *Settings) Validate() error {
	err := newValidator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ConfigurationError{Message: ErrConfigInvalid, Cause: err}
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", settingName(fe.Namespace()), fe.Tag()))
	}
	return &ConfigurationError{Message: ErrConfigInvalid, Fields: fields, Cause: err}
}

// RequireRoster is the reduced check used by commands that never send mail.
func (s *Settings) RequireRoster() error {
	if strings.TrimSpace(s.RosterPath) == "" {
		return &ConfigurationError{Message: ErrConfigInvalid, Fields: []string{KeyRosterPath + " (required)"}}
	}
	return nil
}

// LogValue masks secrets when settings are logged.
func (s *Settings) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String(KeyTransport, s.Transport),
		slog.String(KeyTransportHost, s.TransportHost),
		slog.Int(KeyTransportPort, s.TransportPort),
		slog.String(KeyUsername, s.Username),
		slog.String(KeyPassword, mask(s.Password)),
		slog.String(KeyGmailJSON, mask(s.GmailJSON)),
		slog.String("password_source", s.PasswordSource),
		slog.String(KeyRosterPath, s.RosterPath),
		slog.String(KeyRosterPassword, mask(s.RosterPassword)),
		slog.String(KeyOutputDir, s.OutputDir),
		slog.String(KeyImageFormat, s.ImageFormat),
		slog.String(KeyLanguage, s.Language),
		slog.Bool(KeySendSummary, s.SendSummary),
	)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return MaskedSecret
}

// OccasionKey builds a per-occasion setting key such as birthday_text_x.
func OccasionKey(occasion, suffix string) string {
	return occasion + suffix
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyTransport, DefaultTransport)
	v.SetDefault(KeyTransportHost, DefaultTransportHost)
	v.SetDefault(KeyTransportPort, DefaultTransportPort)
	v.SetDefault(KeyUsername, "")
	v.SetDefault(KeyPassword, "")
	v.SetDefault(KeyGmailJSON, "")
	v.SetDefault(KeySenderName, AppName)
	v.SetDefault(KeyRosterPath, "")
	v.SetDefault(KeyRosterUser, "")
	v.SetDefault(KeyRosterPassword, "")
	v.SetDefault(KeyOutputDir, DefaultOutputDir)
	v.SetDefault(KeySaveImages, true)
	v.SetDefault(KeyImageFormat, DefaultImageFormat)
	v.SetDefault(KeyLanguage, DefaultLanguage)
	v.SetDefault(KeyFontPath, "")
	v.SetDefault(KeyReportRecipient, "")
	v.SetDefault(KeySendSummary, true)
	v.SetDefault(KeyUpcomingDays, DefaultUpcomingDays)
	v.SetDefault(KeyFeedPort, DefaultFeedPort)

	occasionDefaults := map[string]OccasionSettings{
		OccasionBirthday: {
			TextX:       DefaultBirthdayTextX,
			TextY:       DefaultBirthdayTextY,
			FontSize:    DefaultBirthdayFontSize,
			FontColor:   DefaultBirthdayFontColor,
			CenterAlign: DefaultBirthdayCenter,
		},
		OccasionAnniversary: {
			TextX:       DefaultAnniversaryTextX,
			TextY:       DefaultAnniversaryTextY,
			FontSize:    DefaultAnniversaryFontSize,
			FontColor:   DefaultAnniversaryColor,
			CenterAlign: DefaultAnniversaryCenter,
		},
	}
	for name, d := range occasionDefaults {
		v.SetDefault(OccasionKey(name, SuffixTemplate), d.Template)
		v.SetDefault(OccasionKey(name, SuffixTextX), d.TextX)
		v.SetDefault(OccasionKey(name, SuffixTextY), d.TextY)
		v.SetDefault(OccasionKey(name, SuffixFontSize), d.FontSize)
		v.SetDefault(OccasionKey(name, SuffixFontColor), d.FontColor)
		v.SetDefault(OccasionKey(name, SuffixFontPath), d.FontPath)
		v.SetDefault(OccasionKey(name, SuffixCenterAlign), d.CenterAlign)
	}
}

// bindEnv maps every key to GREETINGS_<KEY> plus its legacy alias. Per-occasion
// keys also accept their bare upper-case name (BIRTHDAY_TEXT_X).
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range v.AllKeys() {
		names := []string{EnvName(key)}
		if alias, ok := LegacyEnvAliases[key]; ok {
			names = append(names, alias)
		} else if isOccasionKey(key) {
			names = append(names, strings.ToUpper(key))
		}
		// BindEnv only fails without arguments.
		_ = v.BindEnv(append([]string{key}, names...)...)
	}
}

// EnvName returns the prefixed environment variable for a setting key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func isOccasionKey(key string) bool {
	return strings.HasPrefix(key, OccasionBirthday+"_") || strings.HasPrefix(key, OccasionAnniversary+"_")
}

func fromViper(v *viper.Viper) *Settings {
	s := &Settings{
		Transport:       strings.ToLower(strings.TrimSpace(v.GetString(KeyTransport))),
		TransportHost:   strings.TrimSpace(v.GetString(KeyTransportHost)),
		TransportPort:   v.GetInt(KeyTransportPort),
		Username:        strings.TrimSpace(v.GetString(KeyUsername)),
		Password:        v.GetString(KeyPassword),
		GmailJSON:       v.GetString(KeyGmailJSON),
		SenderName:      v.GetString(KeySenderName),
		RosterPath:      strings.TrimSpace(v.GetString(KeyRosterPath)),
		RosterUser:      v.GetString(KeyRosterUser),
		RosterPassword:  v.GetString(KeyRosterPassword),
		OutputDir:       v.GetString(KeyOutputDir),
		SaveImages:      v.GetBool(KeySaveImages),
		ImageFormat:     strings.ToLower(v.GetString(KeyImageFormat)),
		Language:        v.GetString(KeyLanguage),
		FontPath:        v.GetString(KeyFontPath),
		ReportRecipient: strings.TrimSpace(v.GetString(KeyReportRecipient)),
		SendSummary:     v.GetBool(KeySendSummary),
		UpcomingDays:    v.GetInt(KeyUpcomingDays),
		FeedPort:        v.GetString(KeyFeedPort),
	}
	s.Birthday = occasionFromViper(v, OccasionBirthday)
	s.Anniversary = occasionFromViper(v, OccasionAnniversary)
	return s
}

func occasionFromViper(v *viper.Viper, name string) OccasionSettings {
	return OccasionSettings{
		Template:    v.GetString(OccasionKey(name, SuffixTemplate)),
		TextX:       v.GetInt(OccasionKey(name, SuffixTextX)),
		TextY:       v.GetInt(OccasionKey(name, SuffixTextY)),
		FontSize:    v.GetFloat64(OccasionKey(name, SuffixFontSize)),
		FontColor:   v.GetString(OccasionKey(name, SuffixFontColor)),
		FontPath:    v.GetString(OccasionKey(name, SuffixFontPath)),
		CenterAlign: v.GetBool(OccasionKey(name, SuffixCenterAlign)),
	}
}

func searchPaths(extra []string) []string {
	paths := append([]string{}, extra...)
	paths = append(paths, ".", "./config")
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, BinaryName))
	}
	return paths
}

func newValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := f.Tag.Get("key")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("port", validPort)
	return validate
}

// validPort accepts an unset port or one in MinPort..MaxPort, given as a
// number or a numeric string.
func validPort(fl validator.FieldLevel) bool {
	f := fl.Field()
	var n int64
	switch f.Kind() {
	case reflect.String:
		if f.String() == "" {
			return true
		}
		v, err := strconv.ParseInt(f.String(), 10, 64)
		if err != nil {
			return false
		}
		n = v
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if f.Int() == 0 {
			return true
		}
		n = f.Int()
	default:
		return false
	}
	return n >= MinPort && n <= MaxPort
}

// settingName strips the struct name from a validator namespace.
func settingName(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}
