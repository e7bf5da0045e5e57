package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env"
	"gopkg.in/yaml.v3"
)

const (
	DefaultListen         = "127.0.0.1:8080"
	DefaultUpdateInterval = 60 * 1000 // ms
	DefaultLogLevel       = "info"
)

// PointDecl is a raw {day, time} pair of a window reminder.
type PointDecl struct {
	Day  string `yaml:"day" json:"day"`
	Time string `yaml:"time" json:"time"`
}

// ShowOnDecl is the raw showOn block. allDay: true selects the all-day
// form using Day; otherwise Start and End describe a window.
type ShowOnDecl struct {
	AllDay bool       `yaml:"allDay,omitempty" json:"allDay,omitempty"`
	Day    string     `yaml:"day,omitempty" json:"day,omitempty"`
	Start  *PointDecl `yaml:"start,omitempty" json:"start,omitempty"`
	End    *PointDecl `yaml:"end,omitempty" json:"end,omitempty"`
}

// ReminderDecl is a reminder exactly as written in the config file.
// Nothing here is trusted until it passes validation.
type ReminderDecl struct {
	Name    string      `yaml:"name" json:"name"`
	Message string      `yaml:"message" json:"message"`
	ShowOn  *ShowOnDecl `yaml:"showOn,omitempty" json:"showOn,omitempty"`
	// ExcludeHolidays is kept untyped so a non-boolean value can be
	// reported instead of failing the whole file.
	ExcludeHolidays any     `yaml:"excludeHolidays,omitempty" json:"excludeHolidays,omitempty"`
	EventDay        *string `yaml:"eventDay,omitempty" json:"eventDay,omitempty"`

	decodeErr error
}

type reminderDeclAlias ReminderDecl

// UnmarshalYAML decodes one reminder. A malformed entry is kept with its
// decode error so validation can drop it without rejecting its siblings.
func (d *ReminderDecl) UnmarshalYAML(value *yaml.Node) error {
	var a reminderDeclAlias
	if err := value.Decode(&a); err != nil {
		*d = ReminderDecl{decodeErr: err}
		d.Name = declName(value)
		return nil
	}
	*d = ReminderDecl(a)
	return nil
}

// DecodeErr returns the YAML error for this entry, if any.
func (d ReminderDecl) DecodeErr() error {
	return d.decodeErr
}

// Holiday rule types.
const (
	HolidayFixed      = "fixed"
	HolidayNthWeekday = "nthWeekday"
	HolidayDate       = "date"
)

// HolidayDecl is a raw holiday rule. Type selects which of the remaining
// fields are meaningful.
type HolidayDecl struct {
	Type    string `yaml:"type" json:"type"`
	Name    string `yaml:"name" json:"name"`
	Month   *int   `yaml:"month,omitempty" json:"month,omitempty"`
	Day     *int   `yaml:"day,omitempty" json:"day,omitempty"`
	Weekday *int   `yaml:"weekday,omitempty" json:"weekday,omitempty"`
	Nth     *int   `yaml:"nth,omitempty" json:"nth,omitempty"`
	Date    string `yaml:"date,omitempty" json:"date,omitempty"`

	decodeErr error
}

type holidayDeclAlias HolidayDecl

// declName recovers the name of an entry that failed to decode so the
// diagnostic can still identify it.
func declName(value *yaml.Node) string {
	var named struct {
		Name string `yaml:"name"`
	}
	_ = value.Decode(&named)
	return named.Name
}

// UnmarshalYAML mirrors ReminderDecl.UnmarshalYAML.
func (d *HolidayDecl) UnmarshalYAML(value *yaml.Node) error {
	var a holidayDeclAlias
	if err := value.Decode(&a); err != nil {
		*d = HolidayDecl{decodeErr: err}
		d.Name = declName(value)
		return nil
	}
	*d = HolidayDecl(a)
	return nil
}

func (d HolidayDecl) DecodeErr() error {
	return d.decodeErr
}

// TestMode pins "now" to a weekday and time of the current week.
type TestMode struct {
	Day  string `yaml:"day" json:"day"`
	Time string `yaml:"time" json:"time"`
}

// FeedConfig describes an ICS feed whose events are treated as holidays.
type FeedConfig struct {
	// URL is the ICS endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for caching and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the status API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the status API.
	Listen string `yaml:"listen" json:"listen"`

	// UpdateInterval is the tick period in milliseconds.
	UpdateInterval int `yaml:"updateInterval" json:"updateInterval"`

	// Refresh is an optional cron spec (e.g. "* * * * *") that replaces
	// UpdateInterval as the tick schedule.
	Refresh string `yaml:"refresh,omitempty" json:"refresh,omitempty"`

	// Debug forces the DEBUG log level.
	Debug bool `yaml:"debug" json:"debug"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"logLevel" json:"logLevel"`

	// Production switches the logger to the JSON encoder.
	Production bool `yaml:"production,omitempty" json:"production,omitempty"`

	// CacheDir holds the holiday feed HTTP cache.
	CacheDir string `yaml:"cacheDir,omitempty" json:"cacheDir,omitempty"`

	TestMode *TestMode `yaml:"testMode,omitempty" json:"testMode,omitempty"`

	Holidays     []HolidayDecl  `yaml:"holidays" json:"holidays"`
	HolidayFeeds []FeedConfig   `yaml:"holidayFeeds,omitempty" json:"holidayFeeds,omitempty"`
	Reminders    []ReminderDecl `yaml:"reminders" json:"reminders"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basicAuth,omitempty" json:"basicAuth,omitempty"`
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

// USFederalHolidays returns the eleven US federal holidays as rules.
func USFederalHolidays() []HolidayDecl {
	fixed := func(name string, month, day int) HolidayDecl {
		return HolidayDecl{Type: HolidayFixed, Name: name, Month: intPtr(month), Day: intPtr(day)}
	}
	nth := func(name string, month, weekday, n int) HolidayDecl {
		return HolidayDecl{Type: HolidayNthWeekday, Name: name, Month: intPtr(month), Weekday: intPtr(weekday), Nth: intPtr(n)}
	}
	return []HolidayDecl{
		fixed("New Year's Day", 1, 1),
		nth("Martin Luther King Jr. Day", 1, 1, 3),
		nth("Presidents' Day", 2, 1, 3),
		nth("Memorial Day", 5, 1, -1),
		fixed("Juneteenth", 6, 19),
		fixed("Independence Day", 7, 4),
		nth("Labor Day", 9, 1, 1),
		nth("Columbus Day", 10, 1, 2),
		fixed("Veterans Day", 11, 11),
		nth("Thanksgiving", 11, 4, 4),
		fixed("Christmas Day", 12, 25),
	}
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         DefaultListen,
		UpdateInterval: DefaultUpdateInterval,
		LogLevel:       DefaultLogLevel,
		Holidays:       USFederalHolidays(),
		HolidayFeeds:   []FeedConfig{},
		Reminders: []ReminderDecl{
			{
				Name:            "Trash Day",
				Message:         "Remember to take out the trash tonight!",
				ShowOn:          &ShowOnDecl{AllDay: true, Day: "Tuesday"},
				ExcludeHolidays: true,
				EventDay:        strPtr("Wednesday"),
			},
			{
				Name:    "Lawn Care",
				Message: "Good time to mow the lawn",
				ShowOn: &ShowOnDecl{
					Start: &PointDecl{Day: "Saturday", Time: "08:00"},
					End:   &PointDecl{Day: "Saturday", Time: "12:00"},
				},
			},
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.UpdateInterval <= 0 {
		c.UpdateInterval = DefaultUpdateInterval
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Debug {
		c.LogLevel = "debug"
	}
	if c.Holidays == nil {
		c.Holidays = []HolidayDecl{}
	}
	if c.HolidayFeeds == nil {
		c.HolidayFeeds = []FeedConfig{}
	}
	if c.Reminders == nil {
		c.Reminders = []ReminderDecl{}
	}
}

// envOverrides are read from the process environment after the file.
type envOverrides struct {
	Listen         string `env:"WEEKLYREMINDER_LISTEN"`
	LogLevel       string `env:"WEEKLYREMINDER_LOG_LEVEL"`
	UpdateInterval int    `env:"WEEKLYREMINDER_UPDATE_INTERVAL"`
	Production     bool   `env:"WEEKLYREMINDER_PRODUCTION"`
	CacheDir       string `env:"WEEKLYREMINDER_CACHE_DIR"`
}

// ApplyEnv overlays WEEKLYREMINDER_* environment variables onto c.
func (c *Config) ApplyEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return err
	}
	if o.Listen != "" {
		c.Listen = o.Listen
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.UpdateInterval > 0 {
		c.UpdateInterval = o.UpdateInterval
	}
	if o.Production {
		c.Production = true
	}
	if o.CacheDir != "" {
		c.CacheDir = o.CacheDir
	}
	return nil
}

// Parse decodes a YAML document into a normalized Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return &cfg, nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
//   - apply environment overrides
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, cfg.ApplyEnv()
		}
		return nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".weeklyreminder-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
