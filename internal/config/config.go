package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. WEEKPOSTER_LISTEN.
const EnvPrefix = "WEEKPOSTER_"

// ICSConfig is a named calendar that can be imported by ID.
type ICSConfig struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username" env:"USERNAME"`
	Password string `yaml:"password" json:"password" env:"PASSWORD"`
}

// LogConfig selects the logger.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level" json:"level" env:"LEVEL"`
	// Format is "console" or "json".
	Format string `yaml:"format" json:"format" env:"FORMAT"`
}

// LocaleConfig carries display strings. Day names are the only lookup the
// renderer needs.
type LocaleConfig struct {
	// Days are the names for Monday..Sunday.
	Days       []string `yaml:"days" json:"days" env:"DAYS" envSeparator:","`
	LunchLabel string   `yaml:"lunch_label" json:"lunch_label" env:"LUNCH_LABEL"`
}

// ExportConfig holds poster and print defaults.
type ExportConfig struct {
	// Format is a canvas preset: a4, widescreen or square.
	Format      string  `yaml:"format" json:"format" env:"FORMAT"`
	Theme       string  `yaml:"theme" json:"theme" env:"THEME"`
	Legend      bool    `yaml:"legend" json:"legend" env:"LEGEND"`
	Watermark   string  `yaml:"watermark" json:"watermark" env:"WATERMARK"`
	TickStepMin int     `yaml:"tick_step_min" json:"tick_step_min" env:"TICK_STEP_MIN"`
	CellCap     int     `yaml:"cell_cap" json:"cell_cap" env:"CELL_CAP"`
	DPI         float64 `yaml:"dpi" json:"dpi" env:"DPI"`
	JPEGQuality int     `yaml:"jpeg_quality" json:"jpeg_quality" env:"JPEG_QUALITY"`
	Oversample  float64 `yaml:"oversample" json:"oversample" env:"OVERSAMPLE"`
	MarginPt    float64 `yaml:"margin_pt" json:"margin_pt" env:"MARGIN_PT"`

	// TimeoutSec bounds one browser capture.
	TimeoutSec int    `yaml:"timeout_sec" json:"timeout_sec" env:"TIMEOUT_SEC"`
	ChromePath string `yaml:"chrome_path" json:"chrome_path" env:"CHROME_PATH"`
	NoSandbox  bool   `yaml:"no_sandbox" json:"no_sandbox" env:"NO_SANDBOX"`

	// FontMetrics measures text with the bundled Go Bold face instead of
	// the width heuristic.
	FontMetrics bool `yaml:"font_metrics" json:"font_metrics" env:"FONT_METRICS"`
}

// AutoExportConfig periodically writes the stored planner state to disk.
// Disabled while Cron is empty.
type AutoExportConfig struct {
	Cron      string   `yaml:"cron" json:"cron" env:"CRON"`
	OutputDir string   `yaml:"output_dir" json:"output_dir" env:"OUTPUT_DIR"`
	Formats   []string `yaml:"formats" json:"formats" env:"FORMATS" envSeparator:","`
	Title     string   `yaml:"title" json:"title" env:"TITLE"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen" env:"LISTEN"`

	// DataDir holds the planner store.
	DataDir string `yaml:"data_dir" json:"data_dir" env:"DATA_DIR"`

	// AssetsDir resolves decoration images for inlining.
	AssetsDir string `yaml:"assets_dir" json:"assets_dir" env:"ASSETS_DIR"`

	// AssetBaseURL prefixes decoration refs in the poster. Either a path
	// below AssetsDir ("/") or an http(s) origin.
	AssetBaseURL string `yaml:"asset_base_url" json:"asset_base_url" env:"ASSET_BASE_URL"`

	// Timezone is the IANA zone calendar exports are written in.
	Timezone string `yaml:"timezone" json:"timezone" env:"TIMEZONE"`

	Log        LogConfig        `yaml:"log" json:"log" envPrefix:"LOG_"`
	Locale     LocaleConfig     `yaml:"locale" json:"locale" envPrefix:"LOCALE_"`
	Export     ExportConfig     `yaml:"export" json:"export" envPrefix:"EXPORT_"`
	AutoExport AutoExportConfig `yaml:"auto_export" json:"auto_export" envPrefix:"AUTO_EXPORT_"`

	// ICS lists calendars importable by ID.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty" env:",init" envPrefix:"BASIC_AUTH_"`
}

var defaultDays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.AssetsDir == "" {
		c.AssetsDir = "assets"
	}
	if c.AssetBaseURL == "" {
		c.AssetBaseURL = "/"
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
		c.Log.Level = strings.ToLower(c.Log.Level)
	default:
		c.Log.Level = "info"
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		c.Log.Format = "console"
	}

	if len(c.Locale.Days) != 7 {
		c.Locale.Days = append([]string(nil), defaultDays...)
	}
	if c.Locale.LunchLabel == "" {
		c.Locale.LunchLabel = "Lunch"
	}

	e := &c.Export
	if e.Format == "" {
		e.Format = "a4"
	}
	if e.Theme == "" {
		e.Theme = "classic"
	}
	if e.TickStepMin < 0 {
		e.TickStepMin = 0
	}
	if e.CellCap < 0 {
		e.CellCap = 0
	}
	if e.DPI <= 0 {
		e.DPI = 240
	}
	if e.JPEGQuality < 1 || e.JPEGQuality > 100 {
		e.JPEGQuality = 93
	}
	if e.Oversample < 1 {
		e.Oversample = 1.3
	}
	if e.MarginPt < 0 {
		e.MarginPt = 0
	}
	if e.TimeoutSec <= 0 {
		e.TimeoutSec = 60
	}

	if c.AutoExport.OutputDir == "" {
		c.AutoExport.OutputDir = filepath.Join(c.DataDir, "exports")
	}
	if len(c.AutoExport.Formats) == 0 {
		c.AutoExport.Formats = []string{"png"}
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	if c.BasicAuth != nil && c.BasicAuth.Username == "" && c.BasicAuth.Password == "" {
		c.BasicAuth = nil
	}
}

// ApplyEnv overrides fields from WEEKPOSTER_* environment variables.
func (c *Config) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("config: env: %w", err)
	}
	c.Normalize()
	return nil
}

// Load loads configuration from the given YAML path, then applies
// environment overrides.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
//
// Environment overrides are never written back to the file.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	var cfg *Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = DefaultConfig()
		if err := Save(path, cfg); err != nil {
			return cfg, err
		}
	case err != nil:
		return nil, err
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.Normalize()
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
	return writeFileAtomic(path, data)
}

// writeFileAtomic writes data to path through a temp file in the same
// directory, leaving the file with 0600 permissions.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
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
