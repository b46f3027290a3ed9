package glucose

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"unicode/utf8"

	"github.com/tailscale/hujson"
)

// ConfigFileName is the default config file name, looked up in the
// working directory.
const ConfigFileName = ".glucoflow.json"

// Environment variable names recognized by LoadConfig. A .env file in
// the working directory is merged into the environment by main.
const (
	EnvConfig                = "GLUCOFLOW_CONFIG"
	EnvPeakThreshold         = "GLUCOFLOW_PEAK_THRESHOLD"
	EnvPostprandialThreshold = "GLUCOFLOW_POSTPRANDIAL_THRESHOLD"
)

// Config holds the input schema and analysis thresholds. Exporting
// devices vary column names and delimiters across firmware versions,
// so the schema is fully configurable.
type Config struct {
	// TimestampColumn names the column holding the reading time.
	TimestampColumn string `json:"timestamp_column"`

	// TimestampLayout is the Go time layout of TimestampColumn.
	TimestampLayout string `json:"timestamp_layout"`

	// GlucoseColumns is an ordered list of candidate value columns;
	// per row, the first column with a non-empty value wins.
	GlucoseColumns []string `json:"glucose_columns"`

	// NotesColumn names the free-text annotation column.
	NotesColumn string `json:"notes_column"`

	// Delimiter is the field separator, a single rune.
	Delimiter string `json:"delimiter"`

	// SkipLines is the number of device metadata lines preceding the
	// header row.
	SkipLines int `json:"skip_lines"`

	// Thresholds in mmol/L for the high-excursion flags.
	PeakThreshold         float64 `json:"peak_threshold"`
	PostprandialThreshold float64 `json:"postprandial_threshold"`
}

// DefaultConfig targets the LibreView CSV export schema.
func DefaultConfig() Config {
	return Config{
		TimestampColumn:       "Device Timestamp",
		TimestampLayout:       "02-01-2006 15:04",
		GlucoseColumns:        []string{"Scan Glucose mmol/L", "Historic Glucose mmol/L"},
		NotesColumn:           "Notes",
		Delimiter:             ",",
		SkipLines:             1,
		PeakThreshold:         DefaultPeakThreshold,
		PostprandialThreshold: DefaultPostprandialThreshold,
	}
}

// LoadConfig resolves configuration with the following precedence
// (highest wins): defaults, config file, environment. Flag overrides
// are applied by the caller on top.
//
// The config file is explicitPath if non-empty, else $GLUCOFLOW_CONFIG,
// else ConfigFileName in the working directory. An explicitly named
// file must exist; the default location is optional. The file is
// HuJSON, so comments and trailing commas are fine.
func LoadConfig(explicitPath string, env map[string]string) (Config, error) {
	cfg := DefaultConfig()

	path := explicitPath
	if path == "" {
		path = env[EnvConfig]
	}

	required := path != ""
	if path == "" {
		path = ConfigFileName
	}

	data, err := os.ReadFile(path)

	switch {
	case err == nil:
		if err := unmarshalConfig(data, path, &cfg); err != nil {
			return Config{}, err
		}
	case os.IsNotExist(err) && !required:
		// Defaults only.
	default:
		return Config{}, fmt.Errorf("%w: %s: %v", ErrConfigFileRead, path, err)
	}

	if err := applyEnv(&cfg, env); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func unmarshalConfig(data []byte, path string, cfg *Config) error {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConfigInvalid, path, err)
	}

	if err := json.Unmarshal(standardized, cfg); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConfigInvalid, path, err)
	}

	return nil
}

func applyEnv(cfg *Config, env map[string]string) error {
	for _, e := range []struct {
		name   string
		target *float64
	}{
		{EnvPeakThreshold, &cfg.PeakThreshold},
		{EnvPostprandialThreshold, &cfg.PostprandialThreshold},
	} {
		raw, ok := env[e.name]
		if !ok || raw == "" {
			continue
		}

		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("%w: %s: %q is not a number", ErrConfigInvalid, e.name, raw)
		}

		*e.target = v
	}

	return nil
}

// Validate checks the schema and thresholds. Callers layering flag
// overrides on top of a loaded config re-validate the result.
func (cfg Config) Validate() error {
	if cfg.TimestampColumn == "" {
		return fmt.Errorf("%w: timestamp_column cannot be empty", ErrConfigInvalid)
	}

	if cfg.TimestampLayout == "" {
		return fmt.Errorf("%w: timestamp_layout cannot be empty", ErrConfigInvalid)
	}

	if len(cfg.GlucoseColumns) == 0 {
		return fmt.Errorf("%w: glucose_columns cannot be empty", ErrConfigInvalid)
	}

	for _, col := range cfg.GlucoseColumns {
		if col == "" {
			return fmt.Errorf("%w: glucose_columns entries cannot be empty", ErrConfigInvalid)
		}
	}

	if cfg.NotesColumn == "" {
		return fmt.Errorf("%w: notes_column cannot be empty", ErrConfigInvalid)
	}

	if utf8.RuneCountInString(cfg.Delimiter) != 1 {
		return fmt.Errorf("%w: delimiter must be a single character, got %q", ErrConfigInvalid, cfg.Delimiter)
	}

	if cfg.SkipLines < 0 {
		return fmt.Errorf("%w: skip_lines cannot be negative", ErrConfigInvalid)
	}

	if cfg.PeakThreshold <= 0 {
		return fmt.Errorf("%w: peak_threshold must be positive", ErrConfigInvalid)
	}

	if cfg.PostprandialThreshold <= 0 {
		return fmt.Errorf("%w: postprandial_threshold must be positive", ErrConfigInvalid)
	}

	return nil
}

// Thresholds returns the configured flag cutoffs.
func (c Config) Thresholds() Thresholds {
	return Thresholds{
		Peak:         Value(c.PeakThreshold),
		Postprandial: Value(c.PostprandialThreshold),
	}
}
