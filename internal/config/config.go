package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/dshills/gradlerec/internal/output"
	"github.com/dshills/gradlerec/internal/reconcile"
	"github.com/dshills/gradlerec/internal/source"
)

// Config represents the gradlerec configuration.
type Config struct {
	Strategy   string        `json:"strategy"`
	PolicyFile string        `json:"policyFile,omitempty"`
	Format     string        `json:"format"`
	Emit       string        `json:"emit"`
	FailOn     string        `json:"failOn"`
	Include    []string      `json:"include"`
	Exclude    []string      `json:"exclude"`
	Required   []string      `json:"required,omitempty"`
	Workers    int           `json:"workers"`
	Cache      CacheConfig   `json:"cache"`
	Privacy    PrivacyConfig `json:"privacy"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled    bool   `json:"enabled"`
	Dir        string `json:"dir,omitempty"`
	TTLSeconds int    `json:"ttlSeconds"`
}

// PrivacyConfig controls report redaction.
type PrivacyConfig struct {
	RedactSecrets bool     `json:"redactSecrets"`
	RedactPaths   []string `json:"redactPaths,omitempty"`
}

// FailOnLevels lists the accepted failOn values.
var FailOnLevels = []string{"error", "warning"}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Strategy: string(reconcile.LastWins),
		Format:   "text",
		Emit:     output.EmitProperties,
		FailOn:   "error",
		Include:  slices.Clone(source.DefaultInclude),
		Exclude:  slices.Clone(source.DefaultExclude),
		Workers:  runtime.NumCPU(),
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 7 * 86400,
		},
		Privacy: PrivacyConfig{
			RedactSecrets: true,
		},
	}
}

// ConfigDir returns the platform-appropriate config directory for gradlerec.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "gradlerec"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "gradlerec"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "gradlerec"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "gradlerec"), nil
	default:
		return filepath.Join(home, ".config", "gradlerec"), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadFile returns the defaults overlaid with the config file. Keys the
// file omits keep their default; a missing file yields Default().
func LoadFile() (Config, error) {
	cfg := Default()
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to the config file.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// The overrides map comes from CLI flags; keys use the SetField names and
// only flags the user set should be present.
func Load(overrides map[string]string) (Config, error) {
	cfg, err := LoadFile()
	if err != nil {
		return Config{}, err
	}
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	for _, key := range sortedKeys(overrides) {
		if err := SetField(&cfg, key, overrides[key]); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKeys maps environment variables to config keys.
var envKeys = []struct{ env, key string }{
	{"GRADLEREC_STRATEGY", "strategy"},
	{"GRADLEREC_POLICY", "policyFile"},
	{"GRADLEREC_FORMAT", "format"},
	{"GRADLEREC_EMIT", "emit"},
	{"GRADLEREC_FAIL_ON", "failOn"},
	{"GRADLEREC_REQUIRED", "required"},
	{"GRADLEREC_WORKERS", "workers"},
	{"GRADLEREC_CACHE", "cache.enabled"},
	{"GRADLEREC_CACHE_DIR", "cache.dir"},
	{"GRADLEREC_REDACT_SECRETS", "privacy.redactSecrets"},
}

func mergeEnv(cfg *Config) error {
	for _, e := range envKeys {
		v := os.Getenv(e.env)
		if v == "" {
			continue
		}
		if err := SetField(cfg, e.key, v); err != nil {
			return fmt.Errorf("%s: %w", e.env, err)
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Keys lists every key SetField accepts.
var Keys = []string{
	"strategy", "policyFile", "format", "emit", "failOn",
	"include", "exclude", "required", "workers",
	"cache.enabled", "cache.dir", "cache.ttlSeconds",
	"privacy.redactSecrets", "privacy.redactPaths",
}

// SetField sets a single config field by key name. List values are
// comma-separated. Returns error if key is unknown or the value malformed.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "strategy":
		cfg.Strategy = value
	case "policyFile":
		cfg.PolicyFile = value
	case "format":
		cfg.Format = value
	case "emit":
		cfg.Emit = value
	case "failOn":
		cfg.FailOn = value
	case "include":
		cfg.Include = splitList(value)
	case "exclude":
		cfg.Exclude = splitList(value)
	case "required":
		cfg.Required = splitList(value)
	case "workers":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("workers must be an integer: %w", err)
		}
		cfg.Workers = n
	case "cache.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("cache.enabled must be a boolean: %w", err)
		}
		cfg.Cache.Enabled = b
	case "cache.dir":
		cfg.Cache.Dir = value
	case "cache.ttlSeconds":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("cache.ttlSeconds must be an integer: %w", err)
		}
		cfg.Cache.TTLSeconds = n
	case "privacy.redactSecrets":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("privacy.redactSecrets must be a boolean: %w", err)
		}
		cfg.Privacy.RedactSecrets = b
	case "privacy.redactPaths":
		cfg.Privacy.RedactPaths = splitList(value)
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

// splitList splits a comma-separated value. An empty value yields an
// empty, non-nil list.
func splitList(v string) []string {
	out := []string{}
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks enumerated values and numeric ranges.
func (c Config) Validate() error {
	if _, err := reconcile.ParseStrategy(c.Strategy); err != nil {
		return fmt.Errorf("invalid strategy: %w", err)
	}
	if !slices.Contains(output.Formats, c.Format) && c.Format != "md" {
		return fmt.Errorf("invalid format %q (want one of %s)", c.Format, strings.Join(output.Formats, ", "))
	}
	if !slices.Contains(output.EmitFormats, c.Emit) {
		return fmt.Errorf("invalid emit %q (want one of %s)", c.Emit, strings.Join(output.EmitFormats, ", "))
	}
	if !slices.Contains(FailOnLevels, c.FailOn) {
		return fmt.Errorf("invalid failOn %q (want one of %s)", c.FailOn, strings.Join(FailOnLevels, ", "))
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Cache.TTLSeconds < 0 {
		return fmt.Errorf("cache.ttlSeconds must not be negative")
	}
	return nil
}
