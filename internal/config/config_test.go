package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Strategy != "last-wins" {
		t.Errorf("Default strategy = %q, want %q", cfg.Strategy, "last-wins")
	}
	if cfg.Format != "text" {
		t.Errorf("Default format = %q, want %q", cfg.Format, "text")
	}
	if cfg.Emit != "properties" {
		t.Errorf("Default emit = %q, want %q", cfg.Emit, "properties")
	}
	if cfg.FailOn != "error" {
		t.Errorf("Default failOn = %q, want %q", cfg.FailOn, "error")
	}
	if len(cfg.Include) != 2 {
		t.Errorf("Default include = %v", cfg.Include)
	}
	if cfg.Workers < 1 {
		t.Errorf("Default workers = %d", cfg.Workers)
	}
	if !cfg.Cache.Enabled {
		t.Error("Default cache should be enabled")
	}
	if !cfg.Privacy.RedactSecrets {
		t.Error("Default redactSecrets should be true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestMergeEnv(t *testing.T) {
	t.Setenv("GRADLEREC_STRATEGY", "max-numeric")
	t.Setenv("GRADLEREC_FORMAT", "json")
	t.Setenv("GRADLEREC_FAIL_ON", "warning")
	t.Setenv("GRADLEREC_WORKERS", "3")
	t.Setenv("GRADLEREC_REQUIRED", "namespace, minSdk")
	t.Setenv("GRADLEREC_CACHE", "false")

	cfg := Default()
	if err := mergeEnv(&cfg); err != nil {
		t.Fatalf("mergeEnv error: %v", err)
	}

	if cfg.Strategy != "max-numeric" {
		t.Errorf("Strategy = %q, want %q", cfg.Strategy, "max-numeric")
	}
	if cfg.Format != "json" {
		t.Errorf("Format = %q, want %q", cfg.Format, "json")
	}
	if cfg.FailOn != "warning" {
		t.Errorf("FailOn = %q, want %q", cfg.FailOn, "warning")
	}
	if cfg.Workers != 3 {
		t.Errorf("Workers = %d, want 3", cfg.Workers)
	}
	if len(cfg.Required) != 2 || cfg.Required[1] != "minSdk" {
		t.Errorf("Required = %v", cfg.Required)
	}
	if cfg.Cache.Enabled {
		t.Error("Cache should be disabled by GRADLEREC_CACHE=false")
	}
}

func TestMergeEnv_InvalidWorkers(t *testing.T) {
	t.Setenv("GRADLEREC_WORKERS", "notanumber")

	cfg := Default()
	if err := mergeEnv(&cfg); err == nil {
		t.Error("Expected error for invalid GRADLEREC_WORKERS")
	}
}

func TestSetField(t *testing.T) {
	cfg := Default()

	tests := []struct {
		key   string
		value string
	}{
		{"strategy", "first-wins"},
		{"policyFile", "policy.yaml"},
		{"format", "markdown"},
		{"emit", "json"},
		{"failOn", "warning"},
		{"include", "*.gradle.kts"},
		{"exclude", "**/build/**,**/tmp/**"},
		{"required", ""},
		{"workers", "2"},
		{"cache.enabled", "false"},
		{"cache.dir", "/tmp/cache"},
		{"cache.ttlSeconds", "60"},
		{"privacy.redactSecrets", "false"},
		{"privacy.redactPaths", "**/secrets/**"},
	}

	for _, tt := range tests {
		if err := SetField(&cfg, tt.key, tt.value); err != nil {
			t.Errorf("SetField(%q, %q) error: %v", tt.key, tt.value, err)
		}
	}

	if cfg.Strategy != "first-wins" {
		t.Errorf("Strategy = %q, want %q", cfg.Strategy, "first-wins")
	}
	if len(cfg.Exclude) != 2 {
		t.Errorf("Exclude = %v, want 2 entries", cfg.Exclude)
	}
	if cfg.Required == nil || len(cfg.Required) != 0 {
		t.Errorf("Required = %#v, want empty non-nil", cfg.Required)
	}
	if cfg.Cache.TTLSeconds != 60 {
		t.Errorf("TTLSeconds = %d, want 60", cfg.Cache.TTLSeconds)
	}
	if cfg.Privacy.RedactSecrets {
		t.Error("RedactSecrets should be false")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate error: %v", err)
	}
}

func TestSetField_EveryKey(t *testing.T) {
	for _, key := range Keys {
		cfg := Default()
		value := "x"
		switch key {
		case "workers", "cache.ttlSeconds":
			value = "1"
		case "cache.enabled", "privacy.redactSecrets":
			value = "true"
		}
		if err := SetField(&cfg, key, value); err != nil {
			t.Errorf("SetField(%q) error: %v", key, err)
		}
	}
}

func TestSetField_UnknownKey(t *testing.T) {
	cfg := Default()
	if err := SetField(&cfg, "nonexistent", "value"); err == nil {
		t.Error("Expected error for unknown key")
	}
}

func TestSetField_InvalidValues(t *testing.T) {
	cfg := Default()
	for key, value := range map[string]string{
		"workers":               "many",
		"cache.enabled":         "maybe",
		"cache.ttlSeconds":      "1h",
		"privacy.redactSecrets": "sometimes",
	} {
		if err := SetField(&cfg, key, value); err == nil {
			t.Errorf("SetField(%q, %q) should fail", key, value)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		apply func(*Config)
	}{
		{"strategy", func(c *Config) { c.Strategy = "newest" }},
		{"format", func(c *Config) { c.Format = "html" }},
		{"emit", func(c *Config) { c.Emit = "xml" }},
		{"failOn", func(c *Config) { c.FailOn = "high" }},
		{"workers", func(c *Config) { c.Workers = 0 }},
		{"ttl", func(c *Config) { c.Cache.TTLSeconds = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.apply(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	writeConfig(t, dir, `{"strategy": "first-wins", "format": "json", "workers": 2}`)
	t.Setenv("GRADLEREC_FORMAT", "markdown")

	cfg, err := Load(map[string]string{"strategy": "max-numeric"})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Strategy != "max-numeric" {
		t.Errorf("Strategy = %q, override should win", cfg.Strategy)
	}
	if cfg.Format != "markdown" {
		t.Errorf("Format = %q, env should beat the file", cfg.Format)
	}
	if cfg.Workers != 2 {
		t.Errorf("Workers = %d, file should beat defaults", cfg.Workers)
	}
	if cfg.Emit != "properties" {
		t.Errorf("Emit = %q, unset keys keep defaults", cfg.Emit)
	}
}

func TestLoad_FileBoolFalse(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	writeConfig(t, dir, `{"cache": {"enabled": false}, "privacy": {"redactSecrets": false}}`)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Cache.Enabled {
		t.Error("Cache.Enabled should be false when file explicitly sets it")
	}
	if cfg.Privacy.RedactSecrets {
		t.Error("RedactSecrets should be false when file explicitly sets it")
	}
	if cfg.Cache.TTLSeconds != Default().Cache.TTLSeconds {
		t.Errorf("TTLSeconds = %d, omitted nested keys keep defaults", cfg.Cache.TTLSeconds)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	writeConfig(t, dir, `{not json`)

	if _, err := Load(nil); err == nil {
		t.Error("Expected error for malformed config file")
	}
}

func TestLoad_InvalidOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	if _, err := Load(map[string]string{"failOn": "never"}); err == nil {
		t.Error("Expected validation error for failOn override")
	}
}

func TestConfigDir_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")
	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir error: %v", err)
	}
	if dir != "/tmp/xdg-test/gradlerec" {
		t.Errorf("ConfigDir = %q, want %q", dir, "/tmp/xdg-test/gradlerec")
	}

	path, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath error: %v", err)
	}
	if path != "/tmp/xdg-test/gradlerec/config.json" {
		t.Errorf("ConfigPath = %q", path)
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := Default()
	cfg.Strategy = "union"
	cfg.Required = []string{"namespace"}
	if err := Save(cfg); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	loaded, err := LoadFile()
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if loaded.Strategy != "union" {
		t.Errorf("Strategy = %q, want %q", loaded.Strategy, "union")
	}
	if len(loaded.Required) != 1 || loaded.Required[0] != "namespace" {
		t.Errorf("Required = %v", loaded.Required)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := LoadFile()
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if cfg.Strategy != Default().Strategy {
		t.Errorf("missing file should yield defaults, got %+v", cfg)
	}
}

func writeConfig(t *testing.T, xdg, content string) {
	t.Helper()
	dir := filepath.Join(xdg, "gradlerec")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
