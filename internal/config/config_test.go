package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"COLLECTOR_CONFIG", "COLLECTOR_ENV_FILE", "COLLECTOR_LOG_LEVEL", "COLLECTOR_PRETTY_LOG", "COLLECTOR_DASHBOARD_ADDR"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	if cfg.ConfigFile != "config.yml" {
		t.Errorf("ConfigFile = %q, want config.yml", cfg.ConfigFile)
	}
	if cfg.EnvFile != ".env" {
		t.Errorf("EnvFile = %q, want .env", cfg.EnvFile)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if !cfg.PrettyLog {
		t.Error("PrettyLog should default to true")
	}
	if cfg.DashboardAddr != ":8080" {
		t.Errorf("DashboardAddr = %q, want :8080", cfg.DashboardAddr)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("COLLECTOR_CONFIG", "/etc/collector/config.yml")
	t.Setenv("COLLECTOR_LOG_LEVEL", "DEBUG")
	t.Setenv("COLLECTOR_PRETTY_LOG", "false")
	t.Setenv("COLLECTOR_DASHBOARD_ADDR", "127.0.0.1:9000")

	cfg := Load()
	if cfg.ConfigFile != "/etc/collector/config.yml" {
		t.Errorf("ConfigFile = %q", cfg.ConfigFile)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.PrettyLog {
		t.Error("PrettyLog should be false")
	}
	if cfg.DashboardAddr != "127.0.0.1:9000" {
		t.Errorf("DashboardAddr = %q", cfg.DashboardAddr)
	}
}

func TestMustBool(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      bool
		expected bool
	}{
		{name: "true value", value: "true", def: false, expected: true},
		{name: "false value", value: "0", def: true, expected: false},
		{name: "invalid value uses default", value: "maybe", def: true, expected: true},
		{name: "missing variable uses default", value: "", def: false, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_COLLECTOR_BOOL", tt.value)
			if got := mustBool("TEST_COLLECTOR_BOOL", tt.def); got != tt.expected {
				t.Errorf("mustBool() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestLogLevelFallback(t *testing.T) {
	tests := map[string]string{
		"warn":    "warn",
		"Error":   "error",
		"verbose": "info",
		"":        "info",
	}
	for in, want := range tests {
		if got := logLevel(in); got != want {
			t.Errorf("logLevel(%q) = %q, want %q", in, got, want)
		}
	}
}
