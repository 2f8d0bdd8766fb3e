package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds process-level settings. Collection settings (sources, terms,
// output dir) live in the YAML file read by the ingest package.
type Config struct {
	ConfigFile    string // path to config.yml
	EnvFile       string // optional .env with credentials
	LogLevel      string // "debug" | "info" | "warn" | "error"
	PrettyLog     bool   // true => zap dev (color), false => zap prod (JSON)
	DashboardAddr string // listen address for `collector serve`
}

func Load() *Config {
	return &Config{
		ConfigFile:    getenv("COLLECTOR_CONFIG", "config.yml"),
		EnvFile:       getenv("COLLECTOR_ENV_FILE", ".env"),
		LogLevel:      logLevel(getenv("COLLECTOR_LOG_LEVEL", "info")),
		PrettyLog:     mustBool("COLLECTOR_PRETTY_LOG", true),
		DashboardAddr: getenv("COLLECTOR_DASHBOARD_ADDR", ":8080"),
	}
}

// helpers
func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func logLevel(v string) string {
	switch l := strings.ToLower(v); l {
	case "debug", "info", "warn", "error":
		return l
	default:
		return "info"
	}
}
