// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zone database for CRMVAULT_TIME_ZONE validation

	"github.com/spf13/pflag"
)

// MinKDFIterations mirrors the floor enforced by the key derivation adapter.
const MinKDFIterations = 100_000

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr       string
	DBPath           string
	Origin           string
	Locale           string
	TimeZone         string
	RememberTTL      time.Duration
	KDFIterations    int
	StoreOpenTimeout time.Duration
	Notice           string
	LogLevel         slog.Level
}

// Load reads configuration from environment variables and returns a validated Config.
// All variables are optional: CRMVAULT_LISTEN_ADDR (127.0.0.1:8080),
// CRMVAULT_DB_PATH (crmvault.db), CRMVAULT_ORIGIN (http://127.0.0.1:8080),
// CRMVAULT_LOCALE (from LC_ALL/LC_MESSAGES/LANG), CRMVAULT_TIME_ZONE (from TZ
// or /etc/localtime), CRMVAULT_REMEMBER_TTL (2160h), CRMVAULT_KDF_ITERATIONS
// (100000), CRMVAULT_STORE_OPEN_TIMEOUT (5s), CRMVAULT_NOTICE (empty),
// CRMVAULT_LOG_LEVEL (info).
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:       "127.0.0.1:8080",
		DBPath:           "crmvault.db",
		Origin:           "http://127.0.0.1:8080",
		Locale:           detectLocale(),
		TimeZone:         detectTimeZone(),
		RememberTTL:      90 * 24 * time.Hour,
		KDFIterations:    MinKDFIterations,
		StoreOpenTimeout: 5 * time.Second,
		LogLevel:         slog.LevelInfo,
	}

	if v, ok := os.LookupEnv("CRMVAULT_LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}
	if v, ok := os.LookupEnv("CRMVAULT_DB_PATH"); ok {
		cfg.DBPath = v
	}
	if v, ok := os.LookupEnv("CRMVAULT_ORIGIN"); ok {
		cfg.Origin = v
	}
	if v, ok := os.LookupEnv("CRMVAULT_LOCALE"); ok && v != "" {
		cfg.Locale = v
	}
	if v, ok := os.LookupEnv("CRMVAULT_TIME_ZONE"); ok && v != "" {
		cfg.TimeZone = v
	}
	if v, ok := os.LookupEnv("CRMVAULT_NOTICE"); ok {
		cfg.Notice = v
	}

	if v, ok := os.LookupEnv("CRMVAULT_REMEMBER_TTL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("CRMVAULT_REMEMBER_TTL has invalid duration %q: %w", v, err)
		}
		cfg.RememberTTL = parsed
	}

	if v, ok := os.LookupEnv("CRMVAULT_STORE_OPEN_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("CRMVAULT_STORE_OPEN_TIMEOUT has invalid duration %q: %w", v, err)
		}
		cfg.StoreOpenTimeout = parsed
	}

	if v, ok := os.LookupEnv("CRMVAULT_KDF_ITERATIONS"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("CRMVAULT_KDF_ITERATIONS has invalid integer %q: %w", v, err)
		}
		cfg.KDFIterations = parsed
	}

	if v, ok := os.LookupEnv("CRMVAULT_LOG_LEVEL"); ok {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("CRMVAULT_LOG_LEVEL has invalid level %q: %w", v, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyFlags overrides cfg with command-line flags parsed from args
// (without the program name). Flags not given leave cfg unchanged.
func ApplyFlags(cfg *Config, args []string) error {
	fs := pflag.NewFlagSet("crmvault", pflag.ContinueOnError)
	listenAddr := fs.String("listen-addr", cfg.ListenAddr, "HTTP listen address")
	dbPath := fs.String("db-path", cfg.DBPath, "SQLite database path")
	origin := fs.String("origin", cfg.Origin, "origin the CRM front end is served from")
	locale := fs.String("locale", cfg.Locale, "user locale fingerprinted into the vault key")
	timeZone := fs.String("time-zone", cfg.TimeZone, "IANA time zone fingerprinted into the vault key")
	logLevel := fs.String("log-level", cfg.LogLevel.String(), "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	cfg.ListenAddr = *listenAddr
	cfg.DBPath = *dbPath
	cfg.Origin = *origin
	cfg.Locale = *locale
	cfg.TimeZone = *timeZone
	if fs.Changed("log-level") {
		if err := cfg.LogLevel.UnmarshalText([]byte(*logLevel)); err != nil {
			return fmt.Errorf("--log-level has invalid level %q: %w", *logLevel, err)
		}
	}

	return cfg.validate()
}

func (c *Config) validate() error {
	if c.RememberTTL <= 0 {
		return fmt.Errorf("CRMVAULT_REMEMBER_TTL must be positive, got %s", c.RememberTTL)
	}
	if c.StoreOpenTimeout <= 0 {
		return fmt.Errorf("CRMVAULT_STORE_OPEN_TIMEOUT must be positive, got %s", c.StoreOpenTimeout)
	}
	if c.KDFIterations < MinKDFIterations {
		return fmt.Errorf("CRMVAULT_KDF_ITERATIONS must be at least %d, got %d", MinKDFIterations, c.KDFIterations)
	}
	if c.TimeZone != "" {
		if _, err := time.LoadLocation(c.TimeZone); err != nil {
			return fmt.Errorf("CRMVAULT_TIME_ZONE %q is not a known IANA zone: %w", c.TimeZone, err)
		}
	}
	return nil
}

// detectLocale follows POSIX precedence: LC_ALL, then LC_MESSAGES, then LANG.
func detectLocale() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

func detectTimeZone() string {
	if v := strings.TrimSpace(os.Getenv("TZ")); v != "" {
		return strings.TrimPrefix(v, ":")
	}
	// /etc/localtime is usually a symlink into the zoneinfo tree.
	if target, err := os.Readlink("/etc/localtime"); err == nil {
		if _, name, ok := strings.Cut(target, "zoneinfo/"); ok {
			return name
		}
	}
	return ""
}
