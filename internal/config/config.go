// Package config loads server settings from a YAML file, a .env file and BOXDESK_* variables,
// in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvProduction disables dev seeding and turns on secure cookies.
const EnvProduction = "production"

// Config is the top-level server configuration.
type Config struct {
	Listen string `yaml:"listen"`
	Env    string `yaml:"env"`

	// DBPath is the SQLite file. Ignored when PostgresDSN is set.
	DBPath      string `yaml:"db_path"`
	PostgresDSN string `yaml:"postgres_dsn"`

	// Timezone is the IANA zone used when a box has none of its own.
	Timezone string `yaml:"timezone"`

	CSRFKey        string   `yaml:"csrf_key"`
	TrustedOrigins []string `yaml:"trusted_origins"`

	AdminEmail    string `yaml:"admin_email"`
	AdminPassword string `yaml:"admin_password"`

	ResendKey string   `yaml:"resend_key"`
	EmailFrom string   `yaml:"email_from"`
	AlertsTo  []string `yaml:"alerts_to"`

	LogDir string `yaml:"log_dir"`
	Debug  bool   `yaml:"debug"`

	SessionTTL         time.Duration `yaml:"session_ttl"`
	ReaperSpec         string        `yaml:"reaper_spec"`
	SlowQueryMs        int           `yaml:"slow_query_ms"`
	RateLimitPerSecond float64       `yaml:"rate_limit_per_second"`
}

// DefaultConfig returns the development defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:             ":8080",
		Env:                "development",
		DBPath:             "boxdesk.db",
		Timezone:           "America/Sao_Paulo",
		EmailFrom:          "Boxdesk <noreply@boxdesk.app>",
		AdminEmail:         "admin@boxdesk.local",
		SessionTTL:         2 * time.Hour,
		ReaperSpec:         "@every 1m",
		SlowQueryMs:        50,
		RateLimitPerSecond: 20,
	}
}

// Normalize fills zero values with defaults so partial files still work.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.Env == "" {
		c.Env = d.Env
	}
	if c.DBPath == "" {
		c.DBPath = d.DBPath
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.EmailFrom == "" {
		c.EmailFrom = d.EmailFrom
	}
	if c.AdminEmail == "" {
		c.AdminEmail = d.AdminEmail
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = d.SessionTTL
	}
	if c.ReaperSpec == "" {
		c.ReaperSpec = d.ReaperSpec
	}
	if c.SlowQueryMs <= 0 {
		c.SlowQueryMs = d.SlowQueryMs
	}
	if c.RateLimitPerSecond <= 0 {
		c.RateLimitPerSecond = d.RateLimitPerSecond
	}
	c.AdminEmail = strings.ToLower(strings.TrimSpace(c.AdminEmail))
}

// IsProduction reports whether Env is production.
func (c *Config) IsProduction() bool { return c.Env == EnvProduction }

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	if c.IsProduction() {
		if len(c.CSRFKey) < 32 {
			return errors.New("csrf_key must be at least 32 bytes in production")
		}
		if c.AdminPassword == "" {
			return errors.New("admin_password is required in production")
		}
	}
	return nil
}

// Location returns the configured default time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads path (optional: a missing file means defaults), then .env, then environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	_ = godotenv.Load()
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(c *Config) error {
	str := map[string]*string{
		"BOXDESK_LISTEN":         &c.Listen,
		"BOXDESK_ENV":            &c.Env,
		"BOXDESK_DB_PATH":        &c.DBPath,
		"BOXDESK_POSTGRES_DSN":   &c.PostgresDSN,
		"BOXDESK_TIMEZONE":       &c.Timezone,
		"BOXDESK_CSRF_KEY":       &c.CSRFKey,
		"BOXDESK_ADMIN_EMAIL":    &c.AdminEmail,
		"BOXDESK_ADMIN_PASSWORD": &c.AdminPassword,
		"BOXDESK_RESEND_KEY":     &c.ResendKey,
		"BOXDESK_EMAIL_FROM":     &c.EmailFrom,
		"BOXDESK_LOG_DIR":        &c.LogDir,
		"BOXDESK_REAPER_SPEC":    &c.ReaperSpec,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("BOXDESK_ALERTS_TO"); v != "" {
		c.AlertsTo = splitList(v)
	}
	if v := os.Getenv("BOXDESK_TRUSTED_ORIGINS"); v != "" {
		c.TrustedOrigins = splitList(v)
	}
	if v := os.Getenv("BOXDESK_DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("BOXDESK_DEBUG: %w", err)
		}
		c.Debug = b
	}
	if v := os.Getenv("BOXDESK_SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("BOXDESK_SESSION_TTL: %w", err)
		}
		c.SessionTTL = d
	}
	if v := os.Getenv("BOXDESK_SLOW_QUERY_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BOXDESK_SLOW_QUERY_MS: %w", err)
		}
		c.SlowQueryMs = n
	}
	if v := os.Getenv("BOXDESK_RATE_LIMIT_PER_SECOND"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("BOXDESK_RATE_LIMIT_PER_SECOND: %w", err)
		}
		c.RateLimitPerSecond = f
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
