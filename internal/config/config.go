package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// InsecureJWTSecret is the built-in development secret. Validate rejects it
// outside development.
const InsecureJWTSecret = "dev-insecure-secret"

type Config struct {
	Addr           string             `yaml:"addr"`
	Env            string             `yaml:"env"`
	JWTSecret      string             `yaml:"jwt_secret"`
	APITimeout     time.Duration      `yaml:"timeout"`
	DatabasePath   string             `yaml:"database_path"`
	MigrateOnStart bool               `yaml:"migrate_on_start"`
	TokenDuration  time.Duration      `yaml:"token_duration"`
	LogLevel       string             `yaml:"log_level"`
	Analytics      AnalyticsConfig    `yaml:"analytics"`
	Notifications  NotificationConfig `yaml:"notifications"`
}

type AnalyticsConfig struct {
	// TopCategories caps the category breakdown.
	TopCategories int `yaml:"top_categories"`
	// DefaultWeeklyHours applies to engineers created without a requirement.
	DefaultWeeklyHours float64 `yaml:"default_weekly_hours"`
	// WeekStart is the first day of a calendar week ("sunday" or "monday").
	WeekStart string `yaml:"week_start"`
	// Timezone resolves "today" for period presets.
	Timezone string `yaml:"timezone"`
}

type NotificationConfig struct {
	// VisibleLimit caps the notifications listed for one engineer.
	VisibleLimit int `yaml:"visible_limit"`
	// SubscriberBuffer is the per-subscriber change signal buffer.
	SubscriberBuffer int `yaml:"subscriber_buffer"`
	// PingInterval keeps websocket change feeds alive.
	PingInterval time.Duration `yaml:"ping_interval"`
}

// LoadConfig builds the configuration from defaults, the environment (after
// loading an optional .env file) and finally the YAML file at path, if any.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Addr:          getEnv("FIELDLOG_ADDR", ":8080"),
		Env:           getEnv("FIELDLOG_ENV", "production"),
		JWTSecret:     getEnv("FIELDLOG_JWT_SECRET", InsecureJWTSecret),
		APITimeout:    getDuration("FIELDLOG_TIMEOUT", 15*time.Second),
		DatabasePath:  getEnv("FIELDLOG_DATABASE_PATH", "fieldlog.db"),
		TokenDuration: getDuration("FIELDLOG_TOKEN_DURATION", 12*time.Hour),
		LogLevel:      getEnv("FIELDLOG_LOG_LEVEL", "info"),
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	return cfg, nil
}

// Validate checks required settings and fills defaults for optional sections.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	if c.DatabasePath == "" {
		return errors.New("database_path is required")
	}
	if c.JWTSecret == "" {
		return errors.New("jwt_secret is required")
	}
	if c.JWTSecret == InsecureJWTSecret && !c.IsDevelopment() {
		return errors.New("jwt_secret must be changed outside development (set FIELDLOG_JWT_SECRET)")
	}
	if c.APITimeout <= 0 {
		c.APITimeout = 15 * time.Second
	}
	if c.TokenDuration <= 0 {
		c.TokenDuration = 12 * time.Hour
	}

	if c.Analytics.TopCategories <= 0 {
		c.Analytics.TopCategories = 10
	}
	if c.Analytics.DefaultWeeklyHours <= 0 {
		c.Analytics.DefaultWeeklyHours = 40
	}
	switch strings.ToLower(c.Analytics.WeekStart) {
	case "":
		c.Analytics.WeekStart = "sunday"
	case "sunday", "monday":
		c.Analytics.WeekStart = strings.ToLower(c.Analytics.WeekStart)
	default:
		return fmt.Errorf("analytics.week_start must be sunday or monday, got %q", c.Analytics.WeekStart)
	}
	if c.Analytics.Timezone == "" {
		c.Analytics.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(c.Analytics.Timezone); err != nil {
		return fmt.Errorf("analytics.timezone: %w", err)
	}

	if c.Notifications.VisibleLimit <= 0 {
		c.Notifications.VisibleLimit = 20
	}
	if c.Notifications.SubscriberBuffer <= 0 {
		c.Notifications.SubscriberBuffer = 16
	}
	if c.Notifications.PingInterval <= 0 {
		c.Notifications.PingInterval = 30 * time.Second
	}

	return nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development") || strings.EqualFold(os.Getenv("FIELDLOG_ENV"), "development")
}

// Location returns the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Analytics.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WeekStartDay returns the configured first weekday.
func (c *Config) WeekStartDay() time.Weekday {
	if c.Analytics.WeekStart == "monday" {
		return time.Monday
	}
	return time.Sunday
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
