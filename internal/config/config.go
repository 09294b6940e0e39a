// Package config loads the runtime configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/example/srsbot/internal/spaced_repetition"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

const (
	DBSQLite   = "sqlite"
	DBPostgres = "postgres"
	DBMemory   = "memory"
)

// Config is the process configuration.
type Config struct {
	TelegramToken            string          `env:"TELEGRAM_BOT_TOKEN"`
	DBType                   string          `env:"DB_TYPE" envDefault:"sqlite"`
	DatabaseURL              string          `env:"DATABASE_URL" envDefault:"srsbot.db"`
	MaxLessonSize            int             `env:"MAXIMUM_LESSON_SIZE" envDefault:"20"`
	WaitIntervals            []time.Duration `env:"WAIT_INTERVALS" envDefault:"0s,4h,8h,24h,48h,168h,336h,720h,2880h" envSeparator:","`
	MasteryThreshold         int             `env:"MASTERY_THRESHOLD" envDefault:"5"`
	MaxSRSLevel              int             `env:"MAX_SRS_LEVEL" envDefault:"9"`
	HighConfidenceMultiplier int             `env:"HIGH_CONFIDENCE_MULTIPLIER" envDefault:"2"`
	NotificationStartHour    int             `env:"NOTIFICATION_START_HOUR" envDefault:"8"`
	NotificationEndHour      int             `env:"NOTIFICATION_END_HOUR" envDefault:"22"`
	ReminderInterval         time.Duration   `env:"REMINDER_INTERVAL" envDefault:"1h"`
	AdminUserIDs             []int64         `env:"ADMIN_USER_IDS" envSeparator:","`
	MetricsAddr              string          `env:"METRICS_ADDR"`
	LogLevel                 string          `env:"LOG_LEVEL" envDefault:"info"`
	TelegramRateLimit        float64         `env:"TELEGRAM_RATE_LIMIT" envDefault:"25"`
}

// Load reads the given .env files (".env" when none are named), then parses
// and validates the environment. Missing files are ignored; variables already
// set in the environment win over file values.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	cfg := &Config{}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks value ranges. The bot token is checked separately by
// RequireToken since only serving needs it.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains([]string{DBSQLite, DBPostgres, DBMemory}, c.DBType) {
		errs = append(errs, fmt.Errorf("DB_TYPE %q: want sqlite, postgres or memory", c.DBType))
	}
	if c.DBType != DBMemory && c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is empty"))
	}
	if c.MaxLessonSize <= 0 {
		errs = append(errs, fmt.Errorf("MAXIMUM_LESSON_SIZE %d: must be positive", c.MaxLessonSize))
	}
	if c.NotificationStartHour < 0 || c.NotificationEndHour > 24 || c.NotificationStartHour >= c.NotificationEndHour {
		errs = append(errs, fmt.Errorf("notification window %d-%d: want 0 <= start < end <= 24",
			c.NotificationStartHour, c.NotificationEndHour))
	}
	if c.ReminderInterval < time.Minute {
		errs = append(errs, fmt.Errorf("REMINDER_INTERVAL %s: at least one minute", c.ReminderInterval))
	}
	if c.TelegramRateLimit <= 0 {
		errs = append(errs, fmt.Errorf("TELEGRAM_RATE_LIMIT %v: must be positive", c.TelegramRateLimit))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Leveler().Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// RequireToken fails when TELEGRAM_BOT_TOKEN is unset.
func (c *Config) RequireToken() error {
	if strings.TrimSpace(c.TelegramToken) == "" {
		return fmt.Errorf("%w: TELEGRAM_BOT_TOKEN is not set", ErrInvalid)
	}
	return nil
}

// Leveler builds the leveling tunables.
func (c *Config) Leveler() *spaced_repetition.Leveler {
	l := spaced_repetition.NewLeveler()
	l.MasteryThreshold = c.MasteryThreshold
	l.HighConfidenceBand = c.MasteryThreshold
	l.Multiplier = c.HighConfidenceMultiplier
	l.MaxLevel = c.MaxSRSLevel
	if len(c.WaitIntervals) > 0 {
		l.WaitIntervals = append([]time.Duration(nil), c.WaitIntervals...)
	}
	return l
}

// SlogLevel parses LOG_LEVEL.
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

// IsAdmin reports whether userID may run admin commands.
func (c *Config) IsAdmin(userID int64) bool {
	return slices.Contains(c.AdminUserIDs, userID)
}
