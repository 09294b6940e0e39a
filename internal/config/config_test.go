package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"TELEGRAM_BOT_TOKEN", "DB_TYPE", "DATABASE_URL", "MAXIMUM_LESSON_SIZE",
	"WAIT_INTERVALS", "MASTERY_THRESHOLD", "MAX_SRS_LEVEL", "HIGH_CONFIDENCE_MULTIPLIER",
	"NOTIFICATION_START_HOUR", "NOTIFICATION_END_HOUR", "REMINDER_INTERVAL",
	"ADMIN_USER_IDS", "METRICS_ADDR", "LOG_LEVEL", "TELEGRAM_RATE_LIMIT",
}

// cleanEnv unsets every config key for the duration of the test.
func cleanEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_Defaults(t *testing.T) {
	cleanEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, DBSQLite, cfg.DBType)
	assert.Equal(t, 20, cfg.MaxLessonSize)
	assert.Len(t, cfg.WaitIntervals, 9)
	assert.Equal(t, time.Hour, cfg.ReminderInterval)

	l := cfg.Leveler()
	wait, ok := l.WaitInterval(4)
	assert.True(t, ok)
	assert.Equal(t, 48*time.Hour, wait)
	assert.Equal(t, 5, l.MasteryThreshold)

	lvl, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)

	assert.ErrorIs(t, cfg.RequireToken(), ErrInvalid)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	cleanEnv(t)
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(
		"TELEGRAM_BOT_TOKEN=123:abc\nDB_TYPE=memory\nMAXIMUM_LESSON_SIZE=30\nADMIN_USER_IDS=1,2\n"), 0o600))
	t.Setenv("MAXIMUM_LESSON_SIZE", "12")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DBMemory, cfg.DBType)
	assert.Equal(t, 12, cfg.MaxLessonSize, "environment wins over the file")
	assert.NoError(t, cfg.RequireToken())
	assert.True(t, cfg.IsAdmin(2))
	assert.False(t, cfg.IsAdmin(3))
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"db type":         {"DB_TYPE": "mongo"},
		"lesson size":     {"MAXIMUM_LESSON_SIZE": "0"},
		"short wait list": {"WAIT_INTERVALS": "1h,2h"},
		"window":          {"NOTIFICATION_START_HOUR": "22", "NOTIFICATION_END_HOUR": "8"},
		"log level":       {"LOG_LEVEL": "loud"},
		"threshold":       {"MASTERY_THRESHOLD": "12"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			cleanEnv(t)
			for k, v := range vars {
				t.Setenv(k, v)
			}
			_, err := Load(filepath.Join(t.TempDir(), "none.env"))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoad_ParseError(t *testing.T) {
	cleanEnv(t)
	t.Setenv("MAXIMUM_LESSON_SIZE", "lots")

	_, err := Load(filepath.Join(t.TempDir(), "none.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env")
}
