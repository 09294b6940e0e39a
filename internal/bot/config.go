package bot

import (
	"log/slog"

	"github.com/example/srsbot/internal/curriculum"
	"github.com/example/srsbot/pkg/models"
)

// BotConfig represents the configuration for the bot
type BotConfig struct {
	// Track used by /lesson and /init when none is named
	DefaultTrack models.Track
	// Session weight budget when /lesson names none
	DefaultCapacity int
	// Outgoing messages per second
	RateLimit float64
	// Reports whether a user may run admin commands; nil allows nobody
	IsAdmin func(userID int64) bool
	Logger  *slog.Logger
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() BotConfig {
	return BotConfig{
		DefaultTrack:    curriculum.TrackJapanese,
		DefaultCapacity: 20,
		RateLimit:       25,
	}
}
