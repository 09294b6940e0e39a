package spaced_repetition

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/srsbot/pkg/models"
)

// ErrInvalidConfig is returned by NewLeveler for unusable tunables.
var ErrInvalidConfig = errors.New("spaced_repetition: invalid leveler config")

// Leveler implements the tiered SRS leveling scheme.
type Leveler struct {
	// Level at which an item counts as reliably known and can open new tiers.
	MasteryThreshold int
	// Failures at or above HighConfidenceBand cost Multiplier times more.
	HighConfidenceBand int
	Multiplier         int
	// Items reaching MaxLevel leave the queue for good.
	MaxLevel int
	// Wait before the next review, indexed by the level just reached.
	WaitIntervals []time.Duration
}

// DefaultWaitIntervals are the review delays for levels 0 through 8.
var DefaultWaitIntervals = []time.Duration{
	0,
	4 * time.Hour,
	8 * time.Hour,
	24 * time.Hour,
	48 * time.Hour,
	7 * 24 * time.Hour,
	14 * 24 * time.Hour,
	30 * 24 * time.Hour,
	120 * 24 * time.Hour,
}

// NewLeveler returns a Leveler with the default tunables.
func NewLeveler() *Leveler {
	return &Leveler{
		MasteryThreshold:   5,
		HighConfidenceBand: 5,
		Multiplier:         2,
		MaxLevel:           9,
		WaitIntervals:      append([]time.Duration(nil), DefaultWaitIntervals...),
	}
}

// Validate checks that the wait table covers every level below MaxLevel.
func (l *Leveler) Validate() error {
	switch {
	case l.MaxLevel <= 0:
		return fmt.Errorf("%w: max level %d", ErrInvalidConfig, l.MaxLevel)
	case l.MasteryThreshold <= 0 || l.MasteryThreshold > l.MaxLevel:
		return fmt.Errorf("%w: mastery threshold %d outside 1..%d", ErrInvalidConfig, l.MasteryThreshold, l.MaxLevel)
	case l.Multiplier < 1:
		return fmt.Errorf("%w: multiplier %d", ErrInvalidConfig, l.Multiplier)
	case len(l.WaitIntervals) < l.MaxLevel:
		return fmt.Errorf("%w: %d wait intervals for %d levels", ErrInvalidConfig, len(l.WaitIntervals), l.MaxLevel)
	}
	for i, d := range l.WaitIntervals {
		if d < 0 {
			return fmt.Errorf("%w: negative wait interval at level %d", ErrInvalidConfig, i)
		}
	}
	return nil
}

// NextLevel maps a grading outcome to a new level. Success always climbs one
// level above LevelOld; failure drops by ceil(Incorrect/2), doubled in the
// high confidence band, never below zero. The caller persists the result and
// maintains Incorrect.
func (l *Leveler) NextLevel(rec models.SRSRecord, wasCorrect bool) int {
	if wasCorrect {
		return rec.LevelOld + 1
	}
	penalty := (rec.Incorrect + 1) / 2
	if rec.LevelOld >= l.HighConfidenceBand {
		penalty *= l.Multiplier
	}
	if next := rec.LevelOld - penalty; next > 0 {
		return next
	}
	return 0
}

// Retired reports whether an item at level leaves the queue.
func (l *Leveler) Retired(level int) bool {
	return level >= l.MaxLevel
}

// WaitInterval returns the delay before an item at level is due again.
// It reports false for retired levels.
func (l *Leveler) WaitInterval(level int) (time.Duration, bool) {
	if l.Retired(level) || level < 0 || level >= len(l.WaitIntervals) {
		return 0, false
	}
	return l.WaitIntervals[level], true
}

// ReviewMode picks how a rescheduled item comes back: barely known items are
// taught again, the rest are reviewed.
func (l *Leveler) ReviewMode(level int) models.Mode {
	if level > 1 {
		return models.ModeReview
	}
	return models.ModeTeach
}

// Reschedule builds the next queue entry for ref after it reached level.
// It reports false when the item is retired.
func (l *Leveler) Reschedule(ref models.ItemRef, level int, now time.Time) (models.QueuedLesson, bool) {
	wait, ok := l.WaitInterval(level)
	if !ok {
		return models.QueuedLesson{}, false
	}
	return models.QueuedLesson{
		Kind:   ref.Kind,
		ItemID: ref.ID,
		Mode:   l.ReviewMode(level),
		DueAt:  now.Add(wait),
	}, true
}
