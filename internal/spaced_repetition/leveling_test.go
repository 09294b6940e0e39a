package spaced_repetition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/srsbot/pkg/models"
)

func TestNextLevel_PromotionIsAlwaysOneAboveLevelOld(t *testing.T) {
	l := NewLeveler()
	for old := 0; old <= 10; old++ {
		for incorrect := 0; incorrect <= 6; incorrect++ {
			rec := models.SRSRecord{Level: 0, LevelOld: old, Incorrect: incorrect}
			assert.Equal(t, old+1, l.NextLevel(rec, true), "levelOld=%d incorrect=%d", old, incorrect)
		}
	}
}

func TestNextLevel_DemotionNeverNegative(t *testing.T) {
	l := NewLeveler()
	for old := 0; old <= 12; old++ {
		for incorrect := 0; incorrect <= 20; incorrect++ {
			got := l.NextLevel(models.SRSRecord{LevelOld: old, Incorrect: incorrect}, false)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, old)
		}
	}
}

func TestNextLevel_PenaltyEscalation(t *testing.T) {
	l := NewLeveler()

	tests := []struct {
		name      string
		levelOld  int
		incorrect int
		want      int
	}{
		{"high band doubles penalty", 5, 3, 1},
		{"below band single penalty", 4, 3, 2},
		{"first miss", 3, 1, 2},
		{"second miss same attempt", 3, 2, 2},
		{"third miss", 3, 3, 1},
		{"high band first miss", 7, 1, 5},
		{"clamped at zero", 6, 9, 0},
		{"no misses recorded", 4, 0, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := models.SRSRecord{LevelOld: tt.levelOld, Incorrect: tt.incorrect}
			assert.Equal(t, tt.want, l.NextLevel(rec, false))
		})
	}
}

func TestNextLevel_ConfigurableBand(t *testing.T) {
	l := NewLeveler()
	l.HighConfidenceBand = 3
	l.Multiplier = 3

	assert.Equal(t, 0, l.NextLevel(models.SRSRecord{LevelOld: 3, Incorrect: 1}, false))
	assert.Equal(t, 1, l.NextLevel(models.SRSRecord{LevelOld: 2, Incorrect: 1}, false))
}

func TestWaitInterval(t *testing.T) {
	l := NewLeveler()

	d, ok := l.WaitInterval(1)
	require.True(t, ok)
	assert.Equal(t, 4*time.Hour, d)

	_, ok = l.WaitInterval(l.MaxLevel)
	assert.False(t, ok, "retired level has no wait interval")
	_, ok = l.WaitInterval(-1)
	assert.False(t, ok)
}

func TestReschedule(t *testing.T) {
	l := NewLeveler()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ref := models.ItemRef{Kind: "kanji", ID: "日"}

	next, ok := l.Reschedule(ref, 1, now)
	require.True(t, ok)
	assert.Equal(t, models.ModeTeach, next.Mode, "level 1 is taught again")
	assert.Equal(t, now.Add(4*time.Hour), next.DueAt)

	next, ok = l.Reschedule(ref, 3, now)
	require.True(t, ok)
	assert.Equal(t, models.ModeReview, next.Mode)
	assert.Equal(t, "日", next.ItemID)

	_, ok = l.Reschedule(ref, 9, now)
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	require.NoError(t, NewLeveler().Validate())

	short := NewLeveler()
	short.WaitIntervals = short.WaitIntervals[:3]
	assert.ErrorIs(t, short.Validate(), ErrInvalidConfig)

	threshold := NewLeveler()
	threshold.MasteryThreshold = 12
	assert.ErrorIs(t, threshold.Validate(), ErrInvalidConfig)
}
