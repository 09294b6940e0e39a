package spaced_repetition

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextThreshold(t *testing.T) {
	assert.Equal(t, 20, NextThreshold(10))
	assert.Equal(t, 40, NextThreshold(20))
	assert.Equal(t, 11500, NextThreshold(10000), "growth is capped")

	prev := 10
	for i := 0; i < 200; i++ {
		next := NextThreshold(prev)
		assert.Greater(t, next, prev, "threshold must grow from %d", prev)
		assert.Zero(t, next%10, "threshold %d is not a multiple of ten", next)
		prev = next
	}
}

func TestMeterGain_Cascades(t *testing.T) {
	m := Meter{XP: 9, XPMax: 10, Level: 1}

	ups := m.Gain(25)

	assert.Equal(t, 2, ups)
	assert.Equal(t, 3, m.Level)
	assert.Equal(t, 4, m.XP)
	assert.Equal(t, 40, m.XPMax)
	assert.Less(t, m.XP, m.XPMax)
}

func TestMeterGain_NeverLeavesOverflow(t *testing.T) {
	for gain := 0; gain < 5000; gain += 37 {
		m := Meter{XP: 0, XPMax: 10, Level: 1}
		m.Gain(gain)
		assert.Less(t, m.XP, m.XPMax, "gain %d", gain)
		assert.GreaterOrEqual(t, m.XP, 0)
	}
}

func TestMeterGain_NoLevelUp(t *testing.T) {
	m := Meter{XP: 2, XPMax: 10, Level: 4}
	assert.Zero(t, m.Gain(3))
	assert.Equal(t, Meter{XP: 5, XPMax: 10, Level: 4}, m)
}

func TestCorrectAnswerXP(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		xp := CorrectAnswerXP(rng)
		assert.GreaterOrEqual(t, xp, 3)
		assert.LessOrEqual(t, xp, 5)
	}
}

func TestDailyBonus(t *testing.T) {
	assert.Equal(t, 0, DailyBonus(0))
	assert.Equal(t, 4, DailyBonus(7))
	assert.Equal(t, 4, DailyBonus(8))
}
