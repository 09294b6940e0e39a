package spaced_repetition

import (
	"math"
	"math/rand"
)

const (
	xpPerCorrectBase   = 2
	xpPerCorrectSpread = 3
)

// Meter is the coarse learner level, independent of item mastery.
type Meter struct {
	XP    int
	XPMax int
	Level int
}

// NextThreshold returns the XP needed for the level after one that needed
// oldMax. The threshold grows by the smaller of a capped step (500 to 1500,
// depending on where oldMax sits within its thousand) and oldMax^1.04, and is
// rounded to the nearest multiple of ten.
func NextThreshold(oldMax int) int {
	old := float64(oldMax)
	step := math.Min(float64(1500-oldMax%1000), math.Pow(old, 1.04))
	next := int(math.Round((old+step)/10)) * 10
	if next < oldMax+10 {
		next = oldMax + 10
	}
	return next
}

// Gain adds xp and carries every overflow into further level-ups. It returns
// the number of levels gained.
func (m *Meter) Gain(xp int) int {
	m.XP += xp
	ups := 0
	for m.XPMax > 0 && m.XP >= m.XPMax {
		m.XP -= m.XPMax
		m.XPMax = NextThreshold(m.XPMax)
		m.Level++
		ups++
	}
	return ups
}

// CorrectAnswerXP rolls the XP for one correct answer: 3 to 5.
func CorrectAnswerXP(rng *rand.Rand) int {
	return xpPerCorrectBase + 1 + rng.Intn(xpPerCorrectSpread)
}

// DailyBonus is the first-session-of-the-day bonus for a session that earned
// sessionXP.
func DailyBonus(sessionXP int) int {
	return (sessionXP + 1) / 2
}
