package curriculum

import "fmt"

var stageNames = []string{"Unknown", "Practiced", "Familiar", "Novice", "Intermediate", "Adept", "Proficient", "Specialist", "Expert", "Mastered"}

var romanNumerals = []string{"i", "ii", "iii", "iv", "v"}

// StageLabel renders a zero-based stage index as "<greek>-<roman>", five
// stages per greek letter: 0 → α-i, 4 → α-v, 5 → β-i.
func StageLabel(stage int) string {
	if stage < 0 {
		stage = 0
	}
	return fmt.Sprintf("%c-%s", rune('α'+stage/5), romanNumerals[stage%5])
}

// TierLabel is StageLabel for a one-based tier number.
func TierLabel(tier int) string {
	return StageLabel(tier - 1)
}

// LevelName names an SRS level.
func LevelName(level int) string {
	switch {
	case level < 0:
		return stageNames[0]
	case level >= len(stageNames):
		return stageNames[len(stageNames)-1]
	}
	return stageNames[level]
}
