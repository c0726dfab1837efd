package gamification

import (
	"math"
	"time"
)

// DateLayout is the layout of study date keys. Dates are always UTC.
const DateLayout = "2006-01-02"

// LevelProgress is the level derived from cumulative XP.
type LevelProgress struct {
	Level     int `json:"level"`
	XPInLevel int `json:"xp_in_level"`
	XPToNext  int `json:"xp_to_next"`
	Percent   int `json:"percent"`
}

// LevelRequirement is the XP needed to advance from level to level+1.
func LevelRequirement(level int) int {
	return 120 + (level-1)*45
}

// ResolveLevelProgress walks the level curve for a cumulative XP total.
func ResolveLevelProgress(xp int) LevelProgress {
	level := 1
	remaining := max(xp, 0)
	for remaining >= LevelRequirement(level) {
		remaining -= LevelRequirement(level)
		level++
	}
	toNext := LevelRequirement(level)
	return LevelProgress{
		Level:     level,
		XPInLevel: remaining,
		XPToNext:  toNext,
		Percent:   int(math.Round(float64(remaining) / float64(toNext) * 100)),
	}
}

// DateKey formats t as a UTC study date key.
func DateKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// CalculateDailyStreak returns the streak after studying on today. An empty
// lastStudyDate means the learner has never studied.
func CalculateDailyStreak(lastStudyDate, today string, streak int) int {
	if lastStudyDate == "" {
		return 1
	}
	last, err := time.Parse(DateLayout, lastStudyDate)
	if err != nil {
		return 1
	}
	now, err := time.Parse(DateLayout, today)
	if err != nil {
		return streak
	}

	gap := int(now.Sub(last).Hours() / 24)
	switch {
	case gap <= 0:
		return streak
	case gap == 1:
		return streak + 1
	default:
		return 1
	}
}

// RetentionScore is the rounded mean mastery score over all cards, 0 when empty.
func RetentionScore(cards map[string]CardState) int {
	if len(cards) == 0 {
		return 0
	}
	total := 0
	for _, c := range cards {
		total += c.MasteryScore
	}
	return int(math.Round(float64(total) / float64(len(cards))))
}

// SessionXP applies the mode multiplier to the base XP collected in a session.
func SessionXP(m SessionMetrics, mode ModeID) int {
	return int(math.Round(float64(m.BaseXP) * Mode(mode).XPMultiplier))
}
