package gamification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveLevelProgress(t *testing.T) {
	tests := []struct {
		xp   int
		want LevelProgress
	}{
		{0, LevelProgress{Level: 1, XPInLevel: 0, XPToNext: 120, Percent: 0}},
		{60, LevelProgress{Level: 1, XPInLevel: 60, XPToNext: 120, Percent: 50}},
		{119, LevelProgress{Level: 1, XPInLevel: 119, XPToNext: 120, Percent: 99}},
		{120, LevelProgress{Level: 2, XPInLevel: 0, XPToNext: 165, Percent: 0}},
		{285, LevelProgress{Level: 3, XPInLevel: 0, XPToNext: 210, Percent: 0}},
		{300, LevelProgress{Level: 3, XPInLevel: 15, XPToNext: 210, Percent: 7}},
		{-5, LevelProgress{Level: 1, XPInLevel: 0, XPToNext: 120, Percent: 0}},
	}

	for _, tt := range tests {
		if got := ResolveLevelProgress(tt.xp); got != tt.want {
			t.Errorf("ResolveLevelProgress(%d) = %+v, want %+v", tt.xp, got, tt.want)
		}
	}
}

func TestCalculateDailyStreak(t *testing.T) {
	tests := []struct {
		name   string
		last   string
		today  string
		streak int
		want   int
	}{
		{"first study", "", "2024-01-01", 0, 1},
		{"next day", "2024-01-01", "2024-01-02", 5, 6},
		{"gap resets", "2024-01-01", "2024-01-05", 5, 1},
		{"same day", "2024-01-01", "2024-01-01", 5, 5},
		{"two day gap", "2024-01-01", "2024-01-03", 9, 1},
		{"month boundary", "2024-01-31", "2024-02-01", 3, 4},
		{"clock skew", "2024-01-02", "2024-01-01", 4, 4},
		{"corrupt last date", "yesterday", "2024-01-01", 4, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateDailyStreak(tt.last, tt.today, tt.streak))
		})
	}
}

func TestDateKey_UsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	local := time.Date(2024, 3, 10, 2, 0, 0, 0, loc)

	assert.Equal(t, "2024-03-09", DateKey(local))
}

func TestRetentionScore(t *testing.T) {
	assert.Equal(t, 0, RetentionScore(nil))
	assert.Equal(t, 0, RetentionScore(map[string]CardState{}))
	assert.Equal(t, 80, RetentionScore(map[string]CardState{"a": {MasteryScore: 80}}))
	assert.Equal(t, 51, RetentionScore(map[string]CardState{
		"a": {MasteryScore: 80},
		"b": {MasteryScore: 21},
	}))
}

func TestSessionXP(t *testing.T) {
	m := SessionMetrics{BaseXP: 25}

	assert.Equal(t, 25, SessionXP(m, ModeNormal))
	assert.Equal(t, 38, SessionXP(m, ModeRapid))
	assert.Equal(t, 50, SessionXP(m, ModeSurvival))
	assert.Equal(t, 31, SessionXP(m, ModeMastery))
}
