package gamification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateAchievements(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		metrics SessionMetrics
		want    []string
	}{
		{
			name:    "nothing yet",
			profile: NewProfile(),
			want:    nil,
		},
		{
			name:    "hundred cards",
			profile: Profile{TotalCardsReviewed: 100},
			want:    []string{AchievementCardsReviewed100},
		},
		{
			name:    "long streak unlocks both streak badges",
			profile: Profile{DailyStreak: 30},
			want:    []string{AchievementStreak7, AchievementStreak30},
		},
		{
			name:    "xp and mastered",
			profile: Profile{XP: 500, MasteredCards: 50},
			want:    []string{AchievementXP500, AchievementMastered50},
		},
		{
			name:    "flawless session",
			profile: NewProfile(),
			metrics: SessionMetrics{Medium: 3},
			want:    []string{AchievementFlawlessSession},
		},
		{
			name:    "just below every threshold",
			profile: Profile{TotalCardsReviewed: 99, DailyStreak: 6, XP: 499, MasteredCards: 49},
			metrics: SessionMetrics{Easy: 1, Again: 1},
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unlocked, newly := EvaluateAchievements(tt.profile, tt.metrics)
			assert.Equal(t, tt.want, newly)
			assert.ElementsMatch(t, tt.want, unlocked)
		})
	}
}

func TestEvaluateAchievements_Idempotent(t *testing.T) {
	p := Profile{TotalCardsReviewed: 150, DailyStreak: 8, XP: 600}
	m := SessionMetrics{Easy: 4}

	unlocked, newly := EvaluateAchievements(p, m)
	assert.Len(t, newly, 4)

	p.AchievementIDs = unlocked
	again, newlyAgain := EvaluateAchievements(p, m)
	assert.Empty(t, newlyAgain)
	assert.Equal(t, unlocked, again)
}

func TestEvaluateAchievements_KeepsExistingAndDedups(t *testing.T) {
	p := Profile{AchievementIDs: []string{AchievementStreak7, "legacy-badge", AchievementStreak7}}

	unlocked, newly := EvaluateAchievements(p, SessionMetrics{})

	assert.Empty(t, newly)
	assert.Equal(t, []string{AchievementStreak7, "legacy-badge"}, unlocked)
}

func TestAchievements_Catalog(t *testing.T) {
	catalog := Achievements()
	assert.Len(t, catalog, 6)

	catalog[0].Title = "mutated"
	assert.NotEqual(t, "mutated", Achievements()[0].Title)
}
