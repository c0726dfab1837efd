package gamification

// Achievement identifiers.
const (
	AchievementCardsReviewed100 = "cards-reviewed-100"
	AchievementStreak7          = "streak-7"
	AchievementStreak30         = "streak-30"
	AchievementXP500            = "xp-500"
	AchievementMastered50       = "mastered-50"
	AchievementFlawlessSession  = "flawless-session"
)

// Achievement is a one-time milestone.
type Achievement struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`

	unlocked func(Profile, SessionMetrics) bool
}

var achievementCatalog = []Achievement{
	{
		ID:          AchievementCardsReviewed100,
		Title:       "Centurion",
		Description: "Review 100 cards.",
		unlocked:    func(p Profile, _ SessionMetrics) bool { return p.TotalCardsReviewed >= 100 },
	},
	{
		ID:          AchievementStreak7,
		Title:       "Week Warrior",
		Description: "Study 7 days in a row.",
		unlocked:    func(p Profile, _ SessionMetrics) bool { return p.DailyStreak >= 7 },
	},
	{
		ID:          AchievementStreak30,
		Title:       "Unstoppable",
		Description: "Study 30 days in a row.",
		unlocked:    func(p Profile, _ SessionMetrics) bool { return p.DailyStreak >= 30 },
	},
	{
		ID:          AchievementXP500,
		Title:       "Rising Scholar",
		Description: "Earn 500 XP.",
		unlocked:    func(p Profile, _ SessionMetrics) bool { return p.XP >= 500 },
	},
	{
		ID:          AchievementMastered50,
		Title:       "Master of Fifty",
		Description: "Master 50 cards.",
		unlocked:    func(p Profile, _ SessionMetrics) bool { return p.MasteredCards >= 50 },
	},
	{
		ID:          AchievementFlawlessSession,
		Title:       "Flawless",
		Description: "Finish a session without a single miss.",
		unlocked:    func(_ Profile, m SessionMetrics) bool { return m.IsFlawless() },
	},
}

// Achievements returns the achievement catalog in display order.
func Achievements() []Achievement {
	out := make([]Achievement, len(achievementCatalog))
	copy(out, achievementCatalog)
	return out
}

// EvaluateAchievements checks every rule against the profile and session.
// It returns the full unlocked set and the ids unlocked by this call. Ids
// already in the profile are never reported again.
func EvaluateAchievements(p Profile, m SessionMetrics) (unlocked []string, newly []string) {
	seen := make(map[string]struct{}, len(p.AchievementIDs))
	unlocked = make([]string, 0, len(p.AchievementIDs)+1)
	for _, id := range p.AchievementIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unlocked = append(unlocked, id)
	}

	for _, a := range achievementCatalog {
		if _, ok := seen[a.ID]; ok {
			continue
		}
		if a.unlocked(p, m) {
			seen[a.ID] = struct{}{}
			unlocked = append(unlocked, a.ID)
			newly = append(newly, a.ID)
		}
	}
	return unlocked, newly
}
