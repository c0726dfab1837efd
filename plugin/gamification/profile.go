package gamification

import "time"

// TopicStats counts review outcomes for one topic.
type TopicStats struct {
	Reviewed  int `json:"reviewed"`
	Difficult int `json:"difficult"`
	Failed    int `json:"failed"`
}

// Profile is a learner's progression state.
type Profile struct {
	XP                 int                   `json:"xp"`
	TotalCardsReviewed int                   `json:"total_cards_reviewed"`
	MasteredCards      int                   `json:"mastered_cards"`
	DailyStreak        int                   `json:"daily_streak"`
	LastStudyDate      string                `json:"last_study_date,omitempty"`
	AchievementIDs     []string              `json:"achievement_ids"`
	CardStates         map[string]CardState  `json:"card_states"`
	DailyHistory       []DailyHistoryEntry   `json:"daily_history"`
	TopicStats         map[string]TopicStats `json:"topic_stats"`
}

// NewProfile returns the profile of a learner who has not studied yet.
func NewProfile() Profile {
	return Profile{
		AchievementIDs: []string{},
		CardStates:     map[string]CardState{},
		DailyHistory:   []DailyHistoryEntry{},
		TopicStats:     map[string]TopicStats{},
	}
}

// Clone returns a deep copy of p.
func (p Profile) Clone() Profile {
	out := p
	out.AchievementIDs = append([]string{}, p.AchievementIDs...)
	out.DailyHistory = append([]DailyHistoryEntry{}, p.DailyHistory...)
	out.CardStates = make(map[string]CardState, len(p.CardStates))
	for k, v := range p.CardStates {
		out.CardStates[k] = v
	}
	out.TopicStats = make(map[string]TopicStats, len(p.TopicStats))
	for k, v := range p.TopicStats {
		out.TopicStats[k] = v
	}
	return out
}

// Level resolves the learner's level from XP.
func (p Profile) Level() LevelProgress {
	return ResolveLevelProgress(p.XP)
}

// Retention is the mean mastery over all known cards.
func (p Profile) Retention() int {
	return RetentionScore(p.CardStates)
}

// ReviewInput is a single rating event.
type ReviewInput struct {
	CardID  string
	TopicID string
	Rating  Rating
	Now     time.Time
}

// ReviewOutcome describes what a rating changed.
type ReviewOutcome struct {
	Card    CardState `json:"card"`
	BaseXP  int       `json:"base_xp"`
	Correct bool      `json:"correct"`
}

// ApplyReview schedules the card, then updates counters, streak and topic
// stats. XP is not touched here; it is granted per session by CompleteSession.
func ApplyReview(p Profile, in ReviewInput) (Profile, ReviewOutcome) {
	next := p.Clone()

	state, ok := next.CardStates[in.CardID]
	if !ok {
		state = NewCardState(in.Now)
	}
	state = ScheduleReview(state, in.Rating, in.Now)
	next.CardStates[in.CardID] = state

	next.TotalCardsReviewed++
	next.MasteredCards = countMastered(next.CardStates)

	today := DateKey(in.Now)
	next.DailyStreak = CalculateDailyStreak(next.LastStudyDate, today, next.DailyStreak)
	next.LastStudyDate = today

	if in.TopicID != "" {
		ts := next.TopicStats[in.TopicID]
		ts.Reviewed++
		switch in.Rating {
		case RatingHard:
			ts.Difficult++
		case RatingAgain:
			ts.Failed++
		}
		next.TopicStats[in.TopicID] = ts
	}

	return next, ReviewOutcome{
		Card:    state,
		BaseXP:  in.Rating.BaseXP(),
		Correct: in.Rating.IsCorrect(),
	}
}

// SessionSummary is the result of closing a session.
type SessionSummary struct {
	XPEarned        int               `json:"xp_earned"`
	Level           LevelProgress     `json:"level"`
	LeveledUp       bool              `json:"leveled_up"`
	NewAchievements []string          `json:"new_achievements"`
	Day             DailyHistoryEntry `json:"day"`
}

// CompleteSession grants the session XP, folds the session into today's
// history and evaluates achievements.
func CompleteSession(p Profile, m SessionMetrics, mode ModeID, now time.Time) (Profile, SessionSummary) {
	next := p.Clone()
	before := next.Level().Level

	earned := SessionXP(m, mode)
	next.XP += earned

	entry := DailyHistoryEntry{
		Date:     DateKey(now),
		Reviewed: m.Reviewed(),
		Correct:  m.Correct(),
		XP:       earned,
	}
	next.DailyHistory = UpsertDailyHistory(next.DailyHistory, entry)

	unlocked, newly := EvaluateAchievements(next, m)
	next.AchievementIDs = unlocked
	if newly == nil {
		newly = []string{}
	}

	level := next.Level()
	return next, SessionSummary{
		XPEarned:        earned,
		Level:           level,
		LeveledUp:       level.Level > before,
		NewAchievements: newly,
		Day:             entry,
	}
}

func countMastered(cards map[string]CardState) int {
	n := 0
	for _, c := range cards {
		if c.IsMastered() {
			n++
		}
	}
	return n
}
