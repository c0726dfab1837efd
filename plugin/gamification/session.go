package gamification

import "time"

// SessionMetrics accumulates the ratings of one study session. Callers carry
// it between review events and hand it to CompleteSession at the end.
type SessionMetrics struct {
	Easy          int `json:"easy"`
	Medium        int `json:"medium"`
	Hard          int `json:"hard"`
	Again         int `json:"again"`
	CorrectStreak int `json:"correct_streak"`
	BestStreak    int `json:"best_streak"`
	BaseXP        int `json:"base_xp"`
}

// Record returns the metrics with rating counted.
func (m SessionMetrics) Record(rating Rating) SessionMetrics {
	switch rating {
	case RatingEasy:
		m.Easy++
	case RatingMedium:
		m.Medium++
	case RatingHard:
		m.Hard++
	case RatingAgain:
		m.Again++
	}

	if rating.IsCorrect() {
		m.CorrectStreak++
		m.BestStreak = max(m.BestStreak, m.CorrectStreak)
	} else {
		m.CorrectStreak = 0
	}
	m.BaseXP += rating.BaseXP()
	return m
}

// Reviewed is the number of ratings recorded.
func (m SessionMetrics) Reviewed() int {
	return m.Easy + m.Medium + m.Hard + m.Again
}

// Correct is the number of non-"again" ratings recorded.
func (m SessionMetrics) Correct() int {
	return m.Easy + m.Medium + m.Hard
}

// IsFlawless reports a session with at least one review and no lapses.
func (m SessionMetrics) IsFlawless() bool {
	return m.Reviewed() > 0 && m.Again == 0
}

// SessionEnded reports whether the mode's rules have closed the session.
func SessionEnded(mode ModeID, m SessionMetrics, startedAt, now time.Time) bool {
	def := Mode(mode)
	if def.EndsOnAgain && m.Again > 0 {
		return true
	}
	if def.HasTimer() && now.Sub(startedAt) >= time.Duration(def.TimerSeconds)*time.Second {
		return true
	}
	return false
}
