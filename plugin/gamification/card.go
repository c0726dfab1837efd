package gamification

import (
	"math"
	"time"
)

const (
	// DefaultEaseFactor is the ease factor of a card that has never been rated.
	DefaultEaseFactor = 2.5
	// MinEaseFactor is the lower bound of the ease factor.
	MinEaseFactor = 1.3
	// MaxEaseFactor is the upper bound of the ease factor.
	MaxEaseFactor = 2.8

	// RelearnDelay is how long a lapsed card waits before it is due again.
	RelearnDelay = 10 * time.Minute

	// MasteredThreshold is the mastery score at which a card counts as mastered.
	MasteredThreshold = 80
)

// CardState is the spaced repetition state of a single flashcard.
type CardState struct {
	EaseFactor     float64   `json:"ease_factor"`
	IntervalDays   int       `json:"interval_days"`
	Repetition     int       `json:"repetition"`
	MasteryScore   int       `json:"mastery_score"`
	Lapses         int       `json:"lapses"`
	DueAt          time.Time `json:"due_at"`
	LastReviewedAt time.Time `json:"last_reviewed_at"`
}

// NewCardState returns the state of a card seen for the first time at now.
func NewCardState(now time.Time) CardState {
	return CardState{
		EaseFactor:     DefaultEaseFactor,
		DueAt:          now,
		LastReviewedAt: now,
	}
}

// IsMastered reports whether the card reached MasteredThreshold.
func (c CardState) IsMastered() bool {
	return c.MasteryScore >= MasteredThreshold
}

// IsDueWithin reports whether the card becomes due before now+hours.
func (c CardState) IsDueWithin(now time.Time, hours int) bool {
	return !c.DueAt.After(now.Add(time.Duration(hours) * time.Hour))
}

// ScheduleReview applies rating to the card and returns its next state.
func ScheduleReview(c CardState, rating Rating, now time.Time) CardState {
	next := c
	next.LastReviewedAt = now

	if rating == RatingAgain {
		// Ease is left alone on a lapse; the card re-enters learning.
		next.Repetition = 0
		next.IntervalDays = 0
		next.MasteryScore = clampInt(c.MasteryScore+rating.masteryDelta(), 0, 100)
		next.Lapses = c.Lapses + 1
		next.DueAt = now.Add(RelearnDelay)
		return next
	}

	quality := rating.quality()
	next.EaseFactor = nextEaseFactor(c.EaseFactor, quality)
	next.Repetition = c.Repetition + 1

	switch next.Repetition {
	case 1:
		next.IntervalDays = 1
		if quality >= 4 {
			next.IntervalDays = 2
		}
	case 2:
		next.IntervalDays = 3
		if quality >= 4 {
			next.IntervalDays = 6
		}
	default:
		base := int(math.Round(float64(c.IntervalDays) * next.EaseFactor))
		next.IntervalDays = scaleInterval(base, rating)
	}

	next.MasteryScore = clampInt(c.MasteryScore+rating.masteryDelta(), 0, 100)
	next.DueAt = now.AddDate(0, 0, next.IntervalDays)
	return next
}

// nextEaseFactor is the SM-2 ease update clamped to [MinEaseFactor, MaxEaseFactor].
func nextEaseFactor(ease float64, quality int) float64 {
	diff := float64(5 - quality)
	return clampFloat(ease+(0.1-diff*(0.08+diff*0.02)), MinEaseFactor, MaxEaseFactor)
}

// scaleInterval adjusts a review-phase interval by how hard the recall was.
func scaleInterval(base int, rating Rating) int {
	switch rating {
	case RatingHard:
		return max(1, int(math.Round(float64(base)*0.6)))
	case RatingEasy:
		return max(4, int(math.Round(float64(base)*1.2)))
	default:
		return max(2, base)
	}
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
