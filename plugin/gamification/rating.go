package gamification

import (
	"strings"

	"github.com/pkg/errors"
)

// Rating is the learner's self-assessment of a single card review.
type Rating string

const (
	RatingEasy   Rating = "easy"
	RatingMedium Rating = "medium"
	RatingHard   Rating = "hard"
	RatingAgain  Rating = "again"
)

// ErrInvalidRating is returned by ParseRating for unknown values.
var ErrInvalidRating = errors.New("invalid rating")

// Ratings lists the valid ratings from best to worst.
var Ratings = []Rating{RatingEasy, RatingMedium, RatingHard, RatingAgain}

// ParseRating validates a rating coming from outside the engine.
func ParseRating(s string) (Rating, error) {
	r := Rating(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RatingEasy, RatingMedium, RatingHard, RatingAgain:
		return r, nil
	}
	return "", errors.Wrapf(ErrInvalidRating, "%q", s)
}

// IsCorrect reports whether the rating counts as a successful recall.
func (r Rating) IsCorrect() bool {
	return r != RatingAgain
}

// quality maps a successful rating onto the SM-2 0..5 scale.
func (r Rating) quality() int {
	switch r {
	case RatingEasy:
		return 5
	case RatingMedium:
		return 4
	case RatingHard:
		return 3
	}
	return 0
}

// masteryDelta is the mastery score change applied for the rating.
func (r Rating) masteryDelta() int {
	switch r {
	case RatingEasy:
		return 12
	case RatingMedium:
		return 8
	case RatingHard:
		return 4
	}
	return -14
}

// BaseXP is the experience awarded for a single rating before mode multipliers.
func (r Rating) BaseXP() int {
	switch r {
	case RatingEasy:
		return 15
	case RatingMedium:
		return 10
	case RatingHard:
		return 5
	}
	return 0
}
