package gamification

import (
	"math"

	"github.com/pkg/errors"
)

// averageCardXP is the expected base XP of a card, a "medium" rating.
const averageCardXP = 10

// ErrInvalidRoundSize is returned for negative round sizes.
var ErrInvalidRoundSize = errors.New("round size must not be negative")

// ValidateRoundSize checks the precondition of the estimators.
func ValidateRoundSize(roundSize int) error {
	if roundSize < 0 {
		return errors.Wrapf(ErrInvalidRoundSize, "got %d", roundSize)
	}
	return nil
}

// EstimateXP is the advisory XP shown before a round starts.
func EstimateXP(mode ModeID, roundSize int) int {
	return int(math.Round(float64(roundSize*averageCardXP) * Mode(mode).XPMultiplier))
}

// EstimateDurationMinutes is the advisory round length shown before a round
// starts. Rapid rounds always last one minute.
func EstimateDurationMinutes(mode ModeID, roundSize int) int {
	def := Mode(mode)
	if def.ID == ModeRapid {
		return 1
	}
	minutes := int(math.Ceil(float64(roundSize*def.SecondsPerCard) / 60))
	return max(1, minutes)
}
