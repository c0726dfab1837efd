package gamification

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModes(t *testing.T) {
	modes := Modes()
	require.Len(t, modes, 4)

	ids := []ModeID{modes[0].ID, modes[1].ID, modes[2].ID, modes[3].ID}
	assert.Equal(t, []ModeID{ModeNormal, ModeRapid, ModeSurvival, ModeMastery}, ids)

	for _, m := range modes {
		assert.Equal(t, m, Mode(m.ID))
	}
}

func TestModeDefinitions(t *testing.T) {
	assert.Equal(t, 1.0, Mode(ModeNormal).XPMultiplier)
	assert.False(t, Mode(ModeNormal).HasTimer())

	assert.Equal(t, 60, Mode(ModeRapid).TimerSeconds)
	assert.True(t, Mode(ModeRapid).HasTimer())

	assert.True(t, Mode(ModeSurvival).EndsOnAgain)
	assert.False(t, Mode(ModeMastery).EndsOnAgain)
}

func TestMode_UnknownFallsBackToNormal(t *testing.T) {
	assert.Equal(t, ModeNormal, Mode("arcade").ID)
	assert.Equal(t, ModeNormal, Mode("").ID)

	// Parsed ids never reach the fallback.
	for _, raw := range []string{"normal", "RAPID", " survival ", "Mastery"} {
		id, err := ParseMode(raw)
		require.NoError(t, err)
		assert.Equal(t, id, Mode(id).ID, raw)
	}
}

func TestParseMode(t *testing.T) {
	id, err := ParseMode(" Rapid ")
	require.NoError(t, err)
	assert.Equal(t, ModeRapid, id)

	_, err = ParseMode("arcade")
	assert.True(t, errors.Is(err, ErrInvalidMode))
}

func TestParseRating(t *testing.T) {
	for _, r := range Ratings {
		got, err := ParseRating(string(r))
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}

	_, err := ParseRating("good")
	assert.True(t, errors.Is(err, ErrInvalidRating))
}

func TestRatingBaseXP(t *testing.T) {
	want := map[Rating]int{RatingEasy: 15, RatingMedium: 10, RatingHard: 5, RatingAgain: 0}
	for r, xp := range want {
		if got := r.BaseXP(); got != xp {
			t.Errorf("%s.BaseXP() = %d, want %d", r, got, xp)
		}
	}
}

func TestEstimates(t *testing.T) {
	tests := []struct {
		mode     ModeID
		round    int
		wantXP   int
		wantMins int
	}{
		{ModeNormal, 10, 100, 5},
		{ModeRapid, 10, 150, 1},
		{ModeRapid, 500, 7500, 1},
		{ModeSurvival, 10, 200, 3},
		{ModeMastery, 10, 125, 6},
		{ModeNormal, 0, 0, 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.wantXP, EstimateXP(tt.mode, tt.round), "xp %s/%d", tt.mode, tt.round)
		assert.Equal(t, tt.wantMins, EstimateDurationMinutes(tt.mode, tt.round), "minutes %s/%d", tt.mode, tt.round)
	}
}

func TestValidateRoundSize(t *testing.T) {
	assert.NoError(t, ValidateRoundSize(0))
	assert.NoError(t, ValidateRoundSize(20))
	assert.True(t, errors.Is(ValidateRoundSize(-1), ErrInvalidRoundSize))
}
