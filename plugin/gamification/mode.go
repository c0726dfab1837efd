// Package gamification implements the flashcard study engine: spaced repetition
// scheduling, XP and levels, daily streaks, achievements and daily history.
//
// Every function in this package is pure. Profiles and card states go in,
// updated copies come out. Persistence, clocks and sessions belong to callers.
package gamification

import (
	"strings"

	"github.com/pkg/errors"
)

// ModeID identifies a study game mode.
type ModeID string

const (
	ModeNormal   ModeID = "normal"
	ModeRapid    ModeID = "rapid"
	ModeSurvival ModeID = "survival"
	ModeMastery  ModeID = "mastery"
)

// ErrInvalidMode is returned by ParseMode for identifiers outside the registry.
var ErrInvalidMode = errors.New("invalid game mode")

// ModeDefinition describes the scoring and timer rules of a game mode.
type ModeDefinition struct {
	ID             ModeID  `json:"id"`
	Label          string  `json:"label"`
	Description    string  `json:"description"`
	XPMultiplier   float64 `json:"xp_multiplier"`
	TimerSeconds   int     `json:"timer_seconds,omitempty"` // 0 means untimed
	EndsOnAgain    bool    `json:"ends_on_again"`
	SecondsPerCard int     `json:"seconds_per_card"`
}

// HasTimer reports whether the mode runs on a fixed clock.
func (m ModeDefinition) HasTimer() bool {
	return m.TimerSeconds > 0
}

var modeRegistry = []ModeDefinition{
	{
		ID:             ModeNormal,
		Label:          "Normal",
		Description:    "Work through the round at your own pace.",
		XPMultiplier:   1.0,
		SecondsPerCard: 28,
	},
	{
		ID:             ModeRapid,
		Label:          "Rapid",
		Description:    "One minute on the clock. Answer as many cards as you can.",
		XPMultiplier:   1.5,
		TimerSeconds:   60,
		SecondsPerCard: 28,
	},
	{
		ID:             ModeSurvival,
		Label:          "Survival",
		Description:    "A single miss ends the run.",
		XPMultiplier:   2.0,
		EndsOnAgain:    true,
		SecondsPerCard: 16,
	},
	{
		ID:             ModeMastery,
		Label:          "Mastery",
		Description:    "Slow, deliberate review of every card.",
		XPMultiplier:   1.25,
		SecondsPerCard: 36,
	},
}

// Modes returns all mode definitions in display order.
func Modes() []ModeDefinition {
	out := make([]ModeDefinition, len(modeRegistry))
	copy(out, modeRegistry)
	return out
}

// Mode returns the definition for id. Every id returned by ParseMode, and
// every Mode constant, has its own definition. The fallback to normal exists
// only for ids that never went through ParseMode, such as the zero value or
// a ModeID built from an unchecked string.
func Mode(id ModeID) ModeDefinition {
	for _, m := range modeRegistry {
		if m.ID == id {
			return m
		}
	}
	return modeRegistry[0]
}

// ParseMode validates a mode identifier coming from outside the engine.
func ParseMode(s string) (ModeID, error) {
	id := ModeID(strings.ToLower(strings.TrimSpace(s)))
	for _, m := range modeRegistry {
		if m.ID == id {
			return id, nil
		}
	}
	return "", errors.Wrapf(ErrInvalidMode, "%q", s)
}
