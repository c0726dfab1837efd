package gamification

import (
	"sort"
	"time"
)

// MaxDailyHistory is the number of most recent days kept in a profile.
const MaxDailyHistory = 45

// DailyHistoryEntry aggregates one UTC day of study.
type DailyHistoryEntry struct {
	Date     string `json:"date"`
	Reviewed int    `json:"reviewed"`
	Correct  int    `json:"correct"`
	XP       int    `json:"xp"`
}

// UpsertDailyHistory merges entry into history. An existing day is added to,
// not replaced. The result is ordered by date and holds at most
// MaxDailyHistory entries, oldest dropped first.
func UpsertDailyHistory(history []DailyHistoryEntry, entry DailyHistoryEntry) []DailyHistoryEntry {
	out := make([]DailyHistoryEntry, 0, len(history)+1)
	merged := false
	for _, h := range history {
		if h.Date == entry.Date {
			h.Reviewed += entry.Reviewed
			h.Correct += entry.Correct
			h.XP += entry.XP
			merged = true
		}
		out = append(out, h)
	}
	if !merged {
		out = append(out, entry)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	if len(out) > MaxDailyHistory {
		out = out[len(out)-MaxDailyHistory:]
	}
	return out
}

// DueCard is a card id with the moment it becomes due.
type DueCard struct {
	CardID string    `json:"card_id"`
	DueAt  time.Time `json:"due_at"`
	State  CardState `json:"state"`
}

// DueCards lists cards due within the next withinHours, earliest first.
func DueCards(p Profile, now time.Time, withinHours int) []DueCard {
	due := make([]DueCard, 0)
	for id, c := range p.CardStates {
		if c.IsDueWithin(now, withinHours) {
			due = append(due, DueCard{CardID: id, DueAt: c.DueAt, State: c})
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].DueAt.Equal(due[j].DueAt) {
			return due[i].DueAt.Before(due[j].DueAt)
		}
		return due[i].CardID < due[j].CardID
	})
	return due
}
