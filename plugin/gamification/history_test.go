package gamification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertDailyHistory_MergesSameDay(t *testing.T) {
	h := UpsertDailyHistory(nil, DailyHistoryEntry{Date: "2024-01-01", Reviewed: 4, Correct: 3, XP: 30})
	h = UpsertDailyHistory(h, DailyHistoryEntry{Date: "2024-01-01", Reviewed: 2, Correct: 2, XP: 25})

	require.Len(t, h, 1)
	assert.Equal(t, DailyHistoryEntry{Date: "2024-01-01", Reviewed: 6, Correct: 5, XP: 55}, h[0])
}

func TestUpsertDailyHistory_DoesNotMutateInput(t *testing.T) {
	orig := []DailyHistoryEntry{{Date: "2024-01-01", Reviewed: 1}}
	_ = UpsertDailyHistory(orig, DailyHistoryEntry{Date: "2024-01-01", Reviewed: 5})

	assert.Equal(t, 1, orig[0].Reviewed)
}

func TestUpsertDailyHistory_CapsAtMax(t *testing.T) {
	var h []DailyHistoryEntry
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 100; i++ {
		h = UpsertDailyHistory(h, DailyHistoryEntry{Date: DateKey(day.AddDate(0, 0, i)), Reviewed: 1})
		require.LessOrEqual(t, len(h), MaxDailyHistory)
	}

	assert.Len(t, h, MaxDailyHistory)
	assert.Equal(t, DateKey(day.AddDate(0, 0, 55)), h[0].Date, "oldest entries are dropped first")
	assert.Equal(t, DateKey(day.AddDate(0, 0, 99)), h[len(h)-1].Date)
}

func TestUpsertDailyHistory_KeepsDateOrder(t *testing.T) {
	h := []DailyHistoryEntry{{Date: "2024-01-01"}, {Date: "2024-01-05"}}
	h = UpsertDailyHistory(h, DailyHistoryEntry{Date: "2024-01-03"})

	assert.Equal(t, []string{"2024-01-01", "2024-01-03", "2024-01-05"},
		[]string{h[0].Date, h[1].Date, h[2].Date})
}

func TestDueCards(t *testing.T) {
	p := NewProfile()
	p.CardStates["later"] = CardState{DueAt: testNow.Add(30 * time.Hour)}
	p.CardStates["b"] = CardState{DueAt: testNow.Add(-time.Hour)}
	p.CardStates["a"] = CardState{DueAt: testNow.Add(-time.Hour)}
	p.CardStates["soon"] = CardState{DueAt: testNow.Add(2 * time.Hour)}

	now := DueCards(p, testNow, 0)
	assert.Equal(t, []string{"a", "b"}, dueIDs(now))

	day := DueCards(p, testNow, 24)
	assert.Equal(t, []string{"a", "b", "soon"}, dueIDs(day))

	assert.Empty(t, DueCards(NewProfile(), testNow, 24))
}

func dueIDs(cards []DueCard) []string {
	ids := make([]string, 0, len(cards))
	for _, c := range cards {
		ids = append(ids, c.CardID)
	}
	return ids
}
