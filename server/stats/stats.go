// Package stats builds the per-learner study report shown by the CLI and the
// HTML report endpoint.
package stats

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hrygo/studyquest/plugin/gamification"
)

const (
	// recentDays is the number of history days listed in a report.
	recentDays = 14
	// activityWindowDays is the window used for ActiveDays.
	activityWindowDays = 30
)

// TopicLine is one row of the topic table.
type TopicLine struct {
	TopicID   string `json:"topic_id"`
	Reviewed  int    `json:"reviewed"`
	Difficult int    `json:"difficult"`
	Failed    int    `json:"failed"`
	Accuracy  int    `json:"accuracy"`
}

// Report is a point-in-time view of a learner's progress.
type Report struct {
	UserID             string                           `json:"user_id"`
	GeneratedAt        time.Time                        `json:"generated_at"`
	Level              gamification.LevelProgress       `json:"level"`
	XP                 int                              `json:"xp"`
	Retention          int                              `json:"retention"`
	DailyStreak        int                              `json:"daily_streak"`
	LastStudyDate      string                           `json:"last_study_date"`
	TotalCardsReviewed int                              `json:"total_cards_reviewed"`
	MasteredCards      int                              `json:"mastered_cards"`
	KnownCards         int                              `json:"known_cards"`
	DueToday           int                              `json:"due_today"`
	ActiveDays         int                              `json:"active_days"`
	Achievements       []gamification.Achievement       `json:"achievements"`
	Topics             []TopicLine                      `json:"topics"`
	History            []gamification.DailyHistoryEntry `json:"history"`
}

// BuildReport summarizes p as of now.
func BuildReport(userID string, p gamification.Profile, now time.Time) *Report {
	now = now.UTC()
	r := &Report{
		UserID:             userID,
		GeneratedAt:        now,
		Level:              p.Level(),
		XP:                 p.XP,
		Retention:          p.Retention(),
		DailyStreak:        p.DailyStreak,
		LastStudyDate:      p.LastStudyDate,
		TotalCardsReviewed: p.TotalCardsReviewed,
		MasteredCards:      p.MasteredCards,
		KnownCards:         len(p.CardStates),
		DueToday:           len(gamification.DueCards(p, now, 24)),
		Achievements:       unlockedAchievements(p.AchievementIDs),
		Topics:             topicLines(p.TopicStats),
	}

	since := gamification.DateKey(now.AddDate(0, 0, -(activityWindowDays - 1)))
	for _, h := range p.DailyHistory {
		if h.Date >= since && h.Reviewed > 0 {
			r.ActiveDays++
		}
	}
	r.History = p.DailyHistory
	if len(r.History) > recentDays {
		r.History = r.History[len(r.History)-recentDays:]
	}
	return r
}

func unlockedAchievements(ids []string) []gamification.Achievement {
	unlocked := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		unlocked[id] = struct{}{}
	}
	out := make([]gamification.Achievement, 0, len(ids))
	for _, a := range gamification.Achievements() {
		if _, ok := unlocked[a.ID]; ok {
			out = append(out, a)
		}
	}
	return out
}

func topicLines(topics map[string]gamification.TopicStats) []TopicLine {
	lines := make([]TopicLine, 0, len(topics))
	for id, ts := range topics {
		line := TopicLine{TopicID: id, Reviewed: ts.Reviewed, Difficult: ts.Difficult, Failed: ts.Failed}
		if ts.Reviewed > 0 {
			line.Accuracy = int(math.Round(float64(ts.Reviewed-ts.Failed) / float64(ts.Reviewed) * 100))
		}
		lines = append(lines, line)
	}
	// Weakest topics first.
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Accuracy != lines[j].Accuracy {
			return lines[i].Accuracy < lines[j].Accuracy
		}
		return lines[i].TopicID < lines[j].TopicID
	})
	return lines
}

// Markdown renders the report as a markdown document.
func (r *Report) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Study report for %s\n\n", r.UserID)
	fmt.Fprintf(&b, "_Generated %s_\n\n", r.GeneratedAt.Format("2006-01-02 15:04 UTC"))

	b.WriteString("## Progress\n\n")
	fmt.Fprintf(&b, "- **Level %d** (%d/%d XP, %d%%)\n", r.Level.Level, r.Level.XPInLevel, r.Level.XPToNext, r.Level.Percent)
	fmt.Fprintf(&b, "- Total XP: %d\n", r.XP)
	fmt.Fprintf(&b, "- Daily streak: %d (last studied %s)\n", r.DailyStreak, formatLastStudy(r.LastStudyDate, r.GeneratedAt))
	fmt.Fprintf(&b, "- Cards reviewed: %d\n", r.TotalCardsReviewed)
	fmt.Fprintf(&b, "- Mastered: %d of %d known cards\n", r.MasteredCards, r.KnownCards)
	fmt.Fprintf(&b, "- Retention: %d%%\n", r.Retention)
	fmt.Fprintf(&b, "- Due in the next 24h: %d\n", r.DueToday)
	fmt.Fprintf(&b, "- Active days (%dd): %d\n\n", activityWindowDays, r.ActiveDays)

	b.WriteString("## Achievements\n\n")
	if len(r.Achievements) == 0 {
		b.WriteString("None yet.\n\n")
	} else {
		for _, a := range r.Achievements {
			fmt.Fprintf(&b, "- **%s**: %s\n", a.Title, a.Description)
		}
		b.WriteString("\n")
	}

	if len(r.Topics) > 0 {
		b.WriteString("## Topics\n\n")
		b.WriteString("| Topic | Reviewed | Difficult | Failed | Accuracy |\n")
		b.WriteString("|---|---:|---:|---:|---:|\n")
		for _, t := range r.Topics {
			fmt.Fprintf(&b, "| %s | %d | %d | %d | %d%% |\n", escapeCell(t.TopicID), t.Reviewed, t.Difficult, t.Failed, t.Accuracy)
		}
		b.WriteString("\n")
	}

	if len(r.History) > 0 {
		b.WriteString("## Recent days\n\n")
		b.WriteString("| Date | Reviewed | Correct | XP |\n")
		b.WriteString("|---|---:|---:|---:|\n")
		for i := len(r.History) - 1; i >= 0; i-- {
			h := r.History[i]
			fmt.Fprintf(&b, "| %s | %d | %d | %d |\n", h.Date, h.Reviewed, h.Correct, h.XP)
		}
	}
	return b.String()
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// HTML renders the markdown report to an HTML fragment.
func (r *Report) HTML() (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(r.Markdown()), &buf); err != nil {
		return "", errors.Wrap(err, "failed to render report")
	}
	return buf.String(), nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func formatLastStudy(date string, now time.Time) string {
	if date == "" {
		return "never"
	}
	last, err := time.Parse(gamification.DateLayout, date)
	if err != nil {
		return date
	}
	today, _ := time.Parse(gamification.DateLayout, gamification.DateKey(now))
	switch days := int(today.Sub(last).Hours() / 24); {
	case days <= 0:
		return "today"
	case days == 1:
		return "yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	default:
		return date
	}
}
