package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hrygo/studyquest/store"
)

func (d *DB) GetStudyProfile(ctx context.Context, find *store.FindStudyProfile) (*store.StudyProfile, error) {
	if find.UserID == nil {
		return nil, fmt.Errorf("user_id is required")
	}

	query := `SELECT user_id, xp, total_cards_reviewed, mastered_cards, daily_streak, last_study_date, achievement_ids, topic_stats, created_ts, updated_ts
		FROM study_profile WHERE user_id = ` + placeholder(1)

	p := &store.StudyProfile{}
	err := d.db.QueryRowContext(ctx, query, *find.UserID).Scan(
		&p.UserID,
		&p.XP,
		&p.TotalCardsReviewed,
		&p.MasteredCards,
		&p.DailyStreak,
		&p.LastStudyDate,
		&p.AchievementIDs,
		&p.TopicStats,
		&p.CreatedTs,
		&p.UpdatedTs,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get study_profile: %w", err)
	}
	return p, nil
}

func (d *DB) ListCardStates(ctx context.Context, find *store.FindCardState) ([]*store.CardState, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.DueBeforeTs; v != nil {
		where, args = append(where, "due_ts <= "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `SELECT user_id, card_id, ease_factor, interval_days, repetition, mastery_score, lapses, due_ts, last_reviewed_ts
		FROM study_card_state WHERE ` + strings.Join(where, " AND ") + ` ORDER BY due_ts ASC, card_id ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list study_card_states: %w", err)
	}
	defer rows.Close()

	list := make([]*store.CardState, 0)
	for rows.Next() {
		c := &store.CardState{}
		if err := rows.Scan(&c.UserID, &c.CardID, &c.EaseFactor, &c.IntervalDays, &c.Repetition, &c.MasteryScore, &c.Lapses, &c.DueTs, &c.LastReviewedTs); err != nil {
			return nil, fmt.Errorf("failed to scan study_card_state: %w", err)
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate study_card_states: %w", err)
	}
	return list, nil
}

func (d *DB) ListDailyHistory(ctx context.Context, find *store.FindDailyHistory) ([]*store.DailyHistory, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `SELECT user_id, date, reviewed, correct, xp FROM study_daily_history WHERE ` + strings.Join(where, " AND ") + ` ORDER BY date ASC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list study_daily_history: %w", err)
	}
	defer rows.Close()

	list := make([]*store.DailyHistory, 0)
	for rows.Next() {
		h := &store.DailyHistory{}
		if err := rows.Scan(&h.UserID, &h.Date, &h.Reviewed, &h.Correct, &h.XP); err != nil {
			return nil, fmt.Errorf("failed to scan study_daily_history: %w", err)
		}
		list = append(list, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate study_daily_history: %w", err)
	}
	return list, nil
}

func (d *DB) UpsertStudySnapshot(ctx context.Context, upsert *store.UpsertStudySnapshot) error {
	p := upsert.Profile
	if p == nil || p.UserID == "" {
		return fmt.Errorf("profile with user_id is required")
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	profileStmt := `INSERT INTO study_profile (user_id, xp, total_cards_reviewed, mastered_cards, daily_streak, last_study_date, achievement_ids, topic_stats, created_ts, updated_ts)
		VALUES (` + placeholders(10) + `)
		ON CONFLICT (user_id) DO UPDATE SET
			xp = EXCLUDED.xp,
			total_cards_reviewed = EXCLUDED.total_cards_reviewed,
			mastered_cards = EXCLUDED.mastered_cards,
			daily_streak = EXCLUDED.daily_streak,
			last_study_date = EXCLUDED.last_study_date,
			achievement_ids = EXCLUDED.achievement_ids,
			topic_stats = EXCLUDED.topic_stats,
			updated_ts = EXCLUDED.updated_ts`
	if _, err := tx.ExecContext(ctx, profileStmt,
		p.UserID, p.XP, p.TotalCardsReviewed, p.MasteredCards, p.DailyStreak, p.LastStudyDate,
		p.AchievementIDs, p.TopicStats, p.CreatedTs, p.UpdatedTs,
	); err != nil {
		return fmt.Errorf("failed to upsert study_profile: %w", err)
	}

	if len(upsert.Cards) > 0 {
		cardStmt, err := tx.PrepareContext(ctx, `INSERT INTO study_card_state (user_id, card_id, ease_factor, interval_days, repetition, mastery_score, lapses, due_ts, last_reviewed_ts)
			VALUES (`+placeholders(9)+`)
			ON CONFLICT (user_id, card_id) DO UPDATE SET
				ease_factor = EXCLUDED.ease_factor,
				interval_days = EXCLUDED.interval_days,
				repetition = EXCLUDED.repetition,
				mastery_score = EXCLUDED.mastery_score,
				lapses = EXCLUDED.lapses,
				due_ts = EXCLUDED.due_ts,
				last_reviewed_ts = EXCLUDED.last_reviewed_ts`)
		if err != nil {
			return fmt.Errorf("failed to prepare study_card_state upsert: %w", err)
		}
		defer cardStmt.Close()
		for _, c := range upsert.Cards {
			if _, err := cardStmt.ExecContext(ctx, p.UserID, c.CardID, c.EaseFactor, c.IntervalDays, c.Repetition, c.MasteryScore, c.Lapses, c.DueTs, c.LastReviewedTs); err != nil {
				return fmt.Errorf("failed to upsert study_card_state %s: %w", c.CardID, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM study_daily_history WHERE user_id = `+placeholder(1), p.UserID); err != nil {
		return fmt.Errorf("failed to clear study_daily_history: %w", err)
	}
	for _, h := range upsert.History {
		if _, err := tx.ExecContext(ctx, `INSERT INTO study_daily_history (user_id, date, reviewed, correct, xp) VALUES (`+placeholders(5)+`)`,
			p.UserID, h.Date, h.Reviewed, h.Correct, h.XP,
		); err != nil {
			return fmt.Errorf("failed to insert study_daily_history %s: %w", h.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit study snapshot: %w", err)
	}
	return nil
}

func (d *DB) DeleteStudySnapshot(ctx context.Context, delete *store.DeleteStudySnapshot) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"study_card_state", "study_daily_history", "study_profile"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE user_id = `+placeholder(1), delete.UserID); err != nil {
			return fmt.Errorf("failed to delete %s: %w", table, err)
		}
	}
	return tx.Commit()
}
