package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/studyquest/plugin/gamification"
)

// StudySnapshot is a learner's complete engine profile.
type StudySnapshot struct {
	UserID    string               `json:"user_id"`
	Profile   gamification.Profile `json:"profile"`
	CreatedTs int64                `json:"created_ts"`
	UpdatedTs int64                `json:"updated_ts"`
}

func snapshotCacheKey(userID string) string {
	return "study:snapshot:" + userID
}

// GetStudySnapshot loads the learner's profile, cards and history.
// It returns nil if the learner has never studied. Concurrent loads of the
// same user share one database round trip.
func (s *Store) GetStudySnapshot(ctx context.Context, userID string) (*StudySnapshot, error) {
	key := snapshotCacheKey(userID)
	v, err, _ := s.snapshotGroup.Do(key, func() (any, error) {
		return s.snapshotCache.Load(ctx, key, func(ctx context.Context) ([]byte, error) {
			snapshot, err := s.loadStudySnapshot(ctx, userID)
			if err != nil || snapshot == nil {
				return nil, err
			}
			return json.Marshal(snapshot)
		})
	})
	if err != nil {
		return nil, err
	}
	data, _ := v.([]byte)
	if data == nil {
		return nil, nil
	}

	// Decode per caller so nobody shares maps with the cache.
	snapshot := &StudySnapshot{}
	if err := json.Unmarshal(data, snapshot); err != nil {
		s.snapshotCache.Invalidate(ctx, key)
		return nil, errors.Wrap(err, "failed to decode cached snapshot")
	}
	return snapshot, nil
}

// SaveStudySnapshot persists the snapshot. Only the cards named in
// changedCards are written; a nil slice writes every card.
func (s *Store) SaveStudySnapshot(ctx context.Context, snapshot *StudySnapshot, changedCards []string) error {
	if snapshot == nil || snapshot.UserID == "" {
		return errors.New("snapshot user id is required")
	}
	row, err := convertProfileToRow(snapshot)
	if err != nil {
		return err
	}

	upsert := &UpsertStudySnapshot{Profile: row}
	p := snapshot.Profile
	if changedCards == nil {
		for cardID := range p.CardStates {
			changedCards = append(changedCards, cardID)
		}
	}
	for _, cardID := range changedCards {
		c, ok := p.CardStates[cardID]
		if !ok {
			return errors.Errorf("card %s is not part of the snapshot", cardID)
		}
		upsert.Cards = append(upsert.Cards, convertCardToRow(snapshot.UserID, cardID, c))
	}
	for _, h := range p.DailyHistory {
		upsert.History = append(upsert.History, &DailyHistory{
			UserID:   snapshot.UserID,
			Date:     h.Date,
			Reviewed: h.Reviewed,
			Correct:  h.Correct,
			XP:       h.XP,
		})
	}

	s.invalidateSnapshot(ctx, snapshot.UserID)
	if err := s.driver.UpsertStudySnapshot(ctx, upsert); err != nil {
		return errors.Wrapf(err, "failed to save study snapshot for %s", snapshot.UserID)
	}
	s.invalidateSnapshot(ctx, snapshot.UserID)
	return nil
}

// DeleteStudySnapshot removes every study row of the user.
func (s *Store) DeleteStudySnapshot(ctx context.Context, userID string) error {
	if err := s.driver.DeleteStudySnapshot(ctx, &DeleteStudySnapshot{UserID: userID}); err != nil {
		return errors.Wrapf(err, "failed to delete study snapshot for %s", userID)
	}
	s.invalidateSnapshot(ctx, userID)
	return nil
}

// GetStudySnapshotForUpdate reads the snapshot straight from the database.
// Read-modify-write paths use it so they never start from a cached copy.
func (s *Store) GetStudySnapshotForUpdate(ctx context.Context, userID string) (*StudySnapshot, error) {
	return s.loadStudySnapshot(ctx, userID)
}

// ListDueCards returns the user's cards due at or before dueBefore, earliest
// first.
func (s *Store) ListDueCards(ctx context.Context, userID string, dueBefore time.Time) ([]gamification.DueCard, error) {
	ts := dueBefore.Unix()
	rows, err := s.driver.ListCardStates(ctx, &FindCardState{UserID: &userID, DueBeforeTs: &ts})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list due cards")
	}
	due := make([]gamification.DueCard, 0, len(rows))
	for _, row := range rows {
		c := ConvertCardFromRow(row)
		due = append(due, gamification.DueCard{CardID: row.CardID, DueAt: c.DueAt, State: c})
	}
	return due, nil
}

// invalidateSnapshot drops the cached snapshot and detaches any read still in
// flight so later callers go back to the database.
func (s *Store) invalidateSnapshot(ctx context.Context, userID string) {
	key := snapshotCacheKey(userID)
	s.snapshotGroup.Forget(key)
	s.snapshotCache.Invalidate(ctx, key)
}

func (s *Store) loadStudySnapshot(ctx context.Context, userID string) (*StudySnapshot, error) {
	row, err := s.driver.GetStudyProfile(ctx, &FindStudyProfile{UserID: &userID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get study profile")
	}
	if row == nil {
		return nil, nil
	}
	cards, err := s.driver.ListCardStates(ctx, &FindCardState{UserID: &userID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list card states")
	}
	history, err := s.driver.ListDailyHistory(ctx, &FindDailyHistory{UserID: &userID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list daily history")
	}
	return convertRowsToSnapshot(row, cards, history)
}

func convertProfileToRow(snapshot *StudySnapshot) (*StudyProfile, error) {
	p := snapshot.Profile
	achievements := p.AchievementIDs
	if achievements == nil {
		achievements = []string{}
	}
	achievementsJSON, err := json.Marshal(achievements)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode achievements")
	}
	topics := p.TopicStats
	if topics == nil {
		topics = map[string]gamification.TopicStats{}
	}
	topicsJSON, err := json.Marshal(topics)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode topic stats")
	}

	now := nowTs()
	createdTs := snapshot.CreatedTs
	if createdTs == 0 {
		createdTs = now
	}
	return &StudyProfile{
		UserID:             snapshot.UserID,
		XP:                 p.XP,
		TotalCardsReviewed: p.TotalCardsReviewed,
		MasteredCards:      p.MasteredCards,
		DailyStreak:        p.DailyStreak,
		LastStudyDate:      p.LastStudyDate,
		AchievementIDs:     string(achievementsJSON),
		TopicStats:         string(topicsJSON),
		CreatedTs:          createdTs,
		UpdatedTs:          now,
	}, nil
}

func convertCardToRow(userID, cardID string, c gamification.CardState) *CardState {
	return &CardState{
		UserID:         userID,
		CardID:         cardID,
		EaseFactor:     c.EaseFactor,
		IntervalDays:   c.IntervalDays,
		Repetition:     c.Repetition,
		MasteryScore:   c.MasteryScore,
		Lapses:         c.Lapses,
		DueTs:          c.DueAt.Unix(),
		LastReviewedTs: c.LastReviewedAt.Unix(),
	}
}

// ConvertCardFromRow maps a stored card row onto the engine state.
func ConvertCardFromRow(row *CardState) gamification.CardState {
	return gamification.CardState{
		EaseFactor:     row.EaseFactor,
		IntervalDays:   row.IntervalDays,
		Repetition:     row.Repetition,
		MasteryScore:   row.MasteryScore,
		Lapses:         row.Lapses,
		DueAt:          time.Unix(row.DueTs, 0).UTC(),
		LastReviewedAt: time.Unix(row.LastReviewedTs, 0).UTC(),
	}
}

func convertRowsToSnapshot(row *StudyProfile, cards []*CardState, history []*DailyHistory) (*StudySnapshot, error) {
	p := gamification.NewProfile()
	p.XP = row.XP
	p.TotalCardsReviewed = row.TotalCardsReviewed
	p.MasteredCards = row.MasteredCards
	p.DailyStreak = row.DailyStreak
	p.LastStudyDate = row.LastStudyDate

	if row.AchievementIDs != "" {
		if err := json.Unmarshal([]byte(row.AchievementIDs), &p.AchievementIDs); err != nil {
			return nil, errors.Wrap(err, "failed to decode achievements")
		}
	}
	if row.TopicStats != "" {
		if err := json.Unmarshal([]byte(row.TopicStats), &p.TopicStats); err != nil {
			return nil, errors.Wrap(err, "failed to decode topic stats")
		}
	}
	for _, c := range cards {
		p.CardStates[c.CardID] = ConvertCardFromRow(c)
	}
	for _, h := range history {
		p.DailyHistory = append(p.DailyHistory, gamification.DailyHistoryEntry{
			Date:     h.Date,
			Reviewed: h.Reviewed,
			Correct:  h.Correct,
			XP:       h.XP,
		})
	}

	return &StudySnapshot{
		UserID:    row.UserID,
		Profile:   p,
		CreatedTs: row.CreatedTs,
		UpdatedTs: row.UpdatedTs,
	}, nil
}
