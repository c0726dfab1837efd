// Package study runs study sessions on top of the gamification engine.
//
// Every write follows the same path under a per-learner lock: load the
// snapshot from the database, apply a pure engine function, save what
// changed. Sessions live in memory and expire after a period of inactivity;
// an expiring session that recorded reviews is completed before it is
// dropped.
package study

import (
	"context"
	"time"

	"github.com/hrygo/studyquest/plugin/filter"
	"github.com/hrygo/studyquest/plugin/gamification"
	studyerrors "github.com/hrygo/studyquest/server/internal/errors"
	"github.com/hrygo/studyquest/server/internal/observability"
	"github.com/hrygo/studyquest/server/stats"
	"github.com/hrygo/studyquest/store"
)

const (
	// DefaultSessionTTL is how long an idle session is kept.
	DefaultSessionTTL = 2 * time.Hour
	// DefaultDueWindowHours is the look-ahead used when none is given.
	DefaultDueWindowHours = 24
	// MaxDueWindowHours bounds the due-card look-ahead.
	MaxDueWindowHours = 24 * 365
)

// Service defines the study operations exposed to the API and the CLI.
type Service interface {
	StartSession(ctx context.Context, userID, mode string) (*Session, error)
	RecordReview(ctx context.Context, userID, sessionID string, req *ReviewRequest) (*ReviewResult, error)
	FinishSession(ctx context.Context, userID, sessionID string) (*gamification.SessionSummary, error)
	GetSession(ctx context.Context, userID, sessionID string) (*Session, error)
	GetProfile(ctx context.Context, userID string) (*ProfileView, error)
	ListDueCards(ctx context.Context, userID string, withinHours int, filterExpr string) ([]gamification.DueCard, error)
	Estimate(mode string, roundSize int) (*Estimate, error)
	ResetProfile(ctx context.Context, userID string) error
	Report(ctx context.Context, userID string) (*stats.Report, error)
	CleanupExpired(ctx context.Context) (int64, error)
}

// Store is the interface for store operations needed by the study service.
type Store interface {
	GetStudySnapshot(ctx context.Context, userID string) (*store.StudySnapshot, error)
	GetStudySnapshotForUpdate(ctx context.Context, userID string) (*store.StudySnapshot, error)
	ListDueCards(ctx context.Context, userID string, dueBefore time.Time) ([]gamification.DueCard, error)
	SaveStudySnapshot(ctx context.Context, snapshot *store.StudySnapshot, changedCards []string) error
	DeleteStudySnapshot(ctx context.Context, userID string) error
}

// ReviewRequest is a rating submitted inside a session.
type ReviewRequest struct {
	CardID  string `json:"card_id"`
	TopicID string `json:"topic_id"`
	Rating  string `json:"rating"`
}

// ReviewResult is what one rating changed.
type ReviewResult struct {
	CardID       string                      `json:"card_id"`
	Outcome      gamification.ReviewOutcome  `json:"outcome"`
	Metrics      gamification.SessionMetrics `json:"metrics"`
	DailyStreak  int                         `json:"daily_streak"`
	SessionEnded bool                        `json:"session_ended"`
}

// ProfileView is a profile with its derived values.
type ProfileView struct {
	UserID       string                     `json:"user_id"`
	Profile      gamification.Profile       `json:"profile"`
	Level        gamification.LevelProgress `json:"level"`
	Retention    int                        `json:"retention"`
	Achievements []gamification.Achievement `json:"achievements"`
}

// Estimate is the expected reward and duration of a round.
type Estimate struct {
	Mode            gamification.ModeID `json:"mode"`
	RoundSize       int                 `json:"round_size"`
	XP              int                 `json:"xp"`
	DurationMinutes int                 `json:"duration_minutes"`
}

// Options configures the service.
type Options struct {
	SessionTTL time.Duration
	Clock      func() time.Time
}

type service struct {
	store    Store
	sessions *sessionRegistry
	locks    *keyedMutex
	ttl      time.Duration
	now      func() time.Time
}

// NewService creates a new study service.
func NewService(st Store, opts Options) Service {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &service{
		store:    st,
		sessions: newSessionRegistry(),
		locks:    newKeyedMutex(),
		ttl:      opts.SessionTTL,
		now:      func() time.Time { return opts.Clock().UTC() },
	}
}

func (s *service) StartSession(ctx context.Context, userID, mode string) (*Session, error) {
	if userID == "" {
		return nil, studyerrors.Unauthorized("user id is required")
	}
	modeID, err := gamification.ParseMode(mode)
	if err != nil {
		return nil, studyerrors.Wrap(err, studyerrors.ErrCodeInvalidArgument, "invalid mode")
	}

	session := s.sessions.create(userID, modeID, s.now())
	observability.Logger(ctx).Info("study session started", "user_id", userID, "session_id", session.ID, "mode", modeID)
	return &session, nil
}

func (s *service) GetSession(_ context.Context, userID, sessionID string) (*Session, error) {
	session, err := s.lookupSession(userID, sessionID)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *service) RecordReview(ctx context.Context, userID, sessionID string, req *ReviewRequest) (*ReviewResult, error) {
	if req == nil || req.CardID == "" {
		return nil, studyerrors.InvalidArgument("card_id is required")
	}
	rating, err := gamification.ParseRating(req.Rating)
	if err != nil {
		return nil, studyerrors.Wrap(err, studyerrors.ErrCodeInvalidArgument, "invalid rating")
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	session, err := s.lookupSession(userID, sessionID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if session.Ended(now) {
		return nil, studyerrors.SessionEnded(sessionID)
	}

	snapshot, err := s.loadSnapshotForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}
	next, outcome := gamification.ApplyReview(snapshot.Profile, gamification.ReviewInput{
		CardID:  req.CardID,
		TopicID: req.TopicID,
		Rating:  rating,
		Now:     now,
	})
	snapshot.Profile = next
	if err := s.store.SaveStudySnapshot(ctx, snapshot, []string{req.CardID}); err != nil {
		return nil, studyerrors.Internal("failed to save review", err)
	}

	session.Metrics = session.Metrics.Record(rating)
	session.LastActivityAt = now
	s.sessions.put(session)

	return &ReviewResult{
		CardID:       req.CardID,
		Outcome:      outcome,
		Metrics:      session.Metrics,
		DailyStreak:  next.DailyStreak,
		SessionEnded: session.Ended(now),
	}, nil
}

func (s *service) FinishSession(ctx context.Context, userID, sessionID string) (*gamification.SessionSummary, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	session, err := s.lookupSession(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Finished {
		return nil, studyerrors.SessionEnded(sessionID)
	}

	now := s.now()
	summary, err := s.completeSession(ctx, session, now)
	if err != nil {
		return nil, err
	}

	session.Finished = true
	session.LastActivityAt = now
	s.sessions.put(session)

	observability.Logger(ctx).Info("study session finished",
		"user_id", userID,
		"session_id", sessionID,
		"mode", session.Mode,
		"reviewed", session.Metrics.Reviewed(),
		"xp_earned", summary.XPEarned,
		"leveled_up", summary.LeveledUp)
	return &summary, nil
}

func (s *service) GetProfile(ctx context.Context, userID string) (*ProfileView, error) {
	snapshot, err := s.loadSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := snapshot.Profile

	unlocked := make(map[string]struct{}, len(p.AchievementIDs))
	for _, id := range p.AchievementIDs {
		unlocked[id] = struct{}{}
	}
	achievements := make([]gamification.Achievement, 0, len(p.AchievementIDs))
	for _, a := range gamification.Achievements() {
		if _, ok := unlocked[a.ID]; ok {
			achievements = append(achievements, a)
		}
	}

	return &ProfileView{
		UserID:       userID,
		Profile:      p,
		Level:        p.Level(),
		Retention:    p.Retention(),
		Achievements: achievements,
	}, nil
}

func (s *service) ListDueCards(ctx context.Context, userID string, withinHours int, filterExpr string) ([]gamification.DueCard, error) {
	if withinHours < 0 || withinHours > MaxDueWindowHours {
		return nil, studyerrors.InvalidArgument("within_hours is out of range").WithContext("within_hours", withinHours)
	}

	var f *filter.Filter
	if filterExpr != "" {
		compiled, err := filter.Compile(filterExpr)
		if err != nil {
			return nil, studyerrors.Wrap(err, studyerrors.ErrCodeInvalidArgument, "invalid filter")
		}
		f = compiled
	}

	if userID == "" {
		return nil, studyerrors.Unauthorized("user id is required")
	}
	now := s.now()
	due, err := s.store.ListDueCards(ctx, userID, now.Add(time.Duration(withinHours)*time.Hour))
	if err != nil {
		return nil, studyerrors.Internal("failed to list due cards", err)
	}
	due, err = filter.Apply(f, due, now)
	if err != nil {
		return nil, studyerrors.Wrap(err, studyerrors.ErrCodeInvalidArgument, "failed to evaluate filter")
	}
	return due, nil
}

func (s *service) Estimate(mode string, roundSize int) (*Estimate, error) {
	modeID, err := gamification.ParseMode(mode)
	if err != nil {
		return nil, studyerrors.Wrap(err, studyerrors.ErrCodeInvalidArgument, "invalid mode")
	}
	if err := gamification.ValidateRoundSize(roundSize); err != nil {
		return nil, studyerrors.Wrap(err, studyerrors.ErrCodeInvalidArgument, "invalid round size")
	}
	return &Estimate{
		Mode:            modeID,
		RoundSize:       roundSize,
		XP:              gamification.EstimateXP(modeID, roundSize),
		DurationMinutes: gamification.EstimateDurationMinutes(modeID, roundSize),
	}, nil
}

func (s *service) ResetProfile(ctx context.Context, userID string) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	if err := s.store.DeleteStudySnapshot(ctx, userID); err != nil {
		return studyerrors.Internal("failed to reset profile", err)
	}
	removed := s.sessions.removeUser(userID)
	observability.Logger(ctx).Info("study profile reset", "user_id", userID, "sessions_dropped", removed)
	return nil
}

func (s *service) Report(ctx context.Context, userID string) (*stats.Report, error) {
	snapshot, err := s.loadSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	return stats.BuildReport(userID, snapshot.Profile, s.now()), nil
}

// CleanupExpired drops sessions idle for longer than the session TTL. An
// unfinished session with reviews is completed first, dated at its last
// activity; if that save fails the session is kept for the next sweep.
func (s *service) CleanupExpired(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.ttl)
	var (
		removed  int64
		firstErr error
	)
	for _, idle := range s.sessions.idleSince(cutoff) {
		ok, err := s.expireSession(ctx, idle.UserID, idle.ID, cutoff)
		if err != nil {
			observability.Logger(ctx).Error("failed to complete expired session",
				"user_id", idle.UserID, "session_id", idle.ID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			removed++
		}
	}
	return removed, firstErr
}

// expireSession re-checks the session under the learner lock, since a review
// may have landed after the sweep listed it.
func (s *service) expireSession(ctx context.Context, userID, sessionID string, cutoff time.Time) (bool, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	session, ok := s.sessions.get(userID, sessionID)
	if !ok || !session.LastActivityAt.Before(cutoff) {
		return false, nil
	}
	if !session.Finished && session.Metrics.Reviewed() > 0 {
		summary, err := s.completeSession(ctx, session, session.LastActivityAt)
		if err != nil {
			return false, err
		}
		observability.Logger(ctx).Info("expired study session completed",
			"user_id", userID,
			"session_id", sessionID,
			"reviewed", session.Metrics.Reviewed(),
			"xp_earned", summary.XPEarned)
	}
	s.sessions.remove(sessionID)
	return true, nil
}

// completeSession grants the session's reward. A session without reviews
// leaves the profile untouched. The caller holds the learner lock.
func (s *service) completeSession(ctx context.Context, session Session, now time.Time) (gamification.SessionSummary, error) {
	snapshot, err := s.loadSnapshotForUpdate(ctx, session.UserID)
	if err != nil {
		return gamification.SessionSummary{}, err
	}

	next, summary := gamification.CompleteSession(snapshot.Profile, session.Metrics, session.Mode, now)
	if session.Metrics.Reviewed() == 0 {
		summary.Level = snapshot.Profile.Level()
		summary.NewAchievements = []string{}
		return summary, nil
	}
	snapshot.Profile = next
	if err := s.store.SaveStudySnapshot(ctx, snapshot, []string{}); err != nil {
		return gamification.SessionSummary{}, studyerrors.Internal("failed to save session", err)
	}
	return summary, nil
}

// lookupSession returns the caller's session, treating expired ones as gone.
func (s *service) lookupSession(userID, sessionID string) (Session, error) {
	session, ok := s.sessions.get(userID, sessionID)
	if !ok || session.LastActivityAt.Before(s.now().Add(-s.ttl)) {
		return Session{}, studyerrors.NotFound("session not found").WithContext("session_id", sessionID)
	}
	return session, nil
}

// loadSnapshot returns the stored snapshot or a fresh one for new learners.
// It may be served from the cache, so it is for reads only.
func (s *service) loadSnapshot(ctx context.Context, userID string) (*store.StudySnapshot, error) {
	return s.readSnapshot(ctx, userID, s.store.GetStudySnapshot)
}

// loadSnapshotForUpdate is loadSnapshot straight from the database.
func (s *service) loadSnapshotForUpdate(ctx context.Context, userID string) (*store.StudySnapshot, error) {
	return s.readSnapshot(ctx, userID, s.store.GetStudySnapshotForUpdate)
}

func (s *service) readSnapshot(ctx context.Context, userID string, get func(context.Context, string) (*store.StudySnapshot, error)) (*store.StudySnapshot, error) {
	if userID == "" {
		return nil, studyerrors.Unauthorized("user id is required")
	}
	snapshot, err := get(ctx, userID)
	if err != nil {
		return nil, studyerrors.Internal("failed to load profile", err)
	}
	if snapshot == nil {
		snapshot = &store.StudySnapshot{UserID: userID, Profile: gamification.NewProfile()}
	}
	return snapshot, nil
}
