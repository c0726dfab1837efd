package study

import (
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/hrygo/studyquest/plugin/gamification"
)

// Session is one study run. The engine never persists it; only the profile
// changes it causes are saved.
type Session struct {
	ID             string                      `json:"id"`
	UserID         string                      `json:"user_id"`
	Mode           gamification.ModeID         `json:"mode"`
	StartedAt      time.Time                   `json:"started_at"`
	LastActivityAt time.Time                   `json:"last_activity_at"`
	Metrics        gamification.SessionMetrics `json:"metrics"`
	Finished       bool                        `json:"finished"`
}

// Ended reports whether the session accepts no more reviews.
func (s Session) Ended(now time.Time) bool {
	return s.Finished || gamification.SessionEnded(s.Mode, s.Metrics, s.StartedAt, now)
}

// sessionRegistry holds active sessions in memory.
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*Session)}
}

func (r *sessionRegistry) create(userID string, mode gamification.ModeID, now time.Time) Session {
	s := &Session{
		ID:             shortuuid.New(),
		UserID:         userID,
		Mode:           mode,
		StartedAt:      now,
		LastActivityAt: now,
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return *s
}

// get returns a copy of the session owned by userID.
func (r *sessionRegistry) get(userID, id string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok || s.UserID != userID {
		return Session{}, false
	}
	return *s, true
}

func (r *sessionRegistry) put(s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.ID]; ok {
		r.sessions[s.ID] = &s
	}
}

func (r *sessionRegistry) removeUser(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// idleSince returns copies of the sessions idle since before cutoff.
func (r *sessionRegistry) idleSince(cutoff time.Time) []Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var idle []Session
	for _, s := range r.sessions {
		if s.LastActivityAt.Before(cutoff) {
			idle = append(idle, *s)
		}
	}
	return idle
}

func (r *sessionRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

func (r *sessionRegistry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
