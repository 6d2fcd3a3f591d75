// Package session tracks at most one active focus session per user and
// fires its callbacks when the session runs out.
package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/julianstephens/focusbot/internal/errors"
	"github.com/julianstephens/focusbot/internal/logger"
)

// Callback is run when a session ends.
type Callback func(ctx context.Context)

// Session is one user's active focus session.
type Session struct {
	ID         string
	UserID     string
	GuildID    string
	StartedAt  time.Time
	EndsAt     time.Time
	Unlock     Callback
	OnComplete Callback

	timer Timer
}

// Snapshot is a read-only view of an active session.
type Snapshot struct {
	ID        string        `json:"id"`
	UserID    string        `json:"userId"`
	GuildID   string        `json:"guildId"`
	StartedAt time.Time     `json:"startedAt"`
	EndsAt    time.Time     `json:"endsAt"`
	Remaining time.Duration `json:"remaining"`
}

// ErrActive is returned by Begin when the user already has a session.
var ErrActive = apperrors.Invalid("you already have an active focus session")

// Manager owns the session registry. Sessions live only in memory.
type Manager struct {
	mu       sync.Mutex
	clock    Clock
	sessions map[string]*Session
}

func NewManager(clock Clock) *Manager {
	if clock == nil {
		clock = RealClock()
	}
	return &Manager{clock: clock, sessions: make(map[string]*Session)}
}

// CheckActive reports whether userID has a session.
func (m *Manager) CheckActive(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[userID]
	return ok
}

// Begin registers a session ending at endsAt and schedules its expiry.
// An endsAt in the past expires on the next timer tick.
func (m *Manager) Begin(userID, guildID string, endsAt time.Time, unlock, onComplete Callback) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[userID]; ok {
		return nil, ErrActive
	}

	now := m.clock.Now()
	s := &Session{
		ID:         uuid.NewString(),
		UserID:     userID,
		GuildID:    guildID,
		StartedAt:  now,
		EndsAt:     endsAt,
		Unlock:     unlock,
		OnComplete: onComplete,
	}
	remaining := endsAt.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	id := s.ID
	s.timer = m.clock.AfterFunc(remaining, func() { m.expire(userID, id) })
	m.sessions[userID] = s

	logger.Debug("Session started", "user", userID, "guild", guildID, "session", id, "ends", endsAt)
	return s, nil
}

// expire runs when a session's timer fires. The session is removed before
// the callbacks run, so a racing Stop sees no session and cannot unlock a
// second time. A session already removed (or replaced) is ignored.
func (m *Manager) expire(userID, id string) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	if !ok || s.ID != id {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, userID)
	m.mu.Unlock()

	logger.Info("Session expired", "user", userID, "guild", s.GuildID, "session", id)
	ctx := context.Background()
	if s.Unlock != nil {
		s.Unlock(ctx)
	}
	if s.OnComplete != nil {
		s.OnComplete(ctx)
	}
}

// Stop cancels the user's session and returns it. The manager does not run
// Unlock on a manual stop; the caller owns that.
func (m *Manager) Stop(userID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok {
		return nil, false
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	delete(m.sessions, userID)
	logger.Debug("Session stopped", "user", userID, "session", s.ID)
	return s, true
}

// Remaining returns the time left, never negative. ok is false when the
// user has no session.
func (m *Manager) Remaining(userID string) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok {
		return 0, false
	}
	left := s.EndsAt.Sub(m.clock.Now())
	if left < 0 {
		left = 0
	}
	return left, true
}

// Active lists every session, soonest to end first.
func (m *Manager) Active() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	out := make([]Snapshot, 0, len(m.sessions))
	for _, s := range m.sessions {
		left := s.EndsAt.Sub(now)
		if left < 0 {
			left = 0
		}
		out = append(out, Snapshot{
			ID:        s.ID,
			UserID:    s.UserID,
			GuildID:   s.GuildID,
			StartedAt: s.StartedAt,
			EndsAt:    s.EndsAt,
			Remaining: left,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndsAt.Before(out[j].EndsAt) })
	return out
}

// Shutdown stops every session and runs its Unlock so no channel stays
// locked after the process exits. Completion callbacks are not run. It
// returns ctx.Err() if ctx ends before every unlock has run.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	pending := make([]*Session, 0, len(m.sessions))
	for userID, s := range m.sessions {
		if s.timer != nil {
			s.timer.Stop()
		}
		pending = append(pending, s)
		delete(m.sessions, userID)
	}
	m.mu.Unlock()

	for i, s := range pending {
		if err := ctx.Err(); err != nil {
			left := make([]string, 0, len(pending)-i)
			for _, rest := range pending[i:] {
				left = append(left, rest.UserID)
			}
			logger.Warn("Shutdown interrupted before all sessions were unlocked",
				"remaining", len(left), "users", left)
			return err
		}
		if s.Unlock != nil {
			s.Unlock(ctx)
		}
	}
	if len(pending) > 0 {
		logger.Info("Unlocked active sessions on shutdown", "count", len(pending))
	}
	return nil
}
