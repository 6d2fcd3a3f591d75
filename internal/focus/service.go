// Package focus runs focus sessions: lock the user's channels, wait, unlock,
// and tell the user the session is over.
package focus

import (
	"context"
	"sync"
	"time"

	"github.com/julianstephens/focusbot/internal/constants"
	apperrors "github.com/julianstephens/focusbot/internal/errors"
	"github.com/julianstephens/focusbot/internal/locker"
	"github.com/julianstephens/focusbot/internal/logger"
	"github.com/julianstephens/focusbot/internal/session"
)

// CompletionMessage is sent to the user when a session runs out.
const CompletionMessage = "🎉 Congrats! Your focus session has ended. Time to take a break!"

// Notifier delivers a direct message to a user.
type Notifier interface {
	NotifyUser(ctx context.Context, userID, message string) error
}

// Locker is the permission locker used by a session.
type Locker interface {
	Lock(ctx context.Context, guildID, userID string, channelIDs []string) locker.Report
	Unlock(ctx context.Context, userID string) locker.Report
	Release(ctx context.Context, userID string, channelIDs []string) locker.Report
}

// LockLists supplies the channels a user wants locked.
type LockLists interface {
	Channels(userID, guildID string) ([]string, error)
}

// Options configures session length and the channels locked when a user
// has none configured.
type Options struct {
	DefaultMinutes   int
	MaxMinutes       int
	FallbackChannels []string
}

type Service struct {
	sessions *session.Manager
	locker   Locker
	lists    LockLists
	notifier Notifier
	clock    session.Clock
	opts     Options

	mu       sync.Mutex
	starting map[string]bool
}

func NewService(sessions *session.Manager, l Locker, lists LockLists, n Notifier, clock session.Clock, opts Options) *Service {
	if clock == nil {
		clock = session.RealClock()
	}
	if opts.DefaultMinutes <= 0 {
		opts.DefaultMinutes = constants.DefaultFocusMinutes
	}
	if opts.MaxMinutes <= 0 {
		opts.MaxMinutes = constants.MaxFocusMinutes
	}
	return &Service{
		sessions: sessions,
		locker:   l,
		lists:    lists,
		notifier: n,
		clock:    clock,
		opts:     opts,
		starting: make(map[string]bool),
	}
}

// Started describes a session that was just begun.
type Started struct {
	Session  *session.Session
	Minutes  int
	Channels []string
	Lock     locker.Report
}

// Stopped describes a session that was cancelled.
type Stopped struct {
	Session *session.Session
	Unlock  locker.Report
}

// Status is the state of a user's session.
type Status struct {
	Active    bool
	Remaining time.Duration
	EndsAt    time.Time
}

// Start locks the user's channels and begins a session of minutes
// (0 means the default). Channels that fail to lock are reported in
// Started.Lock; they do not stop the session.
func (s *Service) Start(ctx context.Context, guildID, userID string, minutes int) (Started, error) {
	if minutes == 0 {
		minutes = s.opts.DefaultMinutes
	}
	if minutes < 1 || minutes > s.opts.MaxMinutes {
		return Started{}, apperrors.Invalid("session length must be between 1 and %d minutes", s.opts.MaxMinutes)
	}
	if !s.reserve(userID) {
		return Started{}, session.ErrActive
	}
	defer s.release(userID)

	channels, err := s.resolveChannels(guildID, userID)
	if err != nil {
		return Started{}, err
	}

	report := s.locker.Lock(ctx, guildID, userID, channels)
	endsAt := s.clock.Now().Add(time.Duration(minutes) * time.Minute)
	sess, err := s.sessions.Begin(userID, guildID, endsAt, s.unlockFunc(guildID, userID), s.completeFunc(userID))
	if err != nil {
		// Another session owns the user's earlier snapshots. Only the
		// channels this call snapshotted are restored.
		var fresh []string
		for _, res := range report.Results {
			if res.Outcome == locker.Locked && !res.Reused {
				fresh = append(fresh, res.ChannelID)
			}
		}
		if len(fresh) > 0 {
			s.locker.Release(ctx, userID, fresh)
		}
		return Started{}, err
	}

	logger.Info("Focus session started", "user", userID, "guild", guildID, "minutes", minutes,
		"locked", report.Count(locker.Locked), "failed", report.Count(locker.Failed))
	return Started{Session: sess, Minutes: minutes, Channels: channels, Lock: report}, nil
}

// Stop cancels the user's session and restores their channels.
func (s *Service) Stop(ctx context.Context, userID string) (Stopped, error) {
	sess, ok := s.sessions.Stop(userID)
	if !ok {
		return Stopped{}, apperrors.NotFound("you don't have an active focus session")
	}
	report := s.locker.Unlock(ctx, userID)
	logger.Info("Focus session stopped", "user", userID, "guild", sess.GuildID)
	return Stopped{Session: sess, Unlock: report}, nil
}

// Status reports the user's remaining time.
func (s *Service) Status(userID string) Status {
	left, ok := s.sessions.Remaining(userID)
	if !ok {
		return Status{}
	}
	return Status{Active: true, Remaining: left, EndsAt: s.clock.Now().Add(left)}
}

// Shutdown unlocks every active session.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.sessions.Shutdown(ctx)
}

// reserve marks userID as starting. It fails when the user already has a
// session or another Start for them is in progress.
func (s *Service) reserve(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.starting[userID] || s.sessions.CheckActive(userID) {
		return false
	}
	s.starting[userID] = true
	return true
}

func (s *Service) release(userID string) {
	s.mu.Lock()
	delete(s.starting, userID)
	s.mu.Unlock()
}

func (s *Service) resolveChannels(guildID, userID string) ([]string, error) {
	channels, err := s.lists.Channels(userID, guildID)
	if err != nil {
		return nil, err
	}
	if len(channels) == 0 {
		channels = s.opts.FallbackChannels
	}
	if len(channels) == 0 {
		return nil, apperrors.Invalid("you have no channels to lock; add some with /focus-config add")
	}
	return channels, nil
}

func (s *Service) unlockFunc(guildID, userID string) session.Callback {
	return func(ctx context.Context) {
		report := s.locker.Unlock(ctx, userID)
		if n := report.Count(locker.Failed); n > 0 {
			logger.Warn("Some channels could not be unlocked", "user", userID, "guild", guildID,
				"channels", report.Channels(locker.Failed))
		}
	}
}

func (s *Service) completeFunc(userID string) session.Callback {
	return func(ctx context.Context) {
		if s.notifier == nil {
			return
		}
		if err := s.notifier.NotifyUser(ctx, userID, CompletionMessage); err != nil {
			logger.Warn("Failed to send completion message", "user", userID, "error", err)
		}
	}
}
