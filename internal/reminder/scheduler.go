// Package reminder periodically DMs users the habits they have not done today.
package reminder

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/julianstephens/focusbot/internal/constants"
	"github.com/julianstephens/focusbot/internal/habits"
	"github.com/julianstephens/focusbot/internal/logger"
	"github.com/julianstephens/focusbot/internal/streak"
)

// Source is the habit data the scheduler reads.
type Source interface {
	Guilds() ([]string, error)
	Refresh(guildID string) (int, error)
	NeedingReminder(guildID string) ([]habits.Reminder, error)
}

// Sender delivers one user's pending habits.
type Sender interface {
	Remind(ctx context.Context, userID string, pending []habits.Reminder) error
}

// Summary counts what one sweep did.
type Summary struct {
	Guilds  int
	Users   int
	Sent    int
	Failed  int
	Skipped bool
}

// Scheduler wakes every interval and, once the local hour reaches the
// configured hour, sweeps each guild once per day.
type Scheduler struct {
	mu       sync.RWMutex
	source   Source
	sender   Sender
	hour     int
	interval time.Duration
	now      func() time.Time
	lastRun  map[string]string
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScheduler creates a scheduler that sends at hour (0-23). A negative
// hour disables sending; Start then does nothing.
func NewScheduler(source Source, sender Sender, hour int) *Scheduler {
	return &Scheduler{
		source:   source,
		sender:   sender,
		hour:     hour,
		interval: constants.ReminderInterval,
		now:      time.Now,
		lastRun:  make(map[string]string),
	}
}

// Enabled reports whether a reminder hour is configured.
func (s *Scheduler) Enabled() bool {
	return s.hour >= 0
}

// Start begins the scheduler loop. A sweep also runs immediately so a
// restart after the reminder hour still sends that day's reminders.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.Enabled() {
		logger.Info("Habit reminders disabled")
		return
	}

	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.Tick(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Tick(ctx)
			}
		}
	}()
	logger.Info("Habit reminders scheduled", "hour", s.hour, "interval", s.interval)
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Tick runs one sweep if it is due. It is safe to call directly.
func (s *Scheduler) Tick(ctx context.Context) Summary {
	now := s.now()
	if !s.Enabled() || now.Hour() < s.hour {
		return Summary{Skipped: true}
	}

	guilds, err := s.source.Guilds()
	if err != nil {
		logger.Error("Reminder sweep: list guilds", "error", err)
		return Summary{}
	}

	today := streak.Today(now)
	var sum Summary
	for _, guildID := range guilds {
		if ctx.Err() != nil {
			break
		}
		if s.ranToday(guildID, today) {
			continue
		}
		sum.Guilds++
		s.sweepGuild(ctx, guildID, &sum)
		s.markRan(guildID, today)
	}
	if sum.Guilds > 0 {
		logger.Info("Reminder sweep finished", "guilds", sum.Guilds, "users", sum.Users, "sent", sum.Sent, "failed", sum.Failed)
	}
	return sum
}

func (s *Scheduler) sweepGuild(ctx context.Context, guildID string, sum *Summary) {
	if n, err := s.source.Refresh(guildID); err != nil {
		logger.Warn("Reminder sweep: refresh streaks", "guild", guildID, "error", err)
	} else if n > 0 {
		logger.Debug("Reset broken streaks", "guild", guildID, "count", n)
	}

	pending, err := s.source.NeedingReminder(guildID)
	if err != nil {
		logger.Error("Reminder sweep: list pending habits", "guild", guildID, "error", err)
		return
	}

	byUser := make(map[string][]habits.Reminder)
	for _, r := range pending {
		byUser[r.UserID] = append(byUser[r.UserID], r)
	}
	users := make([]string, 0, len(byUser))
	for u := range byUser {
		users = append(users, u)
	}
	sort.Strings(users)

	for _, userID := range users {
		sum.Users++
		if err := s.sender.Remind(ctx, userID, byUser[userID]); err != nil {
			logger.Warn("Reminder sweep: send failed", "user", userID, "guild", guildID, "error", err)
			sum.Failed++
			continue
		}
		sum.Sent++
	}
}

func (s *Scheduler) ranToday(guildID, today string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun[guildID] == today
}

func (s *Scheduler) markRan(guildID, today string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun[guildID] = today
}
