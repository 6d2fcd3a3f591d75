// Package habits is the only path for reading and writing habit records.
package habits

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/julianstephens/focusbot/internal/constants"
	apperrors "github.com/julianstephens/focusbot/internal/errors"
	"github.com/julianstephens/focusbot/internal/logger"
	"github.com/julianstephens/focusbot/internal/models"
	"github.com/julianstephens/focusbot/internal/storage"
	"github.com/julianstephens/focusbot/internal/streak"
)

// Service runs every habit mutation as a load-modify-save cycle on the
// habit document. A single mutex covers the whole cycle, so two commands
// can never interleave and clobber each other's save.
type Service struct {
	store storage.Provider
	mu    sync.Mutex
	now   func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source used for "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store storage.Provider, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Update is a shallow partial update; nil fields are left unchanged.
type Update struct {
	Name        *string
	Description *string
	Frequency   *models.Frequency
	Target      *int
	Emoji       *string
}

// LogResult is returned by LogCompletion.
type LogResult struct {
	Habit     models.Habit
	Streak    streak.Result
	Milestone int
}

func (s *Service) read(fn func(doc models.HabitDocument) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.LoadHabits()
	if err != nil {
		return apperrors.Persistence("load habits", err)
	}
	return fn(doc)
}

// errUnchanged lets a mutation skip the save when it modified nothing.
var errUnchanged = errors.New("unchanged")

func (s *Service) mutate(fn func(doc models.HabitDocument) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.LoadHabits()
	if err != nil {
		return apperrors.Persistence("load habits", err)
	}
	if err := fn(doc); err != nil {
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}
	if err := s.store.SaveHabits(doc); err != nil {
		logger.Error("Failed to save habits", "error", err)
		return apperrors.Persistence("save habits", err)
	}
	return nil
}

func findIndex(habits []models.Habit, key string) int {
	for i := range habits {
		if habits[i].Matches(key) {
			return i
		}
	}
	return -1
}

// Habits returns a user's habits in a guild.
func (s *Service) Habits(userID, guildID string) ([]models.Habit, error) {
	var out []models.Habit
	err := s.read(func(doc models.HabitDocument) error {
		out = append(out, doc.UserHabits(guildID, userID)...)
		return nil
	})
	return out, err
}

// Find looks a habit up by case-insensitive name.
func (s *Service) Find(userID, guildID, key string) (models.Habit, error) {
	var h models.Habit
	err := s.read(func(doc models.HabitDocument) error {
		habits := doc.UserHabits(guildID, userID)
		i := findIndex(habits, key)
		if i == -1 {
			return apperrors.NotFound("habit %q", key)
		}
		h = habits[i]
		return nil
	})
	return h, err
}

// Create adds a habit after filling defaults. The per-user cap and the
// case-insensitive name check run inside the same critical section as the
// write, so a caller's pre-check cannot go stale.
func (s *Service) Create(userID, guildID string, habit models.Habit) (models.Habit, error) {
	habit.Name = strings.TrimSpace(habit.Name)
	if habit.Frequency == "" {
		habit.Frequency = models.FrequencyDaily
	}
	if habit.Target == 0 {
		habit.Target = constants.MinTarget
	}
	if habit.Emoji == "" {
		habit.Emoji = constants.DefaultHabitEmoji
	}
	if habit.CreatedAt.IsZero() {
		habit.CreatedAt = s.now()
	}
	habit.Streak = 0
	habit.LongestStreak = 0
	habit.TotalCompletions = 0
	habit.LastCompleted = nil
	habit.Completions = []models.Completion{}

	if err := check(habit); err != nil {
		return models.Habit{}, err
	}

	err := s.mutate(func(doc models.HabitDocument) error {
		habits := doc.UserHabits(guildID, userID)
		if findIndex(habits, habit.Name) != -1 {
			return apperrors.Invalid("you already have a habit named %q", habit.Name)
		}
		if len(habits) >= constants.MaxHabitsPerUser {
			return apperrors.Invalid("you can only track up to %d habits at a time", constants.MaxHabitsPerUser)
		}
		doc.SetUserHabits(guildID, userID, append(habits, habit))
		return nil
	})
	if err != nil {
		return models.Habit{}, err
	}

	logger.Info("Habit created", "user", userID, "guild", guildID, "habit", habit.Name)
	return habit, nil
}

// Delete removes a habit.
func (s *Service) Delete(userID, guildID, key string) error {
	return s.mutate(func(doc models.HabitDocument) error {
		habits := doc.UserHabits(guildID, userID)
		i := findIndex(habits, key)
		if i == -1 {
			return apperrors.NotFound("habit %q", key)
		}
		doc.SetUserHabits(guildID, userID, append(habits[:i:i], habits[i+1:]...))
		return nil
	})
}

// Update merges u onto the habit. Renaming onto another habit's name
// (case-insensitively) fails without writing.
func (s *Service) Update(userID, guildID, key string, u Update) (models.Habit, error) {
	var updated models.Habit
	err := s.mutate(func(doc models.HabitDocument) error {
		habits := doc.UserHabits(guildID, userID)
		i := findIndex(habits, key)
		if i == -1 {
			return apperrors.NotFound("habit %q", key)
		}

		h := habits[i]
		if u.Name != nil {
			name := strings.TrimSpace(*u.Name)
			for j := range habits {
				if j != i && habits[j].Matches(name) {
					return apperrors.Invalid("you already have a habit named %q", name)
				}
			}
			h.Name = name
		}
		if u.Description != nil {
			h.Description = *u.Description
		}
		if u.Frequency != nil {
			h.Frequency = *u.Frequency
		}
		if u.Target != nil {
			h.Target = *u.Target
		}
		if u.Emoji != nil && *u.Emoji != "" {
			h.Emoji = *u.Emoji
		}
		if err := check(h); err != nil {
			return err
		}

		habits[i] = h
		updated = h
		return nil
	})
	return updated, err
}

// LogCompletion records a completion and recomputes the streak. A second
// completion for the same date is rejected.
func (s *Service) LogCompletion(userID, guildID, key string, c models.Completion) (LogResult, error) {
	now := s.now()
	if c.Date == "" {
		c.Date = streak.Today(now)
	}
	if c.Count == 0 {
		c.Count = constants.MinCount
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = now
	}
	if err := check(c); err != nil {
		return LogResult{}, err
	}
	if c.Date > streak.Today(now) {
		return LogResult{}, apperrors.Invalid("date %s is in the future", c.Date)
	}

	var res LogResult
	err := s.mutate(func(doc models.HabitDocument) error {
		habits := doc.UserHabits(guildID, userID)
		i := findIndex(habits, key)
		if i == -1 {
			return apperrors.NotFound("habit %q", key)
		}
		h := habits[i]
		if h.CompletionOn(c.Date) != -1 {
			return apperrors.Invalid("%q is already logged for %s", h.Name, c.Date)
		}

		h.Completions = append(h.Completions, c)
		h.TotalCompletions += c.Count
		if h.LastCompleted == nil || c.Date > *h.LastCompleted {
			date := c.Date
			h.LastCompleted = &date
		}

		res.Streak = streak.Calculate(h.Completions, now)
		h.Streak = res.Streak.CurrentStreak
		if h.Streak > h.LongestStreak {
			h.LongestStreak = h.Streak
			res.Streak.IsNewRecord = true
		}
		res.Milestone = streak.Milestone(h.Streak)

		habits[i] = h
		res.Habit = h
		return nil
	})
	if err != nil {
		return LogResult{}, err
	}

	logger.Debug("Habit logged", "user", userID, "guild", guildID, "habit", res.Habit.Name,
		"date", c.Date, "streak", res.Habit.Streak, "record", res.Streak.IsNewRecord)
	return res, nil
}

// UpdateCompletion edits the count and/or notes of an existing completion
// and recomputes totals and the current streak.
func (s *Service) UpdateCompletion(userID, guildID, key, date string, count *int, notes *string) (models.Habit, error) {
	var updated models.Habit
	err := s.mutate(func(doc models.HabitDocument) error {
		habits := doc.UserHabits(guildID, userID)
		i := findIndex(habits, key)
		if i == -1 {
			return apperrors.NotFound("habit %q", key)
		}
		h := habits[i]
		ci := h.CompletionOn(date)
		if ci == -1 {
			return apperrors.NotFound("completion for %s", date)
		}

		c := h.Completions[ci]
		if count != nil {
			c.Count = *count
		}
		if notes != nil {
			c.Notes = *notes
		}
		ts := s.now()
		c.UpdatedAt = &ts
		if err := check(c); err != nil {
			return err
		}

		h.Completions[ci] = c
		recompute(&h, s.now())
		habits[i] = h
		updated = h
		return nil
	})
	return updated, err
}

// DeleteCompletion removes the completion for date and recomputes totals and
// the current streak. The longest streak is a historical record and is kept.
func (s *Service) DeleteCompletion(userID, guildID, key, date string) (models.Habit, error) {
	var updated models.Habit
	err := s.mutate(func(doc models.HabitDocument) error {
		habits := doc.UserHabits(guildID, userID)
		i := findIndex(habits, key)
		if i == -1 {
			return apperrors.NotFound("habit %q", key)
		}
		h := habits[i]
		ci := h.CompletionOn(date)
		if ci == -1 {
			return apperrors.NotFound("completion for %s", date)
		}

		h.Completions = append(h.Completions[:ci:ci], h.Completions[ci+1:]...)
		recompute(&h, s.now())

		habits[i] = h
		updated = h
		return nil
	})
	return updated, err
}

// Refresh recomputes the current streak of every habit in a guild so that
// streaks broken by inactivity read as zero. It returns how many changed.
func (s *Service) Refresh(guildID string) (int, error) {
	changed := 0
	now := s.now()
	err := s.mutate(func(doc models.HabitDocument) error {
		for userID, habits := range doc[guildID] {
			for i := range habits {
				cur := streak.Calculate(habits[i].Completions, now).CurrentStreak
				if cur != habits[i].Streak {
					habits[i].Streak = cur
					changed++
				}
			}
			doc[guildID][userID] = habits
		}
		if changed == 0 {
			return errUnchanged
		}
		return nil
	})
	return changed, err
}

// recompute derives the total, the current streak and the last completion
// date from h.Completions. LongestStreak only grows.
func recompute(h *models.Habit, now time.Time) {
	h.TotalCompletions = h.SumCompletions()
	h.Streak = streak.Calculate(h.Completions, now).CurrentStreak
	if h.Streak > h.LongestStreak {
		h.LongestStreak = h.Streak
	}
	h.LastCompleted = latestDate(h.Completions)
}

func latestDate(completions []models.Completion) *string {
	var latest string
	for _, c := range completions {
		if c.Date > latest {
			latest = c.Date
		}
	}
	if latest == "" {
		return nil
	}
	return &latest
}

// ParseDate validates a YYYY-MM-DD string in the local calendar.
func ParseDate(s string) (string, error) {
	t, err := time.ParseInLocation(constants.DateFormat, strings.TrimSpace(s), time.Local)
	if err != nil {
		return "", apperrors.Invalid("invalid date %q (expected YYYY-MM-DD)", s)
	}
	return t.Format(constants.DateFormat), nil
}

// Describe is a short human label for a habit.
func Describe(h models.Habit) string {
	return fmt.Sprintf("%s %s", h.Emoji, h.Name)
}

// Guilds lists every guild with at least one stored habit list, sorted.
func (s *Service) Guilds() ([]string, error) {
	var ids []string
	err := s.read(func(doc models.HabitDocument) error {
		for id := range doc {
			ids = append(ids, id)
		}
		return nil
	})
	sort.Strings(ids)
	return ids, err
}
