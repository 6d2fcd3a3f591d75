package models

import (
	"strings"
	"time"
)

// Frequency is how often a habit is meant to be done
type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
	FrequencyCustom Frequency = "custom"
)

// Habit represents one trackable activity for a user within a guild.
// The JSON field names match the documents written by earlier versions of the bot.
type Habit struct {
	Name             string       `json:"name" validate:"required,max=50"`
	Description      string       `json:"description" validate:"max=200"`
	Frequency        Frequency    `json:"frequency" validate:"oneof=daily weekly custom"`
	Target           int          `json:"target" validate:"gte=1,lte=100"`
	Emoji            string       `json:"emoji"`
	CreatedAt        time.Time    `json:"createdAt"`
	Streak           int          `json:"streak"`
	LongestStreak    int          `json:"longestStreak"`
	TotalCompletions int          `json:"totalCompletions"`
	LastCompleted    *string      `json:"lastCompleted"`
	Completions      []Completion `json:"completions" validate:"dive"`
}

// Completion is a single day's record of a habit
type Completion struct {
	Date      string     `json:"date" validate:"required,datetime=2006-01-02"` // YYYY-MM-DD
	Count     int        `json:"count" validate:"gte=1,lte=100"`
	Notes     string     `json:"notes" validate:"max=200"`
	Timestamp time.Time  `json:"timestamp"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Key is the case-folded name used to look a habit up.
func (h Habit) Key() string {
	return NormalizeKey(h.Name)
}

// Matches reports whether name refers to this habit.
func (h Habit) Matches(name string) bool {
	return strings.EqualFold(strings.TrimSpace(h.Name), strings.TrimSpace(name))
}

// CompletionOn returns the index of the completion for date, or -1.
func (h Habit) CompletionOn(date string) int {
	for i, c := range h.Completions {
		if c.Date == date {
			return i
		}
	}
	return -1
}

// SumCompletions totals the count of every completion.
func (h Habit) SumCompletions() int {
	total := 0
	for _, c := range h.Completions {
		total += c.Count
	}
	return total
}

// NormalizeKey folds a habit name for comparison.
func NormalizeKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// HabitDocument is the persisted habit table: guildID -> userID -> habits.
type HabitDocument map[string]map[string][]Habit

// UserHabits returns the habits of one user in one guild (nil if none).
func (d HabitDocument) UserHabits(guildID, userID string) []Habit {
	if d == nil || d[guildID] == nil {
		return nil
	}
	return d[guildID][userID]
}

// SetUserHabits replaces the habits of one user, creating the guild entry if needed.
func (d HabitDocument) SetUserHabits(guildID, userID string, habits []Habit) {
	if d[guildID] == nil {
		d[guildID] = make(map[string][]Habit)
	}
	d[guildID][userID] = habits
}
