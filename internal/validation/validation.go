// Package validation checks stored documents for inconsistencies that the
// services never produce but hand edits, restores, or older bot versions can.
package validation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/focusbot/internal/constants"
	"github.com/julianstephens/focusbot/internal/models"
)

// ConflictType represents the type of validation conflict
type ConflictType string

const (
	ConflictDuplicateHabitName   ConflictType = "duplicate_habit_name"
	ConflictTooManyHabits        ConflictType = "too_many_habits"
	ConflictInvalidDate          ConflictType = "invalid_date"
	ConflictDuplicateCompletion  ConflictType = "duplicate_completion"
	ConflictTotalMismatch        ConflictType = "total_mismatch"
	ConflictLastCompletedDrift   ConflictType = "last_completed_drift"
	ConflictLongestBelowCurrent  ConflictType = "longest_below_current"
	ConflictInvalidChannelID     ConflictType = "invalid_channel_id"
	ConflictDuplicateLockChannel ConflictType = "duplicate_lock_channel"
	ConflictMalformedLockKey     ConflictType = "malformed_lock_key"
)

// Conflict is one detected inconsistency.
type Conflict struct {
	Type        ConflictType
	Description string
	GuildID     string
	UserID      string
	Habit       string
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, c := range vr.Conflicts {
		fmt.Fprintf(&b, "- %s\n", c.Description)
	}
	return b.String()
}

// Validator checks habit and lock-list documents.
type Validator struct{}

// New creates a new Validator
func New() *Validator {
	return &Validator{}
}

// ValidateHabits walks every user's habits in every guild. Results are
// ordered by guild, user, then habit.
func (v *Validator) ValidateHabits(doc models.HabitDocument) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	for _, guildID := range sortedKeys(doc) {
		users := doc[guildID]
		for _, userID := range sortedKeys(users) {
			habits := users[userID]
			where := fmt.Sprintf("guild %s user %s", guildID, userID)

			if len(habits) > constants.MaxHabitsPerUser {
				result.add(Conflict{
					Type:        ConflictTooManyHabits,
					Description: fmt.Sprintf("%s has %d habits (limit %d)", where, len(habits), constants.MaxHabitsPerUser),
					GuildID:     guildID,
					UserID:      userID,
				})
			}

			seen := make(map[string]bool)
			for _, h := range habits {
				c := Conflict{GuildID: guildID, UserID: userID, Habit: h.Name}
				if seen[h.Key()] {
					c.Type = ConflictDuplicateHabitName
					c.Description = fmt.Sprintf("%s has more than one habit named %q", where, h.Name)
					result.add(c)
				}
				seen[h.Key()] = true
				v.checkHabit(&result, c, where, h)
			}
		}
	}
	return result
}

func (v *Validator) checkHabit(result *ValidationResult, base Conflict, where string, h models.Habit) {
	report := func(t ConflictType, format string, args ...interface{}) {
		c := base
		c.Type = t
		c.Description = fmt.Sprintf("%s habit %q: ", where, h.Name) + fmt.Sprintf(format, args...)
		result.add(c)
	}

	dates := make(map[string]bool)
	latest := ""
	for _, comp := range h.Completions {
		if _, err := time.Parse(constants.DateFormat, comp.Date); err != nil {
			report(ConflictInvalidDate, "completion has invalid date %q", comp.Date)
			continue
		}
		if dates[comp.Date] {
			report(ConflictDuplicateCompletion, "more than one completion on %s", comp.Date)
		}
		dates[comp.Date] = true
		if comp.Date > latest {
			latest = comp.Date
		}
	}

	if sum := h.SumCompletions(); sum != h.TotalCompletions {
		report(ConflictTotalMismatch, "totalCompletions is %d but completions sum to %d", h.TotalCompletions, sum)
	}

	last := ""
	if h.LastCompleted != nil {
		last = *h.LastCompleted
	}
	if last != latest {
		report(ConflictLastCompletedDrift, "lastCompleted is %q but the latest completion is %q", last, latest)
	}

	if h.LongestStreak < h.Streak {
		report(ConflictLongestBelowCurrent, "longestStreak %d is below current streak %d", h.LongestStreak, h.Streak)
	}
}

// ValidateLocks checks lock-list keys and channel ids.
func (v *Validator) ValidateLocks(doc models.LockDocument) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	for _, key := range sortedKeys(doc) {
		userID, guildID, ok := strings.Cut(key, "-")
		if !ok || !isSnowflake(userID) || !isSnowflake(guildID) {
			result.add(Conflict{
				Type:        ConflictMalformedLockKey,
				Description: fmt.Sprintf("lock list key %q is not userId-guildId", key),
			})
		}

		seen := make(map[string]bool)
		for _, id := range doc[key].Channels {
			c := Conflict{UserID: userID, GuildID: guildID}
			switch {
			case !isSnowflake(id):
				c.Type = ConflictInvalidChannelID
				c.Description = fmt.Sprintf("lock list %q has invalid channel id %q", key, id)
				result.add(c)
			case seen[id]:
				c.Type = ConflictDuplicateLockChannel
				c.Description = fmt.Sprintf("lock list %q lists channel %s more than once", key, id)
				result.add(c)
			}
			seen[id] = true
		}
	}
	return result
}

// Merge appends other's conflicts.
func (vr *ValidationResult) Merge(other ValidationResult) {
	vr.Conflicts = append(vr.Conflicts, other.Conflicts...)
}

func (vr *ValidationResult) add(c Conflict) {
	vr.Conflicts = append(vr.Conflicts, c)
}

func isSnowflake(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
