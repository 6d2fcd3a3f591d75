package habits

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/focusbot/internal/constants"
	apperrors "github.com/julianstephens/focusbot/internal/errors"
	"github.com/julianstephens/focusbot/internal/logger"
	"github.com/julianstephens/focusbot/internal/models"
	"github.com/julianstephens/focusbot/internal/streak"
	"github.com/julianstephens/focusbot/internal/validation"
)

// Stats summarizes one user's habits in a guild.
type Stats struct {
	TotalHabits      int `json:"totalHabits"`
	ActiveStreaks    int `json:"activeStreaks"`
	TotalCompletions int `json:"totalCompletions"`
	LongestStreak    int `json:"longestStreak"`
	AverageStreak    int `json:"averageStreak"`
	CompletedToday   int `json:"completedToday"`
}

// Stats returns nil stats when the user has no habits.
func (s *Service) Stats(userID, guildID string) (*Stats, error) {
	habits, err := s.Habits(userID, guildID)
	if err != nil || len(habits) == 0 {
		return nil, err
	}

	today := streak.Today(s.now())
	st := &Stats{TotalHabits: len(habits)}
	sumStreak := 0
	for _, h := range habits {
		if h.Streak > 0 {
			st.ActiveStreaks++
		}
		st.TotalCompletions += h.TotalCompletions
		if h.LongestStreak > st.LongestStreak {
			st.LongestStreak = h.LongestStreak
		}
		sumStreak += h.Streak
		if h.CompletionOn(today) != -1 {
			st.CompletedToday++
		}
	}
	st.AverageStreak = int(math.Round(float64(sumStreak) / float64(len(habits))))
	return st, nil
}

// Day is one entry of a habit's history.
type Day struct {
	Date       string  `json:"date"`
	Completed  bool    `json:"completed"`
	Count      int     `json:"count"`
	Target     int     `json:"target"`
	Percentage float64 `json:"percentage"`
}

// History returns the last days (oldest first, ending today) of a habit.
func (s *Service) History(userID, guildID, key string, days int) (models.Habit, []Day, error) {
	if days <= 0 {
		days = constants.DefaultHistoryDays
	}
	h, err := s.Find(userID, guildID, key)
	if err != nil {
		return models.Habit{}, nil, err
	}

	counts := make(map[string]int, len(h.Completions))
	for _, c := range h.Completions {
		counts[c.Date] += c.Count
	}

	now := s.now()
	out := make([]Day, 0, days)
	for i := days - 1; i >= 0; i-- {
		date := now.AddDate(0, 0, -i).Format(constants.DateFormat)
		d := Day{Date: date, Target: h.Target}
		if n, ok := counts[date]; ok {
			d.Completed = true
			d.Count = n
			if h.Target > 0 {
				d.Percentage = math.Min(float64(n)/float64(h.Target)*100, 100)
			}
		}
		out = append(out, d)
	}
	return h, out, nil
}

// Category selects the leaderboard ranking.
type Category string

const (
	CategoryStreak      Category = "streak"
	CategoryLongest     Category = "longest"
	CategoryCompletions Category = "completions"
	CategoryHabits      Category = "habits"
)

// Standing is one user's row on the leaderboard.
type Standing struct {
	UserID           string `json:"userId"`
	TotalStreak      int    `json:"totalStreak"`
	LongestStreak    int    `json:"longestStreak"`
	TotalCompletions int    `json:"totalCompletions"`
	ActiveHabits     int    `json:"activeHabits"`
}

// Value is the figure ranked under c.
func (st Standing) Value(c Category) int {
	switch c {
	case CategoryLongest:
		return st.LongestStreak
	case CategoryCompletions:
		return st.TotalCompletions
	case CategoryHabits:
		return st.ActiveHabits
	default:
		return st.TotalStreak
	}
}

// ServerTotals aggregates every user in a guild.
type ServerTotals struct {
	Users         int `json:"users"`
	Habits        int `json:"habits"`
	Completions   int `json:"completions"`
	ActiveStreaks int `json:"activeStreaks"`
}

type Leaderboard struct {
	Category  Category     `json:"category"`
	Standings []Standing   `json:"standings"`
	Totals    ServerTotals `json:"totals"`
}

// ParseCategory maps a user option to a Category, defaulting to streak.
func ParseCategory(s string) Category {
	switch c := Category(s); c {
	case CategoryLongest, CategoryCompletions, CategoryHabits:
		return c
	default:
		return CategoryStreak
	}
}

// ClampLimit keeps a leaderboard size within bounds; zero means the default.
func ClampLimit(limit int) int {
	switch {
	case limit == 0:
		return constants.DefaultLeaderboardLimit
	case limit < constants.MinLeaderboardLimit:
		return constants.MinLeaderboardLimit
	case limit > constants.MaxLeaderboardLimit:
		return constants.MaxLeaderboardLimit
	default:
		return limit
	}
}

// Leaderboard ranks every user in a guild. Ties are broken by user ID so
// output is stable.
func (s *Service) Leaderboard(guildID string, category Category, limit int) (Leaderboard, error) {
	lb := Leaderboard{Category: ParseCategory(string(category))}
	limit = ClampLimit(limit)

	err := s.read(func(doc models.HabitDocument) error {
		for userID, habits := range doc[guildID] {
			if len(habits) == 0 {
				continue
			}
			st := Standing{UserID: userID, ActiveHabits: len(habits)}
			for _, h := range habits {
				st.TotalStreak += h.Streak
				if h.LongestStreak > st.LongestStreak {
					st.LongestStreak = h.LongestStreak
				}
				st.TotalCompletions += h.TotalCompletions
				if h.Streak > 0 {
					lb.Totals.ActiveStreaks++
				}
			}
			lb.Totals.Users++
			lb.Totals.Habits += len(habits)
			lb.Totals.Completions += st.TotalCompletions
			lb.Standings = append(lb.Standings, st)
		}
		return nil
	})
	if err != nil {
		return Leaderboard{}, err
	}

	sort.Slice(lb.Standings, func(i, j int) bool {
		a, b := lb.Standings[i], lb.Standings[j]
		if a.Value(lb.Category) != b.Value(lb.Category) {
			return a.Value(lb.Category) > b.Value(lb.Category)
		}
		return a.UserID < b.UserID
	})
	if len(lb.Standings) > limit {
		lb.Standings = lb.Standings[:limit]
	}
	return lb, nil
}

// Reminder is a habit not yet completed today.
type Reminder struct {
	UserID string       `json:"userId"`
	Habit  models.Habit `json:"habit"`
	Period string       `json:"reminderType"`
}

// Period buckets an hour of the day.
func Period(hour int) string {
	switch {
	case hour >= 6 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 18:
		return "afternoon"
	case hour >= 18 && hour < 24:
		return "evening"
	default:
		return "general"
	}
}

// NeedingReminder lists every habit in the guild with no completion today.
func (s *Service) NeedingReminder(guildID string) ([]Reminder, error) {
	now := s.now()
	today := streak.Today(now)
	period := Period(now.Hour())

	var out []Reminder
	err := s.read(func(doc models.HabitDocument) error {
		for userID, habits := range doc[guildID] {
			for _, h := range habits {
				if h.CompletionOn(today) == -1 {
					out = append(out, Reminder{UserID: userID, Habit: h, Period: period})
				}
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, err
}

// Cleanup drops completions older than daysToKeep days in a guild and
// returns how many were removed. Nothing is written when none are.
func (s *Service) Cleanup(guildID string, daysToKeep int) (int, error) {
	if daysToKeep <= 0 {
		daysToKeep = constants.DefaultRetentionDays
	}
	cutoff := s.now().AddDate(0, 0, -daysToKeep).Format(constants.DateFormat)

	removed := 0
	now := s.now()
	err := s.mutate(func(doc models.HabitDocument) error {
		for _, habits := range doc[guildID] {
			for i := range habits {
				kept := habits[i].Completions[:0]
				for _, c := range habits[i].Completions {
					if c.Date >= cutoff {
						kept = append(kept, c)
					}
				}
				n := len(habits[i].Completions) - len(kept)
				habits[i].Completions = kept
				if n > 0 {
					recompute(&habits[i], now)
					logger.Debug("Cleaned old completions", "guild", guildID, "habit", habits[i].Name, "removed", n)
					removed += n
				}
			}
		}
		if removed == 0 {
			return errUnchanged
		}
		return nil
	})
	return removed, err
}

// Export is a portable snapshot of a guild's habits.
type Export struct {
	ID         string                    `json:"id"`
	GuildID    string                    `json:"guildId"`
	ExportDate time.Time                 `json:"exportDate"`
	Data       map[string][]models.Habit `json:"data"`
}

// Export snapshots every user's habits in a guild.
func (s *Service) Export(guildID string) (Export, error) {
	exp := Export{
		ID:         uuid.NewString(),
		GuildID:    guildID,
		ExportDate: s.now().UTC(),
		Data:       map[string][]models.Habit{},
	}
	err := s.read(func(doc models.HabitDocument) error {
		for userID, habits := range doc[guildID] {
			exp.Data[userID] = habits
		}
		return nil
	})
	return exp, err
}

// Import replaces a guild's habits with exp.Data. Every habit is validated
// before anything is written.
func (s *Service) Import(guildID string, exp Export) error {
	for userID, habits := range exp.Data {
		if len(habits) > constants.MaxHabitsPerUser {
			return apperrors.Invalid("user %s has %d habits (max %d)", userID, len(habits), constants.MaxHabitsPerUser)
		}
		for _, h := range habits {
			if err := check(h); err != nil {
				return err
			}
		}
	}
	result := validation.New().ValidateHabits(models.HabitDocument{guildID: exp.Data})
	if result.HasConflicts() {
		msgs := make([]string, 0, len(result.Conflicts))
		for _, c := range result.Conflicts {
			msgs = append(msgs, c.Description)
		}
		return apperrors.Invalid("import is inconsistent: %s", strings.Join(msgs, "; "))
	}

	err := s.mutate(func(doc models.HabitDocument) error {
		guild := make(map[string][]models.Habit, len(exp.Data))
		for userID, habits := range exp.Data {
			guild[userID] = habits
		}
		doc[guildID] = guild
		return nil
	})
	if err == nil {
		logger.Info("Imported habits", "guild", guildID, "users", len(exp.Data), "export", exp.ID)
	}
	return err
}
