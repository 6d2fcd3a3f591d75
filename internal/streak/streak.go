// Package streak derives consecutive-day completion runs from a habit's history.
package streak

import (
	"time"

	"github.com/julianstephens/focusbot/internal/constants"
	"github.com/julianstephens/focusbot/internal/models"
)

// Result is the outcome of a streak calculation.
type Result struct {
	CurrentStreak int  `json:"currentStreak"`
	StreakBroken  bool `json:"streakBroken"`
	// IsNewRecord is set by the caller when CurrentStreak exceeds the previous longest streak.
	IsNewRecord bool `json:"isNewRecord"`
}

// Calculate returns the run of consecutive completed days ending today, or
// ending yesterday when today has no completion yet. now supplies the local
// calendar day. The walk stops after constants.StreakWalkLimit days, so longer
// runs are reported as that limit.
func Calculate(completions []models.Completion, now time.Time) Result {
	if len(completions) == 0 {
		return Result{}
	}

	done := make(map[string]struct{}, len(completions))
	for _, c := range completions {
		done[c.Date] = struct{}{}
	}

	day := startOfDay(now)
	if _, ok := done[day.Format(constants.DateFormat)]; !ok {
		day = day.AddDate(0, 0, -1)
		if _, ok := done[day.Format(constants.DateFormat)]; !ok {
			return Result{CurrentStreak: 0, StreakBroken: true}
		}
	}

	count := 0
	for i := 0; i < constants.StreakWalkLimit; i++ {
		if _, ok := done[day.Format(constants.DateFormat)]; !ok {
			break
		}
		count++
		day = day.AddDate(0, 0, -1)
	}

	return Result{CurrentStreak: count}
}

// Milestone returns the milestone reached by streak, or 0.
func Milestone(streak int) int {
	for _, m := range constants.Milestones {
		if streak == m {
			return m
		}
	}
	return 0
}

// Today formats now as a local calendar date.
func Today(now time.Time) string {
	return now.Format(constants.DateFormat)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
