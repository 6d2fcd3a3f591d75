package validation

import (
	"strings"
	"testing"

	"github.com/julianstephens/focusbot/internal/models"
)

func strPtr(s string) *string { return &s }

func consistentHabit(name string) models.Habit {
	return models.Habit{
		Name:             name,
		Frequency:        models.FrequencyDaily,
		Target:           1,
		Streak:           2,
		LongestStreak:    2,
		TotalCompletions: 3,
		LastCompleted:    strPtr("2025-03-10"),
		Completions: []models.Completion{
			{Date: "2025-03-09", Count: 1},
			{Date: "2025-03-10", Count: 2},
		},
	}
}

func types(result ValidationResult) []ConflictType {
	var out []ConflictType
	for _, c := range result.Conflicts {
		out = append(out, c.Type)
	}
	return out
}

func TestValidateHabits_Clean(t *testing.T) {
	doc := models.HabitDocument{}
	doc.SetUserHabits("1", "2", []models.Habit{consistentHabit("Read"), consistentHabit("Run")})

	result := New().ValidateHabits(doc)
	if result.HasConflicts() {
		t.Errorf("expected no conflicts, got: %s", result.FormatReport())
	}
	if result.FormatReport() != "No conflicts detected." {
		t.Errorf("FormatReport() = %q", result.FormatReport())
	}
}

func TestValidateHabits_DetectsConflicts(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(h *models.Habit)
		want   ConflictType
	}{
		{
			name: "invalid date",
			mutate: func(h *models.Habit) {
				h.Completions = append(h.Completions, models.Completion{Date: "03/11/2025", Count: 1})
				h.TotalCompletions = 4
			},
			want: ConflictInvalidDate,
		},
		{
			name: "duplicate completion",
			mutate: func(h *models.Habit) {
				h.Completions = append(h.Completions, models.Completion{Date: "2025-03-10", Count: 1})
				h.TotalCompletions = 4
			},
			want: ConflictDuplicateCompletion,
		},
		{
			name:   "total mismatch",
			mutate: func(h *models.Habit) { h.TotalCompletions = 7 },
			want:   ConflictTotalMismatch,
		},
		{
			name:   "last completed drift",
			mutate: func(h *models.Habit) { h.LastCompleted = strPtr("2025-03-09") },
			want:   ConflictLastCompletedDrift,
		},
		{
			name:   "missing last completed",
			mutate: func(h *models.Habit) { h.LastCompleted = nil },
			want:   ConflictLastCompletedDrift,
		},
		{
			name:   "longest below current",
			mutate: func(h *models.Habit) { h.LongestStreak = 1 },
			want:   ConflictLongestBelowCurrent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := consistentHabit("Read")
			tt.mutate(&h)
			doc := models.HabitDocument{}
			doc.SetUserHabits("1", "2", []models.Habit{h})

			result := New().ValidateHabits(doc)
			got := types(result)
			if len(got) != 1 || got[0] != tt.want {
				t.Fatalf("conflicts = %v, want [%s]", got, tt.want)
			}
			c := result.Conflicts[0]
			if c.GuildID != "1" || c.UserID != "2" || c.Habit != "Read" {
				t.Errorf("conflict location = %+v", c)
			}
		})
	}
}

func TestValidateHabits_DuplicateNamesAndCap(t *testing.T) {
	habits := []models.Habit{consistentHabit("Read"), consistentHabit(" read ")}
	for i := 0; i < 9; i++ {
		habits = append(habits, consistentHabit(string(rune('A'+i))))
	}
	doc := models.HabitDocument{}
	doc.SetUserHabits("1", "2", habits)

	got := types(New().ValidateHabits(doc))
	want := []ConflictType{ConflictTooManyHabits, ConflictDuplicateHabitName}
	if len(got) != len(want) {
		t.Fatalf("conflicts = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("conflict %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestValidateLocks(t *testing.T) {
	doc := models.LockDocument{
		models.LockKey("100", "200"): {Channels: []string{"300", "301"}},
		models.LockKey("101", "200"): {Channels: []string{"300", "300", "general"}},
		"not-a-key-x":                {Channels: nil},
	}

	result := New().ValidateLocks(doc)
	got := types(result)
	want := []ConflictType{ConflictDuplicateLockChannel, ConflictInvalidChannelID, ConflictMalformedLockKey}
	if len(got) != len(want) {
		t.Fatalf("conflicts = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("conflict %d = %s, want %s", i, got[i], want[i])
		}
	}
	if !strings.Contains(result.FormatReport(), "general") {
		t.Errorf("report should name the invalid id:\n%s", result.FormatReport())
	}
}

func TestMerge(t *testing.T) {
	a := ValidationResult{Conflicts: []Conflict{{Type: ConflictTotalMismatch}}}
	a.Merge(ValidationResult{Conflicts: []Conflict{{Type: ConflictInvalidDate}}})
	if len(a.Conflicts) != 2 {
		t.Errorf("Merge() produced %d conflicts, want 2", len(a.Conflicts))
	}
}
