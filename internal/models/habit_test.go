package models

import "testing"

func TestHabitMatches(t *testing.T) {
	h := Habit{Name: "Drink Water"}
	tests := []struct {
		in   string
		want bool
	}{
		{"Drink Water", true},
		{"drink water", true},
		{"  DRINK WATER ", true},
		{"Drink", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := h.Matches(tt.in); got != tt.want {
			t.Errorf("Matches(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if h.Key() != "drink water" {
		t.Errorf("Key() = %q", h.Key())
	}
}

func TestCompletionHelpers(t *testing.T) {
	h := Habit{Completions: []Completion{
		{Date: "2025-01-01", Count: 2},
		{Date: "2025-01-03", Count: 5},
	}}
	if got := h.CompletionOn("2025-01-03"); got != 1 {
		t.Errorf("CompletionOn() = %d, want 1", got)
	}
	if got := h.CompletionOn("2025-01-02"); got != -1 {
		t.Errorf("CompletionOn(missing) = %d, want -1", got)
	}
	if got := h.SumCompletions(); got != 7 {
		t.Errorf("SumCompletions() = %d, want 7", got)
	}
}

func TestHabitDocument(t *testing.T) {
	doc := HabitDocument{}
	if got := doc.UserHabits("g", "u"); got != nil {
		t.Errorf("UserHabits on empty doc = %v", got)
	}
	doc.SetUserHabits("g", "u", []Habit{{Name: "Read"}})
	if got := doc.UserHabits("g", "u"); len(got) != 1 || got[0].Name != "Read" {
		t.Errorf("UserHabits() = %v", got)
	}
	if LockKey("u", "g") != "u-g" {
		t.Errorf("LockKey() = %q", LockKey("u", "g"))
	}
}
