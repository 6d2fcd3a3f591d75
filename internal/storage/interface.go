package storage

import "github.com/julianstephens/focusbot/internal/models"

// Provider is the durable document store. Every mutation in the bot loads a
// whole document, changes it, and saves it back; callers serialize that cycle.
type Provider interface {
	// Lifecycle
	Init() error
	Close() error

	// Habits
	LoadHabits() (models.HabitDocument, error)
	SaveHabits(models.HabitDocument) error

	// Lock lists
	LoadLockConfig() (models.LockDocument, error)
	SaveLockConfig(models.LockDocument) error

	// Utils
	Path() string
	Kind() string
}
