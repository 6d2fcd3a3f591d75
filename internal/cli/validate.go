package cli

import (
	"fmt"

	"github.com/julianstephens/focusbot/internal/validation"
)

// ValidateCmd reports inconsistencies in the stored documents.
type ValidateCmd struct {
	Strict bool `help:"Exit non-zero when conflicts are found."`
}

func (cmd *ValidateCmd) Run(ctx *Context) error {
	habits, err := ctx.Store.LoadHabits()
	if err != nil {
		return fmt.Errorf("failed to load habits: %w", err)
	}
	locks, err := ctx.Store.LoadLockConfig()
	if err != nil {
		return fmt.Errorf("failed to load lock lists: %w", err)
	}

	v := validation.New()
	ctx.println("Validating habits...")
	result := v.ValidateHabits(habits)
	ctx.println("Validating lock lists...")
	result.Merge(v.ValidateLocks(locks))

	ctx.println()
	ctx.println(result.FormatReport())

	if cmd.Strict && result.HasConflicts() {
		return fmt.Errorf("%d conflicts found", len(result.Conflicts))
	}
	return nil
}
