package cli

import (
	"encoding/json"
	"fmt"

	"github.com/julianstephens/focusbot/internal/models"
)

type DebugCmd struct {
	StorePath *DebugStorePathCmd `cmd:"" help:"Show the store backend and location."`
	DumpHabit *DebugDumpHabitCmd `cmd:"" help:"Dump habit data as JSON."`
	DumpLocks *DebugDumpLocksCmd `cmd:"" help:"Dump lock lists as JSON."`
}

type DebugStorePathCmd struct{}

func (cmd *DebugStorePathCmd) Run(ctx *Context) error {
	return ctx.printJSON(map[string]string{
		"kind": ctx.Store.Kind(),
		"path": ctx.Store.Path(),
	})
}

type DebugDumpHabitCmd struct {
	Guild string `required:"" help:"Guild id."`
	User  string `help:"Limit output to one user."`
}

func (cmd *DebugDumpHabitCmd) Run(ctx *Context) error {
	doc, err := ctx.Store.LoadHabits()
	if err != nil {
		return fmt.Errorf("failed to load habits: %w", err)
	}
	users, ok := doc[cmd.Guild]
	if !ok {
		return fmt.Errorf("no habits stored for guild: %s", cmd.Guild)
	}
	if cmd.User == "" {
		return ctx.printJSON(users)
	}
	list, ok := users[cmd.User]
	if !ok {
		return fmt.Errorf("no habits stored for user %s in guild %s", cmd.User, cmd.Guild)
	}
	return ctx.printJSON(list)
}

type DebugDumpLocksCmd struct {
	Guild string `help:"Guild id (requires --user)."`
	User  string `help:"User id (requires --guild)."`
}

func (cmd *DebugDumpLocksCmd) Run(ctx *Context) error {
	doc, err := ctx.Store.LoadLockConfig()
	if err != nil {
		return fmt.Errorf("failed to load lock lists: %w", err)
	}
	if cmd.Guild == "" && cmd.User == "" {
		return ctx.printJSON(doc)
	}
	if cmd.Guild == "" || cmd.User == "" {
		return fmt.Errorf("--guild and --user must be given together")
	}
	cfg, ok := doc[models.LockKey(cmd.User, cmd.Guild)]
	if !ok {
		return fmt.Errorf("no lock list for user %s in guild %s", cmd.User, cmd.Guild)
	}
	return ctx.printJSON(cfg)
}

func (c *Context) printJSON(v interface{}) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	c.println(string(jsonBytes))
	return nil
}
