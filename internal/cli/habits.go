package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/julianstephens/focusbot/internal/habits"
)

// HabitsCmd groups offline habit maintenance.
type HabitsCmd struct {
	Export  HabitsExportCmd  `cmd:"" help:"Export a guild's habits as JSON."`
	Import  HabitsImportCmd  `cmd:"" help:"Import habits exported from a guild."`
	Cleanup HabitsCleanupCmd `cmd:"" help:"Drop completions older than the retention window."`
	Stats   HabitsStatsCmd   `cmd:"" help:"Show a user's habit statistics."`
}

type HabitsExportCmd struct {
	Guild  string `required:"" help:"Guild id."`
	Output string `short:"o" type:"path" help:"Write to this file instead of stdout."`
}

func (c *HabitsExportCmd) Run(ctx *Context) error {
	exp, err := habits.NewService(ctx.Store).Export(c.Guild)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal export: %w", err)
	}

	if c.Output == "" {
		ctx.println(string(data))
		return nil
	}
	if err := os.WriteFile(c.Output, data, 0o600); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	ctx.printf("%s Exported %d users to %s\n", okStyle.Render("✓"), len(exp.Data), c.Output)
	return nil
}

type HabitsImportCmd struct {
	File  string `arg:"" type:"existingfile" help:"Export file to import."`
	Guild string `help:"Target guild id (defaults to the export's guild)."`
}

func (c *HabitsImportCmd) Run(ctx *Context) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("failed to read export: %w", err)
	}
	var exp habits.Export
	if err := json.Unmarshal(data, &exp); err != nil {
		return fmt.Errorf("export file is not valid JSON: %w", err)
	}

	guild := c.Guild
	if guild == "" {
		guild = exp.GuildID
	}
	if guild == "" {
		return fmt.Errorf("export has no guild id; pass --guild")
	}

	ctx.PerformAutomaticBackup()
	if err := habits.NewService(ctx.Store).Import(guild, exp); err != nil {
		return err
	}
	ctx.printf("%s Imported %d users into guild %s\n", okStyle.Render("✓"), len(exp.Data), guild)
	return nil
}

type HabitsCleanupCmd struct {
	Guild string `required:"" help:"Guild id."`
	Days  int    `default:"365" help:"Keep completions from the last N days."`
}

func (c *HabitsCleanupCmd) Run(ctx *Context) error {
	ctx.PerformAutomaticBackup()
	removed, err := habits.NewService(ctx.Store).Cleanup(c.Guild, c.Days)
	if err != nil {
		return err
	}
	ctx.printf("%s Removed %d completions older than %d days\n", okStyle.Render("✓"), removed, c.Days)
	return nil
}

type HabitsStatsCmd struct {
	Guild string `required:"" help:"Guild id."`
	User  string `required:"" help:"User id."`
}

func (c *HabitsStatsCmd) Run(ctx *Context) error {
	svc := habits.NewService(ctx.Store)
	stats, err := svc.Stats(c.User, c.Guild)
	if err != nil {
		return err
	}
	if stats == nil {
		ctx.println("No habits tracked for this user.")
		return nil
	}

	ctx.println(headStyle.Render("Habit statistics"))
	rows := []struct {
		label string
		value int
	}{
		{"Habits", stats.TotalHabits},
		{"Active streaks", stats.ActiveStreaks},
		{"Completions", stats.TotalCompletions},
		{"Longest streak", stats.LongestStreak},
		{"Average streak", stats.AverageStreak},
		{"Completed today", stats.CompletedToday},
	}
	for _, r := range rows {
		ctx.printf("  %-16s %d\n", r.label, r.value)
	}

	list, err := svc.Habits(c.User, c.Guild)
	if err != nil {
		return err
	}
	ctx.println()
	for _, h := range list {
		ctx.printf("  %s  %s\n", habits.Describe(h), dimStyle.Render(fmt.Sprintf("streak %d, best %d, total %d", h.Streak, h.LongestStreak, h.TotalCompletions)))
	}
	return nil
}
