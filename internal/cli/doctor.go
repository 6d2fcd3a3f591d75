package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/focusbot/internal/backup"
	"github.com/julianstephens/focusbot/internal/keyring"
	"github.com/julianstephens/focusbot/internal/pidfile"
	"github.com/julianstephens/focusbot/internal/storage"
	"github.com/julianstephens/focusbot/internal/validation"
)

// errWarning marks a check that should be reported but not fail doctor.
var errWarning = errors.New("warning")

type check struct {
	name string
	run  func(*Context) error
	// needsStore checks are skipped when the store cannot be read.
	needsStore bool
}

var checks = []check{
	{name: "Configuration", run: checkConfig},
	{name: "Bot token", run: checkToken},
	{name: "Store reachable", run: checkStoreReachable},
	{name: "Schema version", run: checkSchemaVersion, needsStore: true},
	{name: "Data validation", run: checkValidation, needsStore: true},
	{name: "Backups present", run: checkBackupsPresent, needsStore: true},
	{name: "Bot process", run: checkProcess},
	{name: "Clock/timezone", run: checkClockTimezone},
}

type DoctorCmd struct{}

func (cmd *DoctorCmd) Run(ctx *Context) error {
	ctx.println("Running diagnostics...")
	ctx.println()

	hasError := false
	storeOK := true
	for _, c := range checks {
		if c.needsStore && !storeOK {
			ctx.printf("%s %s: SKIPPED (store not reachable)\n", dimStyle.Render("⊘"), c.name)
			continue
		}

		err := c.run(ctx)
		switch {
		case err == nil:
			ctx.printf("%s %s: OK\n", okStyle.Render("✓"), c.name)
		case errors.Is(err, errWarning):
			ctx.printf("%s %s: WARNING\n", warnStyle.Render("⚠"), c.name)
			ctx.printf("   %v\n", err)
		default:
			ctx.printf("%s %s: FAIL\n", failStyle.Render("❌"), c.name)
			ctx.printf("   Error: %v\n", err)
			hasError = true
			if c.name == "Store reachable" {
				storeOK = false
			}
		}
	}

	ctx.println()
	if hasError {
		ctx.println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}
	ctx.println("All diagnostics passed!")
	return nil
}

func warn(format string, args ...interface{}) error {
	return &warning{msg: fmt.Sprintf(format, args...)}
}

type warning struct{ msg string }

func (w *warning) Error() string        { return w.msg }
func (w *warning) Is(target error) bool { return target == errWarning }

func checkConfig(ctx *Context) error {
	if ctx.Config == nil {
		return errors.New("configuration not loaded")
	}
	return ctx.Config.Validate()
}

func checkToken(ctx *Context) error {
	if ctx.Config != nil && ctx.Config.Token != "" {
		return nil
	}
	_, err := keyring.GetToken()
	if errors.Is(err, keyring.ErrNotFound) {
		return errors.New("no bot token: set DISCORD_TOKEN or run 'focusbot token set'")
	}
	return err
}

func checkStoreReachable(ctx *Context) error {
	if ctx.Store == nil {
		return errors.New("store not opened")
	}
	if _, err := ctx.Store.LoadHabits(); err != nil {
		return fmt.Errorf("failed to load habits: %w", err)
	}
	if _, err := ctx.Store.LoadLockConfig(); err != nil {
		return fmt.Errorf("failed to load lock lists: %w", err)
	}
	return nil
}

func checkSchemaVersion(ctx *Context) error {
	version, err := storage.SchemaVersion(ctx.Store)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}
	if ctx.Store.Kind() != "json" && version < storage.LatestSchemaVersion {
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d", version, storage.LatestSchemaVersion)
	}
	return nil
}

func checkValidation(ctx *Context) error {
	habits, err := ctx.Store.LoadHabits()
	if err != nil {
		return err
	}
	locks, err := ctx.Store.LoadLockConfig()
	if err != nil {
		return err
	}

	v := validation.New()
	result := v.ValidateHabits(habits)
	result.Merge(v.ValidateLocks(locks))
	if result.HasConflicts() {
		return fmt.Errorf("%d conflicts found; run 'focusbot validate' for details", len(result.Conflicts))
	}
	return nil
}

func checkBackupsPresent(ctx *Context) error {
	mgr := backup.NewManager(ctx.Store, ctx.Config.DataDir)
	backups, err := mgr.ListBackups()
	if err != nil {
		return warn("failed to list backups: %v", err)
	}
	if len(backups) == 0 {
		return warn("no backups found - consider creating one with 'focusbot backup create'")
	}
	return nil
}

func checkProcess(ctx *Context) error {
	pid, running, err := pidfile.Status(ctx.Config.DataDir)
	if err != nil {
		return warn("pid file unreadable: %v", err)
	}
	if running {
		return warn("focusbot is running with pid %d", pid)
	}
	return nil
}

func checkClockTimezone(ctx *Context) error {
	now := time.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	// Streak days roll over at local midnight.
	if name, _ := now.Zone(); name == "UTC" {
		ctx.printf("   %s\n", dimStyle.Render("Note: timezone is UTC; habit days roll over at UTC midnight"))
	}
	return nil
}
