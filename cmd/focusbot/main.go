package main

import (
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/focusbot/internal/cli"
	"github.com/julianstephens/focusbot/internal/config"
	"github.com/julianstephens/focusbot/internal/constants"
	apperrors "github.com/julianstephens/focusbot/internal/errors"
	"github.com/julianstephens/focusbot/internal/logger"
	"github.com/julianstephens/focusbot/internal/storage"
)

var CLI struct {
	Version kong.VersionFlag
	DataDir string `help:"Data directory (overrides FOCUSBOT_DATA_DIR)." type:"path"`
	Store   string `help:"Store backend: json, sqlite, a .db path, or a postgres:// connection string (overrides FOCUSBOT_STORE)."`
	Verbose bool   `short:"v" help:"Enable debug logging to stderr."`

	Run      cli.RunCmd      `cmd:"" help:"Connect to Discord and serve slash commands." default:"1"`
	Register cli.RegisterCmd `cmd:"" help:"Overwrite the slash commands and exit."`
	Init     cli.InitCmd     `cmd:"" help:"Initialize focusbot storage."`
	Doctor   cli.DoctorCmd   `cmd:"" help:"Run health checks and diagnostics."`
	Validate cli.ValidateCmd `cmd:"" help:"Check stored habits and lock lists for inconsistencies."`
	Token    cli.TokenCmd    `cmd:"" help:"Manage the bot token in the OS keyring."`
	Backup   cli.BackupCmd   `cmd:"" help:"Manage data backups."`
	Habits   cli.HabitsCmd   `cmd:"" help:"Export, import, and maintain habit data."`
	Debug    cli.DebugCmd    `cmd:"" help:"Debug commands for troubleshooting."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Discord focus sessions and habit tracking"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)

	cfg, err := config.Load()
	if err != nil {
		apperrors.Fatal(err)
	}
	if CLI.DataDir != "" {
		cfg.DataDir = CLI.DataDir
	}
	if CLI.Store != "" {
		cfg.Store = CLI.Store
	}
	if CLI.Verbose {
		cfg.Debug = true
	}

	command := ctx.Command()
	if err := logger.Init(logger.Config{
		Debug:   cfg.Debug,
		DataDir: cfg.DataDir,
		Console: strings.HasPrefix(command, "run"),
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	}); err != nil {
		apperrors.Fatalf("failed to initialize logger: %v", err)
	}

	appCtx := &cli.Context{Config: cfg}

	// The keyring commands never touch the store.
	if !strings.HasPrefix(command, "token") {
		store, err := storage.Open(cfg.Store, cfg.DataDir)
		if err != nil {
			apperrors.Fatal(err)
		}
		appCtx.Store = store
	}

	err = ctx.Run(appCtx)
	if appCtx.Store != nil {
		if cerr := appCtx.Store.Close(); cerr != nil {
			logger.Warn("Failed to close store", "error", cerr)
		}
	}
	apperrors.Fatal(err)
	_ = logger.Close()
}
