package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/julianstephens/focusbot/internal/config"
	"github.com/julianstephens/focusbot/internal/discord"
	"github.com/julianstephens/focusbot/internal/focus"
	"github.com/julianstephens/focusbot/internal/habits"
	"github.com/julianstephens/focusbot/internal/keyring"
	"github.com/julianstephens/focusbot/internal/lockconfig"
	"github.com/julianstephens/focusbot/internal/locker"
	"github.com/julianstephens/focusbot/internal/logger"
	"github.com/julianstephens/focusbot/internal/pidfile"
	"github.com/julianstephens/focusbot/internal/reminder"
	"github.com/julianstephens/focusbot/internal/session"
	"github.com/julianstephens/focusbot/internal/storage"
)

const (
	registerTimeout = 30 * time.Second
	shutdownTimeout = 15 * time.Second
)

// services is the bot's object graph, built once per process.
type services struct {
	habits    *habits.Service
	locks     *lockconfig.Service
	focus     *focus.Service
	router    *discord.Router
	reminders *reminder.Scheduler
}

func wire(cfg *config.Config, store storage.Provider, rest discord.REST, cache discord.ChannelCache, clock session.Clock) *services {
	messenger := discord.NewMessenger(rest)
	hab := habits.NewService(store, habits.WithClock(clock.Now))
	locks := lockconfig.NewService(store)
	fs := focus.NewService(
		session.NewManager(clock),
		locker.New(discord.NewPermissions(rest, cache)),
		locks,
		messenger,
		clock,
		focus.Options{
			DefaultMinutes:   cfg.DefaultFocusMinutes,
			MaxMinutes:       cfg.MaxFocusMinutes,
			FallbackChannels: cfg.LockedChannels,
		},
	)

	return &services{
		habits: hab,
		locks:  locks,
		focus:  fs,
		router: discord.NewRouter(discord.Deps{
			Focus:     fs,
			Habits:    hab,
			Locks:     locks,
			Messenger: messenger,
			Now:       clock.Now,
		}),
		reminders: reminder.NewScheduler(hab, discord.NewDigestSender(messenger, clock.Now), cfg.ReminderHour),
	}
}

// RunCmd connects to Discord and serves interactions until interrupted.
type RunCmd struct {
	SkipRegister bool `help:"Do not overwrite slash commands on startup."`
}

func (c *RunCmd) Run(ctx *Context) error {
	cfg := ctx.Config
	token, err := keyring.ResolveToken(cfg.Token)
	if err != nil {
		return err
	}

	lock, err := pidfile.Acquire(cfg.DataDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("Failed to release pid file", "error", err)
		}
	}()

	ctx.PerformAutomaticBackup()

	s, err := discord.NewSession(token)
	if err != nil {
		return err
	}
	svc := wire(cfg, ctx.Store, s, s.State, session.RealClock())
	bot := discord.NewBot(s, svc.router, discord.BotOptions{
		AppID:      cfg.ClientID,
		GuildID:    cfg.GuildID,
		MaxMinutes: cfg.MaxFocusMinutes,
	})
	if err := bot.Open(); err != nil {
		return err
	}
	defer func() {
		if err := bot.Close(); err != nil {
			logger.Warn("Failed to close gateway", "error", err)
		}
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !c.SkipRegister {
		regCtx, cancel := context.WithTimeout(sigCtx, registerTimeout)
		_, err := bot.RegisterCommands(regCtx)
		cancel()
		if err != nil {
			return err
		}
	}

	svc.reminders.Start(sigCtx)
	defer svc.reminders.Stop()

	logger.Info("focusbot is running", "store", ctx.Store.Kind(), "data_dir", cfg.DataDir)
	ctx.printf("%s focusbot is running. Press Ctrl+C to stop.\n", okStyle.Render("✓"))
	<-sigCtx.Done()

	logger.Info("Shutting down")
	shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := svc.focus.Shutdown(shCtx); err != nil {
		logger.Warn("Some focus sessions were not unlocked", "error", err)
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// RegisterCmd overwrites the slash commands and exits.
type RegisterCmd struct{}

func (c *RegisterCmd) Run(ctx *Context) error {
	cfg := ctx.Config
	token, err := keyring.ResolveToken(cfg.Token)
	if err != nil {
		return err
	}
	s, err := discord.NewSession(token)
	if err != nil {
		return err
	}

	bot := discord.NewBot(s, nil, discord.BotOptions{
		AppID:      cfg.ClientID,
		GuildID:    cfg.GuildID,
		MaxMinutes: cfg.MaxFocusMinutes,
	})
	// Without CLIENT_ID the application id is only known after the gateway
	// handshake.
	if cfg.ClientID == "" {
		if err := bot.Open(); err != nil {
			return err
		}
		defer bot.Close()
	}

	rctx, cancel := context.WithTimeout(context.Background(), registerTimeout)
	defer cancel()
	cmds, err := bot.RegisterCommands(rctx)
	if err != nil {
		return err
	}
	for _, cmd := range cmds {
		ctx.printf("  /%s %s\n", cmd.Name, dimStyle.Render(cmd.Description))
	}
	ctx.printf("%s Registered %d commands\n", okStyle.Render("✓"), len(cmds))
	return nil
}
