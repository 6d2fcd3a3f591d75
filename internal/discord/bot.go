package discord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/julianstephens/focusbot/internal/logger"
)

// interactionTimeout bounds the work done for one interaction. Discord
// rejects responses sent more than three seconds after the interaction.
const interactionTimeout = 3 * time.Second

// NewSession creates an unopened gateway session for a bot token.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds
	return s, nil
}

// BotOptions identify where commands are registered. An empty GuildID
// registers them globally.
type BotOptions struct {
	AppID      string
	GuildID    string
	MaxMinutes int
}

// Bot wires a Router to a live gateway session.
type Bot struct {
	session *discordgo.Session
	router  *Router
	opts    BotOptions
	remove  []func()
}

func NewBot(s *discordgo.Session, router *Router, opts BotOptions) *Bot {
	return &Bot{session: s, router: router, opts: opts}
}

// Open connects to the gateway and starts answering interactions.
func (b *Bot) Open() error {
	b.remove = append(b.remove,
		b.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
			logger.Info("Connected to Discord", "user", r.User.Username, "guilds", len(r.Guilds))
		}),
		b.session.AddHandler(b.onInteraction),
	)
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	return nil
}

// Close disconnects from the gateway.
func (b *Bot) Close() error {
	for _, rm := range b.remove {
		rm()
	}
	b.remove = nil
	return b.session.Close()
}

// RegisterCommands overwrites the application's slash commands.
func (b *Bot) RegisterCommands(ctx context.Context) ([]*discordgo.ApplicationCommand, error) {
	appID := b.opts.AppID
	if appID == "" && b.session.State != nil && b.session.State.User != nil {
		appID = b.session.State.User.ID
	}
	if appID == "" {
		return nil, errors.New("no application id: set CLIENT_ID")
	}

	cmds, err := b.session.ApplicationCommandBulkOverwrite(appID, b.opts.GuildID, Commands(b.opts.MaxMinutes), discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("register commands: %w", err)
	}
	scope := "global"
	if b.opts.GuildID != "" {
		scope = "guild " + b.opts.GuildID
	}
	logger.Info("Registered slash commands", "count", len(cmds), "scope", scope)
	return cmds, nil
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	// A registration-only bot has no router.
	if b.router == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Interaction handler panicked", "panic", rec, "interaction", i.ID)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	start := time.Now()
	resp := b.router.Handle(ctx, i.Interaction)
	if resp == nil {
		return
	}
	if err := s.InteractionRespond(i.Interaction, resp); err != nil {
		logger.Warn("Failed to respond to interaction", "interaction", i.ID, "guild", i.GuildID, "error", err)
		return
	}
	logger.Debug("Handled interaction", "type", i.Type.String(), "guild", i.GuildID, "took", time.Since(start))
}
