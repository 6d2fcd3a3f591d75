package discord

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"

	apperrors "github.com/julianstephens/focusbot/internal/errors"
	"github.com/julianstephens/focusbot/internal/focus"
	"github.com/julianstephens/focusbot/internal/habits"
	"github.com/julianstephens/focusbot/internal/lockconfig"
	"github.com/julianstephens/focusbot/internal/logger"
)

type option = discordgo.ApplicationCommandInteractionDataOption

// Invocation is a parsed slash command or autocomplete request.
type Invocation struct {
	GuildID     string
	ChannelID   string
	UserID      string
	Permissions int64
	Command     string
	Subcommand  string
	Options     map[string]*option
	Focused     *option
}

// NewInvocation flattens an interaction. A single subcommand level is
// unwrapped into Subcommand and its options.
func NewInvocation(i *discordgo.Interaction) *Invocation {
	inv := &Invocation{GuildID: i.GuildID, ChannelID: i.ChannelID, Options: map[string]*option{}}
	switch {
	case i.Member != nil && i.Member.User != nil:
		inv.UserID = i.Member.User.ID
		inv.Permissions = i.Member.Permissions
	case i.User != nil:
		inv.UserID = i.User.ID
	}

	data, ok := i.Data.(discordgo.ApplicationCommandInteractionData)
	if !ok {
		return inv
	}
	inv.Command = data.Name

	opts := data.Options
	if len(opts) == 1 && opts[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		inv.Subcommand = opts[0].Name
		opts = opts[0].Options
	}
	for _, o := range opts {
		inv.Options[o.Name] = o
		if o.Focused {
			inv.Focused = o
		}
	}
	return inv
}

// String returns a string option, or "" when absent.
func (inv *Invocation) String(name string) string {
	if o, ok := inv.Options[name]; ok {
		if s, ok := o.Value.(string); ok {
			return s
		}
	}
	return ""
}

// Int returns an integer option. Numbers arrive from JSON as float64.
func (inv *Invocation) Int(name string) (int, bool) {
	o, ok := inv.Options[name]
	if !ok {
		return 0, false
	}
	switch v := o.Value.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	}
	return 0, false
}

// Bool returns a boolean option, false when absent.
func (inv *Invocation) Bool(name string) bool {
	if o, ok := inv.Options[name]; ok {
		if b, ok := o.Value.(bool); ok {
			return b
		}
	}
	return false
}

// Has reports whether an option was supplied.
func (inv *Invocation) Has(name string) bool {
	_, ok := inv.Options[name]
	return ok
}

type handlerFunc func(ctx context.Context, inv *Invocation) *discordgo.InteractionResponse

// Deps are the services behind the commands.
type Deps struct {
	Focus     *focus.Service
	Habits    *habits.Service
	Locks     *lockconfig.Service
	Messenger EmbedSender
	Now       func() time.Time
}

// EmbedSender delivers an embed to a user's DMs.
type EmbedSender interface {
	SendEmbed(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error
}

// Router maps command names to handlers and produces responses. It performs
// no I/O of its own beyond the services in Deps.
type Router struct {
	deps     Deps
	commands map[string]handlerFunc
}

func NewRouter(deps Deps) *Router {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	r := &Router{deps: deps}
	r.commands = map[string]handlerFunc{
		CmdFocusStart:       r.focusStart,
		CmdFocusStop:        r.focusStop,
		CmdFocusStatus:      r.focusStatus,
		CmdFocusConfig:      r.focusConfig,
		CmdHabitCreate:      r.habitCreate,
		CmdHabitLog:         r.habitLog,
		CmdHabitList:        r.habitList,
		CmdHabitStatus:      r.habitStatus,
		CmdHabitEdit:        r.habitEdit,
		CmdHabitDelete:      r.habitDelete,
		CmdHabitLeaderboard: r.habitLeaderboard,
		CmdHabitReminder:    r.habitReminder,
	}
	return r
}

// Handle answers a command or autocomplete interaction.
func (r *Router) Handle(ctx context.Context, i *discordgo.Interaction) *discordgo.InteractionResponse {
	inv := NewInvocation(i)

	if i.Type == discordgo.InteractionApplicationCommandAutocomplete {
		return r.autocomplete(inv)
	}
	if i.Type != discordgo.InteractionApplicationCommand {
		return nil
	}
	if inv.GuildID == "" {
		return ephemeral("This command can only be used in a server.")
	}

	h, ok := r.commands[inv.Command]
	if !ok {
		logger.Warn("Unknown command", "command", inv.Command, "user", inv.UserID)
		return ephemeral("Unknown command.")
	}
	return h(ctx, inv)
}

func (r *Router) autocomplete(inv *Invocation) *discordgo.InteractionResponse {
	choices := []*discordgo.ApplicationCommandOptionChoice{}
	if inv.Focused != nil && inv.Focused.Name == "habit" && inv.GuildID != "" {
		query, _ := inv.Focused.Value.(string)
		list, err := r.deps.Habits.Habits(inv.UserID, inv.GuildID)
		if err != nil {
			logger.Warn("Autocomplete lookup failed", "user", inv.UserID, "guild", inv.GuildID, "error", err)
		}
		for _, h := range list {
			if !matchesQuery(h.Name, query) {
				continue
			}
			choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
				Name:  habits.Describe(h),
				Value: h.Name,
			})
			if len(choices) == 25 {
				break
			}
		}
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	}
}

// failure renders a service error for the user.
func failure(err error) *discordgo.InteractionResponse {
	res := apperrors.ResultOf(err)
	if res.Kind == apperrors.KindPersistence || res.Kind == apperrors.KindUnknown {
		logger.Error("Command failed", "error", err)
	}
	return ephemeral("❌ " + res.Error)
}

func ephemeral(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}
}

func embedReply(public bool, embeds ...*discordgo.MessageEmbed) *discordgo.InteractionResponse {
	data := &discordgo.InteractionResponseData{
		Embeds:          embeds,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}
	if !public {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}
}
