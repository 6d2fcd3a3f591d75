package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/julianstephens/focusbot/internal/constants"
)

// Command names.
const (
	CmdFocusStart       = "focus-start"
	CmdFocusStop        = "focus-stop"
	CmdFocusStatus      = "focus-status"
	CmdFocusConfig      = "focus-config"
	CmdHabitCreate      = "habit-create"
	CmdHabitLog         = "habit-log"
	CmdHabitList        = "habit-list"
	CmdHabitStatus      = "habit-status"
	CmdHabitEdit        = "habit-edit"
	CmdHabitDelete      = "habit-delete"
	CmdHabitLeaderboard = "habit-leaderboard"
	CmdHabitReminder    = "habit-reminder"
)

func ptr[T any](v T) *T { return &v }

func habitOption(required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionString,
		Name:         "habit",
		Description:  "Which habit",
		Required:     required,
		Autocomplete: true,
	}
}

func channelOption(name, desc string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionChannel,
		Name:         name,
		Description:  desc,
		Required:     required,
		ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
	}
}

// Commands returns every slash command the bot registers. maxMinutes caps
// the focus-start option.
func Commands(maxMinutes int) []*discordgo.ApplicationCommand {
	if maxMinutes <= 0 {
		maxMinutes = constants.MaxFocusMinutes
	}

	addChannels := []*discordgo.ApplicationCommandOption{channelOption("channel1", "Channel to lock", true)}
	for i := 2; i <= constants.MaxChannelsPerAdd; i++ {
		addChannels = append(addChannels, channelOption(fmt.Sprintf("channel%d", i), "Another channel to lock", false))
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:         CmdFocusStart,
			Description:  "Begin a Pomodoro focus session",
			DMPermission: ptr(false),
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "minutes",
				Description: fmt.Sprintf("Length of the focus session (default: %d)", constants.DefaultFocusMinutes),
				MinValue:    ptr(1.0),
				MaxValue:    float64(maxMinutes),
			}},
		},
		{
			Name:         CmdFocusStop,
			Description:  "Cancel your active focus session",
			DMPermission: ptr(false),
		},
		{
			Name:         CmdFocusStatus,
			Description:  "Show how much time is left in your focus session",
			DMPermission: ptr(false),
		},
		{
			Name:         CmdFocusConfig,
			Description:  "Configure which channels to lock during your focus sessions",
			DMPermission: ptr(false),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Add channels to your lock list",
					Options:     addChannels,
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Remove a channel from your lock list",
					Options:     []*discordgo.ApplicationCommandOption{channelOption("channel", "Channel to remove", true)},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "View your current locked channels",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "clear",
					Description: "Clear all channels from your lock list",
				},
			},
		},
		{
			Name:         CmdHabitCreate,
			Description:  "Create a new habit to track",
			DMPermission: ptr(false),
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Habit name", Required: true, MaxLength: constants.MaxHabitNameLen},
				{Type: discordgo.ApplicationCommandOptionString, Name: "description", Description: "What the habit is about", MaxLength: constants.MaxHabitDescLen},
				{
					Type: discordgo.ApplicationCommandOptionString, Name: "frequency", Description: "How often (default: daily)",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Daily", Value: "daily"},
						{Name: "Weekly", Value: "weekly"},
						{Name: "Custom", Value: "custom"},
					},
				},
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "target", Description: "Daily target count (default: 1)", MinValue: ptr(float64(constants.MinTarget)), MaxValue: constants.MaxTarget},
				{Type: discordgo.ApplicationCommandOptionString, Name: "emoji", Description: "Emoji for the habit (default: ✅)"},
			},
		},
		{
			Name:         CmdHabitLog,
			Description:  "Log a habit completion",
			DMPermission: ptr(false),
			Options: []*discordgo.ApplicationCommandOption{
				habitOption(true),
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "count", Description: "How many times (default: 1)", MinValue: ptr(float64(constants.MinCount)), MaxValue: constants.MaxCount},
				{Type: discordgo.ApplicationCommandOptionString, Name: "notes", Description: "Optional notes", MaxLength: constants.MaxNotesLen},
				{Type: discordgo.ApplicationCommandOptionString, Name: "date", Description: "Date as YYYY-MM-DD (default: today)"},
			},
		},
		{
			Name:         CmdHabitList,
			Description:  "List all your habits or view someone else's",
			DMPermission: ptr(false),
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Whose habits to view (default: you)"},
				{Type: discordgo.ApplicationCommandOptionBoolean, Name: "detailed", Description: "Show detailed view with progress bars"},
			},
		},
		{
			Name:         CmdHabitStatus,
			Description:  "View detailed status of a specific habit",
			DMPermission: ptr(false),
			Options: []*discordgo.ApplicationCommandOption{
				habitOption(true),
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "days", Description: "Number of recent days to show (default: 7)", MinValue: ptr(1.0), MaxValue: constants.DefaultHistoryDays},
			},
		},
		{
			Name:         CmdHabitEdit,
			Description:  "Edit a habit or one of its completions",
			DMPermission: ptr(false),
			Options: []*discordgo.ApplicationCommandOption{
				habitOption(true),
				{
					Type: discordgo.ApplicationCommandOptionString, Name: "action", Description: "What to edit", Required: true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Habit details", Value: "details"},
						{Name: "A completion", Value: "completion"},
						{Name: "Delete a completion", Value: "delete_completion"},
					},
				},
				{Type: discordgo.ApplicationCommandOptionString, Name: "date", Description: "Completion date as YYYY-MM-DD (default: today)"},
				{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "New name", MaxLength: constants.MaxHabitNameLen},
				{Type: discordgo.ApplicationCommandOptionString, Name: "description", Description: "New description", MaxLength: constants.MaxHabitDescLen},
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "target", Description: "New daily target", MinValue: ptr(float64(constants.MinTarget)), MaxValue: constants.MaxTarget},
				{Type: discordgo.ApplicationCommandOptionString, Name: "emoji", Description: "New emoji"},
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "count", Description: "New completion count", MinValue: ptr(float64(constants.MinCount)), MaxValue: constants.MaxCount},
				{Type: discordgo.ApplicationCommandOptionString, Name: "notes", Description: "New completion notes", MaxLength: constants.MaxNotesLen},
			},
		},
		{
			Name:         CmdHabitDelete,
			Description:  "Delete a habit and all of its history",
			DMPermission: ptr(false),
			Options: []*discordgo.ApplicationCommandOption{
				habitOption(true),
				{Type: discordgo.ApplicationCommandOptionBoolean, Name: "confirm", Description: "Set to true to confirm deletion", Required: true},
			},
		},
		{
			Name:         CmdHabitLeaderboard,
			Description:  "Show the server's habit leaderboard",
			DMPermission: ptr(false),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type: discordgo.ApplicationCommandOptionString, Name: "category", Description: "Leaderboard category to display",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Current streaks", Value: "streak"},
						{Name: "Longest streaks", Value: "longest"},
						{Name: "Total completions", Value: "completions"},
						{Name: "Most habits", Value: "habits"},
					},
				},
				{
					Type: discordgo.ApplicationCommandOptionInteger, Name: "limit", Description: "Number of users to show (default: 10)",
					MinValue: ptr(float64(constants.MinLeaderboardLimit)), MaxValue: constants.MaxLeaderboardLimit,
				},
			},
		},
		{
			Name:         CmdHabitReminder,
			Description:  "Send habit reminders to users who haven't completed their daily habits",
			DMPermission: ptr(false),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type: discordgo.ApplicationCommandOptionString, Name: "type", Description: "Type of reminder to send",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Gentle", Value: "gentle"},
						{Name: "Motivational", Value: "motivational"},
						{Name: "Summary", Value: "summary"},
					},
				},
				{Type: discordgo.ApplicationCommandOptionBoolean, Name: "public", Description: "Post reminders in this channel (default: private DM)"},
			},
		},
	}
}
