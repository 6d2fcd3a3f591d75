package constants

import "time"

const (
	AppName            = "focusbot"
	DefaultKeyringUser = "discord-token"
	DefaultDataDir     = "./data"
	Version            = "v0.3.0"

	// DateFormat is the calendar-day format used for completions (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// Store document names
	HabitsDocument     = "habits"
	LockConfigDocument = "userConfig"
	HabitsFileName     = "habits.json"
	LockConfigFileName = "userConfig.json"

	// Focus session defaults
	DefaultFocusMinutes = 25
	MaxFocusMinutes     = 120
	MaxChannelsPerAdd   = 5

	// Habit limits
	MaxHabitsPerUser     = 10
	MaxHabitNameLen      = 50
	MaxHabitDescLen      = 200
	MaxNotesLen          = 200
	MinTarget            = 1
	MaxTarget            = 100
	MinCount             = 1
	MaxCount             = 100
	StreakWalkLimit      = 365
	DefaultHistoryDays   = 30
	DefaultRetentionDays = 365
	DefaultHabitEmoji    = "✅"

	// Leaderboard
	DefaultLeaderboardLimit = 10
	MinLeaderboardLimit     = 5
	MaxLeaderboardLimit     = 25

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "focusbot-"

	// Process guard
	PIDFileName = "focusbot.pid"

	// Reminder sweep
	ReminderInterval   = time.Hour
	DisabledReminderHr = -1
)

// Milestones are the streak lengths celebrated when reached.
var Milestones = []int{7, 14, 30, 50, 100}
