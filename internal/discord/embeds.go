package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/julianstephens/focusbot/internal/habits"
	"github.com/julianstephens/focusbot/internal/models"
)

const (
	colorBlue   = 0x0099ff
	colorGreen  = 0x00ff00
	colorRed    = 0xff0000
	colorOrange = 0xff9900
	colorGold   = 0xffd700
)

func newEmbed(title, description string, color int, now time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   now.Format(time.RFC3339),
	}
}

func field(name, value string, inline bool) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{Name: name, Value: value, Inline: inline}
}

func mention(userID string) string { return "<@" + userID + ">" }

func channelMention(channelID string) string { return "<#" + channelID + ">" }

func channelMentions(ids []string) string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = channelMention(id)
	}
	return strings.Join(out, ", ")
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func streakEmoji(streak int) string {
	switch {
	case streak >= 30:
		return "🔥🔥"
	case streak >= 14:
		return "🔥"
	case streak >= 7:
		return "🌟"
	case streak >= 3:
		return "💪"
	case streak >= 1:
		return "✅"
	default:
		return ""
	}
}

func streakColor(streak int) int {
	switch {
	case streak >= 30:
		return 0x8b00ff
	case streak >= 14:
		return 0xff6b00
	case streak >= 7:
		return colorGreen
	case streak >= 3:
		return 0x00bfff
	case streak >= 1:
		return 0xffff00
	default:
		return 0x999999
	}
}

// progressBar draws current/max as five segments.
func progressBar(current, max int) string {
	if max <= 0 {
		return strings.Repeat("▱", 5)
	}
	filled := int(float64(current)/float64(max)*5 + 0.5)
	if filled > 5 {
		filled = 5
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("▰", filled) + strings.Repeat("▱", 5-filled)
}

func formatRemaining(d time.Duration) string {
	d = d.Round(time.Second)
	m := int(d / time.Minute)
	s := int((d % time.Minute) / time.Second)
	if m == 0 {
		return plural(s, "second")
	}
	return fmt.Sprintf("%s %s", plural(m, "minute"), plural(s, "second"))
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

type reminderText struct {
	title, description, footer string
}

var reminderMessages = map[string]map[string]reminderText{
	"gentle": {
		"morning":   {"Good Morning! 🌅", "Just a friendly reminder about your habit. No pressure, you've got this!", "Every small step counts towards your goals! 🌱"},
		"afternoon": {"Afternoon Check-in ☀️", "Hope your day is going well! Don't forget about your habit when you have a moment.", "You're doing great, keep it up! 💪"},
		"evening":   {"Evening Reminder 🌙", "Winding down for the day? There's still time for your habit if you'd like.", "Tomorrow is always a fresh start! ✨"},
		"general":   {"Gentle Habit Reminder", "A friendly nudge for those who haven't completed their daily habits yet.", "No pressure, you've got this!"},
	},
	"motivational": {
		"morning":   {"Rise and Shine! 🔥", "Champions start their day strong! Your habit is waiting for you to crush it!", "Success is built one habit at a time! 🏆"},
		"afternoon": {"Midday Motivation! ⚡", "The day isn't over yet! You have the power to make it count with your habit!", "Every rep, every day, every habit matters! 💯"},
		"evening":   {"Finish Strong! 🚀", "End your day like a champion! Complete your habit and maintain that momentum!", "Winners finish what they start! 🏅"},
		"general":   {"Motivational Habit Reminder", "Time to show your habits who's boss! Your future self will thank you!", "Consistency creates champions!"},
	},
	"summary": {
		"morning":   {"Daily Habit Summary 📊", "Here's your habit status for today. Let's make it a productive day!", "Track your progress with /habit-log"},
		"afternoon": {"Habit Progress Check 📈", "Here's what you have left to complete today:", "Still time to hit your targets!"},
		"evening":   {"End of Day Summary 📋", "Here are the habits you haven't completed today:", "Tomorrow is a new opportunity!"},
		"general":   {"Habit Status Summary", "Here are the habits that still need attention today:", "Use /habit-log to update your progress"},
	},
}

func reminderMessage(kind, period string) reminderText {
	byPeriod, ok := reminderMessages[kind]
	if !ok {
		byPeriod = reminderMessages["gentle"]
	}
	if m, ok := byPeriod[period]; ok {
		return m
	}
	return byPeriod["general"]
}

// PersonalReminder is the DM sent for one pending habit.
func PersonalReminder(rem habits.Reminder, kind string, now time.Time) *discordgo.MessageEmbed {
	msg := reminderMessage(kind, rem.Period)
	h := rem.Habit
	e := newEmbed(h.Emoji+" "+msg.title, msg.description, streakColor(h.Streak), now)
	e.Fields = []*discordgo.MessageEmbedField{
		field("Habit to Complete", fmt.Sprintf("**%s**\n%s", h.Name, orDefault(h.Description, "No description")), false),
		field("Your Progress", fmt.Sprintf("**Current Streak:** %d days\n**Best Streak:** %d days\n**Daily Target:** %d",
			h.Streak, h.LongestStreak, h.Target), true),
		field("Quick Action", "Use `/habit-log` in your server to log completion!", true),
	}
	e.Footer = &discordgo.MessageEmbedFooter{Text: msg.footer}
	return e
}

// PublicReminder lists every user's pending habits in one embed.
func PublicReminder(rems []habits.Reminder, kind string, now time.Time) *discordgo.MessageEmbed {
	msg := reminderMessage(kind, "general")

	var order []string
	byUser := map[string][]string{}
	for _, r := range rems {
		if _, ok := byUser[r.UserID]; !ok {
			order = append(order, r.UserID)
		}
		byUser[r.UserID] = append(byUser[r.UserID], habits.Describe(r.Habit))
	}
	var b strings.Builder
	for _, userID := range order {
		fmt.Fprintf(&b, "%s - %s\n", mention(userID), strings.Join(byUser[userID], ", "))
	}

	e := newEmbed("📢 "+msg.title, msg.description, colorOrange, now)
	e.Fields = []*discordgo.MessageEmbedField{field("Pending Habits", orDefault(b.String(), "No pending habits"), false)}
	e.Footer = &discordgo.MessageEmbedFooter{Text: "Use /habit-log to update your progress!"}
	return e
}

// DigestReminder is the scheduled DM listing all of a user's pending habits.
func DigestReminder(rems []habits.Reminder, now time.Time) *discordgo.MessageEmbed {
	period := "general"
	if len(rems) > 0 {
		period = rems[0].Period
	}
	msg := reminderMessage("summary", period)
	lines := make([]string, 0, len(rems))
	for _, r := range rems {
		lines = append(lines, fmt.Sprintf("%s **%s** (streak: %d)", r.Habit.Emoji, r.Habit.Name, r.Habit.Streak))
	}
	e := newEmbed(msg.title, msg.description+"\n\n"+strings.Join(lines, "\n"), colorOrange, now)
	e.Footer = &discordgo.MessageEmbedFooter{Text: msg.footer}
	return e
}

func habitLine(h models.Habit) string {
	return fmt.Sprintf("%s **%s** - Streak: %d days %s", h.Emoji, h.Name, h.Streak, streakEmoji(h.Streak))
}
