package discord

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/julianstephens/focusbot/internal/constants"
	"github.com/julianstephens/focusbot/internal/habits"
	"github.com/julianstephens/focusbot/internal/logger"
	"github.com/julianstephens/focusbot/internal/models"
	"github.com/julianstephens/focusbot/internal/streak"
)

func matchesQuery(name, query string) bool {
	return strings.Contains(strings.ToLower(name), strings.ToLower(strings.TrimSpace(query)))
}

func (r *Router) habitCreate(_ context.Context, inv *Invocation) *discordgo.InteractionResponse {
	target, _ := inv.Int("target")
	h, err := r.deps.Habits.Create(inv.UserID, inv.GuildID, models.Habit{
		Name:        inv.String("name"),
		Description: inv.String("description"),
		Frequency:   models.Frequency(inv.String("frequency")),
		Target:      target,
		Emoji:       inv.String("emoji"),
	})
	if err != nil {
		return failure(err)
	}

	e := newEmbed(h.Emoji+" Habit Created!", fmt.Sprintf("You're now tracking **%s**.", h.Name), colorGreen, r.deps.Now())
	e.Fields = []*discordgo.MessageEmbedField{
		field("Description", orDefault(h.Description, "No description"), false),
		field("Frequency", titleCase(string(h.Frequency)), true),
		field("Target", fmt.Sprintf("%d/day", h.Target), true),
	}
	e.Footer = &discordgo.MessageEmbedFooter{Text: "Use /habit-log to record your progress!"}
	return embedReply(false, e)
}

func (r *Router) habitLog(_ context.Context, inv *Invocation) *discordgo.InteractionResponse {
	c := models.Completion{Notes: inv.String("notes")}
	c.Count, _ = inv.Int("count")
	if raw := inv.String("date"); raw != "" {
		date, err := habits.ParseDate(raw)
		if err != nil {
			return failure(err)
		}
		c.Date = date
	}

	res, err := r.deps.Habits.LogCompletion(inv.UserID, inv.GuildID, inv.String("habit"), c)
	if err != nil {
		return failure(err)
	}

	h := res.Habit
	logged := h.Completions[len(h.Completions)-1]
	e := newEmbed(h.Emoji+" Habit Logged!", fmt.Sprintf("Great job completing **%s**!", h.Name), streakColor(h.Streak), r.deps.Now())
	e.Fields = []*discordgo.MessageEmbedField{
		field("Current Streak", fmt.Sprintf("%d days %s", h.Streak, streakEmoji(h.Streak)), true),
		field("Longest Streak", fmt.Sprintf("%d days", h.LongestStreak), true),
		field("Total Completions", fmt.Sprint(h.TotalCompletions), true),
		field("Date", logged.Date, true),
		field("Target Progress", targetProgress(logged.Count, h.Target), true),
	}
	if logged.Notes != "" {
		e.Fields = append(e.Fields, field("Notes", logged.Notes, false))
	}
	switch {
	case res.Milestone > 0:
		e.Fields = append(e.Fields, field("🎊 Celebration", fmt.Sprintf("🔥 **MILESTONE!** %d day streak achieved!", res.Milestone), false))
	case res.Streak.IsNewRecord && h.Streak > 1:
		e.Fields = append(e.Fields, field("🎊 Celebration", "🏆 New personal record!", false))
	case res.Streak.StreakBroken:
		e.Fields = append(e.Fields, field("⚠️ Streak Status", "Previous streak ended, but you're starting fresh!", false))
	}
	return embedReply(false, e)
}

func targetProgress(count, target int) string {
	if count >= target {
		return fmt.Sprintf("%d/%d ✅", count, target)
	}
	return fmt.Sprintf("%d/%d", count, target)
}

func (r *Router) habitList(_ context.Context, inv *Invocation) *discordgo.InteractionResponse {
	userID := inv.UserID
	if other := inv.String("user"); other != "" {
		userID = other
	}

	list, err := r.deps.Habits.Habits(userID, inv.GuildID)
	if err != nil {
		return failure(err)
	}
	if len(list) == 0 {
		return ephemeral(mention(userID) + " has no habits tracked yet. Use `/habit-create` to start!")
	}

	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Streak != list[j].Streak {
			return list[i].Streak > list[j].Streak
		}
		return strings.ToLower(list[i].Name) < strings.ToLower(list[j].Name)
	})

	now := r.deps.Now()
	if inv.Bool("detailed") {
		return embedReply(false, detailedList(list, userID, streak.Today(now), now))
	}

	lines := make([]string, len(list))
	total, active := 0, 0
	for i, h := range list {
		lines[i] = habitLine(h)
		total += h.TotalCompletions
		if h.Streak > 0 {
			active++
		}
	}
	e := newEmbed("📋 Habits", mention(userID)+"\n\n"+strings.Join(lines, "\n"), colorGreen, now)
	e.Fields = []*discordgo.MessageEmbedField{field("Summary",
		fmt.Sprintf("**Total Habits:** %d\n**Active Streaks:** %d\n**Total Completions:** %d", len(list), active, total), true)}
	return embedReply(false, e)
}

func detailedList(list []models.Habit, userID, today string, now time.Time) *discordgo.MessageEmbed {
	const shown = 5
	desc := mention(userID) + "\nDetailed view of all habits."
	if len(list) > shown {
		desc = fmt.Sprintf("%s\nShowing %d of %d habits. Use the compact view to see them all.", mention(userID), shown, len(list))
		list = list[:shown]
	}
	e := newEmbed("📋 Habits (Detailed View)", desc, colorGreen, now)
	for _, h := range list {
		status := "⭕ Not Completed"
		if h.CompletionOn(today) != -1 {
			status = "✅ Completed"
		}
		v := fmt.Sprintf("**Description:** %s\n**Frequency:** %s\n**Target:** %d/day\n**Streak:** %d days %s\n"+
			"**Longest Streak:** %d days\n**Total Completions:** %d\n**Progress:** %s\n**Status Today:** %s",
			orDefault(h.Description, "No description"), titleCase(string(h.Frequency)), h.Target,
			h.Streak, streakEmoji(h.Streak), h.LongestStreak, h.TotalCompletions,
			progressBar(h.Streak, h.LongestStreak), status)
		if h.LastCompleted != nil {
			v += "\n**Last Completed:** " + *h.LastCompleted
		}
		e.Fields = append(e.Fields, field(habits.Describe(h), v, false))
	}
	return e
}

func (r *Router) habitStatus(_ context.Context, inv *Invocation) *discordgo.InteractionResponse {
	days, ok := inv.Int("days")
	if !ok || days <= 0 {
		days = 7
	}
	if days > constants.DefaultHistoryDays {
		days = constants.DefaultHistoryDays
	}

	h, history, err := r.deps.Habits.History(inv.UserID, inv.GuildID, inv.String("habit"), days)
	if err != nil {
		return failure(err)
	}

	now := r.deps.Now()
	month := now.Format("2006-01")
	monthCount := 0
	for _, c := range h.Completions {
		if strings.HasPrefix(c.Date, month) {
			monthCount++
		}
	}

	var cal strings.Builder
	for _, d := range history {
		mark := "⬜"
		switch {
		case d.Percentage >= 100:
			mark = "✅"
		case d.Completed:
			mark = "🟨"
		}
		fmt.Fprintf(&cal, "%s %s (%d/%d)\n", mark, d.Date, d.Count, d.Target)
	}

	e := newEmbed(habits.Describe(h), orDefault(h.Description, "No description provided"), streakColor(h.Streak), now)
	e.Fields = []*discordgo.MessageEmbedField{
		field("📊 Statistics", fmt.Sprintf("**Current Streak:** %d days %s\n**Longest Streak:** %d days\n**Total Completions:** %d\n**Target:** %d/day",
			h.Streak, streakEmoji(h.Streak), h.LongestStreak, h.TotalCompletions, h.Target), true),
		field("📅 This Month", fmt.Sprintf("**Days Completed:** %d\n**Progress:** %s", monthCount, progressBar(monthCount, now.Day())), true),
		field(fmt.Sprintf("📆 Last %d Days", days), cal.String(), false),
	}
	if h.LastCompleted != nil {
		e.Fields = append(e.Fields, field("🕐 Last Completion", *h.LastCompleted, false))
	}
	return embedReply(false, e)
}

func (r *Router) habitEdit(_ context.Context, inv *Invocation) *discordgo.InteractionResponse {
	key := inv.String("habit")

	date := streak.Today(r.deps.Now())
	if raw := inv.String("date"); raw != "" {
		parsed, err := habits.ParseDate(raw)
		if err != nil {
			return failure(err)
		}
		date = parsed
	}

	switch inv.String("action") {
	case "details":
		var u habits.Update
		if inv.Has("name") {
			v := inv.String("name")
			u.Name = &v
		}
		if inv.Has("description") {
			v := inv.String("description")
			u.Description = &v
		}
		if v, ok := inv.Int("target"); ok {
			u.Target = &v
		}
		if inv.Has("emoji") {
			v := inv.String("emoji")
			u.Emoji = &v
		}
		if u == (habits.Update{}) {
			return ephemeral("Nothing to change. Provide a name, description, target, or emoji.")
		}
		h, err := r.deps.Habits.Update(inv.UserID, inv.GuildID, key, u)
		if err != nil {
			return failure(err)
		}
		return ephemeral(fmt.Sprintf("✅ Updated %s.", habits.Describe(h)))

	case "completion":
		var count *int
		var notes *string
		if v, ok := inv.Int("count"); ok {
			count = &v
		}
		if inv.Has("notes") {
			v := inv.String("notes")
			notes = &v
		}
		if count == nil && notes == nil {
			return ephemeral("Nothing to change. Provide a count or notes.")
		}
		h, err := r.deps.Habits.UpdateCompletion(inv.UserID, inv.GuildID, key, date, count, notes)
		if err != nil {
			return failure(err)
		}
		return ephemeral(fmt.Sprintf("✅ Updated the %s entry for %s. Total completions: %d.", date, habits.Describe(h), h.TotalCompletions))

	case "delete_completion":
		h, err := r.deps.Habits.DeleteCompletion(inv.UserID, inv.GuildID, key, date)
		if err != nil {
			return failure(err)
		}
		return ephemeral(fmt.Sprintf("🗑️ Deleted the %s entry for %s. Current streak: %d days.", date, habits.Describe(h), h.Streak))
	}
	return ephemeral("Unknown action.")
}

func (r *Router) habitDelete(_ context.Context, inv *Invocation) *discordgo.InteractionResponse {
	key := inv.String("habit")
	if !inv.Bool("confirm") {
		return ephemeral(fmt.Sprintf("⚠️ Deleting **%s** removes all of its history. Run the command again with `confirm: True` to proceed.", key))
	}
	h, err := r.deps.Habits.Find(inv.UserID, inv.GuildID, key)
	if err != nil {
		return failure(err)
	}
	if err := r.deps.Habits.Delete(inv.UserID, inv.GuildID, key); err != nil {
		return failure(err)
	}
	return ephemeral(fmt.Sprintf("🗑️ Deleted %s (%d total completions, longest streak %d days).",
		habits.Describe(h), h.TotalCompletions, h.LongestStreak))
}

var leaderboardLabels = map[habits.Category]string{
	habits.CategoryStreak:      "Total Current Streak",
	habits.CategoryLongest:     "Longest Streak",
	habits.CategoryCompletions: "Total Completions",
	habits.CategoryHabits:      "Active Habits",
}

func (r *Router) habitLeaderboard(_ context.Context, inv *Invocation) *discordgo.InteractionResponse {
	limit, _ := inv.Int("limit")
	lb, err := r.deps.Habits.Leaderboard(inv.GuildID, habits.ParseCategory(inv.String("category")), limit)
	if err != nil {
		return failure(err)
	}
	if lb.Totals.Users == 0 {
		return ephemeral("No habits have been created in this server yet.")
	}

	medals := []string{"🥇", "🥈", "🥉"}
	var b strings.Builder
	for i, st := range lb.Standings {
		pos := fmt.Sprintf("#%d", i+1)
		if i < len(medals) {
			pos = medals[i]
		}
		fmt.Fprintf(&b, "%s %s - %d (%s)\n", pos, mention(st.UserID), st.Value(lb.Category), plural(st.ActiveHabits, "habit"))
	}

	e := newEmbed("🏆 Habit Leaderboard - "+titleCase(string(lb.Category)), "Top habit trackers in this server!", colorGreen, r.deps.Now())
	e.Fields = []*discordgo.MessageEmbedField{
		field(leaderboardLabels[lb.Category], orDefault(b.String(), "No data available for this category."), false),
		field("Server Stats", fmt.Sprintf("**Total Users:** %d\n**Total Habits:** %d\n**Total Completions:** %d\n**Active Streaks:** %d",
			lb.Totals.Users, lb.Totals.Habits, lb.Totals.Completions, lb.Totals.ActiveStreaks), true),
	}
	e.Footer = &discordgo.MessageEmbedFooter{Text: "Keep up those habits!"}
	return embedReply(true, e)
}

func (r *Router) habitReminder(ctx context.Context, inv *Invocation) *discordgo.InteractionResponse {
	kind := inv.String("type")
	if kind == "" {
		kind = "gentle"
	}
	public := inv.Bool("public")
	if public && inv.Permissions&(discordgo.PermissionManageMessages|discordgo.PermissionAdministrator) == 0 {
		return ephemeral("You need 'Manage Messages' permission to send public reminders.")
	}

	rems, err := r.deps.Habits.NeedingReminder(inv.GuildID)
	if err != nil {
		return failure(err)
	}
	if len(rems) == 0 {
		return ephemeral("🎉 Great news! Everyone is up to date with their habits today!")
	}

	now := r.deps.Now()
	if public {
		return embedReply(true, PublicReminder(rems, kind, now))
	}

	sent, failed := 0, 0
	for _, rem := range rems {
		if err := r.deps.Messenger.SendEmbed(ctx, rem.UserID, PersonalReminder(rem, kind, now)); err != nil {
			logger.Warn("Failed to send reminder", "user", rem.UserID, "guild", inv.GuildID, "error", err)
			failed++
			continue
		}
		sent++
	}

	note := "All reminders delivered successfully!"
	if failed > 0 {
		note = "Some users may have DMs disabled."
	}
	color := colorGreen
	if sent == 0 {
		color = colorOrange
	}
	desc := fmt.Sprintf("**Successfully sent:** %d reminders\n**Failed to send:** %d reminders\n\n%s", sent, failed, note)
	return embedReply(false, newEmbed("📬 Habit Reminders Sent", desc, color, now))
}
