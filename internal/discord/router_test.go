package discord

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/julianstephens/focusbot/internal/focus"
	"github.com/julianstephens/focusbot/internal/habits"
	"github.com/julianstephens/focusbot/internal/lockconfig"
	"github.com/julianstephens/focusbot/internal/locker"
	"github.com/julianstephens/focusbot/internal/session"
	"github.com/julianstephens/focusbot/internal/session/sessiontest"
	"github.com/julianstephens/focusbot/internal/storage"
)

var testNow = time.Date(2025, 3, 10, 9, 30, 0, 0, time.Local)

// memPerms is an in-memory locker.PermissionAPI.
type memPerms struct {
	mu  sync.Mutex
	ows map[string]*locker.Overwrite
}

func (m *memPerms) MemberOverwrite(_ context.Context, guildID, channelID, userID string) (*locker.Overwrite, error) {
	if guildID != "g1" || channelID == "gone" {
		return nil, locker.ErrUnknownChannel
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ows[channelID+"/"+userID], nil
}

func (m *memPerms) SetMemberOverwrite(_ context.Context, channelID, userID string, ow locker.Overwrite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ows[channelID+"/"+userID] = &ow
	return nil
}

func (m *memPerms) DeleteMemberOverwrite(_ context.Context, channelID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ows, channelID+"/"+userID)
	return nil
}

type fakeMessenger struct {
	mu     sync.Mutex
	embeds map[string][]*discordgo.MessageEmbed
	texts  map[string][]string
	failTo string
}

func (f *fakeMessenger) SendEmbed(_ context.Context, userID string, e *discordgo.MessageEmbed) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if userID == f.failTo {
		return stderrors.New("cannot send messages to this user")
	}
	f.embeds[userID] = append(f.embeds[userID], e)
	return nil
}

func (f *fakeMessenger) NotifyUser(_ context.Context, userID, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts[userID] = append(f.texts[userID], msg)
	return nil
}

type testBot struct {
	router *Router
	clock  *sessiontest.Clock
	perms  *memPerms
	msgs   *fakeMessenger
	habits *habits.Service
}

func newTestBot(t *testing.T) *testBot {
	t.Helper()
	store := storage.NewJSONStore(t.TempDir())
	if err := store.Init(); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	clock := sessiontest.NewClock(testNow)
	perms := &memPerms{ows: map[string]*locker.Overwrite{}}
	msgs := &fakeMessenger{embeds: map[string][]*discordgo.MessageEmbed{}, texts: map[string][]string{}}
	locks := lockconfig.NewService(store)
	hab := habits.NewService(store, habits.WithClock(clock.Now))
	fs := focus.NewService(session.NewManager(clock), locker.New(perms), locks, msgs, clock, focus.Options{})

	router := NewRouter(Deps{Focus: fs, Habits: hab, Locks: locks, Messenger: msgs, Now: clock.Now})
	return &testBot{router: router, clock: clock, perms: perms, msgs: msgs, habits: hab}
}

func (b *testBot) run(t *testing.T, i *discordgo.Interaction) *discordgo.InteractionResponseData {
	t.Helper()
	resp := b.router.Handle(context.Background(), i)
	if resp == nil || resp.Data == nil {
		t.Fatalf("no response for %+v", i.Data)
	}
	return resp.Data
}

func command(user, name string, opts ...*option) *discordgo.Interaction {
	return &discordgo.Interaction{
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   "g1",
		ChannelID: "chan",
		Member:    &discordgo.Member{User: &discordgo.User{ID: user}},
		Data:      discordgo.ApplicationCommandInteractionData{Name: name, Options: opts},
	}
}

func sub(name string, opts ...*option) *option {
	return &option{Name: name, Type: discordgo.ApplicationCommandOptionSubCommand, Options: opts}
}

func str(name, v string) *option {
	return &option{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: v}
}

func num(name string, v int) *option {
	return &option{Name: name, Type: discordgo.ApplicationCommandOptionInteger, Value: float64(v)}
}

func flag(name string, v bool) *option {
	return &option{Name: name, Type: discordgo.ApplicationCommandOptionBoolean, Value: v}
}

func channel(name, id string) *option {
	return &option{Name: name, Type: discordgo.ApplicationCommandOptionChannel, Value: id}
}

func text(d *discordgo.InteractionResponseData) string {
	var b strings.Builder
	b.WriteString(d.Content)
	for _, e := range d.Embeds {
		b.WriteString(e.Title + "\n" + e.Description + "\n")
		for _, f := range e.Fields {
			b.WriteString(f.Name + ": " + f.Value + "\n")
		}
	}
	return b.String()
}

func isEphemeral(d *discordgo.InteractionResponseData) bool {
	return d.Flags&discordgo.MessageFlagsEphemeral != 0
}

func TestInvocationParsing(t *testing.T) {
	i := command("u1", CmdFocusConfig, sub("add", channel("channel1", "100"), channel("channel2", "200")))
	inv := NewInvocation(i)
	if inv.UserID != "u1" || inv.Command != CmdFocusConfig || inv.Subcommand != "add" {
		t.Fatalf("NewInvocation() = %+v", inv)
	}
	if inv.String("channel2") != "200" || inv.Has("channel3") {
		t.Errorf("options = %v", inv.Options)
	}

	dm := &discordgo.Interaction{
		Type: discordgo.InteractionApplicationCommand,
		User: &discordgo.User{ID: "u9"},
		Data: discordgo.ApplicationCommandInteractionData{Name: CmdHabitLog, Options: []*option{num("count", 3), flag("x", true)}},
	}
	inv = NewInvocation(dm)
	if inv.UserID != "u9" || inv.GuildID != "" {
		t.Errorf("DM invocation = %+v", inv)
	}
	if n, ok := inv.Int("count"); !ok || n != 3 {
		t.Errorf("Int() = %d, %v", n, ok)
	}
	if _, ok := inv.Int("missing"); ok {
		t.Error("Int() of missing option should be !ok")
	}
	if !inv.Bool("x") || inv.Bool("missing") || inv.String("count") != "" {
		t.Error("typed accessors returned wrong values")
	}
}

func TestCommandsRequireGuild(t *testing.T) {
	b := newTestBot(t)
	i := command("u1", CmdFocusStatus)
	i.GuildID = ""
	d := b.run(t, i)
	if !strings.Contains(d.Content, "only be used in a server") {
		t.Errorf("content = %q", d.Content)
	}
}

func TestFocusFlow(t *testing.T) {
	b := newTestBot(t)

	d := b.run(t, command("u1", CmdFocusStart))
	if !strings.Contains(d.Content, "no channels to lock") {
		t.Fatalf("start without channels = %q", d.Content)
	}

	d = b.run(t, command("u1", CmdFocusConfig, sub("add", channel("channel1", "100"), channel("channel2", "gone"))))
	if !strings.Contains(d.Content, "<#100>") || !isEphemeral(d) {
		t.Fatalf("config add = %q", d.Content)
	}

	d = b.run(t, command("u1", CmdFocusStart, num("minutes", 30)))
	out := text(d)
	if isEphemeral(d) || !strings.Contains(out, "30 minutes") || !strings.Contains(out, "<#100>") {
		t.Fatalf("focus-start = %q", out)
	}
	if d.Embeds[0].Footer == nil || !strings.Contains(d.Embeds[0].Footer.Text, "Skipped 1 channel") {
		t.Errorf("missing channel not reported: %+v", d.Embeds[0].Footer)
	}
	if b.perms.ows["100/u1"] == nil {
		t.Fatal("channel 100 was not locked")
	}

	d = b.run(t, command("u1", CmdFocusStart))
	if !strings.Contains(d.Content, "already have an active focus session") {
		t.Errorf("second start = %q", d.Content)
	}

	b.clock.Advance(10 * time.Minute)
	d = b.run(t, command("u1", CmdFocusStatus))
	if !strings.Contains(text(d), "20 minutes 0 seconds") {
		t.Errorf("status = %q", text(d))
	}

	d = b.run(t, command("u1", CmdFocusStop))
	if !strings.Contains(text(d), "Focus Session Cancelled") {
		t.Errorf("stop = %q", text(d))
	}
	if b.perms.ows["100/u1"] != nil {
		t.Error("channel 100 still locked after stop")
	}

	d = b.run(t, command("u1", CmdFocusStop))
	if !strings.Contains(d.Content, "don't have an active focus session") {
		t.Errorf("second stop = %q", d.Content)
	}
}

func TestFocusExpirySendsDM(t *testing.T) {
	b := newTestBot(t)
	b.run(t, command("u1", CmdFocusConfig, sub("add", channel("channel1", "100"))))
	b.run(t, command("u1", CmdFocusStart, num("minutes", 1)))

	b.clock.Advance(time.Minute)
	if got := b.msgs.texts["u1"]; len(got) != 1 || got[0] != focus.CompletionMessage {
		t.Errorf("DMs = %v", got)
	}
	if b.perms.ows["100/u1"] != nil {
		t.Error("channel still locked after expiry")
	}
}

func TestFocusConfigListRemoveClear(t *testing.T) {
	b := newTestBot(t)

	if d := b.run(t, command("u1", CmdFocusConfig, sub("list"))); !strings.Contains(d.Content, "empty") {
		t.Errorf("empty list = %q", d.Content)
	}
	b.run(t, command("u1", CmdFocusConfig, sub("add", channel("channel1", "100"), channel("channel2", "200"))))

	d := b.run(t, command("u1", CmdFocusConfig, sub("list")))
	if !strings.Contains(text(d), "1. <#100>\n2. <#200>") {
		t.Errorf("list = %q", text(d))
	}

	if d := b.run(t, command("u1", CmdFocusConfig, sub("remove", channel("channel", "999")))); !strings.Contains(d.Content, "not in your lock list") {
		t.Errorf("remove missing = %q", d.Content)
	}
	if d := b.run(t, command("u1", CmdFocusConfig, sub("remove", channel("channel", "100")))); !strings.Contains(d.Content, "Removed <#100>") {
		t.Errorf("remove = %q", d.Content)
	}
	if d := b.run(t, command("u1", CmdFocusConfig, sub("clear"))); !strings.Contains(d.Content, "Cleared") {
		t.Errorf("clear = %q", d.Content)
	}
	if d := b.run(t, command("u1", CmdFocusConfig, sub("clear"))); !strings.Contains(d.Content, "already empty") {
		t.Errorf("second clear = %q", d.Content)
	}
}

func TestHabitFlow(t *testing.T) {
	b := newTestBot(t)

	d := b.run(t, command("u1", CmdHabitCreate, str("name", "Read"), str("emoji", "📚"), num("target", 2)))
	if !strings.Contains(text(d), "Habit Created") {
		t.Fatalf("create = %q", text(d))
	}
	d = b.run(t, command("u1", CmdHabitCreate, str("name", "read")))
	if !strings.Contains(d.Content, "already have a habit") {
		t.Errorf("duplicate create = %q", d.Content)
	}

	d = b.run(t, command("u1", CmdHabitLog, str("habit", "read"), num("count", 2), str("notes", "two chapters")))
	out := text(d)
	if !strings.Contains(out, "Habit Logged") || !strings.Contains(out, "2/2 ✅") || !strings.Contains(out, "two chapters") {
		t.Errorf("log = %q", out)
	}
	d = b.run(t, command("u1", CmdHabitLog, str("habit", "Read")))
	if !strings.Contains(d.Content, "already logged") {
		t.Errorf("duplicate log = %q", d.Content)
	}
	d = b.run(t, command("u1", CmdHabitLog, str("habit", "Read"), str("date", "tomorrow")))
	if !strings.Contains(d.Content, "invalid date") {
		t.Errorf("bad date = %q", d.Content)
	}

	d = b.run(t, command("u1", CmdHabitList))
	if !strings.Contains(text(d), "📚 **Read** - Streak: 1 days") {
		t.Errorf("list = %q", text(d))
	}
	d = b.run(t, command("u2", CmdHabitList, str("user", "u1"), flag("detailed", true)))
	if !strings.Contains(text(d), "✅ Completed") {
		t.Errorf("detailed list = %q", text(d))
	}

	d = b.run(t, command("u1", CmdHabitStatus, str("habit", "Read"), num("days", 3)))
	if !strings.Contains(text(d), "Last 3 Days") || !strings.Contains(text(d), "✅ 2025-03-10 (2/2)") {
		t.Errorf("status = %q", text(d))
	}

	d = b.run(t, command("u1", CmdHabitEdit, str("habit", "Read"), str("action", "completion"), num("count", 1)))
	if !strings.Contains(d.Content, "Total completions: 1") {
		t.Errorf("edit completion = %q", d.Content)
	}
	d = b.run(t, command("u1", CmdHabitEdit, str("habit", "Read"), str("action", "details"), str("name", "Read books")))
	if !strings.Contains(d.Content, "Read books") {
		t.Errorf("edit details = %q", d.Content)
	}
	d = b.run(t, command("u1", CmdHabitEdit, str("habit", "Read books"), str("action", "delete_completion")))
	if !strings.Contains(d.Content, "Current streak: 0 days") {
		t.Errorf("delete completion = %q", d.Content)
	}

	d = b.run(t, command("u1", CmdHabitDelete, str("habit", "Read books"), flag("confirm", false)))
	if !strings.Contains(d.Content, "confirm") {
		t.Errorf("unconfirmed delete = %q", d.Content)
	}
	if _, err := b.habits.Find("u1", "g1", "Read books"); err != nil {
		t.Fatal("unconfirmed delete removed the habit")
	}
	d = b.run(t, command("u1", CmdHabitDelete, str("habit", "Read books"), flag("confirm", true)))
	if !strings.Contains(d.Content, "Deleted") {
		t.Errorf("delete = %q", d.Content)
	}
	d = b.run(t, command("u1", CmdHabitList))
	if !strings.Contains(d.Content, "no habits tracked") {
		t.Errorf("empty list = %q", d.Content)
	}
}

func TestHabitAutocomplete(t *testing.T) {
	b := newTestBot(t)
	for _, n := range []string{"Read", "Run", "Meditate"} {
		b.run(t, command("u1", CmdHabitCreate, str("name", n)))
	}

	focused := str("habit", "r")
	focused.Focused = true
	i := command("u1", CmdHabitLog, focused)
	i.Type = discordgo.InteractionApplicationCommandAutocomplete

	resp := b.router.Handle(context.Background(), i)
	if resp.Type != discordgo.InteractionApplicationCommandAutocompleteResult {
		t.Fatalf("response type = %v", resp.Type)
	}
	var names []string
	for _, c := range resp.Data.Choices {
		names = append(names, c.Value.(string))
	}
	if strings.Join(names, ",") != "Read,Run" {
		t.Errorf("choices = %v", names)
	}
}

func TestLeaderboardAndReminders(t *testing.T) {
	b := newTestBot(t)

	if d := b.run(t, command("u1", CmdHabitLeaderboard)); !strings.Contains(d.Content, "No habits") {
		t.Errorf("empty leaderboard = %q", d.Content)
	}

	b.run(t, command("u1", CmdHabitCreate, str("name", "Read")))
	b.run(t, command("u2", CmdHabitCreate, str("name", "Walk")))
	b.run(t, command("u3", CmdHabitCreate, str("name", "Code")))
	b.run(t, command("u1", CmdHabitLog, str("habit", "Read"), num("count", 3)))

	d := b.run(t, command("u2", CmdHabitLeaderboard, str("category", "completions")))
	out := text(d)
	if isEphemeral(d) || !strings.Contains(out, "🥇 <@u1> - 3 (1 habit)") || !strings.Contains(out, "**Total Users:** 3") {
		t.Errorf("leaderboard = %q", out)
	}

	d = b.run(t, command("u2", CmdHabitReminder, flag("public", true)))
	if !strings.Contains(d.Content, "Manage Messages") {
		t.Errorf("public reminder without permission = %q", d.Content)
	}

	mod := command("u2", CmdHabitReminder, flag("public", true), str("type", "motivational"))
	mod.Member.Permissions = discordgo.PermissionManageMessages
	d = b.run(t, mod)
	out = text(d)
	if !strings.Contains(out, "<@u2> - ✅ Walk") || !strings.Contains(out, "<@u3> - ✅ Code") || strings.Contains(out, "<@u1>") {
		t.Errorf("public reminder = %q", out)
	}

	b.msgs.failTo = "u3"
	d = b.run(t, command("u2", CmdHabitReminder))
	if !strings.Contains(text(d), "**Successfully sent:** 1 reminders") || !strings.Contains(text(d), "**Failed to send:** 1 reminders") {
		t.Errorf("dm reminder summary = %q", text(d))
	}
	if got := b.msgs.embeds["u2"]; len(got) != 1 || !strings.Contains(got[0].Title, "Good Morning") {
		t.Errorf("u2 reminder = %+v", got)
	}
}

func TestUnknownCommand(t *testing.T) {
	b := newTestBot(t)
	if d := b.run(t, command("u1", "nope")); !strings.Contains(d.Content, "Unknown command") {
		t.Errorf("content = %q", d.Content)
	}
}
