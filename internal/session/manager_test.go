package session_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/julianstephens/focusbot/internal/errors"
	"github.com/julianstephens/focusbot/internal/logger"
	"github.com/julianstephens/focusbot/internal/session"
	"github.com/julianstephens/focusbot/internal/session/sessiontest"
)

var start = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type calls struct {
	unlock   atomic.Int32
	complete atomic.Int32
	order    []string
}

func (c *calls) unlockFn(context.Context) {
	c.unlock.Add(1)
	c.order = append(c.order, "unlock")
}

func (c *calls) completeFn(context.Context) {
	c.complete.Add(1)
	c.order = append(c.order, "complete")
}

func TestExpiryRunsCallbacksOnce(t *testing.T) {
	clock := sessiontest.NewClock(start)
	m := session.NewManager(clock)
	c := &calls{}

	if _, err := m.Begin("u1", "g1", start.Add(time.Second), c.unlockFn, c.completeFn); err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	if !m.CheckActive("u1") {
		t.Fatal("CheckActive() = false right after Begin")
	}

	clock.Advance(999 * time.Millisecond)
	if !m.CheckActive("u1") || c.unlock.Load() != 0 {
		t.Fatal("session ended early")
	}

	clock.Advance(time.Millisecond)
	if m.CheckActive("u1") {
		t.Error("CheckActive() = true after expiry")
	}
	if c.unlock.Load() != 1 || c.complete.Load() != 1 {
		t.Errorf("unlock = %d complete = %d, want 1/1", c.unlock.Load(), c.complete.Load())
	}
	if len(c.order) != 2 || c.order[0] != "unlock" || c.order[1] != "complete" {
		t.Errorf("callback order = %v", c.order)
	}

	clock.Advance(time.Hour)
	if c.unlock.Load() != 1 {
		t.Error("unlock ran more than once")
	}
}

func TestStopCancelsTimer(t *testing.T) {
	clock := sessiontest.NewClock(start)
	m := session.NewManager(clock)
	c := &calls{}

	began, err := m.Begin("u1", "g1", start.Add(time.Minute), c.unlockFn, c.completeFn)
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}

	s, ok := m.Stop("u1")
	if !ok || s.ID != began.ID {
		t.Fatalf("Stop() = %v, %v", s, ok)
	}
	if m.CheckActive("u1") {
		t.Error("CheckActive() = true after Stop")
	}
	if clock.Pending() != 0 {
		t.Errorf("%d timers still pending", clock.Pending())
	}

	clock.Advance(2 * time.Minute)
	if c.unlock.Load() != 0 || c.complete.Load() != 0 {
		t.Error("stopped session must not fire its callbacks")
	}

	if _, ok := m.Stop("u1"); ok {
		t.Error("second Stop() should report no session")
	}
}

func TestStaleTimerIsIgnored(t *testing.T) {
	clock := sessiontest.NewClock(start)
	m := session.NewManager(clock)
	first, second := &calls{}, &calls{}

	if _, err := m.Begin("u1", "g1", start.Add(time.Minute), first.unlockFn, first.completeFn); err != nil {
		t.Fatal(err)
	}
	m.Stop("u1")
	if _, err := m.Begin("u1", "g1", start.Add(10*time.Minute), second.unlockFn, second.completeFn); err != nil {
		t.Fatal(err)
	}

	clock.Advance(time.Minute)
	if !m.CheckActive("u1") {
		t.Error("new session ended when the old deadline passed")
	}
	if first.unlock.Load() != 0 || second.unlock.Load() != 0 {
		t.Error("no callback should have run yet")
	}
}

func TestBeginRejectsSecondSession(t *testing.T) {
	m := session.NewManager(sessiontest.NewClock(start))
	if _, err := m.Begin("u1", "g1", start.Add(time.Minute), nil, nil); err != nil {
		t.Fatal(err)
	}
	_, err := m.Begin("u1", "g1", start.Add(time.Hour), nil, nil)
	if !apperrors.Is(err, session.ErrActive) || apperrors.KindOf(err) != apperrors.KindValidation {
		t.Errorf("second Begin() error = %v, want ErrActive", err)
	}
	if _, err := m.Begin("u2", "g1", start.Add(time.Minute), nil, nil); err != nil {
		t.Errorf("other user Begin() failed: %v", err)
	}
}

func TestRemaining(t *testing.T) {
	clock := sessiontest.NewClock(start)
	m := session.NewManager(clock)

	if _, ok := m.Remaining("u1"); ok {
		t.Error("Remaining() without a session should report ok=false")
	}

	if _, err := m.Begin("u1", "g1", start.Add(25*time.Minute), nil, nil); err != nil {
		t.Fatal(err)
	}
	clock.Advance(10 * time.Minute)
	left, ok := m.Remaining("u1")
	if !ok || left != 15*time.Minute {
		t.Errorf("Remaining() = %v, %v; want 15m", left, ok)
	}
}

func TestRemainingNeverNegative(t *testing.T) {
	clock := sessiontest.NewClock(start)
	m := session.NewManager(clock)

	// A deadline already passed schedules an immediate expiry; until the
	// timer runs the remaining time reads as zero.
	if _, err := m.Begin("u1", "g1", start.Add(-time.Minute), nil, nil); err != nil {
		t.Fatal(err)
	}
	left, ok := m.Remaining("u1")
	if !ok || left != 0 {
		t.Errorf("Remaining() = %v, %v; want 0, true", left, ok)
	}
	clock.Advance(0)
	if m.CheckActive("u1") {
		t.Error("past-deadline session should expire on the next tick")
	}
}

func TestActiveSnapshots(t *testing.T) {
	clock := sessiontest.NewClock(start)
	m := session.NewManager(clock)
	if _, err := m.Begin("late", "g1", start.Add(time.Hour), nil, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Begin("soon", "g2", start.Add(time.Minute), nil, nil); err != nil {
		t.Fatal(err)
	}

	active := m.Active()
	if len(active) != 2 || active[0].UserID != "soon" || active[1].UserID != "late" {
		t.Fatalf("Active() = %+v", active)
	}
	if active[0].Remaining != time.Minute || active[0].GuildID != "g2" || active[0].ID == "" {
		t.Errorf("snapshot = %+v", active[0])
	}
}

func TestShutdownUnlocksEverySession(t *testing.T) {
	clock := sessiontest.NewClock(start)
	m := session.NewManager(clock)
	a, b := &calls{}, &calls{}
	if _, err := m.Begin("a", "g1", start.Add(time.Hour), a.unlockFn, a.completeFn); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Begin("b", "g1", start.Add(time.Hour), b.unlockFn, b.completeFn); err != nil {
		t.Fatal(err)
	}

	if err := m.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() failed: %v", err)
	}
	if a.unlock.Load() != 1 || b.unlock.Load() != 1 {
		t.Errorf("unlocks = %d, %d; want 1, 1", a.unlock.Load(), b.unlock.Load())
	}
	if a.complete.Load() != 0 || b.complete.Load() != 0 {
		t.Error("Shutdown() must not send completion notices")
	}
	if len(m.Active()) != 0 {
		t.Error("sessions left after Shutdown()")
	}

	clock.Advance(2 * time.Hour)
	if a.unlock.Load() != 1 {
		t.Error("timer fired after Shutdown()")
	}
}

func TestShutdownHonorsContext(t *testing.T) {
	m := session.NewManager(sessiontest.NewClock(start))
	c := &calls{}
	if _, err := m.Begin("a", "g1", start.Add(time.Hour), c.unlockFn, nil); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Shutdown(ctx); err != context.Canceled {
		t.Errorf("Shutdown() error = %v, want context.Canceled", err)
	}
	if c.unlock.Load() != 0 {
		t.Error("unlock ran after the context was canceled")
	}
}

func TestShutdownLogsSessionsLeftLocked(t *testing.T) {
	dir := t.TempDir()
	if err := logger.Init(logger.Config{DataDir: dir, Format: "json"}); err != nil {
		t.Fatal(err)
	}

	m := session.NewManager(sessiontest.NewClock(start))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var unlocked []string
	for _, user := range []string{"alpha", "bravo"} {
		unlock := func(context.Context) {
			unlocked = append(unlocked, user)
			cancel()
		}
		if _, err := m.Begin(user, "g1", start.Add(time.Hour), unlock, nil); err != nil {
			t.Fatal(err)
		}
	}

	if err := m.Shutdown(ctx); err != context.Canceled {
		t.Errorf("Shutdown() error = %v, want context.Canceled", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}
	if len(unlocked) != 1 {
		t.Fatalf("unlocked = %v, want exactly one session", unlocked)
	}
	left := "bravo"
	if unlocked[0] == "bravo" {
		left = "alpha"
	}

	data, err := os.ReadFile(filepath.Join(dir, "logs", "focusbot.log"))
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, `"remaining":1`) || !strings.Contains(out, `"`+left+`"`) {
		t.Errorf("shutdown log does not name the session left locked (%s):\n%s", left, out)
	}
	if len(m.Active()) != 0 {
		t.Error("sessions left in the registry after Shutdown()")
	}
}

func TestRealClockExpiry(t *testing.T) {
	m := session.NewManager(session.RealClock())
	done := make(chan struct{})
	if _, err := m.Begin("u1", "g1", time.Now().Add(20*time.Millisecond), nil, func(context.Context) { close(done) }); err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not expire on the wall clock")
	}
	if m.CheckActive("u1") {
		t.Error("session still active after completion callback")
	}
}
