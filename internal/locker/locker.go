// Package locker revokes a member's write access to channels and puts it
// back exactly as it was.
package locker

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/bwmarrin/discordgo"

	apperrors "github.com/julianstephens/focusbot/internal/errors"
	"github.com/julianstephens/focusbot/internal/logger"
)

// Denied is the permission set removed while a channel is locked.
const Denied = discordgo.PermissionSendMessages |
	discordgo.PermissionCreatePublicThreads |
	discordgo.PermissionCreatePrivateThreads

// ErrUnknownChannel is returned by a PermissionAPI when a channel does not
// exist in the guild or cannot be seen.
var ErrUnknownChannel = errors.New("unknown channel")

// Overwrite is a member permission overwrite on one channel.
type Overwrite struct {
	Allow int64
	Deny  int64
}

// PermissionAPI is the slice of the chat platform the locker needs.
type PermissionAPI interface {
	// MemberOverwrite returns the member's current overwrite on the
	// channel, or nil when there is none.
	MemberOverwrite(ctx context.Context, guildID, channelID, userID string) (*Overwrite, error)
	SetMemberOverwrite(ctx context.Context, channelID, userID string, ow Overwrite) error
	DeleteMemberOverwrite(ctx context.Context, channelID, userID string) error
}

// Outcome is what happened to one channel.
type Outcome int

const (
	Locked Outcome = iota
	Skipped
	Failed
	Restored
	Cleared
)

func (o Outcome) String() string {
	switch o {
	case Locked:
		return "locked"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	case Restored:
		return "restored"
	case Cleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// ChannelResult is the outcome for a single channel.
type ChannelResult struct {
	ChannelID string
	Outcome   Outcome
	Err       error
	// Reused is set by Lock when the channel was already snapshotted for
	// the user, so this call did not create the snapshot.
	Reused bool
}

// Report lists per-channel outcomes of a Lock or Unlock.
type Report struct {
	UserID  string
	Results []ChannelResult
}

// Count returns how many channels ended with o.
func (r Report) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Channels returns the ids of channels that ended with o.
func (r Report) Channels(o Outcome) []string {
	var ids []string
	for _, res := range r.Results {
		if res.Outcome == o {
			ids = append(ids, res.ChannelID)
		}
	}
	return ids
}

type snapshot struct {
	channelID string
	prior     *Overwrite
}

// Locker snapshots each channel's overwrite before restricting it. Snapshots
// are keyed by user and live in memory only.
type Locker struct {
	api PermissionAPI

	mu        sync.Mutex
	snapshots map[string][]snapshot
}

func New(api PermissionAPI) *Locker {
	return &Locker{api: api, snapshots: make(map[string][]snapshot)}
}

// Lock denies Denied to userID on each channel. Missing channels are
// skipped and failures are recorded without stopping the remaining
// channels. Nothing is rolled back.
func (l *Locker) Lock(ctx context.Context, guildID, userID string, channelIDs []string) Report {
	report := Report{UserID: userID}
	log := logger.With("user", userID, "guild", guildID)

	for _, channelID := range channelIDs {
		if err := ctx.Err(); err != nil {
			report.Results = append(report.Results, ChannelResult{ChannelID: channelID, Outcome: Failed, Err: err})
			continue
		}

		prior, err := l.api.MemberOverwrite(ctx, guildID, channelID, userID)
		if errors.Is(err, ErrUnknownChannel) {
			log.Debug("Skipping missing channel", "channel", channelID)
			report.Results = append(report.Results, ChannelResult{ChannelID: channelID, Outcome: Skipped})
			continue
		}
		if err != nil {
			log.Warn("Failed to read channel overwrite", "channel", channelID, "error", err)
			report.Results = append(report.Results, ChannelResult{
				ChannelID: channelID, Outcome: Failed, Err: apperrors.Collaborator("read overwrite", err),
			})
			continue
		}

		// A channel locked earlier keeps its original snapshot, so locking
		// twice never records the locked state as the prior one.
		existing, reused := l.lookup(userID, channelID)
		if reused {
			prior = existing
		}

		next := Overwrite{Deny: Denied}
		if prior != nil {
			next = Overwrite{Allow: prior.Allow &^ Denied, Deny: prior.Deny | Denied}
		}
		if err := l.api.SetMemberOverwrite(ctx, channelID, userID, next); err != nil {
			log.Warn("Failed to lock channel", "channel", channelID, "error", err)
			report.Results = append(report.Results, ChannelResult{
				ChannelID: channelID, Outcome: Failed, Err: apperrors.Collaborator("lock channel", err),
			})
			continue
		}

		l.record(userID, snapshot{channelID: channelID, prior: prior})
		report.Results = append(report.Results, ChannelResult{ChannelID: channelID, Outcome: Locked, Reused: reused})
	}

	log.Info("Locked channels", "locked", report.Count(Locked), "skipped", report.Count(Skipped), "failed", report.Count(Failed))
	return report
}

// Unlock restores every channel snapshotted for userID: the prior overwrite
// is written back, or the overwrite is deleted when there was none. Restored
// snapshots are consumed; failed ones are kept so a later Unlock retries
// them. A user with no snapshots gets an empty report.
func (l *Locker) Unlock(ctx context.Context, userID string) Report {
	l.mu.Lock()
	snaps := l.snapshots[userID]
	delete(l.snapshots, userID)
	l.mu.Unlock()
	return l.restore(ctx, userID, snaps)
}

// Release restores only channelIDs and leaves the user's other snapshots
// in place.
func (l *Locker) Release(ctx context.Context, userID string, channelIDs []string) Report {
	l.mu.Lock()
	var snaps, keep []snapshot
	for _, s := range l.snapshots[userID] {
		if slices.Contains(channelIDs, s.channelID) {
			snaps = append(snaps, s)
		} else {
			keep = append(keep, s)
		}
	}
	if len(keep) == 0 {
		delete(l.snapshots, userID)
	} else {
		l.snapshots[userID] = keep
	}
	l.mu.Unlock()
	return l.restore(ctx, userID, snaps)
}

func (l *Locker) restore(ctx context.Context, userID string, snaps []snapshot) Report {
	report := Report{UserID: userID}

	if len(snaps) == 0 {
		return report
	}

	log := logger.With("user", userID)
	var retry []snapshot
	for _, s := range snaps {
		var err error
		outcome := Restored
		if s.prior == nil {
			outcome = Cleared
			err = l.api.DeleteMemberOverwrite(ctx, s.channelID, userID)
		} else {
			err = l.api.SetMemberOverwrite(ctx, s.channelID, userID, *s.prior)
		}

		switch {
		case errors.Is(err, ErrUnknownChannel):
			report.Results = append(report.Results, ChannelResult{ChannelID: s.channelID, Outcome: Skipped})
		case err != nil:
			log.Warn("Failed to restore channel", "channel", s.channelID, "error", err)
			retry = append(retry, s)
			report.Results = append(report.Results, ChannelResult{
				ChannelID: s.channelID, Outcome: Failed, Err: apperrors.Collaborator("unlock channel", err),
			})
		default:
			report.Results = append(report.Results, ChannelResult{ChannelID: s.channelID, Outcome: outcome})
		}
	}

	if len(retry) > 0 {
		l.mu.Lock()
		l.snapshots[userID] = append(retry, l.snapshots[userID]...)
		l.mu.Unlock()
	}

	log.Info("Unlocked channels", "restored", report.Count(Restored)+report.Count(Cleared), "failed", report.Count(Failed))
	return report
}

// Pending returns the channels still snapshotted for userID.
func (l *Locker) Pending(userID string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, 0, len(l.snapshots[userID]))
	for _, s := range l.snapshots[userID] {
		ids = append(ids, s.channelID)
	}
	return ids
}

func (l *Locker) lookup(userID, channelID string) (*Overwrite, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.snapshots[userID] {
		if s.channelID == channelID {
			return s.prior, true
		}
	}
	return nil, false
}

func (l *Locker) record(userID string, snap snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, s := range l.snapshots[userID] {
		if s.channelID == snap.channelID {
			l.snapshots[userID][i] = snap
			return
		}
	}
	l.snapshots[userID] = append(l.snapshots[userID], snap)
}
