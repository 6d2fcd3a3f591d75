package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	apperrors "github.com/julianstephens/focusbot/internal/errors"
	"github.com/julianstephens/focusbot/internal/locker"
	"github.com/julianstephens/focusbot/internal/session"
)

func (r *Router) focusStart(ctx context.Context, inv *Invocation) *discordgo.InteractionResponse {
	minutes, _ := inv.Int("minutes")
	started, err := r.deps.Focus.Start(ctx, inv.GuildID, inv.UserID, minutes)
	if apperrors.Is(err, session.ErrActive) {
		return ephemeral("You already have an active focus session. Use `/focus-stop` to cancel.")
	}
	if err != nil {
		return failure(err)
	}

	desc := fmt.Sprintf("I've locked your configured channels for %d minutes. Stay focused!", started.Minutes)
	e := newEmbed("🔒 Focus Session Started", desc, colorBlue, r.deps.Now())
	if locked := started.Lock.Channels(locker.Locked); len(locked) > 0 {
		e.Fields = append(e.Fields, field("Locked", channelMentions(locked), false))
	}
	if failed := started.Lock.Channels(locker.Failed); len(failed) > 0 {
		e.Fields = append(e.Fields, field("⚠️ Could not lock", channelMentions(failed), false))
	}
	if n := started.Lock.Count(locker.Skipped); n > 0 {
		e.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Skipped %s that could not be found.", plural(n, "channel"))}
	}
	return embedReply(true, e)
}

func (r *Router) focusStop(ctx context.Context, inv *Invocation) *discordgo.InteractionResponse {
	stopped, err := r.deps.Focus.Stop(ctx, inv.UserID)
	if apperrors.KindOf(err) == apperrors.KindNotFound {
		return ephemeral("You don't have an active focus session to stop.")
	}
	if err != nil {
		return failure(err)
	}

	e := newEmbed("⏹️ Focus Session Cancelled", "Your focus session has been stopped. You can relax now!", colorRed, r.deps.Now())
	if failed := stopped.Unlock.Channels(locker.Failed); len(failed) > 0 {
		e.Fields = append(e.Fields, field("⚠️ Still locked", channelMentions(failed)+"\nRun `/focus-stop` again later to retry.", false))
	}
	return embedReply(true, e)
}

func (r *Router) focusStatus(_ context.Context, inv *Invocation) *discordgo.InteractionResponse {
	st := r.deps.Focus.Status(inv.UserID)
	if !st.Active {
		return ephemeral("You don't have an active focus session. Start one with `/focus-start`.")
	}
	desc := fmt.Sprintf("You have **%s** left. Ends <t:%d:t>.", formatRemaining(st.Remaining), st.EndsAt.Unix())
	return embedReply(false, newEmbed("⏳ Focus Session", desc, colorBlue, r.deps.Now()))
}

func (r *Router) focusConfig(_ context.Context, inv *Invocation) *discordgo.InteractionResponse {
	switch inv.Subcommand {
	case "add":
		var ids []string
		for i := 1; i <= 5; i++ {
			if id := inv.String(fmt.Sprintf("channel%d", i)); id != "" {
				ids = append(ids, id)
			}
		}
		added, all, err := r.deps.Locks.Add(inv.UserID, inv.GuildID, ids...)
		if err != nil {
			return failure(err)
		}
		if len(added) == 0 {
			return ephemeral("Those channels are already in your lock list.")
		}
		return ephemeral(fmt.Sprintf("✅ Added %s to your lock list.\nYour lock list: %s",
			channelMentions(added), channelMentions(all)))

	case "remove":
		id := inv.String("channel")
		if err := r.deps.Locks.Remove(inv.UserID, inv.GuildID, id); err != nil {
			if apperrors.KindOf(err) == apperrors.KindNotFound {
				return ephemeral(channelMention(id) + " is not in your lock list.")
			}
			return failure(err)
		}
		return ephemeral("✅ Removed " + channelMention(id) + " from your lock list.")

	case "list":
		ids, err := r.deps.Locks.Channels(inv.UserID, inv.GuildID)
		if err != nil {
			return failure(err)
		}
		if len(ids) == 0 {
			return ephemeral("Your lock list is empty. Add channels with `/focus-config add`.")
		}
		lines := make([]string, len(ids))
		for i, id := range ids {
			lines[i] = fmt.Sprintf("%d. %s", i+1, channelMention(id))
		}
		return embedReply(false, newEmbed("🔒 Your Locked Channels", strings.Join(lines, "\n"), colorBlue, r.deps.Now()))

	case "clear":
		if err := r.deps.Locks.Clear(inv.UserID, inv.GuildID); err != nil {
			if apperrors.KindOf(err) == apperrors.KindNotFound {
				return ephemeral("Your lock list is already empty.")
			}
			return failure(err)
		}
		return ephemeral("✅ Cleared your lock list.")
	}
	return ephemeral("Unknown subcommand.")
}
