package discord

import (
	"context"
	"time"

	"github.com/julianstephens/focusbot/internal/habits"
)

// DigestSender sends the scheduled reminder digest as a DM embed.
type DigestSender struct {
	embeds EmbedSender
	now    func() time.Time
}

func NewDigestSender(embeds EmbedSender, now func() time.Time) *DigestSender {
	if now == nil {
		now = time.Now
	}
	return &DigestSender{embeds: embeds, now: now}
}

func (d *DigestSender) Remind(ctx context.Context, userID string, pending []habits.Reminder) error {
	return d.embeds.SendEmbed(ctx, userID, DigestReminder(pending, d.now()))
}
