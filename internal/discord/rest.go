// Package discord connects the bot's services to the Discord gateway and
// REST API through discordgo.
package discord

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/julianstephens/focusbot/internal/locker"
)

// REST is the subset of *discordgo.Session used outside the gateway.
type REST interface {
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelPermissionSet(channelID, targetID string, targetType discordgo.PermissionOverwriteType, allow, deny int64, options ...discordgo.RequestOption) error
	ChannelPermissionDelete(channelID, targetID string, options ...discordgo.RequestOption) error
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// ChannelCache is a local channel lookup, normally *discordgo.State.
type ChannelCache interface {
	Channel(channelID string) (*discordgo.Channel, error)
}

// Permissions implements locker.PermissionAPI.
type Permissions struct {
	rest  REST
	cache ChannelCache
}

// NewPermissions reads channels from cache when it has them and from rest
// otherwise. cache may be nil.
func NewPermissions(rest REST, cache ChannelCache) *Permissions {
	return &Permissions{rest: rest, cache: cache}
}

func (p *Permissions) channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	if p.cache != nil {
		if ch, err := p.cache.Channel(channelID); err == nil && ch != nil {
			return ch, nil
		}
	}
	ch, err := p.rest.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	return ch, nil
}

func (p *Permissions) MemberOverwrite(ctx context.Context, guildID, channelID, userID string) (*locker.Overwrite, error) {
	ch, err := p.channel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if ch.GuildID != guildID {
		return nil, locker.ErrUnknownChannel
	}
	for _, ow := range ch.PermissionOverwrites {
		if ow.Type == discordgo.PermissionOverwriteTypeMember && ow.ID == userID {
			return &locker.Overwrite{Allow: ow.Allow, Deny: ow.Deny}, nil
		}
	}
	return nil, nil
}

func (p *Permissions) SetMemberOverwrite(ctx context.Context, channelID, userID string, ow locker.Overwrite) error {
	err := p.rest.ChannelPermissionSet(channelID, userID, discordgo.PermissionOverwriteTypeMember,
		ow.Allow, ow.Deny, discordgo.WithContext(ctx))
	return mapError(err)
}

func (p *Permissions) DeleteMemberOverwrite(ctx context.Context, channelID, userID string) error {
	err := p.rest.ChannelPermissionDelete(channelID, userID, discordgo.WithContext(ctx))
	return mapError(err)
}

// mapError turns "no such channel" API errors into locker.ErrUnknownChannel.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) {
		if rest.Message != nil && rest.Message.Code == discordgo.ErrCodeUnknownChannel {
			return locker.ErrUnknownChannel
		}
		if rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound {
			return locker.ErrUnknownChannel
		}
	}
	return err
}

// Messenger sends direct messages.
type Messenger struct {
	rest REST
}

func NewMessenger(rest REST) *Messenger {
	return &Messenger{rest: rest}
}

// NotifyUser sends a plain-text DM.
func (m *Messenger) NotifyUser(ctx context.Context, userID, message string) error {
	ch, err := m.rest.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return err
	}
	_, err = m.rest.ChannelMessageSend(ch.ID, message, discordgo.WithContext(ctx))
	return err
}

// SendEmbed sends an embed as a DM.
func (m *Messenger) SendEmbed(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error {
	ch, err := m.rest.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return err
	}
	_, err = m.rest.ChannelMessageSendEmbed(ch.ID, embed, discordgo.WithContext(ctx))
	return err
}
