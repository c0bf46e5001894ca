// Package discord is the platform adapter: it bridges gateway events into
// the platform-agnostic orchestrator and exposes outbound send and role
// mutation as direct client calls.
package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/agartha-dev/otenz/internal/domain"
)

// MessageHandler consumes inbound messages bridged from the gateway.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg domain.Inbound)
}

// Bot wraps a discordgo session.
type Bot struct {
	session *discordgo.Session
	logger  *slog.Logger
}

// New creates a bot with the intents the features need: message content for
// reading, guild members for the welcome DM and role commands.
func New(token string, logger *slog.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent

	return &Bot{session: session, logger: logger}, nil
}

// Open connects to the gateway. After Open returns, SelfID is valid.
func (b *Bot) Open() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord connection: %w", err)
	}
	return nil
}

// Close shuts down the gateway connection.
func (b *Bot) Close() error {
	return b.session.Close()
}

// SelfID returns the bot's own user ID.
func (b *Bot) SelfID() string {
	return b.session.State.User.ID
}

// Username returns the bot's display name.
func (b *Bot) Username() string {
	return b.session.State.User.Username
}

// Bind registers the event handlers. Each message is handled on its own
// goroutine so a slow completion call does not stall the gateway reader;
// within that goroutine the orchestrator runs first and command routing
// always runs afterwards.
func (b *Bot) Bind(handler MessageHandler, router *Router, welcome bool) {
	b.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		// Never react to our own messages, not even command routing.
		if m.Author == nil || m.Author.ID == s.State.User.ID {
			return
		}

		inbound := domain.Inbound{
			AuthorID:    m.Author.ID,
			ChannelID:   m.ChannelID,
			GuildID:     m.GuildID,
			Content:     m.Content,
			MentionsBot: mentionsUser(m.Mentions, s.State.User.ID),
		}

		go func() {
			handler.HandleMessage(context.Background(), inbound)
			router.Dispatch(s, m)
		}()
	})

	if welcome {
		b.session.AddHandler(b.onGuildMemberAdd)
	}
}

// onGuildMemberAdd sends the welcome DM. Users who disallow DMs make the
// send fail; that is logged and swallowed.
func (b *Bot) onGuildMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	channel, err := s.UserChannelCreate(m.User.ID)
	if err != nil {
		b.logger.Warn("failed to open welcome DM channel",
			slog.String("user_id", m.User.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	if _, err := s.ChannelMessageSend(channel.ID, "welcome to the server "+m.User.Username); err != nil {
		b.logger.Warn("failed to send welcome DM",
			slog.String("user_id", m.User.ID),
			slog.String("error", err.Error()),
		)
	}
}

// Send delivers text to a channel. Callers guarantee text fits the
// platform's 2000-character ceiling.
func (b *Bot) Send(channelID, text string) error {
	_, err := b.session.ChannelMessageSend(channelID, text)
	return err
}

// Typing signals a typing indicator, best-effort.
func (b *Bot) Typing(channelID string) {
	if err := b.session.ChannelTyping(channelID); err != nil {
		b.logger.Debug("failed to send typing indicator",
			slog.String("channel_id", channelID),
			slog.String("error", err.Error()),
		)
	}
}

func mentionsUser(mentions []*discordgo.User, userID string) bool {
	for _, u := range mentions {
		if u != nil && u.ID == userID {
			return true
		}
	}
	return false
}

var _ domain.Sender = (*Bot)(nil)
