package discord

import (
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/agartha-dev/otenz/internal/history"
)

const roleNotFoundNotice = "Role not found — check the name."

// Commands implements the bot's direct commands: reset memory and
// grant/revoke the configured role.
type Commands struct {
	history  *history.Store
	roleName string
	logger   *slog.Logger
}

// NewCommands creates the command set.
func NewCommands(hist *history.Store, roleName string, logger *slog.Logger) *Commands {
	return &Commands{history: hist, roleName: roleName, logger: logger}
}

// Register wires the command handlers into a router.
func (c *Commands) Register(r *Router) {
	r.Handle("forget", c.forget)
	r.Handle("assign", c.assign)
	r.Handle("removerole", c.removeRole)
}

// forget clears the conversation history for the current channel.
func (c *Commands) forget(s *discordgo.Session, m *discordgo.MessageCreate, _ []string) {
	c.history.Clear(m.ChannelID)
	c.reply(s, m.ChannelID, "Conversation history reset.")
	c.logger.Info("memory cleared", slog.String("channel_id", m.ChannelID))
}

// assign grants the configured role to the invoking user.
func (c *Commands) assign(s *discordgo.Session, m *discordgo.MessageCreate, _ []string) {
	c.mutateRole(s, m, func(roleID string) error {
		return s.GuildMemberRoleAdd(m.GuildID, m.Author.ID, roleID)
	}, fmt.Sprintf("%s welcome to %s.", m.Author.Mention(), c.roleName))
}

// removeRole revokes the configured role from the invoking user.
func (c *Commands) removeRole(s *discordgo.Session, m *discordgo.MessageCreate, _ []string) {
	c.mutateRole(s, m, func(roleID string) error {
		return s.GuildMemberRoleRemove(m.GuildID, m.Author.ID, roleID)
	}, fmt.Sprintf("%s just betrayed %s", m.Author.Mention(), c.roleName))
}

// mutateRole looks up the configured role by exact name and applies the
// mutation. A missing role is a plain notice to the user, never a fault.
func (c *Commands) mutateRole(s *discordgo.Session, m *discordgo.MessageCreate, mutate func(roleID string) error, confirmation string) {
	if m.GuildID == "" {
		c.reply(s, m.ChannelID, "Role commands only work in a server.")
		return
	}

	roleID, err := c.findRole(s, m.GuildID)
	if err != nil {
		c.logger.Warn("role lookup failed",
			slog.String("guild_id", m.GuildID),
			slog.String("error", err.Error()),
		)
		c.reply(s, m.ChannelID, roleNotFoundNotice)
		return
	}
	if roleID == "" {
		c.reply(s, m.ChannelID, roleNotFoundNotice)
		return
	}

	if err := mutate(roleID); err != nil {
		c.logger.Warn("role mutation failed",
			slog.String("guild_id", m.GuildID),
			slog.String("user_id", m.Author.ID),
			slog.String("error", err.Error()),
		)
		c.reply(s, m.ChannelID, "Couldn't change that role — check my permissions.")
		return
	}
	c.reply(s, m.ChannelID, confirmation)
}

func (c *Commands) findRole(s *discordgo.Session, guildID string) (string, error) {
	roles, err := s.GuildRoles(guildID)
	if err != nil {
		return "", err
	}
	for _, role := range roles {
		if role.Name == c.roleName {
			return role.ID, nil
		}
	}
	return "", nil
}

func (c *Commands) reply(s *discordgo.Session, channelID, text string) {
	if _, err := s.ChannelMessageSend(channelID, text); err != nil {
		c.logger.Warn("failed to send command reply",
			slog.String("channel_id", channelID),
			slog.String("error", err.Error()),
		)
	}
}
