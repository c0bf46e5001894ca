package domain

import "time"

// Role identifies the originator of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single message within a conversation, tagged with its originator.
type Turn struct {
	Role    Role
	Content string
}

// Inbound is the platform-agnostic view of a received chat message.
type Inbound struct {
	// AuthorID is the identity that sent the message.
	AuthorID string
	// ChannelID is the destination/conversation identifier.
	ChannelID string
	// GuildID is the originating server, empty for direct messages.
	GuildID string
	// Content is the raw message text.
	Content string
	// MentionsBot reports whether the bot was explicitly mentioned.
	MentionsBot bool
}

// Prompt is the message context assembled for one completion call:
// the fixed persona, a history snapshot, then the current user turn.
type Prompt struct {
	System  string
	History []Turn
	User    string
}

// Reply is a successful completion result. Notices carry human-readable
// escalation messages (e.g. a key switch) to deliver before the reply text.
type Reply struct {
	Text       string
	Notices    []string
	Model      string
	Credential string
}

// Exchange is one completed user/assistant round trip, recorded for auditing.
type Exchange struct {
	ID           string
	ChannelID    string
	UserContent  string
	ReplyContent string
	Model        string
	Credential   string
	Duration     time.Duration
	CreatedAt    time.Time
}
