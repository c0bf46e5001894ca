// Package orchestrator decides whether an inbound message gets a model
// response, assembles the bounded conversation context, invokes the
// completion gateway, and commits the exchange to history.
package orchestrator

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/agartha-dev/otenz/internal/command"
	"github.com/agartha-dev/otenz/internal/domain"
	"github.com/agartha-dev/otenz/internal/history"
	"github.com/agartha-dev/otenz/internal/transcript"
	"github.com/agartha-dev/otenz/internal/words"
)

const (
	// fillerContent stands in for a message that is empty once the mention
	// token is stripped (someone just pinged the bot).
	fillerContent = "hey"

	// failureNotice is sent when every completion rung has failed. The
	// source had one line per exhausted key; a single notice covers the
	// consolidated ladder.
	failureNotice = "Groq API down... no aura today :broken_heart::broken_heart::broken_heart:"
)

// Config carries the fixed identity and classification inputs.
type Config struct {
	// SelfID is the bot's own identity, used to break feedback loops.
	SelfID string
	// SystemPrompt is the persona text, immutable for the process lifetime.
	SystemPrompt string
	// Marker is the command prefix character.
	Marker string
	// Commands are the known command names for suppression classification.
	Commands []string
}

// Orchestrator handles one inbound message at a time. All cross-message
// state lives in the history store and the gateway's ladder position.
type Orchestrator struct {
	cfg         Config
	history     *history.Store
	completer   domain.Completer
	sender      domain.Sender
	interjector *words.List
	transcripts domain.TranscriptStore
	logger      *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithInterjections enables the ambient random-word interjection.
func WithInterjections(list *words.List) Option {
	return func(o *Orchestrator) {
		o.interjector = list
	}
}

// WithTranscripts enables best-effort exchange recording.
func WithTranscripts(store domain.TranscriptStore) Option {
	return func(o *Orchestrator) {
		o.transcripts = store
	}
}

// New creates an orchestrator.
func New(cfg Config, hist *history.Store, completer domain.Completer, sender domain.Sender, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:       cfg,
		history:   hist,
		completer: completer,
		sender:    sender,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// HandleMessage runs the decision sequence for one inbound message:
// self-guard, independent interjection roll, command classification,
// eligibility, then the respond path. Command execution itself is the
// platform router's job and runs after this returns, whatever happened here.
func (o *Orchestrator) HandleMessage(ctx context.Context, msg domain.Inbound) {
	if msg.AuthorID == o.cfg.SelfID {
		return
	}

	o.maybeInterject(msg.ChannelID)

	isCommand := command.Detect(msg.Content, o.cfg.Marker, o.cfg.Commands)
	eligible := (msg.GuildID == "" || msg.MentionsBot) && !isCommand
	if !eligible {
		return
	}

	o.respond(ctx, msg)
}

// maybeInterject rolls the ambient random-word chance. Independent of, and
// not exclusive with, the response path.
func (o *Orchestrator) maybeInterject(channelID string) {
	if o.interjector == nil {
		return
	}
	word, ok := o.interjector.Roll()
	if !ok {
		return
	}
	if err := o.sender.Send(channelID, word); err != nil {
		o.logger.Warn("failed to send interjection",
			slog.String("channel_id", channelID),
			slog.String("error", err.Error()),
		)
	}
}

func (o *Orchestrator) respond(ctx context.Context, msg domain.Inbound) {
	o.sender.Typing(msg.ChannelID)

	content := normalize(msg, o.cfg.SelfID)
	prompt := domain.Prompt{
		System:  o.cfg.SystemPrompt,
		History: o.history.Turns(msg.ChannelID),
		User:    content,
	}

	start := time.Now()
	reply, err := o.completer.Complete(ctx, prompt)
	if err != nil {
		// Total ladder failure: notify, and leave history untouched so the
		// next exchange does not carry error noise as context.
		o.logger.Error("completion failed",
			slog.String("channel_id", msg.ChannelID),
			slog.String("error", err.Error()),
		)
		if sendErr := o.sender.Send(msg.ChannelID, failureNotice); sendErr != nil {
			o.logger.Warn("failed to send failure notice", slog.String("error", sendErr.Error()))
		}
		return
	}

	for _, notice := range reply.Notices {
		if err := o.sender.Send(msg.ChannelID, notice); err != nil {
			o.logger.Warn("failed to send escalation notice", slog.String("error", err.Error()))
		}
	}
	if err := o.sender.Send(msg.ChannelID, reply.Text); err != nil {
		o.logger.Warn("failed to send reply",
			slog.String("channel_id", msg.ChannelID),
			slog.String("error", err.Error()),
		)
	}

	o.history.Append(msg.ChannelID, domain.RoleUser, content)
	o.history.Append(msg.ChannelID, domain.RoleAssistant, reply.Text)

	transcript.Record(o.transcripts, o.logger, &domain.Exchange{
		ChannelID:    msg.ChannelID,
		UserContent:  content,
		ReplyContent: reply.Text,
		Model:        reply.Model,
		Credential:   reply.Credential,
		Duration:     time.Since(start),
	})
}

// normalize strips the bot's mention token when present and substitutes a
// filler for messages that are empty afterwards.
func normalize(msg domain.Inbound, selfID string) string {
	content := msg.Content
	if msg.MentionsBot {
		content = strings.ReplaceAll(content, "<@"+selfID+">", "")
		content = strings.ReplaceAll(content, "<@!"+selfID+">", "")
		content = strings.TrimSpace(content)
	}
	if strings.TrimSpace(content) == "" {
		return fillerContent
	}
	return content
}
