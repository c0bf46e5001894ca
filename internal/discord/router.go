package discord

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// HandlerFunc executes one command invocation.
type HandlerFunc func(s *discordgo.Session, m *discordgo.MessageCreate, args []string)

// Router dispatches marker-prefixed commands to registered handlers. It runs
// after the orchestrator for every message; the orchestrator's command
// classification is advisory only and never short-circuits routing.
type Router struct {
	marker   string
	handlers map[string]HandlerFunc
	logger   *slog.Logger
}

// NewRouter creates a router for the given command marker.
func NewRouter(marker string, logger *slog.Logger) *Router {
	return &Router{
		marker:   marker,
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
	}
}

// Handle registers a command by name, without the marker.
func (r *Router) Handle(name string, fn HandlerFunc) {
	r.handlers[name] = fn
}

// Names returns the registered command names, sorted.
func (r *Router) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch parses the message and invokes a matching handler, if any.
// Non-command messages and unknown commands are ignored.
func (r *Router) Dispatch(s *discordgo.Session, m *discordgo.MessageCreate) {
	fields := strings.Fields(strings.TrimSpace(m.Content))
	if len(fields) == 0 || !strings.HasPrefix(fields[0], r.marker) {
		return
	}

	name := strings.TrimPrefix(fields[0], r.marker)
	fn, ok := r.handlers[name]
	if !ok {
		return
	}

	r.logger.Info("command invoked",
		slog.String("command", name),
		slog.String("channel_id", m.ChannelID),
		slog.String("author_id", m.Author.ID),
	)
	fn(s, m, fields[1:])
}
