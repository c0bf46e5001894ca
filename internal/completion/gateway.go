// Package completion wraps the hosted completion endpoint behind a uniform
// call contract and an escalation ladder across credentials and models.
package completion

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agartha-dev/otenz/internal/domain"
	"github.com/agartha-dev/otenz/internal/tokens"
)

const (
	// DefaultReplyLimit is the downstream channel's message-size ceiling.
	DefaultReplyLimit = 2000

	// DefaultAttemptTimeout bounds a single endpoint call. Timeouts count as
	// failures for ladder escalation.
	DefaultAttemptTimeout = 60 * time.Second

	ellipsis = "..."
)

// Credential is one API key in the escalation ladder. The label shows up in
// logs and escalation notices; the key never does.
type Credential struct {
	Label string
	Key   string
}

// Params are the fixed generation knobs sent with every call.
type Params struct {
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// rung is one attemptable (credential, model) pair.
type rung struct {
	client     chatClient
	credential string
	model      string
}

// Gateway walks an ordered ladder of (credential, model) rungs until one call
// succeeds or all are exhausted. Escalation is sticky for the process
// lifetime: once the ladder has moved past a rung, later calls start at the
// new position and never retry earlier rungs.
type Gateway struct {
	rungs      []rung
	params     Params
	limit      int
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
	est        *tokens.Estimator

	mu    sync.Mutex
	start int
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client for every rung, used by tests to
// inject a recording transport.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(g *Gateway) {
		g.httpClient = httpClient
	}
}

// WithEstimator enables prompt token estimation logging.
func WithEstimator(est *tokens.Estimator) Option {
	return func(g *Gateway) {
		g.est = est
	}
}

// WithReplyLimit overrides the reply-size ceiling.
func WithReplyLimit(limit int) Option {
	return func(g *Gateway) {
		g.limit = limit
	}
}

// WithAttemptTimeout overrides the per-attempt timeout.
func WithAttemptTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		g.timeout = d
	}
}

// New creates a gateway from an ordered credential ladder and an ordered
// model ladder. Rungs are credential-major: all models are tried under a
// credential before escalating to the next one. At least one credential and
// one model are required.
func New(creds []Credential, models []string, baseURL string, params Params, opts ...Option) (*Gateway, error) {
	if len(creds) == 0 {
		return nil, fmt.Errorf("at least one credential is required")
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("at least one model is required")
	}

	g := &Gateway{
		params:  params,
		limit:   DefaultReplyLimit,
		timeout: DefaultAttemptTimeout,
		logger:  slog.Default(),
		tracer:  otel.Tracer("completion"),
	}
	for _, opt := range opts {
		opt(g)
	}

	for _, cred := range creds {
		client := newClient(cred.Key, baseURL, g.httpClient)
		for _, model := range models {
			g.rungs = append(g.rungs, rung{client: client, credential: cred.Label, model: model})
		}
	}
	return g, nil
}

// Complete walks the ladder from the current sticky position. On success the
// reply text is whitespace-trimmed and truncated to the reply limit; when the
// successful rung differs from the starting rung, a human-readable escalation
// notice is attached for delivery alongside the reply.
func (g *Gateway) Complete(ctx context.Context, p domain.Prompt) (*domain.Reply, error) {
	msgs := toMessages(p)

	if g.est != nil {
		g.logger.Debug("prompt assembled",
			slog.Int("messages", len(msgs)),
			slog.Int("estimated_tokens", g.est.PromptTokens(p)),
		)
	}

	g.mu.Lock()
	start := g.start
	g.mu.Unlock()

	var lastErr error
	for i := start; i < len(g.rungs); i++ {
		r := g.rungs[i]
		if i > start {
			// Sticky escalation: later calls begin at this rung.
			g.activate(i)
		}

		text, err := g.attempt(ctx, r, msgs)
		if err != nil {
			lastErr = err
			g.logger.Warn("completion attempt failed",
				slog.String("credential", r.credential),
				slog.String("model", r.model),
				slog.String("error", err.Error()),
			)
			continue
		}

		reply := &domain.Reply{
			Text:       truncate(strings.TrimSpace(text), g.limit),
			Model:      r.model,
			Credential: r.credential,
		}
		if i > start {
			reply.Notices = append(reply.Notices, escalationNotice(g.rungs[start], r))
		}
		return reply, nil
	}

	return nil, fmt.Errorf("all completion rungs exhausted: %w", lastErr)
}

func (g *Gateway) attempt(ctx context.Context, r rung, msgs []openai.ChatCompletionMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	ctx, span := g.tracer.Start(ctx, "completion.attempt", trace.WithAttributes(
		attribute.String("credential", r.credential),
		attribute.String("model", r.model),
	))
	defer span.End()

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.model,
		Messages:    msgs,
		MaxTokens:   g.params.MaxTokens,
		Temperature: g.params.Temperature,
		TopP:        g.params.TopP,
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("completion call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		span.SetStatus(codes.Error, "no choices")
		return "", fmt.Errorf("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// activate advances the sticky ladder position. It never moves backward, so
// a rung that has been escalated past stays retired for the process lifetime.
func (g *Gateway) activate(i int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if i > g.start {
		g.start = i
		r := g.rungs[i]
		g.logger.Info("escalated completion ladder",
			slog.String("credential", r.credential),
			slog.String("model", r.model),
		)
	}
}

func escalationNotice(from, to rung) string {
	if from.credential != to.credential {
		return "(switched to backup key — still alive fr fr)"
	}
	return "(switched to fallback model — still alive fr fr)"
}

func toMessages(p domain.Prompt) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(p.History)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: p.System,
	})
	for _, turn := range p.History {
		role := openai.ChatMessageRoleUser
		if turn.Role == domain.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: p.User,
	})
	return msgs
}

// truncate caps s at limit runes, replacing the tail with an ellipsis so the
// result is exactly limit runes long.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-len(ellipsis)]) + ellipsis
}
