package domain

import "context"

// Completer produces a model reply for a prompt, or fails after exhausting
// whatever fallback strategy the implementation carries.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (*Reply, error)
}

// Sender delivers text to a destination channel on the chat platform.
// Typing is a best-effort hint that a reply is being prepared.
type Sender interface {
	Send(channelID, text string) error
	Typing(channelID string)
}

// TranscriptStore persists completed exchanges. Implementations are
// best-effort: callers never fail the reply path on a store error.
type TranscriptStore interface {
	SaveExchange(ctx context.Context, ex *Exchange) error
	Close() error
}
