// Package tokens estimates prompt sizes so the gateway can log how close a
// conversation is getting to the model's context window.
package tokens

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"

	"github.com/agartha-dev/otenz/internal/domain"
)

// Per-message overhead for chat-format prompts, per OpenAI's accounting:
// three tokens of message framing plus one for the role, and three tokens of
// assistant priming at the end.
const (
	tokensPerMessage = 3
	tokensPerRole    = 1
	tokensPriming    = 3
)

// Estimator counts prompt tokens with a cl100k_base codec. Llama-family
// models tokenize differently, so counts are an estimate for logging, not an
// enforcement mechanism.
type Estimator struct {
	codec tokenizer.Codec
}

// NewEstimator builds an estimator.
func NewEstimator() (*Estimator, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, fmt.Errorf("failed to get tokenizer encoding: %w", err)
	}
	return &Estimator{codec: codec}, nil
}

// PromptTokens estimates the token count of a full prompt: system persona,
// history turns, and the current user turn.
func (e *Estimator) PromptTokens(p domain.Prompt) int {
	total := e.messageTokens(p.System)
	for _, turn := range p.History {
		total += e.messageTokens(turn.Content)
	}
	total += e.messageTokens(p.User)
	return total + tokensPriming
}

func (e *Estimator) messageTokens(content string) int {
	ids, _, _ := e.codec.Encode(content)
	return tokensPerMessage + tokensPerRole + len(ids)
}
