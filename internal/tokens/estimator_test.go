package tokens

import (
	"strings"
	"testing"

	"github.com/agartha-dev/otenz/internal/domain"
)

func TestPromptTokens(t *testing.T) {
	est, err := NewEstimator()
	if err != nil {
		t.Fatalf("NewEstimator() error = %v", err)
	}

	small := est.PromptTokens(domain.Prompt{
		System: "You are a helpful assistant.",
		User:   "hello",
	})
	if small <= 0 {
		t.Fatalf("expected positive estimate, got %d", small)
	}

	large := est.PromptTokens(domain.Prompt{
		System: "You are a helpful assistant.",
		History: []domain.Turn{
			{Role: domain.RoleUser, Content: strings.Repeat("lorem ipsum ", 50)},
			{Role: domain.RoleAssistant, Content: strings.Repeat("dolor sit amet ", 50)},
		},
		User: "hello",
	})
	if large <= small {
		t.Errorf("estimate did not grow with history: small=%d large=%d", small, large)
	}
}
