package transcript

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/agartha-dev/otenz/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "transcripts.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveExchange(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ex := &domain.Exchange{
		ID:           "ex_test-1",
		ChannelID:    "chan-1",
		UserContent:  "hello",
		ReplyContent: "hi back",
		Model:        "llama-3.3-70b-versatile",
		Credential:   "primary",
		Duration:     340 * time.Millisecond,
	}
	if err := s.SaveExchange(ctx, ex); err != nil {
		t.Fatalf("SaveExchange() error = %v", err)
	}
	if ex.CreatedAt.IsZero() {
		t.Error("CreatedAt not backfilled")
	}

	n, err := s.CountExchanges(ctx, "chan-1")
	if err != nil {
		t.Fatalf("CountExchanges() error = %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}

	n, err = s.CountExchanges(ctx, "other-chan")
	if err != nil {
		t.Fatalf("CountExchanges() error = %v", err)
	}
	if n != 0 {
		t.Errorf("count for other channel = %d, want 0", n)
	}
}

func TestRecord(t *testing.T) {
	s := openTestStore(t)

	ex := &domain.Exchange{
		ChannelID:    "chan-1",
		UserContent:  "q",
		ReplyContent: "a",
		Model:        "m",
		Credential:   "primary",
	}
	Record(s, slog.Default(), ex)

	if ex.ID == "" {
		t.Error("Record did not assign an ID")
	}
	n, err := s.CountExchanges(context.Background(), "chan-1")
	if err != nil {
		t.Fatalf("CountExchanges() error = %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestRecord_NilStoreIsNoop(t *testing.T) {
	// Must not panic.
	Record(nil, slog.Default(), &domain.Exchange{ChannelID: "chan-1"})
}
