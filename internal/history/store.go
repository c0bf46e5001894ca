package history

import (
	"sync"

	"github.com/agartha-dev/otenz/internal/domain"
)

// DefaultMaxTurns bounds per-conversation memory. Twelve turns keeps context
// useful without running into the model's token limit too fast.
const DefaultMaxTurns = 12

// Store is a bounded in-memory conversation log keyed by channel ID.
// Entries are appended only after a successful model call; the store itself
// never fails. The mutex guards the map, not the read-then-append sequence:
// two in-flight exchanges for the same channel may interleave, and the last
// append wins.
type Store struct {
	mu    sync.Mutex
	max   int
	turns map[string][]domain.Turn
}

// New creates a store that retains at most max turns per channel.
func New(max int) *Store {
	if max <= 0 {
		max = DefaultMaxTurns
	}
	return &Store{
		max:   max,
		turns: make(map[string][]domain.Turn),
	}
}

// Turns returns a copy of the recorded turns for a channel, oldest first.
// A channel with no history yields an empty slice.
func (s *Store) Turns(channelID string) []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	recorded := s.turns[channelID]
	out := make([]domain.Turn, len(recorded))
	copy(out, recorded)
	return out
}

// Append records one turn for a channel, evicting the oldest turns first
// when the bound is exceeded.
func (s *Store) Append(channelID string, role domain.Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recorded := append(s.turns[channelID], domain.Turn{Role: role, Content: content})
	if len(recorded) > s.max {
		recorded = recorded[len(recorded)-s.max:]
	}
	s.turns[channelID] = recorded
}

// Clear removes all turns for a channel. Clearing an unknown channel is a no-op.
func (s *Store) Clear(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.turns, channelID)
}
