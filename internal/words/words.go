// Package words implements the ambient random-word interjection: a
// low-probability canned line drawn from a preloaded list, unrelated to the
// model pipeline.
package words

import (
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
)

// DefaultOdds is the 1-in-N probability of an interjection per message.
const DefaultOdds = 50

// List holds the loaded word list and the roll probability.
type List struct {
	words []string
	odds  int
	rng   *rand.Rand
}

// Option configures a List.
type Option func(*List)

// WithRand sets a deterministic random source, used by tests.
func WithRand(r *rand.Rand) Option {
	return func(l *List) {
		l.rng = r
	}
}

// New creates a list that interjects with probability 1-in-odds.
func New(lines []string, odds int, opts ...Option) *List {
	if odds <= 0 {
		odds = DefaultOdds
	}
	l := &List{words: lines, odds: odds}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads one word or phrase per line, skipping blank lines.
func Load(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read word list: %w", err)
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// Roll draws the interjection chance and, on a hit, returns a uniformly
// chosen line. It never hits when the list is empty.
func (l *List) Roll() (string, bool) {
	if len(l.words) == 0 {
		return "", false
	}
	if l.intN(l.odds) != 0 {
		return "", false
	}
	return l.words[l.intN(len(l.words))], true
}

func (l *List) intN(n int) int {
	if l.rng != nil {
		return l.rng.IntN(n)
	}
	return rand.IntN(n)
}
