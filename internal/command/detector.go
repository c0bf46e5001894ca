// Package command classifies raw message text as command invocations so the
// response pipeline can avoid answering a control command with a model call.
// Actual command execution is the platform router's job; this package only
// answers "is this a command?".
package command

import "strings"

// Detect reports whether text invokes any of the named commands.
//
// Two forms are recognized against the trimmed text:
//
//  1. Prefix form: the text begins with the marker immediately followed by a
//     command name, e.g. "!forget".
//  2. Suffix form: after stripping one trailing marker and surrounding
//     whitespace, the text case-insensitively equals a command name. This
//     tolerates typos like "forget !" or "ASSIGN!".
func Detect(text, marker string, names []string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || marker == "" {
		return false
	}

	for _, name := range names {
		if strings.HasPrefix(trimmed, marker+name) {
			return true
		}
	}

	if !strings.HasSuffix(trimmed, marker) {
		return false
	}
	bare := strings.TrimSpace(strings.TrimSuffix(trimmed, marker))
	for _, name := range names {
		if strings.EqualFold(bare, name) {
			return true
		}
	}
	return false
}
