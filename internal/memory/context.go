package memory

import (
	"strings"
	"unicode/utf8"
)

// Context-assembly bounds. The completion prompt carries at most the
// last contextTurns stored turns; if the joined text still exceeds
// maxContextLength it retries with reducedTurns, then hard-truncates.
const (
	maxContextLength = 2000
	contextTurns     = 10
	reducedTurns     = 6
)

// BuildContext joins recent history with the current message into the
// conversation block sent to the completion API. Pure function: the
// caller fetches history from the store.
//
// The current message is tagged with userTag so it reads the same way
// as stored turns.
func BuildContext(history []string, currentMessage, userTag string) string {
	current := userTag + ": " + currentMessage
	if len(history) == 0 {
		return current
	}

	joined := joinRecent(history, contextTurns, current)
	if len(joined) <= maxContextLength {
		return joined
	}

	joined = joinRecent(history, reducedTurns, current)
	if len(joined) <= maxContextLength {
		return joined
	}

	// Still over: keep the most recent maxContextLength bytes, moving
	// the cut forward so it never lands inside a multi-byte rune.
	cut := len(joined) - maxContextLength
	for cut < len(joined) && !utf8.RuneStart(joined[cut]) {
		cut++
	}
	return joined[cut:]
}

func joinRecent(history []string, n int, current string) string {
	if len(history) > n {
		history = history[len(history)-n:]
	}
	parts := make([]string, 0, len(history)+1)
	parts = append(parts, history...)
	parts = append(parts, current)
	return strings.Join(parts, "\n")
}
