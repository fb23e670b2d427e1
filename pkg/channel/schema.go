package channel

import (
	"fmt"
	"strings"
)

// Name returns the pub/sub channel for a match.
// Pattern: hecto:{namespace}:game-{match_id}
func Name(namespace, matchID string) string {
	return fmt.Sprintf("hecto:%s:game-%s", namespace, matchID)
}

// MatchID extracts the match id from a channel name produced by Name for the
// same namespace.
func MatchID(namespace, channelID string) (string, bool) {
	prefix := fmt.Sprintf("hecto:%s:game-", namespace)
	if !strings.HasPrefix(channelID, prefix) || len(channelID) == len(prefix) {
		return "", false
	}
	return strings.TrimPrefix(channelID, prefix), true
}
