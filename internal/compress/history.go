package compress

import "github.com/relaygate/gateway/internal/convo"

const systemPairLen = 2

// TrimHistory removes complete oldest turns (one user + one assistant
// message) past the protected system pair until both the turn-count and
// character-count budgets are satisfied. It never removes history[0:2] and
// never reduces history below 4 messages (system pair + one turn).
func TrimHistory(history []convo.Message, maxTurns, maxChars int) ([]convo.Message, int) {
	bytesSaved := 0

	if maxTurns > 0 {
		for len(history) > systemPairLen+2*maxTurns && len(history) > 4 {
			removed := history[systemPairLen : systemPairLen+2]
			for _, m := range removed {
				bytesSaved += len(m.Content())
			}
			history = dropTurn(history)
		}
	}

	if maxChars > 0 {
		for totalHistoryChars(history) > maxChars && len(history) > 4 {
			removed := history[systemPairLen : systemPairLen+2]
			for _, m := range removed {
				bytesSaved += len(m.Content())
			}
			history = dropTurn(history)
		}
	}

	return history, bytesSaved
}

func dropTurn(history []convo.Message) []convo.Message {
	out := make([]convo.Message, 0, len(history)-2)
	out = append(out, history[:systemPairLen]...)
	out = append(out, history[systemPairLen+2:]...)
	return out
}

func totalHistoryChars(history []convo.Message) int {
	total := 0
	for _, m := range history {
		total += len([]rune(m.Content()))
	}
	return total
}
