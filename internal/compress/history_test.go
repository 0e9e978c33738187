package compress

import (
	"testing"

	"github.com/relaygate/gateway/internal/convo"
)

func buildHistory(turns int) []convo.Message {
	history := []convo.Message{
		convo.NewUserMessage(convo.UserMessage{Content: "system prompt"}),
		convo.NewAssistantMessage(convo.AssistantMessage{Content: "system ack"}),
	}
	for i := 0; i < turns; i++ {
		history = append(history,
			convo.NewUserMessage(convo.UserMessage{Content: "turn user"}),
			convo.NewAssistantMessage(convo.AssistantMessage{Content: "turn assistant"}),
		)
	}
	return history
}

func TestTrimHistoryPreservesSystemPair(t *testing.T) {
	t.Parallel()
	history := buildHistory(5)

	trimmed, _ := TrimHistory(history, 2, 0)

	if len(trimmed) != 6 {
		t.Fatalf("expected 6 messages (system pair + 2 turns), got %d", len(trimmed))
	}
	if trimmed[0].Content() != "system prompt" || trimmed[1].Content() != "system ack" {
		t.Error("system pair must be unchanged")
	}
}

func TestTrimHistoryNeverDropsBelowFourMessages(t *testing.T) {
	t.Parallel()
	history := buildHistory(1)

	trimmed, _ := TrimHistory(history, 0, 1)

	if len(trimmed) < 4 {
		t.Fatalf("must never drop below system pair + one turn, got %d", len(trimmed))
	}
}

func TestTrimHistoryByCharBudget(t *testing.T) {
	t.Parallel()
	history := buildHistory(10)

	trimmed, saved := TrimHistory(history, 0, 50)

	if saved <= 0 {
		t.Error("expected bytes saved from char-budget trimming")
	}
	if len(trimmed) < 4 {
		t.Errorf("must preserve at least system pair + one turn, got %d", len(trimmed))
	}
}
