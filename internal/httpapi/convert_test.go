package httpapi

import (
	"encoding/json"
	"testing"
)

func TestToConversationStateBuildsSystemPair(t *testing.T) {
	t.Parallel()
	req := MessagesRequest{
		Model:  "claude-sonnet-4",
		System: "you are a helpful assistant",
		Messages: []MessageIn{
			{Role: "user", Blocks: []ContentBlock{{Type: "text", Text: "hello"}}},
		},
	}
	state := ToConversationState("conv_1", req)

	if len(state.History) != 2 {
		t.Fatalf("expected exactly the system pair in history, got %d entries", len(state.History))
	}
	if state.History[0].User.Content != req.System {
		t.Errorf("expected system prompt in history[0], got %q", state.History[0].User.Content)
	}
	if state.CurrentMessage.Content != "hello" {
		t.Errorf("expected last user message to become current_message, got %q", state.CurrentMessage.Content)
	}
}

func TestToConversationStateEmptySystemUsesPlaceholder(t *testing.T) {
	t.Parallel()
	req := MessagesRequest{
		Messages: []MessageIn{{Role: "user", Blocks: []ContentBlock{{Type: "text", Text: "hi"}}}},
	}
	state := ToConversationState("conv_2", req)
	if state.History[0].User.Content != placeholderContent {
		t.Errorf("expected placeholder system content, got %q", state.History[0].User.Content)
	}
}

func TestMessageInUnmarshalsBareStringContent(t *testing.T) {
	t.Parallel()
	var m MessageIn
	if err := json.Unmarshal([]byte(`{"role":"user","content":"plain text"}`), &m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Blocks) != 1 || m.Blocks[0].Text != "plain text" {
		t.Errorf("expected a single text block, got %+v", m.Blocks)
	}
}

func TestMessageInUnmarshalsBlockArray(t *testing.T) {
	t.Parallel()
	var m MessageIn
	raw := `{"role":"assistant","content":[{"type":"text","text":"a"},{"type":"tool_use","id":"t1","name":"Read","input":{}}]}`
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Blocks) != 2 || m.Blocks[1].Type != "tool_use" {
		t.Errorf("expected 2 blocks with a tool_use, got %+v", m.Blocks)
	}
}

func TestToolResultContentAcceptsStringOrBlocks(t *testing.T) {
	t.Parallel()
	asString := toolResultContentBlocks(json.RawMessage(`"plain"`))
	if len(asString) != 1 || asString[0].Text != "plain" {
		t.Errorf("expected a single text block from a bare string, got %+v", asString)
	}

	asBlocks := toolResultContentBlocks(json.RawMessage(`[{"type":"text","text":"x"}]`))
	if len(asBlocks) != 1 || asBlocks[0].Text != "x" {
		t.Errorf("expected a single text block from a block array, got %+v", asBlocks)
	}
}
