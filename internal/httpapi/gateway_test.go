package httpapi

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/relaygate/gateway/internal/convo"
)

func TestConditionCompressesToolsOverThreshold(t *testing.T) {
	t.Parallel()
	g := &Gateway{CompressionConfig: convo.DefaultCompressionConfig(), Logger: zerolog.Nop()}

	bigDescription := strings.Repeat("word ", 6000)
	req := MessagesRequest{
		Model:    "claude-sonnet-4-6",
		Messages: []MessageIn{{Role: "user", Blocks: []ContentBlock{{Type: "text", Text: "hi"}}}},
		Tools: []ToolDef{
			{Name: "Search", Description: bigDescription, InputSchema: json.RawMessage(`{"type":"object","properties":{"query":{"type":"string","description":"` + strings.Repeat("x", 2000) + `"}},"required":["query"]}`)},
		},
	}

	state := ToConversationState(newConversationID(), req)
	body, err := g.condition(state)
	if err != nil {
		t.Fatalf("condition returned error: %v", err)
	}

	var decoded convo.ConversationState
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("conditioned payload must be valid JSON: %v", err)
	}
	if len(decoded.CurrentMessage.Tools) != 1 {
		t.Fatalf("expected one tool in the conditioned payload, got %d", len(decoded.CurrentMessage.Tools))
	}
	if got := len([]rune(decoded.CurrentMessage.Tools[0].Description)); got >= len([]rune(bigDescription)) {
		t.Errorf("expected tool description to shrink, got %d chars", got)
	}
	if got := len([]rune(decoded.CurrentMessage.Tools[0].Description)); got > g.CompressionConfig.ToolDescriptionMax {
		t.Errorf("tool description should respect ToolDescriptionMax=%d, got %d", g.CompressionConfig.ToolDescriptionMax, got)
	}
}

func TestConditionLeavesSmallToolListUntouched(t *testing.T) {
	t.Parallel()
	g := &Gateway{CompressionConfig: convo.DefaultCompressionConfig(), Logger: zerolog.Nop()}

	req := MessagesRequest{
		Model:    "claude-sonnet-4-6",
		Messages: []MessageIn{{Role: "user", Blocks: []ContentBlock{{Type: "text", Text: "hi"}}}},
		Tools:    []ToolDef{{Name: "Read", Description: "reads a file", InputSchema: json.RawMessage(`{"type":"object"}`)}},
	}

	state := ToConversationState(newConversationID(), req)
	body, err := g.condition(state)
	if err != nil {
		t.Fatalf("condition returned error: %v", err)
	}

	var decoded convo.ConversationState
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("conditioned payload must be valid JSON: %v", err)
	}
	if decoded.CurrentMessage.Tools[0].Description != "reads a file" {
		t.Errorf("small tool lists should not be compressed, got %q", decoded.CurrentMessage.Tools[0].Description)
	}
}
