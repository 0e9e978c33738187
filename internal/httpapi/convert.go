package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/relaygate/gateway/internal/convo"
)

// placeholderContent is the legal stand-in for a user turn that carries
// only tool results.
const placeholderContent = " "

// ToConversationState normalizes a client request into the upstream
// conversation structure: items 0 and 1 of history are the synthesized
// system pair (a user message holding the system prompt, and an
// acknowledging assistant message), every earlier message in the request
// becomes a history entry, and the final user turn becomes current_message.
func ToConversationState(conversationID string, req MessagesRequest) *convo.ConversationState {
	history := make([]convo.Message, 0, len(req.Messages)+2)
	history = append(history,
		convo.NewUserMessage(convo.UserMessage{Content: systemOrPlaceholder(req.System)}),
		convo.NewAssistantMessage(convo.AssistantMessage{Content: "Understood."}),
	)

	var current convo.UserMessage
	for i, m := range req.Messages {
		isLast := i == len(req.Messages)-1
		switch strings.ToLower(m.Role) {
		case "assistant":
			history = append(history, convo.NewAssistantMessage(blocksToAssistant(m.Blocks)))
		case "user":
			user := blocksToUser(m.Blocks)
			if isLast {
				current = user
				continue
			}
			history = append(history, convo.NewUserMessage(user))
		}
	}

	current.Tools = toolDefsToSpecs(req.Tools)
	if current.Content == "" {
		current.Content = placeholderContent
	}

	return &convo.ConversationState{
		ConversationID: conversationID,
		History:        history,
		CurrentMessage: current,
	}
}

func systemOrPlaceholder(system string) string {
	if system == "" {
		return placeholderContent
	}
	return system
}

func blocksToAssistant(blocks []ContentBlock) convo.AssistantMessage {
	var out convo.AssistantMessage
	var text strings.Builder
	for _, b := range blocks {
		switch b.Type {
		case "text":
			text.WriteString(b.Text)
		case "tool_use":
			out.ToolUses = append(out.ToolUses, convo.ToolUse{
				ToolUseID: b.ID,
				Name:      b.Name,
				Input:     b.Input,
			})
		}
	}
	out.Content = text.String()
	return out
}

func blocksToUser(blocks []ContentBlock) convo.UserMessage {
	var out convo.UserMessage
	var text strings.Builder
	for _, b := range blocks {
		switch b.Type {
		case "text":
			text.WriteString(b.Text)
		case "tool_result":
			out.ToolResults = append(out.ToolResults, convo.ToolResult{
				ToolUseID: b.ToolUseID,
				Content:   toolResultContentBlocks(b.Content),
			})
		case "image":
			if b.Source == nil {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(b.Source.Data)
			if err != nil {
				continue
			}
			out.Images = append(out.Images, convo.Image{MimeType: b.Source.MediaType, Data: data})
		}
	}
	out.Content = text.String()
	return out
}

// toolResultContentBlocks normalizes a tool_result's content, which the
// client may send as a bare string or a content-block array.
func toolResultContentBlocks(raw json.RawMessage) []convo.ToolResultBlock {
	if len(raw) == 0 {
		return nil
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return []convo.ToolResultBlock{{Type: "text", Text: asString}}
	}
	var blocks []convo.ToolResultBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		return blocks
	}
	return nil
}

func toolDefsToSpecs(tools []ToolDef) []convo.ToolSpec {
	if len(tools) == 0 {
		return nil
	}
	out := make([]convo.ToolSpec, len(tools))
	for i, t := range tools {
		out[i] = convo.ToolSpec{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema}
	}
	return out
}
