package httpapi

import (
	"fmt"
	"strings"
)

// validateMessages checks the request's messages for the same structural
// requirements the upstream itself enforces, so a malformed request is
// rejected with a clear 400 before it is ever translated or dispatched.
func validateMessages(messages []MessageIn) error {
	for i, m := range messages {
		if err := validateMessage(m); err != nil {
			return fmt.Errorf("messages[%d]: %w", i, err)
		}
	}
	return nil
}

func validateMessage(m MessageIn) error {
	role := strings.ToLower(m.Role)
	if role != "user" && role != "assistant" {
		return fmt.Errorf("role must be \"user\" or \"assistant\", got %q", m.Role)
	}
	if len(m.Blocks) == 0 {
		return fmt.Errorf("content must not be empty (role: %s)", m.Role)
	}
	for i, b := range m.Blocks {
		if err := validateBlock(b); err != nil {
			return fmt.Errorf("content[%d]: %w", i, err)
		}
	}
	return nil
}

func validateBlock(b ContentBlock) error {
	switch b.Type {
	case "text":
		if b.Text == "" {
			return fmt.Errorf("text block has empty text")
		}
	case "tool_use":
		if b.Name == "" {
			return fmt.Errorf("tool_use block missing name")
		}
		if b.ID == "" {
			return fmt.Errorf("tool_use block missing id")
		}
	case "tool_result":
		if b.ToolUseID == "" {
			return fmt.Errorf("tool_result block missing tool_use_id")
		}
	case "image":
		if b.Source == nil || b.Source.Data == "" {
			return fmt.Errorf("image block missing source data")
		}
		if b.Source.MediaType == "" {
			return fmt.Errorf("image block missing source media_type")
		}
	case "":
		return fmt.Errorf("block missing type")
	default:
		// unknown block types pass through; the upstream rejects what it
		// doesn't understand rather than this layer guessing at the set.
	}
	return nil
}
