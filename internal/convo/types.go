// Package convo holds the per-request conversation payload the gateway
// translates into an upstream dispatch and back into client-facing events.
package convo

import "encoding/json"

// Image carries a raw image attachment plus its declared MIME type.
type Image struct {
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// ToolSpec is a tool declaration offered to the model for a call.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// ToolUse is an assistant-issued call to one of the declared tools.
type ToolUse struct {
	ToolUseID string          `json:"tool_use_id"`
	Name      string          `json:"name"`
	Input     json.RawMessage `json:"input"`
}

// ToolResultBlock is one content block of a ToolResult.
type ToolResultBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ToolResult is the user-side reply carrying a tool_use's output.
type ToolResult struct {
	ToolUseID string            `json:"tool_use_id"`
	Content   []ToolResultBlock `json:"content"`
}

// UserMessage is one user turn. Content is never empty; a single space is
// the placeholder for turns that carry only tool results.
type UserMessage struct {
	Content     string       `json:"content"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
	Tools       []ToolSpec   `json:"tools,omitempty"`
	Images      []Image      `json:"images,omitempty"`
}

// AssistantMessage is one assistant turn.
type AssistantMessage struct {
	Content  string    `json:"content"`
	ToolUses []ToolUse `json:"tool_uses,omitempty"`
}

// Role distinguishes the two Message variants.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a tagged union over UserMessage / AssistantMessage. Exactly one
// of User / Assistant is populated, selected by Role.
type Message struct {
	Role      Role              `json:"role"`
	User      *UserMessage      `json:"user,omitempty"`
	Assistant *AssistantMessage `json:"assistant,omitempty"`
}

// NewUserMessage wraps a UserMessage as a history Message.
func NewUserMessage(m UserMessage) Message {
	return Message{Role: RoleUser, User: &m}
}

// NewAssistantMessage wraps an AssistantMessage as a history Message.
func NewAssistantMessage(m AssistantMessage) Message {
	return Message{Role: RoleAssistant, Assistant: &m}
}

// Content returns the message's text content regardless of role.
func (m Message) Content() string {
	if m.User != nil {
		return m.User.Content
	}
	if m.Assistant != nil {
		return m.Assistant.Content
	}
	return ""
}

// SetContent replaces the message's text content in place.
func (m *Message) SetContent(s string) {
	switch {
	case m.User != nil:
		m.User.Content = s
	case m.Assistant != nil:
		m.Assistant.Content = s
	}
}

// ConversationState is the root payload normalized from a client request and
// dispatched, after compression, to the upstream.
type ConversationState struct {
	ConversationID string    `json:"conversation_id"`
	History        []Message `json:"history"`
	CurrentMessage UserMessage `json:"current_message"`
}

// Clone makes a deep copy so compression passes never alias the caller's
// original conversation state.
func (c ConversationState) Clone() ConversationState {
	out := ConversationState{
		ConversationID: c.ConversationID,
		History:        make([]Message, len(c.History)),
		CurrentMessage: cloneUserMessage(c.CurrentMessage),
	}
	for i, m := range c.History {
		out.History[i] = cloneMessage(m)
	}
	return out
}

func cloneMessage(m Message) Message {
	out := Message{Role: m.Role}
	if m.User != nil {
		u := cloneUserMessage(*m.User)
		out.User = &u
	}
	if m.Assistant != nil {
		a := cloneAssistantMessage(*m.Assistant)
		out.Assistant = &a
	}
	return out
}

func cloneUserMessage(u UserMessage) UserMessage {
	out := u
	if u.ToolResults != nil {
		out.ToolResults = make([]ToolResult, len(u.ToolResults))
		for i, r := range u.ToolResults {
			rc := r
			rc.Content = append([]ToolResultBlock(nil), r.Content...)
			out.ToolResults[i] = rc
		}
	}
	if u.Tools != nil {
		out.Tools = append([]ToolSpec(nil), u.Tools...)
	}
	if u.Images != nil {
		out.Images = append([]Image(nil), u.Images...)
	}
	return out
}

func cloneAssistantMessage(a AssistantMessage) AssistantMessage {
	out := a
	if a.ToolUses != nil {
		out.ToolUses = append([]ToolUse(nil), a.ToolUses...)
	}
	return out
}
