// Package httpapi implements the client-facing HTTP surface: model listing,
// the messages endpoint in both streaming and buffered (CC) variants, and
// token counting.
package httpapi

import "encoding/json"

// ContentBlock is one element of a Client Protocol message's content array.
// Only the fields relevant to a given Type are populated.
type ContentBlock struct {
	Type string `json:"type"`

	Text string `json:"text,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`

	// image
	Source *ImageSource `json:"source,omitempty"`
}

// ImageSource carries a base64-encoded image payload.
type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// MessageIn is one entry of the request's messages array. Content is either
// a bare string or a ContentBlock array; UnmarshalJSON normalizes both into
// Blocks.
type MessageIn struct {
	Role   string
	Blocks []ContentBlock
}

func (m *MessageIn) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Role = raw.Role

	var asString string
	if err := json.Unmarshal(raw.Content, &asString); err == nil {
		m.Blocks = []ContentBlock{{Type: "text", Text: asString}}
		return nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(raw.Content, &blocks); err != nil {
		return err
	}
	m.Blocks = blocks
	return nil
}

// ToolDef mirrors a client-declared tool.
type ToolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// ThinkingConfig is the request's optional extended-thinking directive.
type ThinkingConfig struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens"`
}

// OutputConfig carries the effort override used by adaptive thinking.
type OutputConfig struct {
	Effort string `json:"effort,omitempty"`
}

// Metadata is the request's free-form client metadata.
type Metadata struct {
	UserID string `json:"user_id,omitempty"`
}

// MessagesRequest is the body of POST /v1/messages and /cc/v1/messages.
type MessagesRequest struct {
	Model        string          `json:"model"`
	System       string          `json:"system,omitempty"`
	Messages     []MessageIn     `json:"messages"`
	Tools        []ToolDef       `json:"tools,omitempty"`
	ToolChoice   json.RawMessage `json:"tool_choice,omitempty"`
	MaxTokens    int             `json:"max_tokens"`
	Stream       bool            `json:"stream"`
	Thinking     *ThinkingConfig `json:"thinking,omitempty"`
	Metadata     *Metadata       `json:"metadata,omitempty"`
	OutputConfig *OutputConfig   `json:"output_config,omitempty"`
}

// CountTokensRequest is the body of POST /v1/messages/count_tokens.
type CountTokensRequest struct {
	Model    string      `json:"model"`
	System   string      `json:"system,omitempty"`
	Messages []MessageIn `json:"messages"`
	Tools    []ToolDef   `json:"tools,omitempty"`
}

// CountTokensResponse is the count_tokens response body.
type CountTokensResponse struct {
	InputTokens int `json:"input_tokens"`
}

// Model describes one entry of GET /v1/models.
type Model struct {
	ID                  string `json:"id"`
	Object              string `json:"object"`
	Created             int64  `json:"created"`
	OwnedBy             string `json:"owned_by"`
	DisplayName         string `json:"display_name"`
	ModelType           string `json:"model_type"`
	MaxTokens           int    `json:"max_tokens"`
	ContextLength       int    `json:"context_length"`
	MaxCompletionTokens int    `json:"max_completion_tokens"`
	Thinking            bool   `json:"thinking"`
}

// ModelsResponse is the body of GET /v1/models.
type ModelsResponse struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}

// NonStreamResponse is the non-streaming /v1/messages response body.
type NonStreamResponse struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	Role         string          `json:"role"`
	Content      []ContentBlock  `json:"content"`
	Model        string          `json:"model"`
	StopReason   string          `json:"stop_reason"`
	StopSequence json.RawMessage `json:"stop_sequence"`
	Usage        Usage           `json:"usage"`
}

// Usage mirrors the client-facing usage object.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
