package httpapi

import "github.com/relaygate/gateway/internal/dispatch"

// catalog is the static model list served by GET /v1/models. created is a
// fixed placeholder timestamp since the upstream doesn't expose one.
var catalog = []Model{
	{ID: "claude-opus-4", DisplayName: "Claude Opus 4", MaxTokens: 32000, MaxCompletionTokens: 32000, Thinking: true},
	{ID: "claude-sonnet-4", DisplayName: "Claude Sonnet 4", MaxTokens: 64000, MaxCompletionTokens: 64000, Thinking: true},
	{ID: "claude-haiku-4", DisplayName: "Claude Haiku 4", MaxTokens: 32000, MaxCompletionTokens: 32000, Thinking: false},
	{ID: "claude-3-7-sonnet", DisplayName: "Claude 3.7 Sonnet", MaxTokens: 64000, MaxCompletionTokens: 64000, Thinking: true},
	{ID: "claude-3-5-sonnet", DisplayName: "Claude 3.5 Sonnet", MaxTokens: 8192, MaxCompletionTokens: 8192, Thinking: false},
	{ID: "claude-3-5-haiku", DisplayName: "Claude 3.5 Haiku", MaxTokens: 8192, MaxCompletionTokens: 8192, Thinking: false},
}

const catalogCreated int64 = 1700000000

func listModels() ModelsResponse {
	out := make([]Model, len(catalog))
	for i, m := range catalog {
		m.Object = "model"
		m.Created = catalogCreated
		m.OwnedBy = "relaygate"
		m.ModelType = "chat"
		m.ContextLength = dispatch.ContextWindowFor(m.ID)
		out[i] = m
	}
	return ModelsResponse{Object: "list", Data: out}
}
