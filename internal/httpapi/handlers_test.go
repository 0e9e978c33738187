package httpapi

import "testing"

func TestApplyModelThinkingSuffixAdaptiveForSonnet46(t *testing.T) {
	t.Parallel()
	req := MessagesRequest{Model: "claude-sonnet-4-6-thinking-high"}
	applyModelThinkingSuffix(&req)

	if req.Model != "claude-sonnet-4-6" {
		t.Errorf("expected suffix stripped, got %q", req.Model)
	}
	if req.Thinking == nil || req.Thinking.Type != "adaptive" {
		t.Fatalf("expected adaptive thinking, got %+v", req.Thinking)
	}
	if req.OutputConfig == nil || req.OutputConfig.Effort != "high" {
		t.Errorf("expected effort=high, got %+v", req.OutputConfig)
	}
}

func TestApplyModelThinkingSuffixEnabledForOtherModels(t *testing.T) {
	t.Parallel()
	req := MessagesRequest{Model: "claude-haiku-4-thinking-low"}
	applyModelThinkingSuffix(&req)

	if req.Thinking == nil || req.Thinking.Type != "enabled" {
		t.Fatalf("expected enabled thinking, got %+v", req.Thinking)
	}
	if req.Thinking.BudgetTokens != 1024 {
		t.Errorf("expected budget 1024, got %d", req.Thinking.BudgetTokens)
	}
	if req.OutputConfig != nil {
		t.Error("effort override should only apply to the adaptive case")
	}
}

func TestApplyModelThinkingSuffixNoMatchLeavesModelUnchanged(t *testing.T) {
	t.Parallel()
	req := MessagesRequest{Model: "claude-sonnet-4"}
	applyModelThinkingSuffix(&req)

	if req.Model != "claude-sonnet-4" {
		t.Errorf("model should be unchanged without a thinking suffix, got %q", req.Model)
	}
	if req.Thinking != nil {
		t.Error("thinking should not be set without a suffix")
	}
}

func TestCountRequestTokensFloorsAtOne(t *testing.T) {
	t.Parallel()
	got := countRequestTokens(CountTokensRequest{})
	if got != 1 {
		t.Errorf("expected a floor of 1 token, got %d", got)
	}
}
