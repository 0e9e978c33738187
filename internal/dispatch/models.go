package dispatch

import "strings"

// contextWindowTokens gives the per-model context-window size used to turn
// an upstream ContextUsage percentage into an absolute token count. Models
// not listed fall back to defaultContextWindow.
var contextWindowTokens = map[string]int{
	"claude-opus-4":    200_000,
	"claude-sonnet-4":  200_000,
	"claude-haiku-4":   200_000,
	"claude-3-7-sonnet": 200_000,
	"claude-3-5-sonnet": 200_000,
	"claude-3-5-haiku":  200_000,
	"claude-3-opus":     200_000,
}

const defaultContextWindow = 200_000

// ContextWindowFor returns the context-window token count for model,
// matching on a case-insensitive prefix since suffix/version qualifiers
// (dates, thinking suffixes) vary independently of the window size.
func ContextWindowFor(model string) int {
	lower := strings.ToLower(model)
	for prefix, window := range contextWindowTokens {
		if strings.HasPrefix(lower, prefix) {
			return window
		}
	}
	return defaultContextWindow
}

// thinkingBudgets maps a model-name thinking suffix to its token budget.
var thinkingBudgets = map[string]int{
	"-thinking-minimal": 512,
	"-thinking-low":     1024,
	"-thinking-medium":  8192,
	"-thinking-high":    24576,
	"-thinking-xhigh":   32768,
	"-thinking":         20000,
}

// thinkingSuffixOrder must be checked longest-suffix-first so "-thinking"
// doesn't shadow "-thinking-high" etc.
var thinkingSuffixOrder = []string{
	"-thinking-minimal",
	"-thinking-medium",
	"-thinking-xhigh",
	"-thinking-high",
	"-thinking-low",
	"-thinking",
}

// ThinkingOverride is the result of parsing a model name's thinking suffix.
type ThinkingOverride struct {
	Matched     bool
	BaseModel   string
	Type        string // "enabled" or "adaptive"
	BudgetTokens int
	Effort      string // set to "high" only when Type == "adaptive"
}

var adaptiveModelMarkers = []string{"4-6", "4.6"}

// ParseModelThinkingSuffix inspects model for a trailing thinking-level
// suffix and, when present, the opus/sonnet "4-6"/"4.6" adaptive-effort
// marker.
func ParseModelThinkingSuffix(model string) ThinkingOverride {
	lower := strings.ToLower(model)
	for _, suffix := range thinkingSuffixOrder {
		if !strings.HasSuffix(lower, suffix) {
			continue
		}
		base := model[:len(model)-len(suffix)]
		override := ThinkingOverride{
			Matched:      true,
			BaseModel:    base,
			Type:         "enabled",
			BudgetTokens: thinkingBudgets[suffix],
		}
		baseLower := strings.ToLower(base)
		isOpusOrSonnet := strings.Contains(baseLower, "opus") || strings.Contains(baseLower, "sonnet")
		if isOpusOrSonnet {
			for _, marker := range adaptiveModelMarkers {
				if strings.Contains(baseLower, marker) {
					override.Type = "adaptive"
					override.Effort = "high"
					break
				}
			}
		}
		return override
	}
	return ThinkingOverride{}
}
