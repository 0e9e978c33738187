// Package compress implements C1 (whitespace/thinking/tool-payload
// compressors), C2 (pairing repair), and C3 (the adaptive shrink loop).
package compress

import "github.com/relaygate/gateway/internal/convo"

// Stats accumulates the bytes saved by each pass, in run order, so callers
// can log the density of one compression run the way the original's
// tracing::debug! calls report per-pass savings.
type Stats struct {
	WhitespaceSaved     int
	ThinkingSaved       int
	ToolResultSaved     int
	ToolUseInputSaved   int
	HistorySaved        int
	ToolResultsRemoved  int
	ToolUsesRemoved     int
}

// TotalSaved sums every pass's byte savings.
func (s Stats) TotalSaved() int {
	return s.WhitespaceSaved + s.ThinkingSaved + s.ToolResultSaved + s.ToolUseInputSaved + s.HistorySaved
}

// Compress runs C1's fixed pass order against state, then C2's pairing
// repair, mutating state in place. This is the single entry point the
// adaptive loop (C3) reruns every iteration.
func Compress(state *convo.ConversationState, cfg convo.CompressionConfig) Stats {
	var stats Stats
	if !cfg.Enabled {
		return stats
	}

	if cfg.WhitespaceCompression {
		stats.WhitespaceSaved += compressWhitespace(state)
	}

	stats.ThinkingSaved += compressThinking(state, cfg.ThinkingStrategy)

	if cfg.ToolResultMaxChars > 0 {
		stats.ToolResultSaved += compressToolResults(state, cfg.ToolResultMaxChars, cfg.ToolResultHeadLines, cfg.ToolResultTailLines)
	}

	if cfg.ToolUseInputMaxChars > 0 {
		stats.ToolUseInputSaved += compressToolUseInputs(state, cfg.ToolUseInputMaxChars)
	}

	trimmed, historySaved := TrimHistory(state.History, cfg.MaxHistoryTurns, cfg.MaxHistoryChars)
	state.History = trimmed
	stats.HistorySaved += historySaved

	stats.ToolResultsRemoved, stats.ToolUsesRemoved = RepairPairing(state)

	return stats
}

func compressWhitespace(state *convo.ConversationState) int {
	saved := 0
	for i := range state.History {
		m := &state.History[i]
		content, n := Whitespace(m.Content())
		m.SetContent(content)
		saved += n
	}
	content, n := Whitespace(state.CurrentMessage.Content)
	state.CurrentMessage.Content = content
	saved += n
	return saved
}

func compressThinking(state *convo.ConversationState, strategy string) int {
	saved := 0
	for i := range state.History {
		m := &state.History[i]
		if m.Assistant == nil {
			continue
		}
		content, n := Thinking(m.Assistant.Content, strategy)
		m.Assistant.Content = content
		saved += n
	}
	return saved
}

func compressToolResults(state *convo.ConversationState, maxChars, headLines, tailLines int) int {
	saved := 0
	apply := func(results []convo.ToolResult) {
		for i := range results {
			for j := range results[i].Content {
				if results[i].Content[j].Text == "" {
					continue
				}
				text, n := ToolResultText(results[i].Content[j].Text, maxChars, headLines, tailLines)
				results[i].Content[j].Text = text
				saved += n
			}
		}
	}
	for i := range state.History {
		if state.History[i].User != nil {
			apply(state.History[i].User.ToolResults)
		}
	}
	apply(state.CurrentMessage.ToolResults)
	return saved
}

func compressToolUseInputs(state *convo.ConversationState, maxChars int) int {
	saved := 0
	for i := range state.History {
		a := state.History[i].Assistant
		if a == nil {
			continue
		}
		for j := range a.ToolUses {
			input, n := ToolUseInput(a.ToolUses[j].Input, maxChars)
			a.ToolUses[j].Input = input
			saved += n
		}
	}
	return saved
}
