package compress

import "github.com/relaygate/gateway/internal/convo"

// RepairPairing enforces the pairing invariant after any pass that may have
// removed messages: every surviving tool_result must reference a tool_use
// still present in history, and every surviving tool_use must be referenced
// by a surviving tool_result. This is one-shot by construction — pruning
// tool_results in step one can only shrink the tool_use_ids a tool_use must
// match in step two, never grow it, so a second pass would change nothing.
func RepairPairing(state *convo.ConversationState) (toolResultsRemoved, toolUsesRemoved int) {
	used := map[string]bool{}
	for _, m := range state.History {
		if m.Assistant == nil {
			continue
		}
		for _, tu := range m.Assistant.ToolUses {
			used[tu.ToolUseID] = true
		}
	}

	pruneResults := func(results []convo.ToolResult) []convo.ToolResult {
		kept := results[:0:0]
		for _, r := range results {
			if used[r.ToolUseID] {
				kept = append(kept, r)
			} else {
				toolResultsRemoved++
			}
		}
		return kept
	}

	for i := range state.History {
		if state.History[i].User != nil {
			state.History[i].User.ToolResults = pruneResults(state.History[i].User.ToolResults)
		}
	}
	state.CurrentMessage.ToolResults = pruneResults(state.CurrentMessage.ToolResults)

	referenced := map[string]bool{}
	for _, m := range state.History {
		if m.User == nil {
			continue
		}
		for _, r := range m.User.ToolResults {
			referenced[r.ToolUseID] = true
		}
	}
	for _, r := range state.CurrentMessage.ToolResults {
		referenced[r.ToolUseID] = true
	}

	for i := range state.History {
		a := state.History[i].Assistant
		if a == nil || len(a.ToolUses) == 0 {
			continue
		}
		kept := a.ToolUses[:0:0]
		for _, tu := range a.ToolUses {
			if referenced[tu.ToolUseID] {
				kept = append(kept, tu)
			} else {
				toolUsesRemoved++
			}
		}
		if len(kept) == 0 {
			a.ToolUses = nil
		} else {
			a.ToolUses = kept
		}
	}

	return toolResultsRemoved, toolUsesRemoved
}
