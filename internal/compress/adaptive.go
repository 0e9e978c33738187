package compress

import (
	"encoding/json"
	"fmt"

	"github.com/relaygate/gateway/internal/convo"
)

const (
	maxIterations = 32

	toolResultFloor       = 512
	toolUseInputFloor     = 256
	messageContentFloor   = 8192

	shrinkRatioNumerator   = 3
	shrinkRatioDenominator = 4

	maxDrainPerIteration = 16

	longMessageMarkerFmt = "\n...[content truncated, %d chars omitted]"
)

// AdaptiveOutcome reports what the shrink loop actually did, mirroring the
// original's AdaptiveCompressionOutcome.
type AdaptiveOutcome struct {
	InitialBytes                  int
	FinalBytes                    int
	Iterations                    int
	AdditionalHistoryTurnsRemoved int
	FinalToolResultMaxChars       int
	FinalToolUseInputMaxChars     int
	FinalMessageContentMaxChars   int
}

// workingConfig is C3's mutable view over the three thresholds it lowers.
// Everything else in convo.CompressionConfig stays fixed for the request.
type workingConfig struct {
	toolResultMaxChars     int
	toolUseInputMaxChars   int
	messageContentMaxChars int
}

// Shrink drives C1+C2 iteratively against budgetBytes, lowering thresholds
// in the spec's fixed priority order and reserializing after each move. It
// never runs more than 32 iterations and stops early once the serialized
// form fits, or once a chosen move makes no further change.
func Shrink(state *convo.ConversationState, cfg convo.CompressionConfig, budgetBytes int) (AdaptiveOutcome, error) {
	serialized, err := serialize(state)
	if err != nil {
		return AdaptiveOutcome{}, err
	}
	outcome := AdaptiveOutcome{InitialBytes: len(serialized)}
	if budgetBytes <= 0 || len(serialized) <= budgetBytes {
		outcome.FinalBytes = len(serialized)
		return outcome, nil
	}

	work := workingConfig{
		toolResultMaxChars:     cfg.ToolResultMaxChars,
		toolUseInputMaxChars:   cfg.ToolUseInputMaxChars,
		messageContentMaxChars: initialMessageContentMax(state),
	}

	turnsRemoved := 0

	for iter := 0; iter < maxIterations; iter++ {
		outcome.Iterations = iter + 1

		changed, removedThisRound := applyNextMove(state, &work, budgetBytes)
		turnsRemoved += removedThisRound

		working := cfg
		working.ToolResultMaxChars = work.toolResultMaxChars
		working.ToolUseInputMaxChars = work.toolUseInputMaxChars
		Compress(state, working)

		serialized, err = serialize(state)
		if err != nil {
			return outcome, err
		}

		if len(serialized) <= budgetBytes || !changed {
			break
		}
	}

	outcome.FinalBytes = len(serialized)
	outcome.AdditionalHistoryTurnsRemoved = turnsRemoved
	outcome.FinalToolResultMaxChars = work.toolResultMaxChars
	outcome.FinalToolUseInputMaxChars = work.toolUseInputMaxChars
	outcome.FinalMessageContentMaxChars = work.messageContentMaxChars

	return outcome, nil
}

func serialize(state *convo.ConversationState) ([]byte, error) {
	return json.Marshal(state)
}

func initialMessageContentMax(state *convo.ConversationState) int {
	longest := 0
	walk := func(content string) {
		if n := len([]rune(content)); n > longest {
			longest = n
		}
	}
	for _, m := range state.History {
		if m.User != nil {
			walk(m.User.Content)
		}
	}
	walk(state.CurrentMessage.Content)

	v := longest * shrinkRatioNumerator / shrinkRatioDenominator
	if v < messageContentFloor {
		v = messageContentFloor
	}
	return v
}

// applyNextMove picks exactly one shrinking move per the spec's priority
// order and applies it to work / state. It reports whether anything
// actually changed and how many history messages it drained this round.
func applyNextMove(state *convo.ConversationState, work *workingConfig, budgetBytes int) (changed bool, turnsRemoved int) {
	if hasAnyToolResultOrTool(state) && work.toolResultMaxChars > toolResultFloor {
		next := ratio(work.toolResultMaxChars)
		if next < toolResultFloor {
			next = toolResultFloor
		}
		if next != work.toolResultMaxChars {
			work.toolResultMaxChars = next
			return true, 0
		}
	}

	if hasAnyToolUse(state) && work.toolUseInputMaxChars > toolUseInputFloor {
		next := ratio(work.toolUseInputMaxChars)
		if next < toolUseInputFloor {
			next = toolUseInputFloor
		}
		if next != work.toolUseInputMaxChars {
			work.toolUseInputMaxChars = next
			return true, 0
		}
	}

	historyAtMinimum := len(state.History) <= systemPairLen+2
	if (anySingleUserContentExceeds(state, budgetBytes) || historyAtMinimum) && work.messageContentMaxChars >= messageContentFloor {
		truncated := runLongMessagePass(state, work.messageContentMaxChars)
		next := ratio(work.messageContentMaxChars)
		if next < messageContentFloor {
			next = messageContentFloor
		}
		prev := work.messageContentMaxChars
		work.messageContentMaxChars = next
		if truncated || next != prev {
			return true, 0
		}
	}

	if len(state.History) > systemPairLen+4 {
		removed := drainOldest(state)
		if removed > 0 {
			return true, removed
		}
	}

	return false, 0
}

func ratio(current int) int {
	return current * shrinkRatioNumerator / shrinkRatioDenominator
}

func hasAnyToolResultOrTool(state *convo.ConversationState) bool {
	if len(state.CurrentMessage.ToolResults) > 0 || len(state.CurrentMessage.Tools) > 0 {
		return true
	}
	for _, m := range state.History {
		if m.User != nil && len(m.User.ToolResults) > 0 {
			return true
		}
	}
	return false
}

func hasAnyToolUse(state *convo.ConversationState) bool {
	for _, m := range state.History {
		if m.Assistant != nil && len(m.Assistant.ToolUses) > 0 {
			return true
		}
	}
	return false
}

func anySingleUserContentExceeds(state *convo.ConversationState, budgetBytes int) bool {
	if len(state.CurrentMessage.Content) > budgetBytes {
		return true
	}
	for _, m := range state.History {
		if m.User != nil && len(m.User.Content) > budgetBytes {
			return true
		}
	}
	return false
}

// runLongMessagePass truncates every user content exceeding maxChars
// (skipping the tool-results-only placeholder) and reports whether it
// changed anything.
func runLongMessagePass(state *convo.ConversationState, maxChars int) bool {
	changed := false
	apply := func(content string) (string, bool) {
		if content == placeholder {
			return content, false
		}
		runes := []rune(content)
		if len(runes) <= maxChars {
			return content, false
		}
		omitted := len(runes) - maxChars
		return string(runes[:maxChars]) + fmt.Sprintf(longMessageMarkerFmt, omitted), true
	}

	for i := range state.History {
		if state.History[i].User == nil {
			continue
		}
		next, did := apply(state.History[i].User.Content)
		if did {
			state.History[i].User.Content = next
			changed = true
		}
	}
	next, did := apply(state.CurrentMessage.Content)
	if did {
		state.CurrentMessage.Content = next
		changed = true
	}
	return changed
}

// drainOldest removes up to 16 of the oldest non-preserved messages,
// rounded down to a complete turn count (even number of messages).
func drainOldest(state *convo.ConversationState) int {
	available := len(state.History) - systemPairLen
	if available <= 0 {
		return 0
	}
	n := available
	if n > maxDrainPerIteration {
		n = maxDrainPerIteration
	}
	n -= n % 2
	if n <= 0 {
		return 0
	}
	state.History = append(state.History[:systemPairLen:systemPairLen], state.History[systemPairLen+n:]...)
	return n
}
