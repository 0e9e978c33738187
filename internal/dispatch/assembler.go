package dispatch

import (
	"encoding/json"
	"math"

	"github.com/relaygate/gateway/internal/compress"
	"github.com/relaygate/gateway/internal/jsonutil"
)

// Mode selects whether the assembler emits events as frames arrive
// (streaming) or only once the upstream stream has ended (buffered / CC).
type Mode int

const (
	ModeStreaming Mode = iota
	ModeBuffered
)

type toolBuffer struct {
	index int
	name  string
	id    string
	text  []byte
}

// Assembler turns a sequence of decoded upstream Frames into the
// client-facing SSE event script described for the message stream: one
// message_start, a content_block_start/delta/stop run per text or tool_use
// block, a message_delta carrying the final stop reason and usage, and a
// closing message_stop.
type Assembler struct {
	messageID            string
	model                string
	mode                 Mode
	estimatedInputTokens int

	pending []Event

	nextIndex       int
	activeTextIndex int
	toolBuffers     map[string]*toolBuffer

	sawToolUse      bool
	explicitStop    string
	contextPctSeen  bool
	observedInputTk int
	outputTokens    int

	// TruncationWarnings collects human-readable guidance for tool_use
	// inputs that failed to parse, for the caller to log.
	TruncationWarnings []string
}

// NewAssembler builds an assembler for one request/response cycle.
// estimatedInputTokens seeds message_start.usage.input_tokens in streaming
// mode; it is replaced by the value derived from an observed ContextUsage
// frame when running in ModeBuffered.
func NewAssembler(messageID, model string, mode Mode, estimatedInputTokens int) *Assembler {
	return &Assembler{
		messageID:            messageID,
		model:                model,
		mode:                 mode,
		estimatedInputTokens: estimatedInputTokens,
		activeTextIndex:      -1,
		toolBuffers:          make(map[string]*toolBuffer),
	}
}

// Begin queues message_start. In streaming mode the caller should Drain
// immediately afterward; in buffered mode message_start is deferred to
// Finish so its input_tokens can be patched.
func (a *Assembler) Begin() {
	if a.mode == ModeStreaming {
		a.pending = append(a.pending, a.renderMessageStart(a.estimatedInputTokens))
	}
}

// Drain returns and clears any events queued since the last Drain/Finish.
func (a *Assembler) Drain() []Event {
	out := a.pending
	a.pending = nil
	return out
}

// HandleFrame folds one decoded upstream frame into the event script.
func (a *Assembler) HandleFrame(frame Frame) {
	switch frame.Kind {
	case FrameAssistantResponse:
		a.handleAssistantResponse(frame.AssistantResponse.Content)
	case FrameToolUse:
		a.handleToolUse(frame.ToolUse.ToolUseID, frame.ToolUse.Name, frame.ToolUse.InputChunk, frame.ToolUse.Stop)
	case FrameContextUsage:
		a.handleContextUsage(frame.ContextUsage.Percentage)
	case FrameException:
		a.handleException(frame.Exception.Type, frame.Exception.Message)
	case FrameIgnorable:
		// nothing to do
	}
}

func (a *Assembler) handleAssistantResponse(content string) {
	if a.activeTextIndex == -1 {
		a.activeTextIndex = a.openBlock(textBlock{Type: "text", Text: ""})
	}
	a.outputTokens += estimateTokens(content)
	a.pending = append(a.pending, Event{
		Event: "content_block_delta",
		Data: mustJSON(contentBlockDeltaPayload{
			Type:  "content_block_delta",
			Index: a.activeTextIndex,
			Delta: textDelta{Type: "text_delta", Text: content},
		}),
	})
}

func (a *Assembler) handleToolUse(toolUseID, name, inputChunk string, stop bool) {
	buf, ok := a.toolBuffers[toolUseID]
	if !ok {
		a.closeActiveTextBlock()
		index := a.openBlock(toolUseBlock{Type: "tool_use", ID: toolUseID, Name: name, Input: json.RawMessage("{}")})
		buf = &toolBuffer{index: index, name: name, id: toolUseID}
		a.toolBuffers[toolUseID] = buf
		a.sawToolUse = true
	}
	buf.text = append(buf.text, inputChunk...)

	if !stop {
		if inputChunk != "" {
			a.pending = append(a.pending, Event{
				Event: "content_block_delta",
				Data: mustJSON(contentBlockDeltaPayload{
					Type:  "content_block_delta",
					Index: buf.index,
					Delta: inputJSONDelta{Type: "input_json_delta", PartialJSON: inputChunk},
				}),
			})
		}
		return
	}

	final := a.resolveToolInput(buf)
	a.pending = append(a.pending, Event{
		Event: "content_block_delta",
		Data: mustJSON(contentBlockDeltaPayload{
			Type:  "content_block_delta",
			Index: buf.index,
			Delta: inputJSONDelta{Type: "input_json_delta", PartialJSON: string(final)},
		}),
	})
	a.pending = append(a.pending, Event{
		Event: "content_block_stop",
		Data:  mustJSON(contentBlockStopPayload{Type: "content_block_stop", Index: buf.index}),
	})
	delete(a.toolBuffers, toolUseID)
}

// resolveToolInput parses the accumulated JSON chunk. A clean parse wins
// outright; a dirty one (trailing commas, stray comments, an unbalanced
// closer) gets one repair attempt before falling back to "{}" and a
// recorded guidance warning.
func (a *Assembler) resolveToolInput(buf *toolBuffer) json.RawMessage {
	if len(buf.text) == 0 {
		return json.RawMessage("{}")
	}
	var v interface{}
	if err := json.Unmarshal(buf.text, &v); err == nil {
		return json.RawMessage(buf.text)
	}
	if fixed, err := jsonutil.FixJSON(string(buf.text)); err == nil {
		return json.RawMessage(fixed)
	}
	kind := compress.DetectTruncation(string(buf.text))
	a.TruncationWarnings = append(a.TruncationWarnings, compress.TruncationGuidance(buf.name, kind))
	return json.RawMessage("{}")
}

func (a *Assembler) handleContextUsage(pct float64) {
	a.contextPctSeen = true
	window := ContextWindowFor(a.model)
	a.observedInputTk = int(math.Round(pct / 100 * float64(window)))
	if pct >= 100 && a.explicitStop == "" {
		a.explicitStop = "model_context_window_exceeded"
	}
}

func (a *Assembler) handleException(exceptionType, _ string) {
	if exceptionType == "ContentLengthExceededException" && a.explicitStop == "" {
		a.explicitStop = "max_tokens"
	}
}

func (a *Assembler) openBlock(block any) int {
	index := a.nextIndex
	a.nextIndex++
	a.pending = append(a.pending, Event{
		Event: "content_block_start",
		Data:  mustJSON(contentBlockStartPayload{Type: "content_block_start", Index: index, ContentBlock: block}),
	})
	return index
}

func (a *Assembler) closeActiveTextBlock() {
	if a.activeTextIndex == -1 {
		return
	}
	a.pending = append(a.pending, Event{
		Event: "content_block_stop",
		Data:  mustJSON(contentBlockStopPayload{Type: "content_block_stop", Index: a.activeTextIndex}),
	})
	a.activeTextIndex = -1
}

// Finish closes any still-open blocks and queues the terminal message_delta
// and message_stop events (and, in buffered mode, the deferred
// message_start first). It returns every event queued and not yet drained.
func (a *Assembler) Finish() []Event {
	a.closeActiveTextBlock()
	for id, buf := range a.toolBuffers {
		final := a.resolveToolInput(buf)
		a.pending = append(a.pending, Event{
			Event: "content_block_delta",
			Data: mustJSON(contentBlockDeltaPayload{
				Type:  "content_block_delta",
				Index: buf.index,
				Delta: inputJSONDelta{Type: "input_json_delta", PartialJSON: string(final)},
			}),
		})
		a.pending = append(a.pending, Event{
			Event: "content_block_stop",
			Data:  mustJSON(contentBlockStopPayload{Type: "content_block_stop", Index: buf.index}),
		})
		delete(a.toolBuffers, id)
	}

	if a.mode == ModeBuffered {
		a.pending = append([]Event{a.renderMessageStart(a.finalInputTokens())}, a.pending...)
	}

	stopReason := a.explicitStop
	if stopReason == "" {
		if a.sawToolUse {
			stopReason = "tool_use"
		} else {
			stopReason = "end_turn"
		}
	}

	var delta messageDeltaPayload
	delta.Type = "message_delta"
	delta.Delta.StopReason = stopReason
	delta.Usage = Usage{InputTokens: a.finalInputTokens(), OutputTokens: a.outputTokens}
	a.pending = append(a.pending, Event{Event: "message_delta", Data: mustJSON(delta)})
	a.pending = append(a.pending, Event{Event: "message_stop", Data: mustJSON(messageStopPayload{Type: "message_stop"})})

	return a.Drain()
}

func (a *Assembler) finalInputTokens() int {
	if a.contextPctSeen {
		return a.observedInputTk
	}
	return a.estimatedInputTokens
}

func (a *Assembler) renderMessageStart(inputTokens int) Event {
	var payload messageStartPayload
	payload.Type = "message_start"
	payload.Message.ID = a.messageID
	payload.Message.Type = "message"
	payload.Message.Role = "assistant"
	payload.Message.Content = []any{}
	payload.Message.Model = a.model
	payload.Message.Usage = Usage{InputTokens: inputTokens, OutputTokens: 0}
	return Event{Event: "message_start", Data: mustJSON(payload)}
}

// estimateTokens is a rough, fast whole-text estimator (not an exact
// tokenizer) behind the output_tokens count the assembler reports, in both
// streaming and buffered modes.
func estimateTokens(s string) int {
	const charsPerToken = 4
	n := len([]rune(s))
	if n == 0 {
		return 0
	}
	tokens := n / charsPerToken
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}
