package dispatch

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws/protocol/eventstream"
)

// FrameKind names the upstream's event-stream record types the decoder
// understands; everything else is an ignorable frame.
type FrameKind string

const (
	FrameAssistantResponse FrameKind = "assistantResponseEvent"
	FrameToolUse           FrameKind = "toolUseEvent"
	FrameContextUsage      FrameKind = "contextUsageEvent"
	FrameException         FrameKind = "exceptionEvent"
	FrameIgnorable         FrameKind = "ignorable"
)

// Frame is one decoded upstream record, already split into its typed
// payload by Kind.
type Frame struct {
	Kind FrameKind

	AssistantResponse struct {
		Content string
	}
	ToolUse struct {
		ToolUseID  string
		Name       string
		InputChunk string
		Stop       bool
	}
	ContextUsage struct {
		Percentage float64
	}
	Exception struct {
		Type    string
		Message string
	}
}

// eventTypeHeader is the header name carrying the frame's Kind, matching
// the ":event-type" convention AWS event-stream services use for framing
// heterogeneous records in one binary stream.
const eventTypeHeader = ":event-type"

// FrameDecoder turns a chunked byte stream into a sequence of decoded
// Frames. It accepts bytes as they arrive over the wire and yields whole
// frames as soon as a complete record has been buffered; on a malformed or
// oversized record it reports a *DecodeError for the caller to log and
// continue past rather than aborting the stream.
type FrameDecoder struct {
	decoder *eventstream.Decoder
}

// NewFrameDecoder wraps the chunked byte source r.
func NewFrameDecoder(r io.Reader) *FrameDecoder {
	return &FrameDecoder{decoder: eventstream.NewDecoder(r)}
}

// MaxFrameBytes is the largest frame payload Next accepts. The check runs
// after the record has been read, so a larger record is reported as a
// *DecodeError rather than kept from being buffered.
const MaxFrameBytes = 16 << 20

// Next reads and decodes the next frame, returning io.EOF once the
// underlying stream is exhausted. A decode error for one malformed record
// is returned as *DecodeError; callers should log it and call Next again
// rather than treating it as fatal.
func (d *FrameDecoder) Next() (Frame, error) {
	msg, err := d.decoder.Decode(nil)
	if err != nil {
		if err == io.EOF {
			return Frame{}, io.EOF
		}
		return Frame{}, &DecodeError{Cause: err}
	}

	if len(msg.Payload) > MaxFrameBytes {
		return Frame{}, &DecodeError{Cause: fmt.Errorf("frame payload exceeds %d bytes", MaxFrameBytes)}
	}

	kind := frameKind(msg.Headers)
	frame, err := decodePayload(kind, msg.Payload)
	if err != nil {
		return Frame{}, &DecodeError{Cause: err}
	}
	return frame, nil
}

// DecodeError marks a single malformed frame; it is never fatal to the
// overall stream.
type DecodeError struct {
	Cause error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode upstream frame: %v", e.Cause) }
func (e *DecodeError) Unwrap() error { return e.Cause }

func frameKind(headers eventstream.Headers) FrameKind {
	h := headers.Get(eventTypeHeader)
	if h == nil {
		return FrameIgnorable
	}
	switch FrameKind(h.Value.String()) {
	case FrameAssistantResponse, FrameToolUse, FrameContextUsage, FrameException:
		return FrameKind(h.Value.String())
	default:
		return FrameIgnorable
	}
}

func decodePayload(kind FrameKind, payload []byte) (Frame, error) {
	frame := Frame{Kind: kind}
	switch kind {
	case FrameAssistantResponse:
		var body struct {
			Content string `json:"content"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return Frame{}, err
		}
		frame.AssistantResponse.Content = body.Content
	case FrameToolUse:
		var body struct {
			ToolUseID string `json:"tool_use_id"`
			Name      string `json:"name"`
			Input     string `json:"input"`
			Stop      bool   `json:"stop"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return Frame{}, err
		}
		frame.ToolUse.ToolUseID = body.ToolUseID
		frame.ToolUse.Name = body.Name
		frame.ToolUse.InputChunk = body.Input
		frame.ToolUse.Stop = body.Stop
	case FrameContextUsage:
		var body struct {
			ContextUsagePercentage float64 `json:"context_usage_percentage"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return Frame{}, err
		}
		frame.ContextUsage.Percentage = body.ContextUsagePercentage
	case FrameException:
		var body struct {
			ExceptionType string `json:"exception_type"`
			Message       string `json:"message"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return Frame{}, err
		}
		frame.Exception.Type = body.ExceptionType
		frame.Exception.Message = body.Message
	}
	return frame, nil
}
