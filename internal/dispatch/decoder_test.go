package dispatch

import (
	"bytes"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws/protocol/eventstream"
)

func encodeFrame(t *testing.T, eventType string, payload []byte) []byte {
	t.Helper()
	msg := eventstream.Message{
		Headers: eventstream.Headers{
			{Name: eventTypeHeader, Value: eventstream.StringValue(eventType)},
		},
		Payload: payload,
	}
	var buf bytes.Buffer
	enc := eventstream.NewEncoder()
	if err := enc.Encode(&buf, msg); err != nil {
		t.Fatalf("encode fixture frame: %v", err)
	}
	return buf.Bytes()
}

func TestFrameDecoderAssistantResponse(t *testing.T) {
	t.Parallel()
	raw := encodeFrame(t, string(FrameAssistantResponse), []byte(`{"content":"hello"}`))
	dec := NewFrameDecoder(bytes.NewReader(raw))

	frame, err := dec.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.Kind != FrameAssistantResponse {
		t.Errorf("got kind %v", frame.Kind)
	}
	if frame.AssistantResponse.Content != "hello" {
		t.Errorf("got content %q", frame.AssistantResponse.Content)
	}

	if _, err := dec.Next(); err != io.EOF {
		t.Errorf("expected io.EOF after last frame, got %v", err)
	}
}

func TestFrameDecoderToolUseStop(t *testing.T) {
	t.Parallel()
	raw := encodeFrame(t, string(FrameToolUse), []byte(`{"tool_use_id":"t1","name":"Read","input":"{\"path\":","stop":false}`))
	dec := NewFrameDecoder(bytes.NewReader(raw))

	frame, err := dec.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.ToolUse.ToolUseID != "t1" || frame.ToolUse.Name != "Read" {
		t.Errorf("unexpected tool use frame: %+v", frame.ToolUse)
	}
	if frame.ToolUse.Stop {
		t.Error("stop should be false for a mid-stream chunk")
	}
}

func TestFrameDecoderUnknownEventTypeIsIgnorable(t *testing.T) {
	t.Parallel()
	raw := encodeFrame(t, "someFutureEvent", []byte(`{}`))
	dec := NewFrameDecoder(bytes.NewReader(raw))

	frame, err := dec.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.Kind != FrameIgnorable {
		t.Errorf("got kind %v, want FrameIgnorable", frame.Kind)
	}
}

func TestFrameDecoderException(t *testing.T) {
	t.Parallel()
	raw := encodeFrame(t, string(FrameException), []byte(`{"exception_type":"ThrottlingException","message":"slow down"}`))
	dec := NewFrameDecoder(bytes.NewReader(raw))

	frame, err := dec.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.Exception.Type != "ThrottlingException" {
		t.Errorf("got exception type %q", frame.Exception.Type)
	}
}
