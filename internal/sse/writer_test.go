package sse

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriteEventFormatsFields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	w := NewWriter(&buf)

	if err := w.WriteEvent(Event{Event: "message_start", Data: `{"type":"message_start"}`}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := buf.String()
	if !strings.HasPrefix(got, "event: message_start\n") {
		t.Errorf("missing event line: %q", got)
	}
	if !strings.Contains(got, "data: {\"type\":\"message_start\"}\n") {
		t.Errorf("missing data line: %q", got)
	}
	if !strings.HasSuffix(got, "\n\n") {
		t.Errorf("event must end with a blank line: %q", got)
	}
}

func TestPingWritesKeepAlive(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	w := NewWriter(&buf)

	if err := w.Ping(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "event: ping") {
		t.Errorf("expected a ping event, got %q", buf.String())
	}
}

func TestWriteEventMultilineData(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	w := NewWriter(&buf)

	if err := w.WriteEvent(Event{Data: "line1\nline2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := buf.String()
	if strings.Count(got, "data: ") != 2 {
		t.Errorf("expected one data: line per input line, got %q", got)
	}
}
