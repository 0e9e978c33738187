// Package sse writes the client-facing Server-Sent Events stream.
package sse

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Event is a single Server-Sent Event.
type Event struct {
	Event string
	Data  string
	ID    string
}

// Writer writes Events to an underlying stream, flushing after each one so
// a slow-arriving next event doesn't sit buffered behind the previous one.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriter wraps w. If w also implements http.Flusher (the normal case for
// an http.ResponseWriter), each write is flushed immediately.
func NewWriter(w io.Writer) *Writer {
	flusher, _ := w.(http.Flusher)
	return &Writer{w: w, flusher: flusher}
}

// WriteEvent writes one event and flushes.
func (w *Writer) WriteEvent(event Event) error {
	var buf bytes.Buffer
	if event.Event != "" {
		fmt.Fprintf(&buf, "event: %s\n", event.Event)
	}
	if event.ID != "" {
		fmt.Fprintf(&buf, "id: %s\n", event.ID)
	}
	if event.Data != "" {
		for _, line := range strings.Split(event.Data, "\n") {
			fmt.Fprintf(&buf, "data: %s\n", line)
		}
	} else {
		buf.WriteString("data: \n")
	}
	buf.WriteString("\n")

	if _, err := w.w.Write(buf.Bytes()); err != nil {
		return err
	}
	if w.flusher != nil {
		w.flusher.Flush()
	}
	return nil
}

// WriteNamed is a convenience wrapper for WriteEvent with just a type and
// JSON data payload.
func (w *Writer) WriteNamed(eventType, data string) error {
	return w.WriteEvent(Event{Event: eventType, Data: data})
}

// Ping writes the keep-alive "ping" event; the dispatcher sends one on every
// tick of its keep-alive interval.
func (w *Writer) Ping() error {
	return w.WriteNamed("ping", `{"type":"ping"}`)
}
