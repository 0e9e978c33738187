package dispatch

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/relaygate/gateway/internal/credpool"
	"github.com/relaygate/gateway/internal/httpclient"
)

func encodeUpstreamStream(t *testing.T, frames []struct {
	eventType string
	payload   []byte
}) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, f := range frames {
		buf.Write(encodeFrame(t, f.eventType, f.payload))
	}
	return buf.Bytes()
}

func TestDispatchStreamingHappyPath(t *testing.T) {
	t.Parallel()
	stream := encodeUpstreamStream(t, []struct {
		eventType string
		payload   []byte
	}{
		{string(FrameAssistantResponse), []byte(`{"content":"hi there"}`)},
	})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write(stream)
	}))
	defer server.Close()

	pool := credpool.New(credpool.ModePriority, []credpool.CredentialEntry{
		{Priority: 1, AuthMethod: credpool.AuthBearer, BearerToken: "tok"},
	})
	d := &Dispatcher{
		Client: httpclient.New(httpclient.Config{BaseURL: server.URL}),
		Pool:   pool,
		Logger: zerolog.Nop(),
	}

	var out bytes.Buffer
	err := d.DispatchStreaming(context.Background(), Request{
		MessageID:      "msg_1",
		Model:          "claude-sonnet-4",
		AffinityKey:    "conv-1",
		Payload:        []byte(`{}`),
		EstimatedInput: 10,
	}, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := out.String()
	if !bytes.Contains(out.Bytes(), []byte("event: message_start")) {
		t.Errorf("expected message_start in output, got %q", got)
	}
	if !bytes.Contains(out.Bytes(), []byte("event: message_stop")) {
		t.Errorf("expected message_stop in output, got %q", got)
	}
}

func TestDispatchFailsOverToNextCredential(t *testing.T) {
	t.Parallel()
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		auth := r.Header.Get("Authorization")
		if auth == "Bearer bad" {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"message":"rate limited"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write(encodeUpstreamStream(t, []struct {
			eventType string
			payload   []byte
		}{{string(FrameAssistantResponse), []byte(`{"content":"ok"}`)}}))
	}))
	defer server.Close()

	pool := credpool.New(credpool.ModeBalanced, []credpool.CredentialEntry{
		{Priority: 1, AuthMethod: credpool.AuthBearer, BearerToken: "bad"},
		{Priority: 2, AuthMethod: credpool.AuthBearer, BearerToken: "good"},
	})
	d := &Dispatcher{
		Client: httpclient.New(httpclient.Config{BaseURL: server.URL}),
		Pool:   pool,
		Logger: zerolog.Nop(),
	}

	var out bytes.Buffer
	err := d.DispatchStreaming(context.Background(), Request{
		MessageID:      "msg_2",
		Model:          "claude-sonnet-4",
		AffinityKey:    "conv-2",
		Payload:        []byte(`{}`),
		EstimatedInput: 10,
	}, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts < 2 {
		t.Errorf("expected at least 2 upstream attempts across credentials, got %d", attempts)
	}
}

func TestDispatchBufferedPatchesInputTokens(t *testing.T) {
	t.Parallel()
	stream := encodeUpstreamStream(t, []struct {
		eventType string
		payload   []byte
	}{
		{string(FrameAssistantResponse), []byte(`{"content":"buffered reply"}`)},
		{string(FrameContextUsage), []byte(`{"context_usage_percentage":10}`)},
	})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write(stream)
	}))
	defer server.Close()

	pool := credpool.New(credpool.ModePriority, []credpool.CredentialEntry{
		{Priority: 1, AuthMethod: credpool.AuthBearer, BearerToken: "tok"},
	})
	d := &Dispatcher{
		Client: httpclient.New(httpclient.Config{BaseURL: server.URL}),
		Pool:   pool,
		Logger: zerolog.Nop(),
	}

	var out bytes.Buffer
	result, err := d.DispatchBuffered(context.Background(), Request{
		MessageID:      "msg_3",
		Model:          "claude-sonnet-4",
		AffinityKey:    "conv-3",
		Payload:        []byte(`{}`),
		EstimatedInput: 999999,
	}, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Len() != 0 {
		t.Error("buffered mode must not write content to the client until Finish")
	}
	if len(result.Events) == 0 || result.Events[0].Event != "message_start" {
		t.Fatal("expected message_start to lead the buffered event script")
	}
	if bytes.Contains([]byte(result.Events[0].Data), []byte("999999")) {
		t.Error("input_tokens should be patched from the observed context usage, not the estimate")
	}
}
