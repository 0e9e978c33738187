package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/relaygate/gateway/internal/dispatch"
	"github.com/relaygate/gateway/internal/gwerrors"
)

func (g *Gateway) handleListModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, listModels())
}

func (g *Gateway) handleCountTokens(w http.ResponseWriter, r *http.Request) {
	var req CountTokensRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, gwerrors.Wrap(gwerrors.ClientBadRequest, "invalid request body", err))
		return
	}
	writeJSON(w, http.StatusOK, CountTokensResponse{InputTokens: countRequestTokens(req)})
}

func (g *Gateway) handleMessages(buffered bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MessagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, gwerrors.Wrap(gwerrors.ClientBadRequest, "invalid request body", err))
			return
		}
		if len(req.Messages) == 0 {
			writeError(w, gwerrors.New(gwerrors.ClientBadRequest, "messages must not be empty"))
			return
		}
		if err := validateMessages(req.Messages); err != nil {
			writeError(w, gwerrors.Wrap(gwerrors.ClientBadRequest, "invalid messages", err))
			return
		}

		applyModelThinkingSuffix(&req)

		state := ToConversationState(newConversationID(), req)
		payload, err := g.condition(state)
		if err != nil {
			writeError(w, err)
			return
		}

		messageID := newMessageID()
		dispatchReq := dispatch.Request{
			MessageID:      messageID,
			Model:          req.Model,
			AffinityKey:    affinityKey(req),
			Payload:        payload,
			EstimatedInput: countRequestTokens(CountTokensRequest{Model: req.Model, System: req.System, Messages: req.Messages, Tools: req.Tools}),
		}

		stream := req.Stream && !buffered
		if stream {
			g.serveStreaming(w, r.Context(), dispatchReq)
			return
		}
		g.serveBuffered(w, r.Context(), dispatchReq, req.Model, messageID)
	}
}

func (g *Gateway) serveStreaming(w http.ResponseWriter, ctx context.Context, req dispatch.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := g.Dispatcher.DispatchStreaming(ctx, req, w); err != nil {
		g.Logger.Error().Err(err).Msg("streaming dispatch failed")
	}
}

func (g *Gateway) serveBuffered(w http.ResponseWriter, ctx context.Context, req dispatch.Request, model, messageID string) {
	result, err := g.Dispatcher.DispatchBuffered(ctx, req, discardWriter{})
	if err != nil {
		writeError(w, err)
		return
	}

	resp := assembleNonStreamResponse(result, model, messageID)
	writeJSON(w, http.StatusOK, resp)
}

// discardWriter satisfies io.Writer for the keep-alive pings written during
// buffered dispatch; the buffered HTTP response itself is assembled after
// DispatchBuffered returns, so those bytes are never part of the response.
type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func affinityKey(req MessagesRequest) string {
	if req.Metadata != nil && req.Metadata.UserID != "" {
		return req.Metadata.UserID
	}
	return ""
}

func applyModelThinkingSuffix(req *MessagesRequest) {
	override := dispatch.ParseModelThinkingSuffix(req.Model)
	if !override.Matched {
		return
	}
	req.Model = override.BaseModel
	req.Thinking = &ThinkingConfig{Type: override.Type, BudgetTokens: override.BudgetTokens}
	if override.Effort != "" {
		req.OutputConfig = &OutputConfig{Effort: override.Effort}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	kind := gwerrors.KindOf(err)
	writeJSON(w, kind.HTTPStatus(), gwerrors.Envelope(err))
}
