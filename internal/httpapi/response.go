package httpapi

import (
	"encoding/json"

	"github.com/relaygate/gateway/internal/dispatch"
)

// assembleNonStreamResponse replays a buffered dispatch's event script into
// the single JSON body /v1/messages (non-stream) and /cc/v1/messages
// return.
func assembleNonStreamResponse(result dispatch.Result, model, messageID string) NonStreamResponse {
	resp := NonStreamResponse{ID: messageID, Type: "message", Role: "assistant", Model: model}
	blocks := map[int]*ContentBlock{}
	order := []int{}

	for _, e := range result.Events {
		switch e.Event {
		case "content_block_start":
			var payload struct {
				Index        int             `json:"index"`
				ContentBlock json.RawMessage `json:"content_block"`
			}
			if json.Unmarshal([]byte(e.Data), &payload) != nil {
				continue
			}
			var block ContentBlock
			json.Unmarshal(payload.ContentBlock, &block)
			blocks[payload.Index] = &block
			order = append(order, payload.Index)
		case "content_block_delta":
			var payload struct {
				Index int `json:"index"`
				Delta struct {
					Type        string `json:"type"`
					Text        string `json:"text"`
					PartialJSON string `json:"partial_json"`
				} `json:"delta"`
			}
			if json.Unmarshal([]byte(e.Data), &payload) != nil {
				continue
			}
			block, ok := blocks[payload.Index]
			if !ok {
				continue
			}
			switch payload.Delta.Type {
			case "text_delta":
				block.Text += payload.Delta.Text
			case "input_json_delta":
				block.Input = json.RawMessage(payload.Delta.PartialJSON)
			}
		case "message_delta":
			var payload struct {
				Delta struct {
					StopReason string `json:"stop_reason"`
				} `json:"delta"`
				Usage Usage `json:"usage"`
			}
			if json.Unmarshal([]byte(e.Data), &payload) == nil {
				resp.StopReason = payload.Delta.StopReason
				resp.Usage = payload.Usage
			}
		case "message_start":
			var payload struct {
				Message struct {
					Usage Usage `json:"usage"`
				} `json:"message"`
			}
			if json.Unmarshal([]byte(e.Data), &payload) == nil {
				resp.Usage.InputTokens = payload.Message.Usage.InputTokens
			}
		}
	}

	for _, idx := range order {
		resp.Content = append(resp.Content, *blocks[idx])
	}
	return resp
}
