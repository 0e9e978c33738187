package httpapi

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/relaygate/gateway/internal/compress"
	"github.com/relaygate/gateway/internal/convo"
	"github.com/relaygate/gateway/internal/credpool"
	"github.com/relaygate/gateway/internal/dispatch"
	"github.com/relaygate/gateway/internal/gwerrors"
)

// Gateway holds everything a request handler needs: the compression
// config, the credential pool wired into a Dispatcher, and a logger.
type Gateway struct {
	CompressionConfig convo.CompressionConfig
	MaxRequestBytes   int
	Pool              *credpool.Pool
	Dispatcher        *dispatch.Dispatcher
	Logger            zerolog.Logger
}

// NewGateway wires a Dispatcher around pool and returns a ready Gateway.
// pool is kept alongside the dispatcher (which already holds it) so an
// admin surface can be added later without threading it through again.
func NewGateway(cfg convo.CompressionConfig, maxRequestBytes int, pool *credpool.Pool, dispatcher *dispatch.Dispatcher, logger zerolog.Logger) *Gateway {
	return &Gateway{
		CompressionConfig: cfg,
		MaxRequestBytes:   maxRequestBytes,
		Pool:              pool,
		Dispatcher:        dispatcher,
		Logger:            logger,
	}
}

// condition runs the full C1->C2->C3 pipeline over state and returns the
// serialized, budget-checked payload ready for dispatch.
func (g *Gateway) condition(state *convo.ConversationState) ([]byte, error) {
	tools, toolsSaved := compress.PrepareTools(state.CurrentMessage.Tools, g.CompressionConfig.ToolDescriptionMax)
	state.CurrentMessage.Tools = tools
	if toolsSaved > 0 {
		g.Logger.Debug().Int("bytes_saved", toolsSaved).Msg("compressed tool definitions")
	}

	if imageSaved := compress.DownscaleImages(state, g.CompressionConfig); imageSaved > 0 {
		g.Logger.Debug().Int("bytes_saved", imageSaved).Msg("downscaled image attachments")
	}

	compress.Compress(state, g.CompressionConfig)

	if g.CompressionConfig.MaxRequestBodyBytes > 0 {
		if _, err := compress.Shrink(state, g.CompressionConfig, g.CompressionConfig.MaxRequestBodyBytes); err != nil {
			return nil, gwerrors.Wrap(gwerrors.Internal, "adaptive shrink", err)
		}
	}

	if err := dispatch.PreDispatchByteCheck(state, g.MaxRequestBytes); err != nil {
		return nil, err
	}

	body, err := json.Marshal(state)
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.Internal, "serialize conditioned request", err)
	}
	return body, nil
}

func newMessageID() string {
	return "msg_" + uuid.NewString()
}

func newConversationID() string {
	return "conv_" + uuid.NewString()
}
