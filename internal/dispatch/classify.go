package dispatch

import (
	"strings"

	"github.com/relaygate/gateway/internal/gwerrors"
)

// classifyUpstreamFailure turns a raw upstream HTTP status/body pair into a
// gateway error kind, matching the upstream's own text markers for the
// cases that must never be retried.
func classifyUpstreamFailure(status int, body []byte) gwerrors.Kind {
	text := string(body)

	switch {
	case strings.Contains(text, "CONTENT_LENGTH_EXCEEDS_THRESHOLD"), strings.Contains(text, "Input is too long"):
		return gwerrors.ClientBadRequest
	case status == 400:
		return gwerrors.ClientBadRequest
	case status == 403, status == 429:
		return gwerrors.QuotaExhausted
	default:
		return gwerrors.UpstreamTransient
	}
}
