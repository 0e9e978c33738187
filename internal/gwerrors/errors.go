// Package gwerrors defines the gateway's error taxonomy. Each error carries
// a Kind describing how the dispatch loop and the HTTP layer should react,
// independent of the specific Go error type that produced it.
package gwerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a gateway error by handling policy, not by cause.
type Kind string

const (
	// ClientBadRequest is never retried and maps to HTTP 400.
	ClientBadRequest Kind = "client_bad_request"
	// QuotaExhausted means every credential is unusable; maps to HTTP 429.
	QuotaExhausted Kind = "quota_exhausted"
	// UpstreamTransient triggers credential failover; maps to HTTP 502 once
	// failover is exhausted.
	UpstreamTransient Kind = "upstream_transient"
	// DecodeWarning is logged and does not abort an in-flight stream.
	DecodeWarning Kind = "decode_warning"
	// Internal is a serialization or programming error; maps to HTTP 500.
	Internal Kind = "internal"
)

// clientErrorType is the Client Protocol's error envelope "type" field.
func (k Kind) clientErrorType() string {
	switch k {
	case ClientBadRequest:
		return "invalid_request_error"
	case QuotaExhausted:
		return "rate_limit_error"
	case UpstreamTransient:
		return "api_error"
	case DecodeWarning:
		return "api_error"
	default:
		return "internal_error"
	}
}

// HTTPStatus returns the status code a Kind maps to.
func (k Kind) HTTPStatus() int {
	switch k {
	case ClientBadRequest:
		return http.StatusBadRequest
	case QuotaExhausted:
		return http.StatusTooManyRequests
	case UpstreamTransient:
		return http.StatusBadGateway
	case Internal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// GatewayError is the gateway's single error type. Every error that crosses
// a package boundary in the core should be (or wrap) a *GatewayError so
// callers can branch on Kind instead of on string matching.
type GatewayError struct {
	Kind    Kind
	Message string
	Cause   error
}

// New creates a GatewayError with no wrapped cause.
func New(kind Kind, message string) *GatewayError {
	return &GatewayError{Kind: kind, Message: message}
}

// Wrap creates a GatewayError around an existing error.
func Wrap(kind Kind, message string, cause error) *GatewayError {
	return &GatewayError{Kind: kind, Message: message, Cause: cause}
}

func (e *GatewayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// As reports whether err is (or wraps) a *GatewayError, returning it.
func As(err error) (*GatewayError, bool) {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

// KindOf returns err's Kind, defaulting to Internal for plain errors.
func KindOf(err error) Kind {
	if ge, ok := As(err); ok {
		return ge.Kind
	}
	return Internal
}

// ErrorEnvelope is the client-facing {"error": {...}} response body.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody is the inner object of ErrorEnvelope.
type ErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Envelope builds the client-facing error payload for err.
func Envelope(err error) ErrorEnvelope {
	kind := KindOf(err)
	return ErrorEnvelope{Error: ErrorBody{
		Type:    kind.clientErrorType(),
		Message: err.Error(),
	}}
}

// Sentinel causes used with Wrap/errors.Is where the classification itself
// (not just the message) is meaningful to callers.
var (
	ErrCredentialsExhausted = errors.New("all credentials quota exhausted")
	ErrInputTooLong         = errors.New("upstream input is too long")
	ErrImproperlyFormed     = errors.New("upstream rejected improperly formed request")
)
