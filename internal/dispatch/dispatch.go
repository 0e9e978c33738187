package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/relaygate/gateway/internal/convo"
	"github.com/relaygate/gateway/internal/credpool"
	"github.com/relaygate/gateway/internal/gwerrors"
	"github.com/relaygate/gateway/internal/httpclient"
	"github.com/relaygate/gateway/internal/redact"
	"github.com/relaygate/gateway/internal/sse"
	"github.com/relaygate/gateway/internal/telemetry"
)

// PingInterval is the keep-alive cadence while waiting on the upstream.
const PingInterval = 25 * time.Second

// Dispatcher owns the upstream HTTP client and credential pool and runs the
// acquire -> attempt -> classify failover loop in front of the stream
// assembler.
type Dispatcher struct {
	Client  *httpclient.Client
	Pool    *credpool.Pool
	Service string // SigV4 service name for credentials using AuthSigV4
	Logger  zerolog.Logger
	Tracer  trace.Tracer // defaults to a no-op tracer when nil, see tracer()
}

// tracer returns d.Tracer, falling back to telemetry's no-op tracer so the
// dispatch loop never needs a nil check at each call site.
func (d *Dispatcher) tracer() trace.Tracer {
	if d.Tracer != nil {
		return d.Tracer
	}
	return telemetry.GetTracer(nil)
}

// Request describes one client call to translate and dispatch upstream.
type Request struct {
	ConversationID string
	MessageID      string
	Model          string
	AffinityKey    string
	Payload        []byte // serialized upstream body
	EstimatedInput int    // pre-dispatch token estimate, for message_start before any ContextUsage frame arrives
}

// Result is returned by DispatchBuffered for the CC (non-stream) variant.
type Result struct {
	Events []Event
}

// errNoRetry marks a classification that must not advance to the next
// credential.
type errNoRetry struct{ err error }

func (e errNoRetry) Error() string { return e.err.Error() }
func (e errNoRetry) Unwrap() error { return e.err }

// DispatchStreaming runs the failover loop and streams the resulting SSE
// script to w as frames arrive, interleaving keep-alive pings.
func (d *Dispatcher) DispatchStreaming(ctx context.Context, req Request, w io.Writer) error {
	writer := sse.NewWriter(w)
	asm := NewAssembler(req.MessageID, req.Model, ModeStreaming, req.EstimatedInput)
	asm.Begin()
	if err := d.flush(writer, asm); err != nil {
		return err
	}

	return d.run(ctx, req, func(ctx context.Context, body io.ReadCloser) error {
		defer body.Close()
		return d.pump(ctx, body, asm, writer)
	})
}

// DispatchBuffered runs the failover loop in CC mode: no SSE event is
// written to the caller until the upstream stream ends, so the final
// message_start.input_tokens can be patched from an observed ContextUsage
// frame. Ping keep-alives are still written directly to w while buffering.
func (d *Dispatcher) DispatchBuffered(ctx context.Context, req Request, w io.Writer) (Result, error) {
	writer := sse.NewWriter(w)
	asm := NewAssembler(req.MessageID, req.Model, ModeBuffered, req.EstimatedInput)
	asm.Begin()

	err := d.run(ctx, req, func(ctx context.Context, body io.ReadCloser) error {
		defer body.Close()
		return d.pumpBuffered(ctx, body, asm, writer)
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Events: asm.Finish()}, nil
}

func (d *Dispatcher) flush(writer *sse.Writer, asm *Assembler) error {
	return d.writeEvents(writer, asm.Drain())
}

func (d *Dispatcher) writeEvents(writer *sse.Writer, events []Event) error {
	for _, e := range events {
		if err := writer.WriteEvent(sse.Event{Event: e.Event, Data: e.Data}); err != nil {
			return err
		}
	}
	return nil
}

// run performs §4.5.1's acquire -> attempt -> classify loop, calling attempt
// once per acquired credential until one succeeds or the pool is exhausted.
func (d *Dispatcher) run(ctx context.Context, req Request, attempt func(context.Context, io.ReadCloser) error) error {
	snapshot := d.Pool.Snapshot()
	maxAttempts := len(snapshot)
	if maxAttempts == 0 {
		maxAttempts = 1
	}

	// The affinity key pins only the first attempt; after a failure it is
	// dropped so the next Acquire follows the rotation SwitchToNext advanced.
	affinityKey := req.AffinityKey
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		handle, err := d.Pool.Acquire(affinityKey)
		if err != nil {
			return err
		}

		httpReq, err := d.buildRequest(ctx, handle, req.Payload)
		if err != nil {
			return gwerrors.Wrap(gwerrors.Internal, "build upstream request", err)
		}

		resp, err := telemetry.RecordSpan(ctx, d.tracer(), telemetry.SpanOptions{
			Name: "dispatch.upstream_attempt",
			Attributes: []attribute.KeyValue{
				attribute.Int("credential.index", handle.Index),
				attribute.String("credential.auth_method", string(handle.AuthMethod)),
			},
		}, func(ctx context.Context, _ trace.Span) (*http.Response, error) {
			return d.Client.DoStream(ctx, httpReq)
		})
		if err != nil {
			status := 0
			body := []byte(err.Error())
			var statusErr *httpclient.StatusError
			if errors.As(err, &statusErr) {
				status = statusErr.StatusCode
				body = statusErr.Body
			}
			lastErr = d.classifyAndReport(handle.Index, status, body)
			var noRetry errNoRetry
			if asNoRetry(lastErr, &noRetry) {
				return noRetry.err
			}
			d.Logger.Warn().
				Int("credential_index", handle.Index).
				Str("affinity_key", redact.OptString(req.AffinityKey)).
				Msg("upstream attempt failed, switching to next credential")
			d.Pool.SwitchToNext()
			affinityKey = ""
			continue
		}

		if err := attempt(ctx, resp.Body); err != nil {
			lastErr = err
			var noRetry errNoRetry
			if asNoRetry(lastErr, &noRetry) {
				return noRetry.err
			}
			d.Pool.ReportFailure(handle.Index, credpool.FailureOther)
			d.Pool.SwitchToNext()
			affinityKey = ""
			continue
		}

		d.Pool.ReportSuccess(handle.Index)
		return nil
	}

	if lastErr != nil {
		return lastErr
	}
	return gwerrors.New(gwerrors.QuotaExhausted, "no credentials available")
}

func asNoRetry(err error, target *errNoRetry) bool {
	if nr, ok := err.(errNoRetry); ok {
		*target = nr
		return true
	}
	return false
}

func (d *Dispatcher) classifyAndReport(index int, status int, body []byte) error {
	kind := classifyUpstreamFailure(status, body)
	switch kind {
	case gwerrors.ClientBadRequest:
		return errNoRetry{gwerrors.Wrap(gwerrors.ClientBadRequest, "upstream rejected the request", fmt.Errorf("%s", body))}
	case gwerrors.QuotaExhausted:
		d.Pool.ReportFailure(index, credpool.FailureCredentialExhausted)
		return gwerrors.New(gwerrors.QuotaExhausted, "all credentials exhausted")
	default:
		d.Pool.ReportFailure(index, credpool.FailureOther)
		return gwerrors.New(gwerrors.UpstreamTransient, "upstream transient failure")
	}
}

func (d *Dispatcher) buildRequest(ctx context.Context, handle credpool.Handle, payload []byte) (httpclient.Request, error) {
	req := httpclient.Request{
		Method: http.MethodPost,
		Path:   "/generate",
		Body:   payload,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
	switch handle.AuthMethod {
	case credpool.AuthBearer:
		req.Headers["Authorization"] = "Bearer " + handle.BearerToken
	case credpool.AuthSigV4:
		req.Sign = func(httpReq *http.Request) error {
			signer := &SigV4Signer{
				AccessKeyID:     handle.AccessKeyID,
				SecretAccessKey: handle.SecretAccessKey,
				SessionToken:    handle.SessionToken,
				Region:          handle.Region,
				Service:         d.Service,
			}
			return signer.Sign(httpReq, payload)
		}
	}
	return req, nil
}

// pump drives the streaming-mode event loop: decode frames as bytes arrive,
// fold each into the assembler, and drain+write after every frame or ping
// tick, whichever comes first. select has no case-ordering bias of its own,
// so the ticker is polled with a non-blocking check before the main select
// on every iteration, giving it priority a steady stream of content frames
// cannot starve.
func (d *Dispatcher) pump(ctx context.Context, body io.Reader, asm *Assembler, writer *sse.Writer) error {
	dec := NewFrameDecoder(body)
	frames := make(chan Frame)
	go func() {
		defer close(frames)
		for {
			frame, err := dec.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				d.Logger.Warn().Err(err).Msg("discarding malformed upstream frame")
				continue
			}
			select {
			case frames <- frame:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := writer.Ping(); err != nil {
				return err
			}
			continue
		default:
		}

		select {
		case <-ticker.C:
			if err := writer.Ping(); err != nil {
				return err
			}
		case frame, ok := <-frames:
			if !ok {
				final := asm.Finish()
				for _, w := range asm.TruncationWarnings {
					d.Logger.Warn().Msg(w)
				}
				return d.writeEvents(writer, final)
			}
			asm.HandleFrame(frame)
			if err := d.flush(writer, asm); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// pumpBuffered drains the upstream stream fully before returning, writing
// only ping keep-alives to the client in the meantime.
func (d *Dispatcher) pumpBuffered(ctx context.Context, body io.Reader, asm *Assembler, writer *sse.Writer) error {
	dec := NewFrameDecoder(body)
	frames := make(chan Frame)
	go func() {
		defer close(frames)
		for {
			frame, err := dec.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				d.Logger.Warn().Err(err).Msg("discarding malformed upstream frame")
				continue
			}
			select {
			case frames <- frame:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := writer.Ping(); err != nil {
				return err
			}
			continue
		default:
		}

		select {
		case <-ticker.C:
			if err := writer.Ping(); err != nil {
				return err
			}
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			asm.HandleFrame(frame)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// PreDispatchByteCheck implements §4.5.6: re-serializes state and refuses
// before ever contacting upstream if it still exceeds budget.
func PreDispatchByteCheck(state *convo.ConversationState, maxBytes int) error {
	if maxBytes <= 0 {
		return nil
	}
	body, err := json.Marshal(state)
	if err != nil {
		return gwerrors.Wrap(gwerrors.Internal, "serialize request body", err)
	}
	total := len(body)
	if total <= maxBytes {
		return nil
	}

	imageBytes := 0
	for _, m := range state.History {
		if m.User == nil {
			continue
		}
		for _, img := range m.User.Images {
			imageBytes += len(img.Data)
		}
	}
	for _, img := range state.CurrentMessage.Images {
		imageBytes += len(img.Data)
	}

	return gwerrors.New(gwerrors.ClientBadRequest,
		fmt.Sprintf("request body %d bytes exceeds budget %d (image bytes=%d, non-image bytes=%d)",
			total, maxBytes, imageBytes, total-imageBytes))
}
