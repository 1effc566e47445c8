package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"switchboard-hq/switchboard/pkg/audit"
	"switchboard-hq/switchboard/pkg/protocols"
	"switchboard-hq/switchboard/pkg/proxy"
	"switchboard-hq/switchboard/pkg/proxy/middleware"
	"switchboard-hq/switchboard/pkg/proxy/types"
	"switchboard-hq/switchboard/pkg/rendezvous"
	"switchboard-hq/switchboard/pkg/telemetry/metrics"
)

// TurnHandler orchestrates one HTTP request end to end: decode through the
// wire-format adapter, exchange through the session, encode the peer's
// utterance back out. One TurnHandler instance serves one adapter path.
type TurnHandler struct {
	adapter    protocols.Adapter
	sessions   *rendezvous.Manager
	maxPayload int64

	// Optional observers; nil disables them.
	metrics  *metrics.Collector
	recorder *audit.Recorder
}

// NewTurnHandler creates a turn handler for the adapter's path. collector
// and recorder may be nil.
func NewTurnHandler(adapter protocols.Adapter, sessions *rendezvous.Manager, maxPayload int64, collector *metrics.Collector, recorder *audit.Recorder) *TurnHandler {
	return &TurnHandler{
		adapter:    adapter,
		sessions:   sessions,
		maxPayload: maxPayload,
		metrics:    collector,
		recorder:   recorder,
	}
}

// ServeHTTP implements http.Handler.
func (h *TurnHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	startTime := time.Now()

	if h.metrics != nil {
		h.metrics.Requests.IncInFlight()
		defer h.metrics.Requests.DecInFlight()
	}

	status := http.StatusOK
	defer func() {
		if h.metrics != nil {
			h.metrics.Requests.RecordRequest(h.adapter.Path(), status, time.Since(startTime))
		}
	}()

	if r.Method != http.MethodPost {
		status = http.StatusMethodNotAllowed
		errResp := types.NewInvalidRequestError(types.CodeMethodNotAllowed,
			fmt.Sprintf("Method %s not allowed. Use POST instead.", r.Method))
		h.writeErrorStatus(w, status, errResp)
		return
	}

	body, err := proxy.ReadBody(w, r, h.maxPayload)
	if err != nil {
		status = h.writeError(w, err)
		return
	}

	req, err := h.adapter.Decode(body)
	if err != nil {
		slog.WarnContext(ctx, "failed to decode request",
			"request_id", requestID,
			"format", h.adapter.Name(),
			"error", err,
		)
		status = h.writeError(w, err)
		return
	}

	if err := req.Validate(); err != nil {
		slog.WarnContext(ctx, "invalid request",
			"request_id", requestID,
			"format", h.adapter.Name(),
			"error", err,
		)
		status = h.writeError(w, err)
		return
	}

	slog.InfoContext(ctx, "processing turn request",
		"request_id", requestID,
		"session_id", req.SessionID,
		"format", h.adapter.Name(),
		"stream", req.Stream,
		"utterance_bytes", len(req.Utterance),
	)

	session, err := h.sessions.GetOrCreate(req.SessionID)
	if err != nil {
		status = h.writeError(w, err)
		return
	}

	reply, err := session.Exchange(ctx, req.Utterance)
	if err != nil {
		h.observeExchangeError(err)
		slog.WarnContext(ctx, "exchange failed",
			"request_id", requestID,
			"session_id", req.SessionID,
			"error", err,
			"waited_ms", time.Since(startTime).Milliseconds(),
		)
		status = h.writeError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.Sessions.RecordTurn()
	}
	if h.recorder != nil {
		h.recorder.RecordTurn(req.SessionID, len(reply))
	}

	resp := &protocols.Response{
		SessionID: req.SessionID,
		Utterance: reply,
	}

	if req.Stream {
		status = h.writeStream(w, resp)
	} else {
		status = h.writeResponse(w, resp)
	}

	slog.InfoContext(ctx, "turn completed",
		"request_id", requestID,
		"session_id", req.SessionID,
		"response_bytes", len(reply),
		"latency_ms", time.Since(startTime).Milliseconds(),
	)
}

// writeResponse encodes and writes a non-streaming response.
func (h *TurnHandler) writeResponse(w http.ResponseWriter, resp *protocols.Response) int {
	body, err := h.adapter.Encode(resp)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
		_ = proxy.WriteError(w, err)
		return http.StatusInternalServerError
	}
	if err := proxy.WriteRawJSON(w, http.StatusOK, body); err != nil {
		slog.Error("failed to write response", "error", err)
	}
	return http.StatusOK
}

// writeStream writes the response as an SSE event stream.
func (h *TurnHandler) writeStream(w http.ResponseWriter, resp *protocols.Response) int {
	flusher, ok := w.(http.Flusher)
	if !ok {
		_ = proxy.WriteError(w, types.NewInternalError())
		return http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sw := &flushWriter{w: w, flusher: flusher}
	if err := h.adapter.EncodeStream(sw, resp); err != nil {
		// Headers are gone; the broken stream is all we can signal.
		slog.Error("failed to write stream", "error", err)
	}
	return http.StatusOK
}

// writeError maps err to its status and writes the uniform error body,
// returning the status for metrics.
func (h *TurnHandler) writeError(w http.ResponseWriter, err error) int {
	taxErr := types.FromError(err)
	if taxErr.Kind == types.KindInternal {
		slog.Error("internal error", "error", err)
	}
	if writeErr := proxy.WriteErrorStatus(w, taxErr.HTTPStatus(), taxErr); writeErr != nil {
		slog.Error("failed to write error response", "error", writeErr)
	}
	return taxErr.HTTPStatus()
}

// writeErrorStatus writes a taxonomy error with an explicit status.
func (h *TurnHandler) writeErrorStatus(w http.ResponseWriter, status int, taxErr *types.Error) {
	if err := proxy.WriteErrorStatus(w, status, taxErr); err != nil {
		slog.Error("failed to write error response", "error", err)
	}
}

// observeExchangeError feeds exchange failures into the metrics counters.
func (h *TurnHandler) observeExchangeError(err error) {
	if h.metrics == nil {
		return
	}
	taxErr := types.FromError(err)
	switch taxErr.Kind {
	case types.KindTimeout:
		phase := "turn"
		if taxErr.Code == types.CodeHandshakeTimeout {
			phase = "handshake"
		}
		h.metrics.Sessions.RecordTimeout(phase)
	case types.KindSessionConflict:
		h.metrics.Sessions.RecordConflict()
	}
}

// flushWriter adapts an http.ResponseWriter to protocols.StreamWriter.
type flushWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// Write implements io.Writer.
func (fw *flushWriter) Write(p []byte) (int, error) {
	return fw.w.Write(p)
}

// Flush implements protocols.StreamWriter.
func (fw *flushWriter) Flush() {
	fw.flusher.Flush()
}
