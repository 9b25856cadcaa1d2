package transport

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gate4ai/a2a/schema"
	"github.com/gate4ai/a2a/server"
	"github.com/gate4ai/a2a/shared"
)

// Endpoint paths.
const (
	A2APath       = "/a2a"
	AgentCardPath = "/.well-known/agent.json"
)

// sseDoneSentinel terminates every SSE stream.
const sseDoneSentinel = "[DONE]"

// Transport binds the A2A server to its HTTP surface.
type Transport struct {
	a2a      *server.A2AServer
	throttle *Throttler
	logger   *zap.Logger
}

type TransportOption func(*Transport)

// WithThrottler enables per-client rate limiting on the RPC endpoint.
func WithThrottler(throttler *Throttler) TransportOption {
	return func(t *Transport) { t.throttle = throttler }
}

func New(a2a *server.A2AServer, logger *zap.Logger, opts ...TransportOption) *Transport {
	t := &Transport{
		a2a:    a2a,
		logger: logger.Named("a2a-transport"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RegisterHandlers mounts the A2A endpoints on the mux.
func (t *Transport) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc(A2APath, t.handleA2A)
	mux.HandleFunc(AgentCardPath, t.handleAgentCard)
}

// handleAgentCard serves GET /.well-known/agent.json: the single card, or an
// array of cards when more than one agent is registered.
func (t *Transport) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	cards, err := t.a2a.GetAgentCards()
	if err != nil {
		t.logger.Error("Failed to build agent cards", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	var payload interface{}
	if len(cards) == 1 {
		payload = cards[0]
	} else {
		payload = cards
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.logger.Warn("Failed to write agent card response", zap.Error(err))
	}
}

// handleA2A processes POST requests on the JSON-RPC endpoint.
func (t *Transport) handleA2A(w http.ResponseWriter, r *http.Request) {
	logger := t.logger.With(zap.String("remoteAddr", r.RemoteAddr))

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if t.throttle != nil && !t.throttle.Allow(r) {
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return
	}

	contentType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || contentType != "application/json" {
		sendErrorResponse(w, nil, schema.NewContentTypeNotSupportedError(r.Header.Get("Content-Type")), logger)
		return
	}

	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("Failed to read request body", zap.Error(err))
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	msg, isBatch, err := shared.ParseRequest(bodyBytes)
	wantsSSE := strings.Contains(strings.ToLower(r.Header.Get("Accept")), "text/event-stream")

	if err != nil {
		logger.Debug("Failed to parse JSON-RPC request", zap.Error(err))
		parseErr := &shared.JSONRPCError{
			Code:    shared.JSONRPCErrorParseError,
			Message: "Parse error: " + err.Error(),
		}
		t.sendProtocolFailure(w, nil, parseErr, wantsSSE, logger)
		return
	}
	if isBatch {
		batchErr := &shared.JSONRPCError{
			Code:    shared.JSONRPCErrorInvalidRequest,
			Message: "Batch requests are not supported",
		}
		t.sendProtocolFailure(w, nil, batchErr, wantsSSE, logger)
		return
	}

	streaming := wantsSSE || (msg.Method != nil && *msg.Method == server.MethodMessageStream)
	if streaming {
		t.serveSSE(w, r, msg, logger)
		return
	}

	response := t.a2a.Handle(r.Context(), msg)
	sendResponse(w, response, logger)
}

// serveSSE drives one streaming session: each event framed as
// `data: <JSON>\n\n`, with a terminating `data: [DONE]\n\n`.
func (t *Transport) serveSSE(w http.ResponseWriter, r *http.Request, msg *shared.Message, logger *zap.Logger) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.Error("Response writer does not support streaming")
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	send := func(payload json.RawMessage) error {
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if err := t.a2a.HandleStream(r.Context(), msg, send); err != nil {
		// Transport gone; nothing left to write.
		logger.Debug("SSE stream ended early", zap.Error(err))
		return
	}

	if _, err := fmt.Fprintf(w, "data: %s\n\n", sseDoneSentinel); err != nil {
		logger.Debug("Failed to write SSE sentinel", zap.Error(err))
		return
	}
	flusher.Flush()
}

// sendProtocolFailure reports a pre-dispatch failure on whichever channel
// the client asked for: an SSE stream gets the synthetic failed event plus
// the sentinel, a unary client gets a JSON-RPC error envelope.
func (t *Transport) sendProtocolFailure(w http.ResponseWriter, id *any, rpcErr *shared.JSONRPCError, wantsSSE bool, logger *zap.Logger) {
	if !wantsSSE {
		sendErrorResponse(w, id, rpcErr, logger)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		sendErrorResponse(w, id, rpcErr, logger)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	now := time.Now().UTC()
	event := schema.TaskStatusUpdateEvent{
		Type:   schema.EventTypeStatusUpdate,
		TaskID: "",
		Status: schema.TaskStatus{
			State:     schema.TaskStateFailed,
			Timestamp: now,
			ErrorDetails: &map[string]interface{}{
				"code":    rpcErr.Code,
				"message": rpcErr.Message,
			},
		},
		Timestamp: now,
	}
	if payload, err := json.Marshal(event); err == nil {
		fmt.Fprintf(w, "data: %s\n\n", payload)
	}
	fmt.Fprintf(w, "data: %s\n\n", sseDoneSentinel)
	flusher.Flush()
}

func sendResponse(w http.ResponseWriter, response *shared.JSONRPCResponse, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Warn("Failed to write JSON-RPC response", zap.Error(err))
	}
}

func sendErrorResponse(w http.ResponseWriter, id *any, rpcErr *shared.JSONRPCError, logger *zap.Logger) {
	sendResponse(w, &shared.JSONRPCResponse{
		JSONRPC: shared.JSONRPCVersion,
		ID:      id,
		Error:   rpcErr,
	}, logger)
}
