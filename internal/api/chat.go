package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/firebase/genkit/go/ai"

	"github.com/koopa0/recall/internal/chat"
	"github.com/koopa0/recall/internal/log"
)

// maxQueryBytes bounds the request body; a chat question has no business
// being larger.
const maxQueryBytes = 64 << 10

// Pipeline is the part of the chat pipeline the API needs. Tests substitute
// a stub.
type Pipeline interface {
	Ask(ctx context.Context, query string) (string, error)
	AskStream(ctx context.Context, query string, callback chat.StreamCallback) (string, error)
}

// ChatHandler serves the chat endpoints.
type ChatHandler struct {
	pipeline Pipeline
	logger   log.Logger
}

// NewChatHandler creates a chat handler.
func NewChatHandler(pipeline Pipeline, logger log.Logger) *ChatHandler {
	return &ChatHandler{pipeline: pipeline, logger: logger}
}

// RegisterRoutes registers the chat routes.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	if h.pipeline == nil {
		h.logger.Warn("chat pipeline is nil, chat endpoints not registered")
		return
	}
	mux.HandleFunc("POST /api/chat", h.handleChat)
	mux.HandleFunc("POST /api/chat/stream", h.handleStream)
}

// ChatRequest is the request body for both chat endpoints.
type ChatRequest struct {
	Query string `json:"query"`
}

// ChatResponse is the response body for the synchronous endpoint.
type ChatResponse struct {
	Answer string `json:"answer"`
}

func (h *ChatHandler) handleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	answer, err := h.pipeline.Ask(r.Context(), req.Query)
	if err != nil {
		h.logger.Error("chat failed", "error", err)
		writeError(w, http.StatusInternalServerError, "GENERATION_FAILED", "could not generate a response", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Answer: answer}, h.logger)
}

func (h *ChatHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (ChatRequest, bool) {
	var req ChatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxQueryBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", fmt.Sprintf("invalid request body: %v", err), h.logger)
		return req, false
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "MISSING_QUERY", "query is required", h.logger)
		return req, false
	}
	return req, true
}

// SSE event payloads.
type (
	// SSEChunkData carries partial text for "chunk" events.
	SSEChunkData struct {
		Text string `json:"text"`
	}

	// SSEDoneData carries the final answer for "done" events.
	SSEDoneData struct {
		Answer string `json:"answer"`
	}

	// SSEErrorData carries failure details for "error" events.
	SSEErrorData struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
)

// handleStream serves the SSE endpoint. Event types: "chunk" for partial
// text, "done" with the full answer, "error" on failure. SSE responses are
// always 200; errors travel in the event stream.
func (h *ChatHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("response writer does not support streaming")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	var req ChatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxQueryBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeSSEError(w, flusher, "INVALID_REQUEST", fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Query == "" {
		h.writeSSEError(w, flusher, "MISSING_QUERY", "query is required")
		return
	}

	ctx := r.Context()
	answer, err := h.pipeline.AskStream(ctx, req.Query, func(_ context.Context, chunk *ai.ModelResponseChunk) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		h.writeSSEChunk(w, flusher, chunk.Text())
		return nil
	})
	if err != nil {
		h.logger.Error("stream failed", "error", err)
		h.writeSSEError(w, flusher, "STREAM_ERROR", "could not generate a response")
		return
	}
	h.writeSSEDone(w, flusher, answer)
}

func (h *ChatHandler) writeSSEChunk(w http.ResponseWriter, flusher http.Flusher, text string) {
	data, _ := json.Marshal(SSEChunkData{Text: text})
	fmt.Fprintf(w, "event: chunk\ndata: %s\n\n", data)
	flusher.Flush()
}

func (h *ChatHandler) writeSSEDone(w http.ResponseWriter, flusher http.Flusher, answer string) {
	data, _ := json.Marshal(SSEDoneData{Answer: answer})
	fmt.Fprintf(w, "event: done\ndata: %s\n\n", data)
	flusher.Flush()
}

func (h *ChatHandler) writeSSEError(w http.ResponseWriter, flusher http.Flusher, code, message string) {
	data, _ := json.Marshal(SSEErrorData{Code: code, Message: message})
	fmt.Fprintf(w, "event: error\ndata: %s\n\n", data)
	flusher.Flush()
}
