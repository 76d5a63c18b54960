package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
)

// sseWriter wraps an http.ResponseWriter with SSE event writing and
// client disconnect detection.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	ctx     context.Context
}

// newSSEWriter prepares SSE headers and returns a writer.
// Returns nil if streaming is not supported.
func newSSEWriter(w http.ResponseWriter, r *http.Request) *sseWriter {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return nil
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	return &sseWriter{w: w, flusher: flusher, ctx: r.Context()}
}

// Send writes an SSE event. Returns false if the client has disconnected.
func (s *sseWriter) Send(event string, data any) bool {
	select {
	case <-s.ctx.Done():
		return false
	default:
	}
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		log.Printf("[SSE] JSON marshal error: %v", err)
		return false
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, jsonBytes); err != nil {
		log.Printf("[SSE] Write error (client disconnected?): %v", err)
		return false
	}
	s.flusher.Flush()
	return true
}

const (
	sseEventStage = "stage"
	sseEventDone  = "done"
	sseEventError = "error"
)

type sseStageEvent struct {
	Stage  string `json:"stage"`
	Detail string `json:"detail"`
}

type sseDoneEvent struct {
	ID        string `json:"id"`
	Project   string `json:"project"`
	Chapters  int    `json:"chapters"`
	Missing   int    `json:"missing"`
	OutputDir string `json:"output_dir"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

type sseErrorEvent struct {
	Error string `json:"error"`
}
