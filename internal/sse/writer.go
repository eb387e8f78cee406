// Package sse writes server-sent event frames for streaming responses.
package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Event is one streamed payload. The chat stream only ever emits
// "content" events; unknown types are ignored by consumers.
type Event struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// ErrStreamingUnsupported is returned when the ResponseWriter cannot
// flush incrementally.
var ErrStreamingUnsupported = errors.New("response writer does not support streaming")

// Writer frames events as "data: <json>\n" lines and flushes after each
// one so partial output reaches the client immediately.
type Writer struct {
	w http.ResponseWriter
	f http.Flusher
}

// NewWriter wraps w for SSE output. It fails if w cannot flush.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	return &Writer{w: w, f: f}, nil
}

// PrepareHeaders sets the streaming response headers. Call before the
// first Send and before WriteHeader.
func (s *Writer) PrepareHeaders() {
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

// Send writes one event frame and flushes it.
func (s *Writer) Send(ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n", payload); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	s.f.Flush()
	return nil
}

// Content sends one content event.
func (s *Writer) Content(text string) error {
	return s.Send(Event{Type: "content", Content: text})
}
