// Package stream frames pipeline events as server-sent events on an HTTP
// response. One Writer serves one request.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"studioshot/internal/pipeline"
)

// ErrTerminal is returned when an event is emitted after the stream already
// carried its terminal event.
var ErrTerminal = errors.New("stream: terminal event already sent")

// Writer serializes events in emission order and flushes each one before
// returning, so callers observe progress before any later side effect.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher

	mu       sync.Mutex
	terminal bool
}

// NewWriter prepares the response for event streaming. The underlying
// ResponseWriter must support flushing.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("stream: response writer does not support flushing")
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	return &Writer{w: w, flusher: flusher}, nil
}

// Emit writes one `event:`/`data:` block and flushes it. After an error or
// complete event the stream is closed to further writes: a request carries
// at most one terminal event.
func (s *Writer) Emit(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("stream: marshal %s event: %w", event, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminal {
		return ErrTerminal
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return fmt.Errorf("stream: write %s event: %w", event, err)
	}
	s.flusher.Flush()
	if event == pipeline.EventError || event == pipeline.EventComplete {
		s.terminal = true
	}
	return nil
}

var _ pipeline.EventSink = (*Writer)(nil)
