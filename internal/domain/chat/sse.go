package chat

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// sseWriter emits server-sent events and flushes after every frame so deltas
// reach the client as they arrive.
type sseWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	f.Flush()
	return &sseWriter{w: w, f: f}, nil
}

// WriteEvent marshals v and emits it as a single data frame.
func (s *sseWriter) WriteEvent(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", b); err != nil {
		return err
	}
	s.f.Flush()
	return nil
}

// WriteError emits the terminal error frame. The stream carries no further
// frames after it.
func (s *sseWriter) WriteError(msg string) {
	frame := map[string]interface{}{
		"error": map[string]string{"message": msg},
	}
	_ = s.WriteEvent(frame)
}

// WriteDone emits the end-of-stream sentinel.
func (s *sseWriter) WriteDone() {
	_, _ = fmt.Fprint(s.w, "data: [DONE]\n\n")
	s.f.Flush()
}
