package chatclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func streamHandler(frames ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		f, _ := w.(http.Flusher)
		for _, frame := range frames {
			fmt.Fprintf(w, "data: %s\n\n", frame)
			if f != nil {
				f.Flush()
			}
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}
}

func TestClientSend(t *testing.T) {
	var gotBody sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		streamHandler(
			`{"conversation_id":"conv-1"}`,
			`{"choices":[{"delta":{"content":"Take "}}]}`,
			`{"choices":[{"delta":{"content":"paracetamol."}}]}`,
		)(w, r)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Token: "tok"})
	if err := c.Send(context.Background(), "I have a headache", nil); err != nil {
		t.Fatalf("send: %v", err)
	}

	if len(gotBody.Messages) != 1 || gotBody.Messages[0].Content != "I have a headache" {
		t.Errorf("posted history wrong: %+v", gotBody.Messages)
	}
	if gotBody.Messages[0].ImageURL != "" {
		t.Errorf("text-only message carries image url %q", gotBody.Messages[0].ImageURL)
	}
	if c.ConversationID() != "conv-1" {
		t.Errorf("conversation id = %q", c.ConversationID())
	}
	if c.State() != StateIdle {
		t.Errorf("state = %v, want idle", c.State())
	}

	msgs := c.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[1].Role != RoleAssistant || msgs[1].Text != "Take paracetamol." {
		t.Errorf("assistant message: %+v", msgs[1])
	}
	if msgs[1].InProgress {
		t.Error("assistant message should be finished")
	}
}

func TestClientSendPostsFullHistory(t *testing.T) {
	var bodies []sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		var req sendRequest
		_ = json.Unmarshal(b, &req)
		bodies = append(bodies, req)
		streamHandler(
			`{"conversation_id":"conv-1"}`,
			`{"choices":[{"delta":{"content":"ok"}}]}`,
		)(w, r)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	if err := c.Send(context.Background(), "first", nil); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if err := c.Send(context.Background(), "second", nil); err != nil {
		t.Fatalf("second send: %v", err)
	}

	if len(bodies) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(bodies))
	}
	second := bodies[1]
	if second.ConversationID != "conv-1" {
		t.Errorf("second request conversation id = %q", second.ConversationID)
	}
	// user, assistant, user in order.
	if len(second.Messages) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(second.Messages))
	}
	if second.Messages[0].Content != "first" || second.Messages[1].Role != RoleAssistant || second.Messages[2].Content != "second" {
		t.Errorf("history out of order: %+v", second.Messages)
	}
}

func TestClientSendEncodesImage(t *testing.T) {
	var gotBody sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		streamHandler(`{"choices":[{"delta":{"content":"A mild rash."}}]}`)(w, r)
	}))
	defer srv.Close()

	img := []byte("\x89PNG\r\n\x1a\nfake image bytes")
	c := New(Config{BaseURL: srv.URL})
	if err := c.Send(context.Background(), "what is this?", img); err != nil {
		t.Fatalf("send: %v", err)
	}

	if len(gotBody.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(gotBody.Messages))
	}
	want := "data:image/png;base64," + base64.StdEncoding.EncodeToString(img)
	if got := gotBody.Messages[0].ImageURL; got != want {
		t.Errorf("image url = %q, want %q", got, want)
	}
}

func TestClientCollectsActions(t *testing.T) {
	srv := httptest.NewServer(streamHandler(
		`{"choices":[{"delta":{"content":"Free at 09:30. [ACT"}}]}`,
		`{"choices":[{"delta":{"content":"ION:Book 09:30|book_appointment|{\"time_slot\":\"09:30\"}]"}}]}`,
	))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	if err := c.Send(context.Background(), "any slots?", nil); err != nil {
		t.Fatalf("send: %v", err)
	}

	msgs := c.Messages()
	last := msgs[len(msgs)-1]
	if last.Text != "Free at 09:30. " {
		t.Errorf("display text = %q", last.Text)
	}
	if len(last.Actions) != 1 || last.Actions[0].Tag != "book_appointment" {
		t.Fatalf("actions: %+v", last.Actions)
	}
}

func TestClientErrorFrameMarksMessageFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"error\":{\"message\":\"gateway exploded\"}}\n\n")
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	err := c.Send(context.Background(), "hello", nil)
	if err == nil {
		t.Fatal("expected error from terminal error frame")
	}
	if c.State() != StateFailed {
		t.Errorf("state = %v, want failed", c.State())
	}
	if msgs := c.Messages(); !msgs[0].Err {
		t.Error("triggering user message should be marked failed")
	}
}

func TestClientTransportFailureAndRetry(t *testing.T) {
	fail := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		streamHandler(`{"choices":[{"delta":{"content":"recovered"}}]}`)(w, r)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	if err := c.Send(context.Background(), "flaky", nil); err == nil {
		t.Fatal("expected error from 502")
	}

	msgs := c.Messages()
	if len(msgs) != 1 || !msgs[0].Err {
		t.Fatalf("expected 1 failed message, got %+v", msgs)
	}

	fail = false
	if err := c.Retry(context.Background(), 0); err != nil {
		t.Fatalf("retry: %v", err)
	}

	msgs = c.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages after retry, got %d", len(msgs))
	}
	if msgs[0].Err {
		t.Error("retried message should not be marked failed")
	}
	if msgs[1].Text != "recovered" {
		t.Errorf("assistant text = %q", msgs[1].Text)
	}
	if c.State() != StateIdle {
		t.Errorf("state = %v, want idle", c.State())
	}
}

func TestClientRetryRejectsInvalidIndex(t *testing.T) {
	c := New(Config{BaseURL: "http://localhost:0"})
	if err := c.Retry(context.Background(), 0); err == nil {
		t.Error("expected error retrying with no messages")
	}
}
