package chatclient

import (
	"testing"
)

func collectContent(events []event) string {
	var s string
	for _, ev := range events {
		for _, ch := range ev.Choices {
			s += ch.Delta.Content
		}
	}
	return s
}

func TestDecoderWholeStream(t *testing.T) {
	var d decoder
	events := d.feed([]byte(
		"data: {\"conversation_id\":\"abc\"}\n\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\"Hello \"}}]}\n\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\"world\"}}]}\n\n" +
			"data: [DONE]\n\n"))

	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].ConversationID != "abc" {
		t.Errorf("conversation id not decoded: %+v", events[0])
	}
	if got := collectContent(events); got != "Hello world" {
		t.Errorf("content = %q, want %q", got, "Hello world")
	}
	if !d.done {
		t.Error("decoder should be done after [DONE]")
	}
}

func TestDecoderChunkBoundaryReassembly(t *testing.T) {
	full := "data: {\"choices\":[{\"delta\":{\"content\":\"Hello \"}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"world\"}}]}\n\n" +
		"data: [DONE]\n\n"

	var whole decoder
	want := collectContent(whole.feed([]byte(full)))

	// Splitting the byte stream at every possible position must decode the
	// same text.
	for cut := 1; cut < len(full); cut++ {
		var d decoder
		var events []event
		events = append(events, d.feed([]byte(full[:cut]))...)
		events = append(events, d.feed([]byte(full[cut:]))...)
		events = append(events, d.flush()...)

		if got := collectContent(events); got != want {
			t.Fatalf("cut at %d: content = %q, want %q", cut, got, want)
		}
	}
}

func TestDecoderSkipsCommentsAndBlankLines(t *testing.T) {
	var d decoder
	events := d.feed([]byte(": keepalive\r\n\r\ndata: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\r\n"))
	if got := collectContent(events); got != "x" {
		t.Errorf("content = %q, want %q", got, "x")
	}
}

func TestDecoderStopsAfterDone(t *testing.T) {
	var d decoder
	events := d.feed([]byte("data: [DONE]\ndata: {\"choices\":[{\"delta\":{\"content\":\"late\"}}]}\n"))
	if len(events) != 0 {
		t.Errorf("expected no events after [DONE], got %d", len(events))
	}
	if more := d.feed([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"later\"}}]}\n")); len(more) != 0 {
		t.Errorf("expected no events on subsequent feeds, got %d", len(more))
	}
}

func TestDecoderFlushParsesTrailingData(t *testing.T) {
	var d decoder
	if events := d.feed([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"tail\"")); len(events) != 0 {
		t.Fatalf("incomplete line must not decode, got %d events", len(events))
	}
	events := d.feed([]byte("}}]}"))
	events = append(events, d.flush()...)
	if got := collectContent(events); got != "tail" {
		t.Errorf("content = %q, want %q", got, "tail")
	}
}

func TestDecoderErrorFrame(t *testing.T) {
	var d decoder
	events := d.feed([]byte("data: {\"error\":{\"message\":\"boom\"}}\n"))
	if len(events) != 1 || events[0].Error == nil || events[0].Error.Message != "boom" {
		t.Fatalf("error frame not decoded: %+v", events)
	}
}
