package chatclient

import "testing"

func TestParseContentStripsWellFormedMarker(t *testing.T) {
	text, actions := ParseContent(`You can book now. [ACTION:Book 09:30|book_appointment|{"time_slot":"09:30"}] Let me know.`)

	if text != "You can book now.  Let me know." {
		t.Errorf("display text = %q", text)
	}
	if len(actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(actions))
	}
	if actions[0].Label != "Book 09:30" || actions[0].Tag != "book_appointment" {
		t.Errorf("unexpected action: %+v", actions[0])
	}
	if string(actions[0].Args) != `{"time_slot":"09:30"}` {
		t.Errorf("args = %s", actions[0].Args)
	}
}

func TestParseContentEscapes(t *testing.T) {
	_, actions := ParseContent(`[ACTION:Either\|Or \] done|get_available_slots|]`)
	if len(actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(actions))
	}
	if actions[0].Label != "Either|Or ] done" {
		t.Errorf("label = %q", actions[0].Label)
	}
	if actions[0].Args != nil {
		t.Errorf("empty json segment should leave Args nil, got %s", actions[0].Args)
	}
}

func TestParseContentMarkerWithoutArgs(t *testing.T) {
	text, actions := ParseContent("[ACTION:See slots|get_available_slots]")
	if text != "" {
		t.Errorf("display text = %q, want empty", text)
	}
	if len(actions) != 1 || actions[0].Tag != "get_available_slots" {
		t.Fatalf("unexpected actions: %+v", actions)
	}
}

func TestParseContentMalformedLeftInPlace(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"single segment", "[ACTION:only-a-label]"},
		{"too many segments", "[ACTION:a|b|{}|extra]"},
		{"invalid json", "[ACTION:a|b|{not json}]"},
		{"empty tag", "[ACTION:a||{}]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			text, actions := ParseContent("before " + tc.in + " after")
			if len(actions) != 0 {
				t.Errorf("malformed marker produced actions: %+v", actions)
			}
			if text != "before "+tc.in+" after" {
				t.Errorf("malformed marker was altered: %q", text)
			}
		})
	}
}

func TestParseContentUnterminatedStaysVisible(t *testing.T) {
	in := "working on it [ACTION:Book|book_appoin"
	text, actions := ParseContent(in)
	if text != in {
		t.Errorf("unterminated marker was altered: %q", text)
	}
	if len(actions) != 0 {
		t.Errorf("unterminated marker produced actions: %+v", actions)
	}
}

func TestParseContentMultipleMarkersWithMalformed(t *testing.T) {
	in := "a [ACTION:One|t1] b [ACTION:broken] c [ACTION:Two|t2] d"
	text, actions := ParseContent(in)

	if len(actions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(actions))
	}
	if actions[0].Label != "One" || actions[1].Label != "Two" {
		t.Errorf("actions out of order: %+v", actions)
	}
	if text != "a  b [ACTION:broken] c  d" {
		t.Errorf("display text = %q", text)
	}
}

func TestParseContentNoMarkers(t *testing.T) {
	text, actions := ParseContent("plain reply with [brackets] and | pipes")
	if text != "plain reply with [brackets] and | pipes" {
		t.Errorf("text altered: %q", text)
	}
	if len(actions) != 0 {
		t.Errorf("unexpected actions: %+v", actions)
	}
}
