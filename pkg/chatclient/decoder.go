package chatclient

import (
	"encoding/json"
	"strings"
)

// event is one decoded payload from the relay stream.
type event struct {
	ConversationID string      `json:"conversation_id"`
	Error          *eventError `json:"error"`
	Choices        []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

type eventError struct {
	Message string `json:"message"`
}

// decoder accumulates raw response bytes and yields complete events. Server
// frames may be split arbitrarily across reads; a trailing fragment whose
// JSON does not yet parse is pushed back and completed by the next read.
type decoder struct {
	buf  string
	done bool
}

// feed appends p to the buffer and decodes every complete event in it.
// The [DONE] sentinel stops consumption of the current chunk and everything
// after it.
func (d *decoder) feed(p []byte) []event {
	if d.done {
		return nil
	}
	d.buf += string(p)

	lines := strings.Split(d.buf, "\n")
	d.buf = ""

	var events []event
	for i, line := range lines {
		if d.done {
			break
		}
		ev, ok, incomplete := d.decodeLine(line, i == len(lines)-1)
		if incomplete {
			d.buf = line
			break
		}
		if ok {
			events = append(events, ev)
		}
	}
	return events
}

// flush runs a final pass over any trailing unterminated data once the
// stream has ended.
func (d *decoder) flush() []event {
	if d.done || d.buf == "" {
		return nil
	}
	line := d.buf
	d.buf = ""
	if ev, ok, _ := d.decodeLine(line, false); ok {
		return []event{ev}
	}
	return nil
}

// decodeLine parses a single SSE line. Blank lines and comments are skipped.
// When the last line of a read fails to parse it is reported incomplete so
// the caller can push it back.
func (d *decoder) decodeLine(line string, last bool) (event, bool, bool) {
	line = strings.TrimSuffix(line, "\r")
	if line == "" || strings.HasPrefix(line, ":") {
		return event{}, false, false
	}
	payload, ok := strings.CutPrefix(line, "data:")
	if !ok {
		if last {
			return event{}, false, true
		}
		return event{}, false, false
	}
	payload = strings.TrimPrefix(payload, " ")
	if payload == "[DONE]" {
		d.done = true
		return event{}, false, false
	}

	var ev event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		if last {
			return event{}, false, true
		}
		return event{}, false, false
	}
	return ev, true, false
}
