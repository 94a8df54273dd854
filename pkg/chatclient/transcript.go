package chatclient

import "fmt"

// Roles of transcript entries.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one transcript entry as a UI should render it. Text has action
// markers stripped; Raw keeps the full accumulated content.
type Message struct {
	Role       string
	Text       string
	Raw        string
	Actions    []Action
	Image      []byte
	Err        bool
	InProgress bool
}

// Transcript is the ordered exchange for one conversation. Deltas only ever
// mutate a trailing in-progress assistant message; anything else gets a new
// entry, so text grows monotonically in arrival order.
type Transcript struct {
	msgs []Message
}

// Messages returns a copy of the transcript entries.
func (t *Transcript) Messages() []Message {
	out := make([]Message, len(t.msgs))
	copy(out, t.msgs)
	return out
}

func (t *Transcript) Len() int { return len(t.msgs) }

// appendUser adds an optimistic user message and returns its index.
func (t *Transcript) appendUser(text string, image []byte) int {
	t.msgs = append(t.msgs, Message{Role: RoleUser, Text: text, Raw: text, Image: image})
	return len(t.msgs) - 1
}

// appendDelta extends the in-progress assistant message when it is last, or
// starts a new one. The accumulated content is re-scanned for action markers
// after every delta.
func (t *Transcript) appendDelta(delta string) {
	if n := len(t.msgs); n > 0 {
		last := &t.msgs[n-1]
		if last.Role == RoleAssistant && last.InProgress {
			last.Raw += delta
			last.Text, last.Actions = ParseContent(last.Raw)
			return
		}
	}

	m := Message{Role: RoleAssistant, Raw: delta, InProgress: true}
	m.Text, m.Actions = ParseContent(delta)
	t.msgs = append(t.msgs, m)
}

// finish closes the in-progress assistant message, if any.
func (t *Transcript) finish() {
	if n := len(t.msgs); n > 0 && t.msgs[n-1].Role == RoleAssistant {
		t.msgs[n-1].InProgress = false
	}
}

// markError flags the message at index as failed.
func (t *Transcript) markError(index int) {
	if index >= 0 && index < len(t.msgs) {
		t.msgs[index].Err = true
	}
}

// removeFailed removes and returns the failed user message at index.
func (t *Transcript) removeFailed(index int) (Message, error) {
	if index < 0 || index >= len(t.msgs) {
		return Message{}, fmt.Errorf("no message at index %d", index)
	}
	m := t.msgs[index]
	if m.Role != RoleUser || !m.Err {
		return Message{}, fmt.Errorf("message at index %d is not a failed user message", index)
	}
	t.msgs = append(t.msgs[:index], t.msgs[index+1:]...)
	return m, nil
}
