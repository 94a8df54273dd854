package chat

import (
	openai "github.com/sashabaranov/go-openai"
)

// toolCallAccumulator assembles tool calls from stream deltas. The gateway
// fragments each call across chunks keyed by index: the first fragment
// carries the ID and function name, later ones append argument text.
type toolCallAccumulator struct {
	calls map[int]*openai.ToolCall
	order []int
}

func newToolCallAccumulator() *toolCallAccumulator {
	return &toolCallAccumulator{calls: make(map[int]*openai.ToolCall)}
}

func (a *toolCallAccumulator) add(deltas []openai.ToolCall) {
	for _, delta := range deltas {
		idx := 0
		if delta.Index != nil {
			idx = *delta.Index
		}
		call, ok := a.calls[idx]
		if !ok {
			call = &openai.ToolCall{}
			a.calls[idx] = call
			a.order = append(a.order, idx)
		}
		if delta.ID != "" {
			call.ID = delta.ID
		}
		if delta.Type != "" {
			call.Type = delta.Type
		}
		if delta.Function.Name != "" {
			call.Function.Name = delta.Function.Name
		}
		call.Function.Arguments += delta.Function.Arguments
	}
}

// empty reports whether no tool call fragments were seen.
func (a *toolCallAccumulator) empty() bool { return len(a.order) == 0 }

// complete returns the assembled calls in the order the gateway emitted them.
func (a *toolCallAccumulator) complete() []openai.ToolCall {
	out := make([]openai.ToolCall, 0, len(a.order))
	for _, idx := range a.order {
		out = append(out, *a.calls[idx])
	}
	return out
}
