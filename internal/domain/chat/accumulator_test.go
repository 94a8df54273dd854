package chat

import (
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func intPtr(i int) *int { return &i }

func TestAccumulatorAssemblesFragments(t *testing.T) {
	acc := newToolCallAccumulator()

	acc.add([]openai.ToolCall{{
		Index: intPtr(0),
		ID:    "call_1",
		Type:  openai.ToolTypeFunction,
		Function: openai.FunctionCall{
			Name:      "get_available_slots",
			Arguments: `{"doctor_id":`,
		},
	}})
	acc.add([]openai.ToolCall{{
		Index:    intPtr(0),
		Function: openai.FunctionCall{Arguments: `"abc","date":"2026-09-02"}`},
	}})

	calls := acc.complete()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].ID != "call_1" || calls[0].Function.Name != "get_available_slots" {
		t.Errorf("unexpected call: %+v", calls[0])
	}
	want := `{"doctor_id":"abc","date":"2026-09-02"}`
	if calls[0].Function.Arguments != want {
		t.Errorf("arguments not reassembled: %q", calls[0].Function.Arguments)
	}
}

func TestAccumulatorPreservesEmissionOrder(t *testing.T) {
	acc := newToolCallAccumulator()

	acc.add([]openai.ToolCall{{
		Index:    intPtr(0),
		ID:       "call_a",
		Function: openai.FunctionCall{Name: "list_doctors", Arguments: "{}"},
	}})
	acc.add([]openai.ToolCall{{
		Index:    intPtr(1),
		ID:       "call_b",
		Function: openai.FunctionCall{Name: "list_my_appointments", Arguments: "{}"},
	}})
	// Late fragment for the first call must not reorder anything.
	acc.add([]openai.ToolCall{{
		Index:    intPtr(0),
		Function: openai.FunctionCall{Arguments: ""},
	}})

	calls := acc.complete()
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
	if calls[0].ID != "call_a" || calls[1].ID != "call_b" {
		t.Errorf("order not preserved: %s, %s", calls[0].ID, calls[1].ID)
	}
}

func TestAccumulatorEmpty(t *testing.T) {
	acc := newToolCallAccumulator()
	if !acc.empty() {
		t.Error("fresh accumulator should be empty")
	}
	acc.add([]openai.ToolCall{{Index: intPtr(0), ID: "x"}})
	if acc.empty() {
		t.Error("accumulator with a fragment should not be empty")
	}
}
