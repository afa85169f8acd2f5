package llm

import (
	"context"
	"fmt"
	"strings"
)

// MockLLM is a deterministic stand-in for local mode. It echoes the last
// input line back and emits a retrieval directive when the input looks
// like a question about past entries, so the hand-off path is exercisable
// without credentials.
type MockLLM struct{}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

func (m *MockLLM) Complete(ctx context.Context, systemPrompt, input string) (string, error) {
	lower := strings.ToLower(input)

	if strings.Contains(lower, "system: the user also has these journal entries") {
		return "Looking back at your entries, a few themes stand out. How does reading them feel now?", nil
	}

	if strings.Contains(lower, "what did i write") || strings.Contains(lower, "my entries") {
		return `{"action": "retrieve", "query": "what the user wrote lately"}`, nil
	}

	last := input
	if i := strings.LastIndex(input, "\n"); i >= 0 {
		last = input[i+1:]
	}
	return fmt.Sprintf("I hear you. You said %q. Tell me a bit more about that.", last), nil
}
