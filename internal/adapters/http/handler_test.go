package httpadapter_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/driftnote/driftnote-agent/internal/adapters/entitlement"
	httpadapter "github.com/driftnote/driftnote-agent/internal/adapters/http"
	"github.com/driftnote/driftnote-agent/internal/adapters/llm"
	"github.com/driftnote/driftnote-agent/internal/adapters/storage/memory"
	"github.com/driftnote/driftnote-agent/internal/app/chat"
	"github.com/driftnote/driftnote-agent/internal/app/journal"
	"github.com/driftnote/driftnote-agent/internal/app/quota"
	"github.com/driftnote/driftnote-agent/internal/app/retrieval"
	"github.com/driftnote/driftnote-agent/internal/app/session"
	"github.com/driftnote/driftnote-agent/internal/domain"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	ctx := context.Background()
	llmClient := llm.NewMockLLM()
	messageStore := memory.NewMessageStore()
	entryStore := memory.NewEntryStore()
	stateStore := memory.NewStateStore()
	entitlements := entitlement.NewStatic(false)

	surfaces := make(map[domain.Surface]*chat.Orchestrator)
	for _, sf := range []struct {
		surface domain.Surface
		limit   int
	}{
		{domain.SurfaceChat, 0},
		{domain.SurfaceReflections, 3},
	} {
		anchor, err := session.Load(ctx, stateStore, sf.surface, nil)
		if err != nil {
			t.Fatalf("session.Load failed: %v", err)
		}
		orch, err := chat.New(ctx, chat.Config{
			Surface:   sf.surface,
			LLM:       llmClient,
			Messages:  messageStore,
			Anchor:    anchor,
			Retriever: retrieval.NewAgent(entryStore, nil),
			Gate:      quota.NewGate(stateStore, entitlements, sf.surface, sf.limit, nil),
		})
		if err != nil {
			t.Fatalf("chat.New failed: %v", err)
		}
		surfaces[sf.surface] = orch
	}

	return httpadapter.NewServer(surfaces, journal.NewService(entryStore))
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestSendMessageAndReadBack(t *testing.T) {
	srv := newTestServer(t)

	body := []byte(`{"text":"hello there"}`)
	req := httptest.NewRequest(http.MethodPost, "/chat/chat/messages", bytes.NewReader(body))
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", w.Code, w.Body.String())
	}

	var sent struct {
		UserMessage struct {
			Content string `json:"content"`
		} `json:"user_message"`
		AssistantMessages []struct {
			Content string `json:"content"`
		} `json:"assistant_messages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &sent); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if sent.UserMessage.Content != "hello there" {
		t.Errorf("user message content = %q", sent.UserMessage.Content)
	}
	if len(sent.AssistantMessages) == 0 {
		t.Fatal("expected at least one assistant message")
	}

	req = httptest.NewRequest(http.MethodGet, "/chat/chat/messages", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var conv struct {
		State    string `json:"state"`
		Typing   bool   `json:"typing"`
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &conv); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if conv.State != "idle" || conv.Typing {
		t.Errorf("expected idle/not-typing, got state=%s typing=%v", conv.State, conv.Typing)
	}
	// opening greeting + user + assistant
	if len(conv.Messages) < 3 {
		t.Errorf("expected at least 3 messages, got %d", len(conv.Messages))
	}
}

func TestReflectionsQuotaReturns429(t *testing.T) {
	srv := newTestServer(t)

	var last int
	for i := 0; i < 4; i++ {
		body := []byte(`{"text":"a reflection"}`)
		req := httptest.NewRequest(http.MethodPost, "/chat/reflections/messages", bytes.NewReader(body))
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)
		last = w.Code
	}

	if last != http.StatusTooManyRequests {
		t.Fatalf("fourth reflections send should be 429, got %d", last)
	}
}

func TestUnknownSurfaceIs404(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/chat/nope/messages", bytes.NewReader([]byte(`{"text":"x"}`)))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestClearConversationEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodDelete, "/chat/chat/messages", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", w.Code, w.Body.String())
	}

	var conv struct {
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &conv); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	// fresh session: exactly the new opening greeting
	if len(conv.Messages) != 1 || conv.Messages[0].Role != "assistant" {
		t.Fatalf("expected a single assistant greeting after clear, got %+v", conv.Messages)
	}
}

func TestJournalEntriesRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	body := []byte(`{"mood":"calm","text":"walked by the river"}`)
	req := httptest.NewRequest(http.MethodPost, "/journal/entries", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d, body=%s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/journal/entries", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Entries []struct {
			Mood string `json:"mood"`
			Text string `json:"text"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Entries) != 1 || resp.Entries[0].Text != "walked by the river" {
		t.Fatalf("unexpected entries: %+v", resp.Entries)
	}
}
