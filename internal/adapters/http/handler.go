package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/driftnote/driftnote-agent/internal/app/chat"
	"github.com/driftnote/driftnote-agent/internal/app/journal"
	"github.com/driftnote/driftnote-agent/internal/domain"
)

type Server struct {
	surfaces map[domain.Surface]*chat.Orchestrator
	journal  *journal.Service
}

func NewServer(surfaces map[domain.Surface]*chat.Orchestrator, journalSvc *journal.Service) http.Handler {
	s := &Server{
		surfaces: surfaces,
		journal:  journalSvc,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealthz)

	// /chat/{surface}/messages → POST: send, GET: visible log, DELETE: clear
	// /chat/{surface}/stop     → POST: cancel the in-flight turn
	mux.HandleFunc("/chat/", s.handleChat)

	// /journal/entries → GET: list, POST: add
	mux.HandleFunc("/journal/entries", s.handleJournalEntries)

	return chainMiddlewares(mux, withRequestID, withLogging, withCORS)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type messageResponse struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Persisted *bool     `json:"persisted,omitempty"`
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

type sendMessageResponse struct {
	UserMessage       messageResponse   `json:"user_message"`
	AssistantMessages []messageResponse `json:"assistant_messages"`
	Cancelled         bool              `json:"cancelled"`
}

type conversationResponse struct {
	Surface  string            `json:"surface"`
	State    string            `json:"state"`
	Typing   bool              `json:"typing"`
	Messages []messageResponse `json:"messages"`
}

type addEntryRequest struct {
	Mood string `json:"mood"`
	Text string `json:"text"`
}

// ─────────────────────────────────────────────
// Routing
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// /chat/{surface}/messages or /chat/{surface}/stop
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/chat/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}

	orch, ok := s.surfaces[domain.Surface(parts[0])]
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch parts[1] {
	case "messages":
		switch r.Method {
		case http.MethodPost:
			s.handleSendMessage(w, r, orch)
		case http.MethodGet:
			s.handleGetConversation(w, r, orch)
		case http.MethodDelete:
			s.handleClearConversation(w, r, orch)
		default:
			methodNotAllowed(w)
		}
	case "stop":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		orch.Stop()
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "stopping"})
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleJournalEntries(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListEntries(w, r)
	case http.MethodPost:
		s.handleAddEntry(w, r)
	default:
		methodNotAllowed(w)
	}
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request, orch *chat.Orchestrator) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		badRequest(w, "text is required")
		return
	}

	res, err := orch.Send(r.Context(), req.Text)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrBusy):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "a reply is already in progress"})
		case errors.Is(err, chat.ErrQuotaExceeded):
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "daily send limit reached"})
		default:
			var me *domain.ModelError
			if errors.As(err, &me) {
				writeJSON(w, http.StatusBadGateway, map[string]string{"error": "assistant is unavailable, try again"})
				return
			}
			internalError(w, err)
		}
		return
	}

	resp := sendMessageResponse{
		UserMessage:       toTurnMessageResponse(res.User),
		AssistantMessages: make([]messageResponse, 0, len(res.Assistant)),
		Cancelled:         res.Cancelled,
	}
	for _, tm := range res.Assistant {
		resp.AssistantMessages = append(resp.AssistantMessages, toTurnMessageResponse(tm))
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request, orch *chat.Orchestrator) {
	msgs := orch.Messages()

	resp := conversationResponse{
		Surface:  string(orch.Surface()),
		State:    string(orch.State()),
		Typing:   orch.Typing(),
		Messages: make([]messageResponse, 0, len(msgs)),
	}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, toMessageResponse(m))
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClearConversation(w http.ResponseWriter, r *http.Request, orch *chat.Orchestrator) {
	if err := orch.ClearConversation(r.Context()); err != nil {
		internalError(w, err)
		return
	}
	s.handleGetConversation(w, r, orch)
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	sinceDays := 0
	if raw := r.URL.Query().Get("since_days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(w, "since_days must be a non-negative integer")
			return
		}
		sinceDays = n
	}

	entries, err := s.journal.ListEntries(r.Context(), sinceDays)
	if err != nil {
		internalError(w, err)
		return
	}
	if entries == nil {
		entries = []*domain.JournalEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	var req addEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		badRequest(w, "text is required")
		return
	}

	entry, err := s.journal.AddEntry(r.Context(), req.Mood, req.Text)
	if err != nil {
		internalError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

// ─────────────────────────────────────────────
// Response helpers
// ─────────────────────────────────────────────

func toMessageResponse(m *domain.Message) messageResponse {
	return messageResponse{
		ID:        string(m.ID),
		Role:      string(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

func toTurnMessageResponse(tm chat.TurnMessage) messageResponse {
	resp := toMessageResponse(tm.Message)
	persisted := tm.Persisted
	resp.Persisted = &persisted
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func internalError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
		"error": "method not allowed",
	})
}
