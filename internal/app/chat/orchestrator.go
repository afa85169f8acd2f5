package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/driftnote/driftnote-agent/internal/app/session"
	"github.com/driftnote/driftnote-agent/internal/domain"
	"github.com/driftnote/driftnote-agent/internal/observability"
)

// State is the orchestrator's lifecycle phase, exposed so the
// presentation layer can mirror it.
type State string

const (
	StateIdle              State = "idle"
	StateAwaitingReply     State = "awaiting_reply"
	StateAwaitingRetrieval State = "awaiting_retrieval"
	StateStopping          State = "stopping"
)

var (
	// ErrBusy rejects a send while a turn is still in flight. The UI
	// disables input on the typing flag; this is the defensive backstop.
	ErrBusy = errors.New("chat: a turn is already in flight")

	// ErrQuotaExceeded rejects a send past the surface's daily limit.
	ErrQuotaExceeded = errors.New("chat: daily send limit reached")
)

// RetrievalConfirmation is the fixed placeholder persisted for immediate
// display when the assistant hands off to journal retrieval. The raw
// directive is never shown.
const RetrievalConfirmation = "Give me a moment while I look back through your journal."

// openingSentinel is the hidden input that prompts the opening greeting.
// It is never stored or displayed.
const openingSentinel = "Begin the conversation with a short, warm greeting."

const digestPreamble = "System: The user also has these journal entries:\n"

// Retriever is the hand-off target for journal digests.
type Retriever interface {
	FetchDigest(ctx context.Context, query string) (string, error)
}

// QuotaGate guards user-initiated sends.
type QuotaGate interface {
	CanSend(ctx context.Context) bool
	RecordSend(ctx context.Context)
}

// Config wires one orchestrator instance. The app runs two: one per
// conversation surface, each with its own storage partition, session
// anchor, and quota policy.
type Config struct {
	Surface   domain.Surface
	LLM       domain.LLMClient
	Messages  domain.MessageStore
	Anchor    *session.Anchor
	Retriever Retriever
	Gate      QuotaGate

	// SystemPrompt builds the fixed persona prompt for a session given
	// its start time. Rebuilt only when the session resets.
	SystemPrompt func(now time.Time) string

	// RetrievalDelay is the cosmetic pause before the digest fetch, there
	// only to make the typing state perceptible. Zero disables it.
	RetrievalDelay time.Duration

	Now func() time.Time
}

// Orchestrator owns one surface's message log and drives the
// send / reply / hand-off lifecycle. It is single-writer: all state
// mutations happen under one mutex, and the model and retrieval calls
// are the only suspension points.
type Orchestrator struct {
	surface        domain.Surface
	llm            domain.LLMClient
	messages       domain.MessageStore
	anchor         *session.Anchor
	retriever      Retriever
	gate           QuotaGate
	buildPrompt    func(now time.Time) string
	retrievalDelay time.Duration
	now            func() time.Time

	mu              sync.Mutex
	state           State
	typing          bool
	cancelRequested bool
	turnCancel      context.CancelFunc
	log             []*domain.Message
	systemPrompt    string
}

// TurnMessage pairs a displayed message with whether it was durably
// persisted. Appends are optimistic: a store failure keeps the message
// visible and only flips Persisted off.
type TurnMessage struct {
	Message   *domain.Message
	Persisted bool
}

// TurnResult is the outcome of one user send. Assistant holds zero, one,
// or two messages (the retrieval confirmation plus the final reply).
type TurnResult struct {
	User      TurnMessage
	Assistant []TurnMessage
	Cancelled bool
}

// New loads the visible session log and, when it is empty, synthesizes
// the opening greeting.
func New(ctx context.Context, cfg Config) (*Orchestrator, error) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.SystemPrompt == nil {
		cfg.SystemPrompt = func(time.Time) string { return "" }
	}

	o := &Orchestrator{
		surface:        cfg.Surface,
		llm:            cfg.LLM,
		messages:       cfg.Messages,
		anchor:         cfg.Anchor,
		retriever:      cfg.Retriever,
		gate:           cfg.Gate,
		buildPrompt:    cfg.SystemPrompt,
		retrievalDelay: cfg.RetrievalDelay,
		now:            cfg.Now,
		state:          StateIdle,
	}
	o.systemPrompt = o.buildPrompt(o.now())

	msgs, err := o.messages.MessagesSince(ctx, o.surface, o.anchor.Start())
	if err != nil {
		return nil, err
	}
	o.log = msgs

	o.openIfEmpty(ctx)
	return o, nil
}

// Send runs one full user turn: quota check, optimistic user append,
// model call, and reply handling (including at most one retrieval
// hand-off). It blocks the caller until the turn resolves; concurrent
// sends are rejected with ErrBusy.
func (o *Orchestrator) Send(ctx context.Context, text string) (*TurnResult, error) {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return nil, ErrBusy
	}
	if !o.gate.CanSend(ctx) {
		o.mu.Unlock()
		return nil, ErrQuotaExceeded
	}
	// A stale stop from a previous turn is cleared by the next send.
	o.cancelRequested = false
	turnCtx, cancel := context.WithCancel(ctx)
	o.turnCancel = cancel
	o.state = StateAwaitingReply
	o.typing = true
	o.mu.Unlock()
	defer cancel()

	userMsg, userPersisted := o.appendMessage(ctx, domain.RoleUser, text)
	o.gate.RecordSend(ctx)

	assistant, cancelled, err := o.runTurn(ctx, turnCtx, o.transcript(), 0)
	if err != nil {
		return nil, err
	}

	return &TurnResult{
		User:      TurnMessage{Message: userMsg, Persisted: userPersisted},
		Assistant: assistant,
		Cancelled: cancelled,
	}, nil
}

// runTurn issues one model call and handles the reply. depth counts
// retrieval hand-offs: a directive in the post-digest reply is not
// honored, capping the hand-off depth at one hop per user turn.
func (o *Orchestrator) runTurn(ctx, turnCtx context.Context, input string, depth int) ([]TurnMessage, bool, error) {
	log := observability.LoggerFromContext(ctx).With("surface", o.surface)

	reply, err := o.llm.Complete(turnCtx, o.systemPromptSnapshot(), input)
	if o.consumeCancel(turnCtx) {
		log.Info("turn cancelled, pending reply discarded")
		return nil, true, nil
	}
	if err != nil {
		o.finishTurn()
		log.Error("model call failed", "error", err)
		var me *domain.ModelError
		if !errors.As(err, &me) {
			err = &domain.ModelError{Err: err}
		}
		return nil, false, err
	}

	parsed := ParseReply(reply)
	if parsed.Kind == RetrievalDirective && depth == 0 {
		confirmation, persisted := o.appendMessage(ctx, domain.RoleAssistant, RetrievalConfirmation)
		out := []TurnMessage{{Message: confirmation, Persisted: persisted}}
		o.setState(StateAwaitingRetrieval)
		log.Info("retrieval hand-off", "query", parsed.Query)

		if o.retrievalDelay > 0 {
			// makes the typing state perceptible; no correctness meaning
			select {
			case <-time.After(o.retrievalDelay):
			case <-turnCtx.Done():
			}
		}
		if o.consumeCancel(turnCtx) {
			return out, true, nil
		}

		digest, err := o.retriever.FetchDigest(turnCtx, parsed.Query)
		if o.consumeCancel(turnCtx) {
			return out, true, nil
		}
		if err != nil {
			o.finishTurn()
			log.Error("retrieval failed", "error", err)
			return nil, false, err
		}

		o.setState(StateAwaitingReply)
		next := digestInput(o.transcript(), digest, parsed.Query)
		more, cancelled, err := o.runTurn(ctx, turnCtx, next, depth+1)
		if err != nil {
			return nil, false, err
		}
		return append(out, more...), cancelled, nil
	}

	msg, persisted := o.appendMessage(ctx, domain.RoleAssistant, reply)
	o.finishTurn()
	return []TurnMessage{{Message: msg, Persisted: persisted}}, false, nil
}

// Stop requests cancellation of the in-flight turn. The typing indicator
// clears immediately; the pending reply is discarded once the
// outstanding call resolves. The user's already-saved message is never
// rolled back.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.typing = false
	if o.state == StateIdle {
		return
	}
	o.cancelRequested = true
	o.state = StateStopping
	if o.turnCancel != nil {
		o.turnCancel()
	}
}

// ClearConversation deletes the session's persisted messages, resets the
// session anchor to now, and synthesizes a fresh opening greeting.
func (o *Orchestrator) ClearConversation(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateIdle {
		o.cancelRequested = true
		if o.turnCancel != nil {
			o.turnCancel()
		}
	}
	o.typing = false
	start := o.anchor.Start()
	o.mu.Unlock()

	if err := o.messages.DeleteSince(ctx, o.surface, start); err != nil {
		return err
	}

	newStart, err := o.anchor.Reset(ctx)
	if err != nil {
		return err
	}

	o.mu.Lock()
	o.log = nil
	o.state = StateIdle
	o.systemPrompt = o.buildPrompt(newStart)
	o.mu.Unlock()

	observability.LoggerFromContext(ctx).Info("conversation cleared", "surface", o.surface)

	o.openIfEmpty(ctx)
	return nil
}

// Messages returns a snapshot of the visible session log.
func (o *Orchestrator) Messages() []*domain.Message {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]*domain.Message, len(o.log))
	copy(out, o.log)
	return out
}

// Typing reports whether the assistant-is-typing indicator is on.
func (o *Orchestrator) Typing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.typing
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) Surface() domain.Surface {
	return o.surface
}

// openIfEmpty sends the hidden sentinel to the model and persists only
// the assistant's greeting. A failure here is non-fatal: the log stays
// empty and the next send proceeds normally.
func (o *Orchestrator) openIfEmpty(ctx context.Context) {
	o.mu.Lock()
	if len(o.log) > 0 {
		o.mu.Unlock()
		return
	}
	o.state = StateAwaitingReply
	o.typing = true
	o.mu.Unlock()

	greeting, err := o.llm.Complete(ctx, o.systemPromptSnapshot(), openingSentinel)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("opening greeting failed", "surface", o.surface, "error", err)
		o.finishTurn()
		return
	}

	o.appendMessage(ctx, domain.RoleAssistant, greeting)
	o.finishTurn()
}

// appendMessage creates a message, appends it to the in-memory log, and
// persists it. Persistence is optimistic: on a store failure the message
// stays visible and the second return value is false. Timestamps are
// nudged forward when the clock hasn't advanced so the session log stays
// strictly ordered.
func (o *Orchestrator) appendMessage(ctx context.Context, role domain.Role, content string) (*domain.Message, bool) {
	o.mu.Lock()
	ts := o.now()
	if n := len(o.log); n > 0 && !ts.After(o.log[n-1].CreatedAt) {
		ts = o.log[n-1].CreatedAt.Add(time.Nanosecond)
	}
	msg := &domain.Message{
		ID:        domain.MessageID(ulid.Make().String()),
		Surface:   o.surface,
		Role:      role,
		Content:   content,
		CreatedAt: ts,
	}
	o.log = append(o.log, msg)
	o.mu.Unlock()

	if err := o.messages.AppendMessage(ctx, msg); err != nil {
		observability.LoggerFromContext(ctx).Error("message append failed",
			"surface", o.surface, "message_id", msg.ID, "error", err)
		return msg, false
	}
	return msg, true
}

// consumeCancel checks the cancellation flag at a resumption point and,
// when set, consumes it and returns the machine to Idle.
func (o *Orchestrator) consumeCancel(turnCtx context.Context) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.cancelRequested && turnCtx.Err() == nil {
		return false
	}
	o.cancelRequested = false
	o.state = StateIdle
	o.typing = false
	o.turnCancel = nil
	return true
}

func (o *Orchestrator) finishTurn() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.state = StateIdle
	o.typing = false
	o.turnCancel = nil
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = s
}

func (o *Orchestrator) systemPromptSnapshot() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.systemPrompt
}

// transcript renders the session log as "<Role>: <content>" lines in
// chronological order.
func (o *Orchestrator) transcript() string {
	o.mu.Lock()
	defer o.mu.Unlock()

	lines := make([]string, 0, len(o.log))
	for _, m := range o.log {
		lines = append(lines, renderRole(m.Role)+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

// digestInput extends the transcript with the digest as a system-visible
// addendum (not a literal user message) and the directive's query as the
// driving input for the second model call.
func digestInput(transcript, digest, query string) string {
	var b strings.Builder
	b.WriteString(transcript)
	b.WriteString("\n")
	b.WriteString(digestPreamble)
	b.WriteString(digest)
	b.WriteString("\nUser: ")
	b.WriteString(query)
	return b.String()
}

func renderRole(r domain.Role) string {
	switch r {
	case domain.RoleAssistant:
		return "Assistant"
	default:
		return "User"
	}
}
