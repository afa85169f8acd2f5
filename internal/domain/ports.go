package domain

import (
	"context"
	"time"
)

// LLMClient defines how the core talks to the language-model backend.
// The system prompt travels on a separate channel from the input text.
// A single failure surfaces immediately; no retry happens at this layer.
type LLMClient interface {
	Complete(ctx context.Context, systemPrompt, input string) (string, error)
}

// MessageStore defines conversation message persistence for a surface.
// MessagesSince returns messages with CreatedAt >= since, ascending.
// DeleteSince removes that same set.
type MessageStore interface {
	AppendMessage(ctx context.Context, msg *Message) error
	MessagesSince(ctx context.Context, surface Surface, since time.Time) ([]*Message, error)
	DeleteSince(ctx context.Context, surface Surface, since time.Time) error
}

// StateStore holds scalar process state (session anchors, quota counters)
// as string key/value pairs. Get returns ok=false when the key is unset.
type StateStore interface {
	GetState(ctx context.Context, key string) (value string, ok bool, err error)
	SetState(ctx context.Context, key, value string) error
}

// Entitlements is the external subscription check. Privileged users are
// exempt from daily quotas.
type Entitlements interface {
	IsPrivileged(ctx context.Context) bool
}
