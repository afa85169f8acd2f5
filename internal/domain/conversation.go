package domain

// Message is one turn in a conversation surface's timeline (user or assistant).
// Content is immutable once persisted: messages are only ever appended or
// deleted in bulk by a clear-conversation, never edited.
type Message struct {
	ID        MessageID
	Surface   Surface
	Role      Role
	Content   string
	CreatedAt Timestamp
}

// SessionAnchor marks the start of the currently visible session on a
// surface. The visible log is exactly the messages with
// CreatedAt >= Start, ascending; the anchor is the only truncation
// mechanism — there is no per-message expiry.
type SessionAnchor struct {
	Surface Surface
	Start   Timestamp
}
