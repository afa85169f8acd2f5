package chat

import (
	"encoding/json"
	"strings"
)

// ReplyKind tags the result of scanning a model reply.
type ReplyKind int

const (
	PlainText ReplyKind = iota
	RetrievalDirective
)

// ParsedReply is the decoded form of a model reply. A directive's raw
// form is never user-facing; display logic only ever sees Text or the
// fixed confirmation message.
type ParsedReply struct {
	Kind  ReplyKind
	Text  string // the verbatim reply, when Kind == PlainText
	Query string // the retrieval query, when Kind == RetrievalDirective
}

// ParseReply scans a reply for an embedded retrieval directive: the
// substring from the first '{' to the last '}' is decoded as JSON and
// must carry action == "retrieve" (case-insensitive) and a non-empty
// query. Anything else — no braces, malformed JSON, wrong shape — makes
// the whole reply ordinary text, braces included. Only one directive per
// reply is recognized.
func ParseReply(reply string) ParsedReply {
	plain := ParsedReply{Kind: PlainText, Text: reply}

	open := strings.Index(reply, "{")
	if open < 0 {
		return plain
	}
	end := strings.LastIndex(reply, "}")
	if end <= open {
		return plain
	}

	var directive struct {
		Action string `json:"action"`
		Query  string `json:"query"`
	}
	if err := json.Unmarshal([]byte(reply[open:end+1]), &directive); err != nil {
		return plain
	}
	if !strings.EqualFold(directive.Action, "retrieve") {
		return plain
	}
	if strings.TrimSpace(directive.Query) == "" {
		return plain
	}

	return ParsedReply{Kind: RetrievalDirective, Query: directive.Query}
}
