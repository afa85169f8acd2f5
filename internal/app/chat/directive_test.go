package chat_test

import (
	"testing"

	"github.com/driftnote/driftnote-agent/internal/app/chat"
)

func TestParseReply(t *testing.T) {
	cases := []struct {
		name      string
		reply     string
		wantKind  chat.ReplyKind
		wantQuery string
	}{
		{
			name:      "bare directive",
			reply:     `{"action":"retrieve","query":"what I wrote lately"}`,
			wantKind:  chat.RetrievalDirective,
			wantQuery: "what I wrote lately",
		},
		{
			name:      "directive wrapped in prose",
			reply:     `Sure! {"action":"retrieve","query":"mood this week"} Let me check.`,
			wantKind:  chat.RetrievalDirective,
			wantQuery: "mood this week",
		},
		{
			name:      "action is case-insensitive",
			reply:     `{"action":"RETRIEVE","query":"everything"}`,
			wantKind:  chat.RetrievalDirective,
			wantQuery: "everything",
		},
		{
			name:     "wrong action",
			reply:    `{"action":"delete","query":"everything"}`,
			wantKind: chat.PlainText,
		},
		{
			name:     "missing query",
			reply:    `{"action":"retrieve"}`,
			wantKind: chat.PlainText,
		},
		{
			name:     "blank query",
			reply:    `{"action":"retrieve","query":"   "}`,
			wantKind: chat.PlainText,
		},
		{
			name:     "unrelated object",
			reply:    `{"foo":1}`,
			wantKind: chat.PlainText,
		},
		{
			name:     "malformed json",
			reply:    `here is a brace { and another }`,
			wantKind: chat.PlainText,
		},
		{
			name:     "no braces",
			reply:    "just a normal reply",
			wantKind: chat.PlainText,
		},
		{
			name:     "close brace before open",
			reply:    `} backwards {`,
			wantKind: chat.PlainText,
		},
		{
			// first '{' to last '}' spans both objects and fails to parse,
			// so the whole reply stays ordinary text
			name:     "two brace pairs",
			reply:    `{"action":"retrieve","query":"a"} and {"b":2}`,
			wantKind: chat.PlainText,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := chat.ParseReply(tc.reply)
			if got.Kind != tc.wantKind {
				t.Fatalf("Kind = %v, want %v", got.Kind, tc.wantKind)
			}
			if tc.wantKind == chat.RetrievalDirective && got.Query != tc.wantQuery {
				t.Errorf("Query = %q, want %q", got.Query, tc.wantQuery)
			}
			if tc.wantKind == chat.PlainText && got.Text != tc.reply {
				t.Errorf("Text = %q, want the verbatim reply %q", got.Text, tc.reply)
			}
		})
	}
}
