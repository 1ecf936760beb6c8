package domain

import "strings"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// HistoryWindow bounds how many stored messages are surfaced back to the
// model as chat history. Older messages stay in storage but never reach the
// prompt.
const HistoryWindow = 4

type Message struct {
	Role      string  `json:"role" bson:"role"`
	Content   string  `json:"content" bson:"content"`
	Timestamp float64 `json:"timestamp" bson:"timestamp"`
}

// ConversationRecord is the append-only per-session message log.
type ConversationRecord struct {
	SessionID string    `json:"session_id" bson:"session_id"`
	Messages  []Message `json:"messages" bson:"messages"`
}

// FormatHistory renders messages as "role: content" lines for prompt
// injection.
func FormatHistory(messages []Message) string {
	if len(messages) == 0 {
		return ""
	}
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, m.Role+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}
