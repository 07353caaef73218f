package sqlite

import "time"

// ChatMessage is one entry in a user's assistant conversation.
type ChatMessage struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Source    string    `json:"source,omitempty"` // "llm" or "fallback" on assistant rows
	CreatedAt time.Time `json:"created_at"`
}

// AuditEvent records who did what: logins, inserts, imports, deletes and
// exports.
type AuditEvent struct {
	ID         int64     `json:"id"`
	Actor      string    `json:"actor"`
	Action     string    `json:"action"`
	Collection string    `json:"collection,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	Count      int       `json:"count"`
	CreatedAt  time.Time `json:"created_at"`
}
