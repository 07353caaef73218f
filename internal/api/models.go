package api

import (
	"time"

	"github.com/airsial/opshub/internal/archive"
	"github.com/airsial/opshub/internal/records"
	"github.com/airsial/opshub/internal/stats"
	"github.com/airsial/opshub/internal/storage/sqlite"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// LoginRequest carries credentials for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse returns the session token and the account it belongs to.
type LoginResponse struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionResponse describes the authenticated caller for GET /auth/me.
type SessionResponse struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RecordsResponse lists records of one collection.
type RecordsResponse struct {
	Timestamp  time.Time         `json:"timestamp"`
	Collection string            `json:"collection"`
	Count      int               `json:"count"`
	Records    []*records.Record `json:"records"`
}

// ImportResponse reports a finished bulk import.
type ImportResponse struct {
	Timestamp  time.Time `json:"timestamp"`
	Collection string    `json:"collection"`
	Inserted   int       `json:"inserted"`
}

// DeleteRangeResponse reports a finished range delete.
type DeleteRangeResponse struct {
	Timestamp  time.Time `json:"timestamp"`
	Collection string    `json:"collection"`
	From       int64     `json:"from"`
	To         int64     `json:"to"`
	Removed    int       `json:"removed"`
}

// UserView is the redacted account shape returned by user endpoints.
type UserView struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UsersResponse lists accounts.
type UsersResponse struct {
	Timestamp time.Time  `json:"timestamp"`
	Count     int        `json:"count"`
	Users     []UserView `json:"users"`
}

// CreateUserRequest carries a new account for POST /users.
type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Email    string `json:"email"`
}

// DashboardResponse bundles the summary, alerts and recent activity.
type DashboardResponse struct {
	Timestamp        time.Time      `json:"timestamp"`
	Summary          *stats.Summary `json:"summary"`
	Alerts           []string       `json:"alerts"`
	RecentActivities []string       `json:"recent_activities"`
}

// AssistantRequest carries one question for POST /assistant/query.
type AssistantRequest struct {
	Query string `json:"query"`
}

// AssistantResponse returns the assistant's answer and its source.
type AssistantResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Content   string    `json:"content"`
	Source    string    `json:"source"`
}

// HistoryResponse lists the caller's assistant conversation, oldest first.
type HistoryResponse struct {
	Timestamp time.Time             `json:"timestamp"`
	Count     int                   `json:"count"`
	Messages  []*sqlite.ChatMessage `json:"messages"`
}

// ClearHistoryResponse reports how many conversation rows were removed.
type ClearHistoryResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Removed   int64     `json:"removed"`
}

// ArchivesResponse lists stored data package snapshots.
type ArchivesResponse struct {
	Timestamp time.Time      `json:"timestamp"`
	Driver    string         `json:"driver"`
	Count     int            `json:"count"`
	Archives  []archive.Info `json:"archives"`
}

// ArchiveCreatedResponse reports a freshly stored snapshot.
type ArchiveCreatedResponse struct {
	Timestamp time.Time    `json:"timestamp"`
	Archive   archive.Info `json:"archive"`
}

// AuditResponse lists audit events, newest first.
type AuditResponse struct {
	Timestamp time.Time            `json:"timestamp"`
	Count     int                  `json:"count"`
	Events    []*sqlite.AuditEvent `json:"events"`
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status        string         `json:"status"`
	Timestamp     time.Time      `json:"timestamp"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Records       map[string]int `json:"records"`
}

// ConfigResponse exposes the non-secret settings a client needs to build
// forms: collection schemas, required fields and role names.
type ConfigResponse struct {
	Collections    []string            `json:"collections"`
	Schemas        map[string][]string `json:"schemas"`
	RequiredFields map[string][]string `json:"required_fields"`
	Roles          []string            `json:"roles"`
	ImportMaxRows  int                 `json:"import_max_rows"`
}
