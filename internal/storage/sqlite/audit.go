package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/airsial/opshub/pkg/logger"
)

// AuditStorage handles the append-only audit trail of mutating operations.
type AuditStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewAuditStorage creates a new SQLite audit storage and its tables.
func NewAuditStorage(db *sql.DB, log *logger.Logger) (*AuditStorage, error) {
	storage := &AuditStorage{
		db:     db,
		logger: log.Named("sqlite-audit"),
	}
	if err := storage.initDB(); err != nil {
		return nil, err
	}
	return storage, nil
}

// initDB initializes the database tables
func (s *AuditStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			collection TEXT NOT NULL DEFAULT '',
			detail TEXT NOT NULL DEFAULT '',
			count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create audit_events table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_audit_events_actor ON audit_events(actor)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_events_action ON audit_events(action)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_events_created_at ON audit_events(created_at)`,
	}
	for _, indexSQL := range indexes {
		if _, err := s.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create audit index: %w", err)
		}
	}

	return nil
}

// StoreEvent appends one audit event and returns its id.
func (s *AuditStorage) StoreEvent(event *AuditEvent) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO audit_events
		(actor, action, collection, detail, count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		event.Actor,
		event.Action,
		event.Collection,
		event.Detail,
		event.Count,
		event.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert audit event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	return id, nil
}

// GetRecentEvents returns the newest events first.
func (s *AuditStorage) GetRecentEvents(limit int) ([]*AuditEvent, error) {
	rows, err := s.db.Query(
		`SELECT id, actor, action, collection, detail, count, created_at
		FROM audit_events
		ORDER BY id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	return s.scanEventRows(rows)
}

// GetEventsByActor returns one actor's events, newest first.
func (s *AuditStorage) GetEventsByActor(actor string, limit int) ([]*AuditEvent, error) {
	rows, err := s.db.Query(
		`SELECT id, actor, action, collection, detail, count, created_at
		FROM audit_events
		WHERE actor = ?
		ORDER BY id DESC
		LIMIT ?`,
		actor, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events by actor: %w", err)
	}
	defer rows.Close()

	return s.scanEventRows(rows)
}

// scanEventRows scans database rows into AuditEvent structs
func (s *AuditStorage) scanEventRows(rows *sql.Rows) ([]*AuditEvent, error) {
	var events []*AuditEvent
	for rows.Next() {
		var event AuditEvent
		var createdAt string

		if err := rows.Scan(
			&event.ID,
			&event.Actor,
			&event.Action,
			&event.Collection,
			&event.Detail,
			&event.Count,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}

		var err error
		event.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}

		events = append(events, &event)
	}

	return events, rows.Err()
}
