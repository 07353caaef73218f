package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/airsial/opshub/pkg/logger"
)

// ChatStorage handles storage of assistant conversation history.
type ChatStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewChatStorage creates a new SQLite chat storage and its tables.
func NewChatStorage(db *sql.DB, log *logger.Logger) (*ChatStorage, error) {
	storage := &ChatStorage{
		db:     db,
		logger: log.Named("sqlite-chat"),
	}
	if err := storage.initDB(); err != nil {
		return nil, err
	}
	return storage, nil
}

// initDB initializes the database tables
func (s *ChatStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS chat_messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create chat_messages table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_chat_messages_username ON chat_messages(username)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_messages_created_at ON chat_messages(created_at)`,
	}
	for _, indexSQL := range indexes {
		if _, err := s.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create chat index: %w", err)
		}
	}

	return nil
}

// StoreMessage stores one conversation entry and returns its id.
func (s *ChatStorage) StoreMessage(msg *ChatMessage) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO chat_messages
		(username, role, content, source, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		msg.Username,
		msg.Role,
		msg.Content,
		msg.Source,
		msg.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert chat message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	return id, nil
}

// GetMessagesByUsername returns a user's conversation, oldest first, capped
// at limit entries counted from the newest.
func (s *ChatStorage) GetMessagesByUsername(username string, limit int) ([]*ChatMessage, error) {
	rows, err := s.db.Query(
		`SELECT id, username, role, content, source, created_at
		FROM (
			SELECT id, username, role, content, source, created_at
			FROM chat_messages
			WHERE username = ?
			ORDER BY id DESC
			LIMIT ?
		)
		ORDER BY id ASC`,
		username, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat messages: %w", err)
	}
	defer rows.Close()

	return s.scanMessageRows(rows)
}

// ClearMessages deletes a user's conversation and returns how many entries
// were removed.
func (s *ChatStorage) ClearMessages(username string) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM chat_messages WHERE username = ?`, username)
	if err != nil {
		return 0, fmt.Errorf("failed to clear chat messages: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cleared messages: %w", err)
	}
	return n, nil
}

// scanMessageRows scans database rows into ChatMessage structs
func (s *ChatStorage) scanMessageRows(rows *sql.Rows) ([]*ChatMessage, error) {
	var messages []*ChatMessage
	for rows.Next() {
		var msg ChatMessage
		var createdAt string

		if err := rows.Scan(
			&msg.ID,
			&msg.Username,
			&msg.Role,
			&msg.Content,
			&msg.Source,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}

		var err error
		msg.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}

		messages = append(messages, &msg)
	}

	return messages, rows.Err()
}
