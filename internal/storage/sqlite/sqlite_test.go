package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsial/opshub/pkg/logger"
)

func openTestDB(t *testing.T) *ChatStorage {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	storage, err := NewChatStorage(db, logger.NewNop())
	require.NoError(t, err)
	return storage
}

func TestOpenCreatesFileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "opshub.db")
	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Ping())
}

func TestChatStoreAndFetch(t *testing.T) {
	storage := openTestDB(t)

	now := time.Now().UTC().Truncate(time.Second)
	id, err := storage.StoreMessage(&ChatMessage{
		Username: "engineer1", Role: "user", Content: "How to reduce costs?", CreatedAt: now,
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	_, err = storage.StoreMessage(&ChatMessage{
		Username: "engineer1", Role: "assistant", Content: "COST ANALYSIS", Source: "fallback", CreatedAt: now,
	})
	require.NoError(t, err)
	_, err = storage.StoreMessage(&ChatMessage{
		Username: "other", Role: "user", Content: "unrelated", CreatedAt: now,
	})
	require.NoError(t, err)

	msgs, err := storage.GetMessagesByUsername("engineer1", 50)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "assistant", msgs[1].Role)
	assert.Equal(t, "fallback", msgs[1].Source)
	assert.True(t, now.Equal(msgs[0].CreatedAt))
}

func TestChatLimitKeepsNewest(t *testing.T) {
	storage := openTestDB(t)

	now := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		_, err := storage.StoreMessage(&ChatMessage{
			Username: "u", Role: "user", Content: string(rune('a' + i)), CreatedAt: now,
		})
		require.NoError(t, err)
	}

	msgs, err := storage.GetMessagesByUsername("u", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "d", msgs[0].Content)
	assert.Equal(t, "e", msgs[1].Content)
}

func TestChatClearMessages(t *testing.T) {
	storage := openTestDB(t)

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		_, err := storage.StoreMessage(&ChatMessage{Username: "u", Role: "user", Content: "x", CreatedAt: now})
		require.NoError(t, err)
	}

	n, err := storage.ClearMessages("u")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	msgs, err := storage.GetMessagesByUsername("u", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestAuditTrail(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	storage, err := NewAuditStorage(db, logger.NewNop())
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	_, err = storage.StoreEvent(&AuditEvent{
		Actor: "admin", Action: "bulk_import", Collection: "safety", Count: 3, CreatedAt: now,
	})
	require.NoError(t, err)
	_, err = storage.StoreEvent(&AuditEvent{
		Actor: "engineer1", Action: "insert", Collection: "maintenance", Count: 1, CreatedAt: now,
	})
	require.NoError(t, err)

	recent, err := storage.GetRecentEvents(10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "insert", recent[0].Action, "newest first")
	assert.Equal(t, "bulk_import", recent[1].Action)
	assert.Equal(t, 3, recent[1].Count)

	byActor, err := storage.GetEventsByActor("admin", 10)
	require.NoError(t, err)
	require.Len(t, byActor, 1)
	assert.Equal(t, "safety", byActor[0].Collection)
}
