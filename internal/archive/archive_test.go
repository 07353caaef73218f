package archive

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsial/opshub/internal/config"
	"github.com/airsial/opshub/pkg/logger"
)

// driver-independent behavior, run against fs and memory backends
func eachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Helper()

	fsStore, err := NewFSStore(t.TempDir(), logger.NewNop())
	require.NoError(t, err)

	for name, s := range map[string]Store{
		"fs":     fsStore,
		"memory": NewMemoryStore(),
	} {
		t.Run(name, func(t *testing.T) { fn(t, s) })
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		body := `{"export_date":"2025-03-01T10:00:00Z"}`

		info, err := s.Put(ctx, "export_20250301.json", strings.NewReader(body))
		require.NoError(t, err)
		assert.Equal(t, "export_20250301.json", info.Key)
		assert.Equal(t, int64(len(body)), info.Size)
		assert.NotEmpty(t, info.SHA256)

		got, rc, err := s.Get(ctx, "export_20250301.json")
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, body, string(data))
		assert.Equal(t, info.Size, got.Size)
	})
}

func TestPutRejectsDuplicates(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, err := s.Put(ctx, "dup.json", strings.NewReader("a"))
		require.NoError(t, err)
		_, err = s.Put(ctx, "dup.json", strings.NewReader("b"))
		assert.Error(t, err)
	})
}

func TestGetMissing(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		_, _, err := s.Get(context.Background(), "absent.json")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestListSorted(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for _, key := range []string{"b.json", "a.json", "c.json"} {
			_, err := s.Put(ctx, key, strings.NewReader("x"))
			require.NoError(t, err)
		}

		infos, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, infos, 3)
		assert.Equal(t, "a.json", infos[0].Key)
		assert.Equal(t, "b.json", infos[1].Key)
		assert.Equal(t, "c.json", infos[2].Key)
	})
}

func TestDelete(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, err := s.Put(ctx, "gone.json", strings.NewReader("x"))
		require.NoError(t, err)

		existed, err := s.Delete(ctx, "gone.json")
		require.NoError(t, err)
		assert.True(t, existed)

		existed, err = s.Delete(ctx, "gone.json")
		require.NoError(t, err)
		assert.False(t, existed)
	})
}

func TestSanitizeKey(t *testing.T) {
	valid := []string{"export.json", "opshub_export_20250301_1030.json"}
	for _, key := range valid {
		got, err := sanitizeKey(key)
		require.NoError(t, err)
		assert.Equal(t, key, got)
	}

	invalid := []string{"", "  ", "../etc/passwd", "a/b.json", `a\b.json`, ".hidden", "a..b"}
	for _, key := range invalid {
		_, err := sanitizeKey(key)
		assert.Error(t, err, "key %q", key)
	}
}

func TestFactorySelectsDriver(t *testing.T) {
	ctx := context.Background()
	log := logger.NewNop()

	s, err := New(ctx, config.ArchiveConfig{Driver: "memory"}, log)
	require.NoError(t, err)
	assert.Equal(t, "memory", s.Driver())

	s, err = New(ctx, config.ArchiveConfig{Driver: "fs", Dir: t.TempDir()}, log)
	require.NoError(t, err)
	assert.Equal(t, "fs", s.Driver())

	_, err = New(ctx, config.ArchiveConfig{Driver: "tape"}, log)
	assert.Error(t, err)
}
