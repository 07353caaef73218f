package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/airsial/opshub/pkg/logger"
)

// FSStore keeps archives as plain files in a single directory.
type FSStore struct {
	root   string
	logger *logger.Logger
}

// NewFSStore creates the archive directory if needed.
func NewFSStore(root string, log *logger.Logger) (*FSStore, error) {
	if root == "" {
		root = "data/archives"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory %s: %w", root, err)
	}
	return &FSStore{root: root, logger: log.Named("archive-fs")}, nil
}

func (s *FSStore) Driver() string { return "fs" }

func (s *FSStore) Put(ctx context.Context, key string, r io.Reader) (Info, error) {
	key, err := sanitizeKey(key)
	if err != nil {
		return Info{}, err
	}
	path := filepath.Join(s.root, key)
	if _, err := os.Stat(path); err == nil {
		return Info{}, fmt.Errorf("%w: %s", ErrExists, key)
	}

	tmp, err := os.CreateTemp(s.root, ".archive-*.tmp")
	if err != nil {
		return Info{}, fmt.Errorf("failed to stage archive: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err != nil {
		tmp.Close()
		return Info{}, fmt.Errorf("failed to write archive: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return Info{}, fmt.Errorf("failed to sync archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Info{}, fmt.Errorf("failed to close archive: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return Info{}, fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return Info{}, fmt.Errorf("failed to finalize archive: %w", err)
	}

	info := Info{
		Key:       key,
		Size:      size,
		SHA256:    hex.EncodeToString(h.Sum(nil)),
		CreatedAt: modTime(path),
	}
	s.logger.Info("Archive stored",
		logger.String("key", key),
		logger.Int64("size", size))
	return info, nil
}

func (s *FSStore) Get(ctx context.Context, key string) (Info, io.ReadCloser, error) {
	key, err := sanitizeKey(key)
	if err != nil {
		return Info{}, nil, err
	}
	path := filepath.Join(s.root, key)

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Info{}, nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return Info{}, nil, fmt.Errorf("failed to open archive %s: %w", key, err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return Info{}, nil, fmt.Errorf("failed to stat archive %s: %w", key, err)
	}
	return Info{Key: key, Size: st.Size(), CreatedAt: st.ModTime().UTC()}, f, nil
}

func (s *FSStore) List(ctx context.Context) ([]Info, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list archives: %w", err)
	}

	infos := make([]Info, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		st, err := e.Info()
		if err != nil {
			continue
		}
		infos = append(infos, Info{Key: e.Name(), Size: st.Size(), CreatedAt: st.ModTime().UTC()})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (s *FSStore) Delete(ctx context.Context, key string) (bool, error) {
	key, err := sanitizeKey(key)
	if err != nil {
		return false, err
	}
	path := filepath.Join(s.root, key)

	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete archive %s: %w", key, err)
	}
	s.logger.Info("Archive deleted", logger.String("key", key))
	return true, nil
}

func modTime(path string) (t time.Time) {
	if st, err := os.Stat(path); err == nil {
		t = st.ModTime().UTC()
	}
	return t
}
