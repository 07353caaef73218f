package archive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process archive backend for tests and ephemeral use.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memObject
}

type memObject struct {
	data      []byte
	sha256    string
	createdAt time.Time
}

// NewMemoryStore returns an empty in-memory archive store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memObject)}
}

func (s *MemoryStore) Driver() string { return "memory" }

func (s *MemoryStore) Put(ctx context.Context, key string, r io.Reader) (Info, error) {
	key, err := sanitizeKey(key)
	if err != nil {
		return Info{}, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return Info{}, fmt.Errorf("failed to read archive content: %w", err)
	}
	sum := sha256.Sum256(data)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objects[key]; exists {
		return Info{}, fmt.Errorf("%w: %s", ErrExists, key)
	}
	obj := memObject{data: data, sha256: hex.EncodeToString(sum[:]), createdAt: time.Now().UTC()}
	s.objects[key] = obj

	return Info{Key: key, Size: int64(len(data)), SHA256: obj.sha256, CreatedAt: obj.createdAt}, nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (Info, io.ReadCloser, error) {
	key, err := sanitizeKey(key)
	if err != nil {
		return Info{}, nil, err
	}

	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return Info{}, nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	info := Info{Key: key, Size: int64(len(obj.data)), SHA256: obj.sha256, CreatedAt: obj.createdAt}
	return info, io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]Info, 0, len(s.objects))
	for key, obj := range s.objects {
		infos = append(infos, Info{Key: key, Size: int64(len(obj.data)), SHA256: obj.sha256, CreatedAt: obj.createdAt})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) (bool, error) {
	key, err := sanitizeKey(key)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return false, nil
	}
	delete(s.objects, key)
	return true, nil
}
