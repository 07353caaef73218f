// Package archive stores export snapshots durably: on the local filesystem,
// in an S3-compatible bucket, or in memory for tests. Keys are flat archive
// file names.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/airsial/opshub/internal/config"
	"github.com/airsial/opshub/pkg/logger"
)

// ErrNotFound marks a missing archive key.
var ErrNotFound = errors.New("archive not found")

// ErrExists marks a Put against a key already in use.
var ErrExists = errors.New("archive already exists")

// ErrBadKey marks a key that is empty or not a flat file name.
var ErrBadKey = errors.New("invalid archive key")

// Info describes one stored archive.
type Info struct {
	Key       string    `json:"key"`
	Size      int64     `json:"size"`
	SHA256    string    `json:"sha256,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the snapshot archive backend.
type Store interface {
	// Put stores the content under key. Existing keys are rejected.
	Put(ctx context.Context, key string, r io.Reader) (Info, error)
	// Get opens an archive for reading.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	// List returns every archive sorted by key.
	List(ctx context.Context) ([]Info, error)
	// Delete removes an archive, reporting whether it existed.
	Delete(ctx context.Context, key string) (bool, error)
	// Driver names the backend.
	Driver() string
}

// New builds the archive store selected by the configuration.
func New(ctx context.Context, cfg config.ArchiveConfig, log *logger.Logger) (Store, error) {
	switch cfg.Driver {
	case "fs", "":
		return NewFSStore(cfg.Dir, log)
	case "s3":
		return NewS3Store(ctx, S3Config{
			Bucket:    cfg.Bucket,
			Prefix:    cfg.Prefix,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			PathStyle: cfg.PathStyle,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
		}, log)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown archive driver: %s", cfg.Driver)
	}
}

// sanitizeKey rejects keys that could escape the archive namespace. Archive
// keys are flat file names, never paths.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("%w: key must not be empty", ErrBadKey)
	}
	if strings.ContainsAny(key, "/\\") || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q", ErrBadKey, key)
	}
	if strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("%w: %q", ErrBadKey, key)
	}
	return key, nil
}
