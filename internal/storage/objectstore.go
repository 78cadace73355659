package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ObjectStore is the write-only interface artifact producers need: store
// bytes under a key, get back a URL.
type ObjectStore interface {
	Store(ctx context.Context, key string, data []byte) (string, error)
}

// FileStore keeps artifacts on the local filesystem under a base path and
// serves them from a base URL. Receipts and menu images each get their own.
type FileStore struct {
	basePath string
	baseURL  string
}

// NewFileStore creates a filesystem-backed object store
func NewFileStore(basePath, baseURL string) (*FileStore, error) {
	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve storage path")
	}

	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create storage directory")
	}

	return &FileStore{
		basePath: absPath,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}, nil
}

// Store writes the artifact and returns its URL.
func (s *FileStore) Store(ctx context.Context, key string, data []byte) (string, error) {
	// Keys are generated internally; reject anything that could escape the dir.
	if key == "" || strings.ContainsAny(key, "/\\") {
		return "", errors.Errorf("invalid object key %q", key)
	}

	path := filepath.Join(s.basePath, key)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrap(err, "failed to write artifact")
	}

	url := fmt.Sprintf("%s/%s", s.baseURL, key)

	log.Info().Str("key", key).Str("url", url).Msg("Artifact stored")
	return url, nil
}
