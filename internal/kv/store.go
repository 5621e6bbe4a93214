package kv

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/bsdetector/internal/model"
)

// Store is a minimal key-value store for local persistence.
// Implementations are safe for concurrent use.
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte) error
	Remove(key string) error
}

// Backend names
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open creates the store selected by cfg. An empty path resolves under dataDir.
// Stores holding resources implement io.Closer.
func Open(cfg model.StorageConfig, dataDir string) (Store, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = BackendFile
	}

	switch backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile:
		dir := cfg.Path
		if dir == "" {
			dir = filepath.Join(dataDir, "store")
		}
		return NewFileStore(dir), nil
	case BackendSQLite:
		path := cfg.Path
		if path == "" {
			path = filepath.Join(dataDir, "bsdetector.db")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: memory, file, sqlite)", cfg.Backend)
	}
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
