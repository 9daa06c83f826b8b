// Package storage keeps uploaded product images on the local disk. Files are
// served back by the HTTP layer under the configured base URL.
package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalImageStore writes files below a root directory.
type LocalImageStore struct {
	root    string
	baseURL string
}

// NewLocalImageStore creates the root directory if needed.
func NewLocalImageStore(root, baseURL string) (*LocalImageStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", root, err)
	}
	return &LocalImageStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root is the directory files are written to.
func (s *LocalImageStore) Root() string { return s.root }

// Save writes data at name, a slash separated relative path, and returns its URL.
func (s *LocalImageStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := path.Clean("/" + name)[1:]
	if clean == "" {
		return "", fmt.Errorf("invalid file name %q", name)
	}

	full := filepath.Join(s.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", clean, err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", clean, err)
	}
	return s.baseURL + "/" + clean, nil
}
