// Package rawfile keeps raw pages uploaded by workers on local disk for
// later reprocessing.
package rawfile

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const maxNameLength = 200

// Store writes uploads under a single directory.
type Store struct {
	dir string
	now func() time.Time
}

// New returns a Store rooted at dir. The directory is created on first save.
func New(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// SanitizeName strips directories and ".." from name and caps its length.
// It returns "" when nothing usable is left.
func SanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "..", "")
	if len(name) > maxNameLength {
		name = name[:maxNameLength]
	}
	if name == "" || name == "." || name == "/" {
		return ""
	}
	return name
}

// Save copies src into the store under the sanitised name and returns the
// written path. An unusable name becomes raw_<timestamp>.
func (s *Store) Save(ctx context.Context, name string, src io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := SanitizeName(name)
	if clean == "" {
		clean = "raw_" + s.now().UTC().Format("20060102_150405")
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create storage dir: %w", err)
	}

	path := filepath.Join(s.dir, clean)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", clean, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write %s: %w", clean, err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", clean, err)
	}
	return path, nil
}
