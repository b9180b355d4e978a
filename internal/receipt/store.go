package receipt

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ImageStore persists receipt originals and returns the URL they are served from.
type ImageStore interface {
	Save(ctx context.Context, userID string, img *Image) (string, error)
}

// FileStore keeps receipt images on local disk under
// receipts/{user}/{timestamp}_{id}.{ext} and builds URLs from a public base.
type FileStore struct {
	dir     string
	baseURL string
	now     func() time.Time
}

var _ ImageStore = (*FileStore)(nil)

// NewFileStore creates the store. baseURL may be empty, in which case URLs are
// root-relative ("/receipts/...").
func NewFileStore(dir, baseURL string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create receipts directory: %w", err)
	}
	return &FileStore{
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		now:     time.Now,
	}, nil
}

// Dir is the root the stored keys are relative to.
func (s *FileStore) Dir() string {
	return s.dir
}

// Key builds the storage key for an upload.
func (s *FileStore) Key(userID, ext string) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	id := uuid.NewString()[:8]
	return path.Join("receipts", sanitizeSegment(userID), fmt.Sprintf("%s_%s.%s", timestamp, id, ext))
}

func (s *FileStore) Save(ctx context.Context, userID string, img *Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := s.Key(userID, img.Extension)
	full := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create receipt directory: %w", err)
	}
	if err := os.WriteFile(full, img.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write receipt: %w", err)
	}
	return s.baseURL + "/" + escapeKey(key), nil
}

// sanitizeSegment keeps a user ID usable as a single path segment.
func sanitizeSegment(s string) string {
	s = strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(strings.TrimSpace(s))
	if s == "" {
		return "anonymous"
	}
	return s
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
