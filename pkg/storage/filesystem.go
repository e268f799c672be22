package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/noah-isme/schoolhub-api/pkg/config"
	appErrors "github.com/noah-isme/schoolhub-api/pkg/errors"
)

// Upload kinds map to sub-directories under the upload root.
const (
	KindLogo    = "logos"
	KindProfile = "profiles"
)

// LocalStorage persists uploaded images on disk under a base directory.
type LocalStorage struct {
	baseDir  string
	maxBytes int64
	allowed  map[string]struct{}
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(cfg config.UploadConfig) (*LocalStorage, error) {
	baseDir := cfg.Dir
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}
	allowed := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, m := range cfg.AllowedMIMEs {
		allowed[strings.ToLower(m)] = struct{}{}
	}
	return &LocalStorage{baseDir: baseDir, maxBytes: cfg.MaxBytes, allowed: allowed}, nil
}

// Dir is the root served under /uploads.
func (s *LocalStorage) Dir() string {
	return s.baseDir
}

// SaveImage sniffs the content type, enforces the size limit, and writes the file
// as <kind>/<uuid><ext>. The returned name is relative to Dir.
func (s *LocalStorage) SaveImage(kind string, r io.Reader) (string, error) {
	limit := s.maxBytes
	if limit <= 0 {
		limit = 2 * 1024 * 1024
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return "", appErrors.ErrPayloadTooLarge
	}
	if len(data) == 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "uploaded file is empty")
	}

	mt := mimetype.Detect(data)
	if !s.accepts(mt) {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file type %s is not allowed", mt.String()))
	}

	name := filepath.ToSlash(filepath.Join(kind, uuid.NewString()+mt.Extension()))
	path, err := s.resolve(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare upload directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return name, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(name string) error {
	if name == "" {
		return nil
	}
	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload: %w", err)
	}
	return nil
}

func (s *LocalStorage) accepts(mt *mimetype.MIME) bool {
	if len(s.allowed) == 0 {
		return true
	}
	for m := mt; m != nil; m = m.Parent() {
		if _, ok := s.allowed[strings.ToLower(m.String())]; ok {
			return true
		}
	}
	return false
}

// resolve keeps every path inside baseDir.
func (s *LocalStorage) resolve(name string) (string, error) {
	clean := filepath.Clean("/" + name)
	path := filepath.Join(s.baseDir, clean)
	rel, err := filepath.Rel(s.baseDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", appErrors.Clone(appErrors.ErrValidation, "invalid file name")
	}
	return path, nil
}
