package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStorage writes uploaded files under a per-user directory and serves
// them back through the configured public base URL.
type LocalStorage struct {
	basePath string
	baseURL  string
}

func NewLocalStorage(basePath, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}, nil
}

// Save streams the file to disk and returns its storage-relative path and
// size. The stored name is a fresh UUID so original names cannot collide
// or escape the storage root.
func (s *LocalStorage) Save(userID uuid.UUID, originalName string, r io.Reader) (string, int64, error) {
	userDir := filepath.Join(s.basePath, userID.String())
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create user directory: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	storedName := uuid.New().String() + ext
	relPath := filepath.Join(userID.String(), storedName)

	f, err := os.Create(filepath.Join(s.basePath, relPath))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(f.Name())
		return "", 0, fmt.Errorf("failed to write file: %w", err)
	}

	return relPath, size, nil
}

// FullPath resolves a storage-relative path to the on-disk location.
func (s *LocalStorage) FullPath(relPath string) string {
	return filepath.Join(s.basePath, relPath)
}

// PublicURL returns the URL clients use to fetch the stored file.
func (s *LocalStorage) PublicURL(relPath string) string {
	return s.baseURL + "/" + filepath.ToSlash(relPath)
}
