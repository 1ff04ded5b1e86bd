package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alibi/locker/common/logger"
	"github.com/google/uuid"
)

// FilesystemStore writes evidence content under {root}/{ownerId}/{uuid}{ext}.
type FilesystemStore struct {
	root string
	log  *logger.Logger
}

// NewFilesystemStore ensures the upload root exists. If the root cannot be
// created it degrades to fallbackDir instead of failing the process; only
// when both are unwritable does construction fail.
func NewFilesystemStore(root, fallbackDir string, log *logger.Logger) (*FilesystemStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		log.Warn("upload dir unavailable, using fallback", "dir", root, "fallback", fallbackDir, "error", err)
		if fbErr := os.MkdirAll(fallbackDir, 0o750); fbErr != nil {
			return nil, fmt.Errorf("create upload dir %s: %w (fallback %s also failed: %v)", root, err, fallbackDir, fbErr)
		}
		root = fallbackDir
	}

	log.Info("filesystem store ready", "dir", root)
	return &FilesystemStore{root: root, log: log}, nil
}

// Root returns the active upload directory.
func (s *FilesystemStore) Root() string {
	return s.root
}

// Put writes content to a freshly generated file inside the owner's
// namespace and returns the relative key "{ownerId}/{uuid}{ext}".
func (s *FilesystemStore) Put(ctx context.Context, req PutRequest) (string, error) {
	if req.OwnerID == "" {
		return "", fmt.Errorf("owner id is required")
	}

	ownerDir := filepath.Join(s.root, req.OwnerID)
	if err := os.MkdirAll(ownerDir, 0o750); err != nil {
		return "", fmt.Errorf("create owner dir: %w", err)
	}

	name := uuid.New().String() + sanitizeExt(req.Filename)
	fullPath := filepath.Join(ownerDir, name)

	if err := os.WriteFile(fullPath, req.Content, 0o640); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}

	return req.OwnerID + "/" + name, nil
}

// Get reads an object back by key. The owner namespace in the key is
// authoritative: a file missing under it is ErrNotFound, with no
// unnamespaced fallback lookup.
func (s *FilesystemStore) Get(ctx context.Context, key string) ([]byte, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}

	return content, nil
}

// Delete removes the object. A missing key is a no-op, not an error.
func (s *FilesystemStore) Delete(ctx context.Context, key string) error {
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// Locate returns the application-relative path served by the file
// endpoint for this key.
func (s *FilesystemStore) Locate(ctx context.Context, key string) (string, error) {
	if _, err := s.resolve(key); err != nil {
		return "", err
	}
	return "/api/v1/files/" + key, nil
}

// resolve maps a key onto the upload root, rejecting traversal outside it.
func (s *FilesystemStore) resolve(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty object key")
	}

	fullPath := filepath.Join(s.root, filepath.FromSlash(key))
	if !strings.HasPrefix(fullPath, s.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid object key: %s", key)
	}
	return fullPath, nil
}

// sanitizeExt extracts a safe file extension from the original filename.
func sanitizeExt(filename string) string {
	ext := filepath.Ext(filepath.Base(filename))
	if len(ext) > 16 || strings.ContainsAny(ext, "/\\") {
		return ""
	}
	return ext
}
