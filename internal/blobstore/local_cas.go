package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const tempPrefix = ".put-"

// LocalCAS stores blobs flat in one directory, named by digest and extension.
type LocalCAS struct {
	root string
}

var _ ContentStore = (*LocalCAS)(nil)

// NewLocalCAS creates a local CAS rooted at root.
func NewLocalCAS(root string) (*LocalCAS, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("local cas root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &LocalCAS{root: abs}, nil
}

// Root returns the absolute blob directory.
func (c *LocalCAS) Root() string {
	return c.root
}

// ContentID derives the storage key for data with the given extension.
func ContentID(data []byte, ext string) string {
	sum := sha256.Sum256(data)
	return contentIDFromDigest(hex.EncodeToString(sum[:]), ext)
}

// contentIDFromDigest joins digest and ext with a dot. An empty ext still
// gets the dot, so extensionless blobs are named "<hex>.".
func contentIDFromDigest(digest, ext string) string {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	return digest + "." + ext
}

// Put stores data under its content id. Existing content is left untouched.
// The existence check and the write are not atomic together; two racing
// writers of the same bytes both rename identical content into place.
func (c *LocalCAS) Put(ctx context.Context, data []byte, ext string) (PutResult, error) {
	var zero PutResult
	if c == nil {
		return zero, fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])
	id := contentIDFromDigest(digest, ext)
	if err := validateContentID(id); err != nil {
		return zero, err
	}
	result := PutResult{ContentID: id, SHA256: digest, SizeBytes: int64(len(data))}

	dst := filepath.Join(c.root, id)
	if _, err := os.Stat(dst); err == nil {
		return result, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return zero, fmt.Errorf("%w: %s: %w", ErrWriteFailed, id, err)
	}

	tmp, err := os.CreateTemp(c.root, tempPrefix+"*")
	if err != nil {
		return zero, fmt.Errorf("%w: %s: %w", ErrWriteFailed, id, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return zero, fmt.Errorf("%w: %s: %w", ErrWriteFailed, id, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return zero, fmt.Errorf("%w: %s: %w", ErrWriteFailed, id, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return zero, fmt.Errorf("%w: %s: %w", ErrWriteFailed, id, err)
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		if _, statErr := os.Stat(dst); statErr == nil {
			_ = os.Remove(tmpPath)
			return result, nil
		}
		cleanup()
		return zero, fmt.Errorf("%w: %s: %w", ErrWriteFailed, id, err)
	}

	result.Created = true
	return result, nil
}

// Get returns the bytes stored under contentID.
func (c *LocalCAS) Get(ctx context.Context, contentID string) ([]byte, error) {
	path, err := c.pathFor(ctx, contentID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, contentID)
	}
	return data, err
}

// Has reports whether contentID is stored.
func (c *LocalCAS) Has(ctx context.Context, contentID string) (bool, error) {
	path, err := c.pathFor(ctx, contentID)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

func (c *LocalCAS) pathFor(ctx context.Context, contentID string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	contentID = strings.TrimSpace(contentID)
	if err := validateContentID(contentID); err != nil {
		return "", err
	}
	return filepath.Join(c.root, contentID), nil
}

func validateContentID(id string) error {
	if id == "" {
		return fmt.Errorf("content id is required")
	}
	if strings.HasPrefix(id, ".") {
		return fmt.Errorf("invalid content id %q", id)
	}
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("invalid content id %q", id)
	}
	return nil
}
