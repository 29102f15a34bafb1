package threadstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"chanvault/internal/models"
)

// ErrNotFound is returned for threads or boards that were never archived.
var ErrNotFound = errors.New("not found")

// Store abstracts per-board thread snapshot persistence.
type Store interface {
	Read(ctx context.Context, board string, threadID uint64) (*models.Thread, error)
	Write(ctx context.Context, board string, thread *models.Thread) error
	ListThreadIDs(ctx context.Context, board string) ([]uint64, error)
	ListBoards(ctx context.Context) ([]string, error)
}

// FileStore keeps one snapshot file per thread under <root>/<board>/.
type FileStore struct {
	root  string
	codec Codec
}

var _ Store = (*FileStore)(nil)

// Open prepares a file store rooted at root using the given snapshot format.
func Open(root, format string) (*FileStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("thread store root is required")
	}
	codec, err := CodecFor(format)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{root: abs, codec: codec}, nil
}

// Read loads the snapshot of one thread.
func (s *FileStore) Read(ctx context.Context, board string, threadID uint64) (*models.Thread, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.threadPath(board, threadID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("thread /%s/%d: %w", board, threadID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	thread, err := s.codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if thread.Posts == nil {
		thread.Posts = []models.Post{}
	}
	return thread, nil
}

// Write replaces the snapshot of one thread. The new content is written to a
// temporary file in the same directory and renamed over the old one.
func (s *FileStore) Write(ctx context.Context, board string, thread *models.Thread) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if thread == nil {
		return fmt.Errorf("thread is required")
	}
	if err := thread.Validate(); err != nil {
		return err
	}
	path, err := s.threadPath(board, thread.ID)
	if err != nil {
		return err
	}
	data, err := s.codec.Encode(thread)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".write-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}
	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// ListThreadIDs enumerates every archived thread of a board, ascending.
func (s *FileStore) ListThreadIDs(ctx context.Context, board string) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := s.boardDir(board)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("board /%s/: %w", board, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	suffix := "." + s.codec.Ext()
	ids := make([]uint64, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, suffix) {
			continue
		}
		id, err := strconv.ParseUint(strings.TrimSuffix(name, suffix), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// ListBoards returns every board that has a snapshot directory.
func (s *FileStore) ListBoards(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	boards := []string{}
	for _, entry := range entries {
		if !entry.IsDir() || ValidateBoard(entry.Name()) != nil {
			continue
		}
		boards = append(boards, entry.Name())
	}
	sort.Strings(boards)
	return boards, nil
}

// ValidateBoard rejects slugs that cannot be used as a single path element.
func ValidateBoard(board string) error {
	if strings.TrimSpace(board) == "" {
		return fmt.Errorf("board is required")
	}
	if board != strings.TrimSpace(board) || strings.HasPrefix(board, ".") ||
		strings.ContainsAny(board, `/\`) || strings.Contains(board, "..") {
		return fmt.Errorf("invalid board %q", board)
	}
	return nil
}

func (s *FileStore) boardDir(board string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("thread store is not configured")
	}
	if err := ValidateBoard(board); err != nil {
		return "", err
	}
	return filepath.Join(s.root, board), nil
}

func (s *FileStore) threadPath(board string, threadID uint64) (string, error) {
	dir, err := s.boardDir(board)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, strconv.FormatUint(threadID, 10)+"."+s.codec.Ext()), nil
}
