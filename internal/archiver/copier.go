package archiver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"chanvault/internal/blobstore"
	"chanvault/internal/threadstore"
)

// Archive is one archive root: its snapshots and its blobs.
type Archive struct {
	Threads threadstore.Store
	Blobs   blobstore.ContentStore
}

// CopyResult summarizes one copied thread.
type CopyResult struct {
	Board        string `json:"board"`
	ThreadID     uint64 `json:"thread_id"`
	Posts        int    `json:"posts"`
	BlobsCopied  int    `json:"blobs_copied"`
	BlobsSkipped int    `json:"blobs_skipped"`
}

// Copier replicates snapshots and their blobs from one archive to another.
type Copier struct {
	src    Archive
	dst    Archive
	logger *slog.Logger
}

// NewCopier creates a copier. logger may be nil.
func NewCopier(src, dst Archive, logger *slog.Logger) *Copier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Copier{src: src, dst: dst, logger: logger.With("component", "copier")}
}

// CopyThread copies every blob the thread references, then the snapshot.
// Blobs already present in the destination are skipped.
func (c *Copier) CopyThread(ctx context.Context, board string, threadID uint64) (CopyResult, error) {
	result := CopyResult{Board: board, ThreadID: threadID}

	thread, err := c.src.Threads.Read(ctx, board, threadID)
	if err != nil {
		return result, newSyncError(ErrStoreRead, board, threadID, "", err)
	}
	result.Posts = len(thread.Posts)

	for _, id := range thread.ContentIDs() {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		ok, err := c.dst.Blobs.Has(ctx, id)
		if err != nil {
			return result, newSyncError(ErrStoreRead, board, threadID, id, err)
		}
		if ok {
			result.BlobsSkipped++
			continue
		}

		data, err := c.src.Blobs.Get(ctx, id)
		if err != nil {
			return result, newSyncError(ErrStoreRead, board, threadID, id, err)
		}
		put, err := c.dst.Blobs.Put(ctx, data, contentIDExt(id))
		if err != nil {
			return result, newSyncError(ErrStoreWrite, board, threadID, id, err)
		}
		if put.ContentID != id {
			return result, newSyncError(ErrStoreRead, board, threadID, id,
				fmt.Errorf("content mismatch: stored as %s", put.ContentID))
		}
		result.BlobsCopied++
	}

	if err := c.dst.Threads.Write(ctx, board, thread); err != nil {
		return result, newSyncError(ErrStoreWrite, board, threadID, "", err)
	}
	c.logger.Info("copied thread", "board", board, "thread", threadID,
		"blobs_copied", result.BlobsCopied, "blobs_skipped", result.BlobsSkipped)
	return result, nil
}

// CopyBoard copies every archived thread of a board. Failed threads are
// joined into the returned error; the others are still copied.
func (c *Copier) CopyBoard(ctx context.Context, board string) ([]CopyResult, error) {
	ids, err := c.src.Threads.ListThreadIDs(ctx, board)
	if err != nil {
		return nil, newSyncError(ErrStoreRead, board, 0, "", err)
	}

	results := make([]CopyResult, 0, len(ids))
	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := c.CopyThread(ctx, board, id)
		if err != nil {
			c.logger.Error("failed to copy thread", "board", board, "thread", id, "error", err)
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

// contentIDExt returns the extension part of a content id, if any.
func contentIDExt(id string) string {
	_, ext, _ := strings.Cut(id, ".")
	return ext
}
