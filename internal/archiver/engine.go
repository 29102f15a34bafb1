package archiver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"chanvault/internal/blobstore"
	"chanvault/internal/models"
	"chanvault/internal/remote"
	"chanvault/internal/threadstore"
)

// Fetcher is the remote capability the archiver consumes.
type Fetcher interface {
	ListThreadIDs(ctx context.Context, board string) ([]uint64, error)
	FetchThread(ctx context.Context, board string, threadID uint64) (*remote.Thread, error)
	FetchBytes(ctx context.Context, path string) ([]byte, error)
}

// BlobRecorder is notified of every blob referenced by a newly archived post.
type BlobRecorder interface {
	RecordBlob(ctx context.Context, contentID string, sizeBytes int64, seenAt time.Time) error
}

// Engine reconciles stored thread snapshots with freshly fetched ones.
type Engine struct {
	fetcher Fetcher
	threads threadstore.Store
	blobs   blobstore.ContentStore
	blobLog BlobRecorder
	logger  *slog.Logger
	now     func() time.Time
}

// NewEngine wires an engine. logger may be nil.
func NewEngine(fetcher Fetcher, threads threadstore.Store, blobs blobstore.ContentStore, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		fetcher: fetcher,
		threads: threads,
		blobs:   blobs,
		logger:  logger.With("component", "engine"),
		now:     time.Now,
	}
}

// SetBlobRecorder attaches an optional blob ledger.
func (e *Engine) SetBlobRecorder(r BlobRecorder) {
	e.blobLog = r
}

// SyncThread fetches one thread, diffs it against the stored snapshot, and
// persists new posts and deletion flags. Stored posts are never removed or
// rewritten apart from their Deleted flag.
func (e *Engine) SyncThread(ctx context.Context, board string, threadID uint64) (models.SyncResult, error) {
	result := models.SyncResult{Board: board, ThreadID: threadID}
	log := e.logger.With("board", board, "thread", threadID)

	fetched, err := e.fetcher.FetchThread(ctx, board, threadID)
	if err != nil {
		return result, newSyncError(ErrFetch, board, threadID, "", err)
	}
	if fetched == nil {
		return result, newSyncError(ErrFetch, board, threadID, "", remote.ErrMalformedPayload)
	}

	loaded, err := e.threads.Read(ctx, board, threadID)
	switch {
	case errors.Is(err, threadstore.ErrNotFound):
		result.Discovered = true
		loaded = models.NewThread(threadID)
	case err != nil:
		return result, newSyncError(ErrStoreRead, board, threadID, "", err)
	}

	fetchedPosts := uniquePosts(fetched.Posts)
	removed, added := lo.Difference(loaded.PostIDs(), lo.Map(fetchedPosts, func(p remote.Post, _ int) uint64 {
		return p.Num
	}))
	removedSet := toSet(removed)
	addedSet := toSet(added)

	// Posts already flagged stay flagged; only fresh disappearances count.
	flagged := 0
	for i := range loaded.Posts {
		post := &loaded.Posts[i]
		if _, ok := removedSet[post.ID]; ok && !post.Deleted {
			post.Deleted = true
			flagged++
		}
	}
	result.RemovedFlagged = flagged

	if !result.Discovered && flagged == 0 && len(addedSet) == 0 {
		log.Info("nothing new in thread")
		return result, nil
	}

	fresh := lo.Filter(fetchedPosts, func(p remote.Post, _ int) bool {
		_, ok := addedSet[p.Num]
		return ok
	})
	// Validate every marker before any attachment is fetched or written.
	opFlags := make([]bool, len(fresh))
	for i, post := range fresh {
		op, err := parseOPMarker(post.OP)
		if err != nil {
			log.Error("refusing thread payload", "post", post.Num, "error", err)
			return result, newSyncError(ErrProtocolViolation, board, threadID, "", fmt.Errorf("post %d: %w", post.Num, err))
		}
		opFlags[i] = op
	}

	newPosts := make([]models.Post, 0, len(fresh))
	for i, post := range fresh {
		files, stored, failed, err := e.archiveFiles(ctx, log, board, threadID, post.Files)
		if err != nil {
			return result, err
		}
		result.Attachments += stored
		result.AttachmentFailures += failed
		newPosts = append(newPosts, models.Post{
			ID:        post.Num,
			Timestamp: post.Timestamp,
			Name:      post.Name,
			Email:     post.Email,
			Subject:   post.Subject,
			Message:   post.Comment,
			OP:        opFlags[i],
			Files:     files,
		})
	}
	result.Added = len(newPosts)

	if !result.Discovered && result.Added > 0 {
		log.Info("new posts", "count", result.Added)
	}
	if result.RemovedFlagged > 0 {
		log.Warn("deleted posts", "count", result.RemovedFlagged)
	}

	merged := append(loaded.Posts, newPosts...)
	if len(loaded.Posts) > 0 && len(newPosts) > 0 && newPosts[0].ID < loaded.Posts[len(loaded.Posts)-1].ID {
		// A post older than the newest archived one surfaced late.
		models.SortPosts(merged)
	}
	snapshot := &models.Thread{ID: threadID, Posts: merged}

	if err := e.threads.Write(ctx, board, snapshot); err != nil {
		return result, newSyncError(ErrStoreWrite, board, threadID, "", err)
	}
	log.Info("dumped thread", "posts", len(snapshot.Posts))
	return result, nil
}

func (e *Engine) archiveFiles(ctx context.Context, log *slog.Logger, board string, threadID uint64, files []remote.File) ([]models.AttachmentRef, int, int, error) {
	refs := make([]models.AttachmentRef, 0, len(files))
	failed := 0
	for _, file := range files {
		data, err := e.fetcher.FetchBytes(ctx, file.Path)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, 0, 0, ctxErr
			}
			failed++
			log.Error("failed to dump file", "path", file.Path,
				"error", newSyncError(ErrAttachmentFetch, board, threadID, file.Path, err))
			continue
		}

		put, err := e.blobs.Put(ctx, data, attachmentExt(file.Path))
		if err != nil {
			return nil, 0, 0, newSyncError(ErrStoreWrite, board, threadID, file.Path, err)
		}
		if e.blobLog != nil {
			if err := e.blobLog.RecordBlob(ctx, put.ContentID, put.SizeBytes, e.now()); err != nil {
				log.Warn("failed to record blob", "content_id", put.ContentID, "error", err)
			}
		}
		refs = append(refs, models.AttachmentRef{ContentID: put.ContentID, Name: file.Name})
	}
	return refs, len(refs), failed, nil
}

// parseOPMarker maps the API's 0/1 origin marker. Other values are rejected.
func parseOPMarker(raw int) (bool, error) {
	switch raw {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("unknown op marker %d", raw)
	}
}

// attachmentExt returns the extension of the attachment path without the dot.
func attachmentExt(p string) string {
	return strings.TrimPrefix(path.Ext(p), ".")
}

// uniquePosts keeps the first occurrence of every id, ascending by id.
func uniquePosts(posts []remote.Post) []remote.Post {
	out := lo.UniqBy(posts, func(p remote.Post) uint64 { return p.Num })
	sortRemotePosts(out)
	return out
}

func toSet(ids []uint64) map[uint64]struct{} {
	set := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func sortRemotePosts(posts []remote.Post) {
	sort.Slice(posts, func(i, j int) bool { return posts[i].Num < posts[j].Num })
}
