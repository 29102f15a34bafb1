package archiver

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"chanvault/internal/blobstore"
	"chanvault/internal/models"
	"chanvault/internal/remote"
	"chanvault/internal/threadstore"
)

type testArchive struct {
	root    string
	threads *threadstore.FileStore
	blobs   *blobstore.LocalCAS
}

func newTestArchive(t *testing.T) testArchive {
	t.Helper()
	root := t.TempDir()
	threads, err := threadstore.Open(filepath.Join(root, "boards"), threadstore.FormatJSON)
	if err != nil {
		t.Fatalf("open thread store: %v", err)
	}
	blobs, err := blobstore.NewLocalCAS(filepath.Join(root, "attachments"))
	if err != nil {
		t.Fatalf("open blob store: %v", err)
	}
	return testArchive{root: root, threads: threads, blobs: blobs}
}

func (a testArchive) engine(f Fetcher) *Engine {
	return NewEngine(f, a.threads, a.blobs, nil)
}

func (a testArchive) snapshotBytes(t *testing.T, board string, id uint64) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(a.root, "boards", board, strconv.FormatUint(id, 10)+".json"))
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	return data
}

func TestSyncThreadDiscoversNewThread(t *testing.T) {
	archive := newTestArchive(t)
	fetcher := newFakeFetcher()
	fetcher.catalog["b"] = []uint64{100}
	fetcher.setThread("b", 100, post(100, 1))

	result, err := archive.engine(fetcher).SyncThread(context.Background(), "b", 100)
	if err != nil {
		t.Fatalf("sync thread: %v", err)
	}
	if !result.Discovered || result.Added != 1 || result.RemovedFlagged != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	thread, err := archive.threads.Read(context.Background(), "b", 100)
	if err != nil {
		t.Fatalf("read thread: %v", err)
	}
	if thread.ID != 100 || len(thread.Posts) != 1 {
		t.Fatalf("unexpected thread: %+v", thread)
	}
	got := thread.Posts[0]
	if got.ID != 100 || !got.OP || got.Deleted || len(got.Files) != 0 {
		t.Fatalf("unexpected post: %+v", got)
	}
	if got.Message != "post 100" || got.Timestamp != 1_700_000_100 {
		t.Fatalf("post fields not carried over: %+v", got)
	}
}

func TestSyncThreadIsIdempotent(t *testing.T) {
	archive := newTestArchive(t)
	fetcher := newFakeFetcher()
	fetcher.files["/b/src/100/a.png"] = []byte("image-a")
	fetcher.setThread("b", 100,
		post(100, 1, remote.File{Path: "/b/src/100/a.png", Name: "a.png"}),
		post(101, 0),
	)
	engine := archive.engine(fetcher)

	if _, err := engine.SyncThread(context.Background(), "b", 100); err != nil {
		t.Fatalf("first sync: %v", err)
	}
	first := archive.snapshotBytes(t, "b", 100)
	callsAfterFirst := fetcher.fileCalls

	result, err := engine.SyncThread(context.Background(), "b", 100)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if result.Changed() || result.Attachments != 0 {
		t.Fatalf("second sync should be a no-op, got %+v", result)
	}
	if fetcher.fileCalls != callsAfterFirst {
		t.Fatalf("second sync fetched attachments: %d -> %d", callsAfterFirst, fetcher.fileCalls)
	}
	if second := archive.snapshotBytes(t, "b", 100); !bytes.Equal(first, second) {
		t.Fatalf("snapshot changed:\n%s\n---\n%s", first, second)
	}
}

func TestSyncThreadDiff(t *testing.T) {
	archive := newTestArchive(t)
	fetcher := newFakeFetcher()
	fetcher.setThread("b", 1, post(1, 1), post(2, 0), post(3, 0))
	engine := archive.engine(fetcher)
	if _, err := engine.SyncThread(context.Background(), "b", 1); err != nil {
		t.Fatalf("seed sync: %v", err)
	}
	before, err := archive.threads.Read(context.Background(), "b", 1)
	if err != nil {
		t.Fatalf("read seed: %v", err)
	}

	fetcher.setThread("b", 1, post(2, 0), post(3, 0), post(4, 0))
	result, err := engine.SyncThread(context.Background(), "b", 1)
	if err != nil {
		t.Fatalf("diff sync: %v", err)
	}
	if result.Discovered || result.Added != 1 || result.RemovedFlagged != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	after, err := archive.threads.Read(context.Background(), "b", 1)
	if err != nil {
		t.Fatalf("read after: %v", err)
	}
	if got := after.PostIDs(); len(got) != 4 || got[0] != 1 || got[3] != 4 {
		t.Fatalf("unexpected ids: %v", got)
	}
	if !after.Posts[0].Deleted {
		t.Fatalf("post 1 should be flagged deleted")
	}
	for i := 1; i <= 2; i++ {
		if after.Posts[i].Deleted || after.Posts[i].Message != before.Posts[i].Message {
			t.Fatalf("post %d should be untouched: %+v", after.Posts[i].ID, after.Posts[i])
		}
	}
	if after.Posts[3].Deleted {
		t.Fatalf("post 4 should not be deleted")
	}

	// Already-flagged posts are neither recounted nor restored.
	result, err = engine.SyncThread(context.Background(), "b", 1)
	if err != nil {
		t.Fatalf("repeat sync: %v", err)
	}
	if result.Changed() || result.RemovedFlagged != 0 {
		t.Fatalf("repeat sync should be a no-op, got %+v", result)
	}
	fetcher.setThread("b", 1, post(1, 1), post(2, 0), post(3, 0), post(4, 0))
	if _, err := engine.SyncThread(context.Background(), "b", 1); err != nil {
		t.Fatalf("reappear sync: %v", err)
	}
	final, err := archive.threads.Read(context.Background(), "b", 1)
	if err != nil {
		t.Fatalf("read final: %v", err)
	}
	if !final.Posts[0].Deleted {
		t.Fatalf("deleted flag must never be cleared")
	}
}

func TestSyncThreadMonotonic(t *testing.T) {
	archive := newTestArchive(t)
	fetcher := newFakeFetcher()
	engine := archive.engine(fetcher)

	states := [][]remote.Post{
		{post(10, 1), post(11, 0)},
		{post(10, 1), post(12, 0)},
		{post(13, 0)},
		{},
		{post(10, 1), post(14, 0)},
	}
	seen := map[uint64]struct{}{}
	for i, posts := range states {
		fetcher.setThread("b", 10, posts...)
		if _, err := engine.SyncThread(context.Background(), "b", 10); err != nil {
			t.Fatalf("sync %d: %v", i, err)
		}
		thread, err := archive.threads.Read(context.Background(), "b", 10)
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		ids := map[uint64]struct{}{}
		for _, id := range thread.PostIDs() {
			ids[id] = struct{}{}
		}
		for id := range seen {
			if _, ok := ids[id]; !ok {
				t.Fatalf("state %d dropped post %d", i, id)
			}
		}
		seen = ids
		if err := thread.Validate(); err != nil {
			t.Fatalf("state %d: %v", i, err)
		}
	}
	if len(seen) != 5 {
		t.Fatalf("expected 5 archived posts, got %d", len(seen))
	}
}

func TestSyncThreadLateOlderPostIsOrdered(t *testing.T) {
	archive := newTestArchive(t)
	fetcher := newFakeFetcher()
	engine := archive.engine(fetcher)

	fetcher.setThread("b", 1, post(1, 1), post(5, 0))
	if _, err := engine.SyncThread(context.Background(), "b", 1); err != nil {
		t.Fatalf("seed sync: %v", err)
	}
	fetcher.setThread("b", 1, post(1, 1), post(3, 0), post(5, 0))
	if _, err := engine.SyncThread(context.Background(), "b", 1); err != nil {
		t.Fatalf("second sync: %v", err)
	}
	thread, err := archive.threads.Read(context.Background(), "b", 1)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	ids := thread.PostIDs()
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 3 || ids[2] != 5 {
		t.Fatalf("unexpected order: %v", ids)
	}
}

func TestSyncThreadPartialAttachmentFailure(t *testing.T) {
	archive := newTestArchive(t)
	fetcher := newFakeFetcher()
	fetcher.files["/b/src/1/ok.jpg"] = []byte("jpeg-bytes")
	fetcher.setThread("b", 1, post(1, 1,
		remote.File{Path: "/b/src/1/ok.jpg", Name: "ok.jpg"},
		remote.File{Path: "/b/src/1/gone.webm", Name: "gone.webm"},
	))

	result, err := archive.engine(fetcher).SyncThread(context.Background(), "b", 1)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if result.Attachments != 1 || result.AttachmentFailures != 1 {
		t.Fatalf("unexpected attachment counts: %+v", result)
	}

	thread, err := archive.threads.Read(context.Background(), "b", 1)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	files := thread.Posts[0].Files
	if len(files) != 1 {
		t.Fatalf("expected one attachment, got %+v", files)
	}
	want := blobstore.ContentID([]byte("jpeg-bytes"), "jpg")
	if files[0].ContentID != want || files[0].Name != "ok.jpg" {
		t.Fatalf("unexpected attachment: %+v", files[0])
	}
	data, err := archive.blobs.Get(context.Background(), want)
	if err != nil {
		t.Fatalf("get blob: %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Fatalf("unexpected blob bytes: %q", data)
	}
}

func TestSyncThreadExtensionlessAttachment(t *testing.T) {
	archive := newTestArchive(t)
	fetcher := newFakeFetcher()
	fetcher.files["/b/src/1/blob"] = []byte("raw")
	fetcher.setThread("b", 1, post(1, 1, remote.File{Path: "/b/src/1/blob", Name: "blob"}))

	if _, err := archive.engine(fetcher).SyncThread(context.Background(), "b", 1); err != nil {
		t.Fatalf("sync: %v", err)
	}
	thread, err := archive.threads.Read(context.Background(), "b", 1)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got := thread.Posts[0].Files[0].ContentID
	if want := blobstore.ContentID([]byte("raw"), ""); got != want {
		t.Fatalf("content id = %q, want %q", got, want)
	}
	if !strings.HasSuffix(got, ".") || strings.Count(got, ".") != 1 {
		t.Fatalf("expected extensionless id to end with a single dot, got %q", got)
	}
	if data, err := archive.blobs.Get(context.Background(), got); err != nil || string(data) != "raw" {
		t.Fatalf("get blob %q: %q, %v", got, data, err)
	}
}

func TestSyncThreadFetchErrorPersistsNothing(t *testing.T) {
	archive := newTestArchive(t)
	fetcher := newFakeFetcher()
	fetcher.failThread("b", 1, errRemote)

	_, err := archive.engine(fetcher).SyncThread(context.Background(), "b", 1)
	if !errors.Is(err, ErrFetch) || !errors.Is(err, errRemote) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	var syncErr *SyncError
	if !errors.As(err, &syncErr) || syncErr.Board != "b" || syncErr.ThreadID != 1 {
		t.Fatalf("expected SyncError with context, got %#v", err)
	}
	if _, err := archive.threads.Read(context.Background(), "b", 1); !errors.Is(err, threadstore.ErrNotFound) {
		t.Fatalf("expected no snapshot, got %v", err)
	}
}

func TestSyncThreadRejectsUnknownOPMarker(t *testing.T) {
	archive := newTestArchive(t)
	fetcher := newFakeFetcher()
	fetcher.files["/b/src/1/a.png"] = []byte("a")
	fetcher.setThread("b", 1,
		post(1, 1, remote.File{Path: "/b/src/1/a.png", Name: "a.png"}),
		post(2, 7),
	)

	_, err := archive.engine(fetcher).SyncThread(context.Background(), "b", 1)
	if !errors.Is(err, ErrProtocolViolation) {
		t.Fatalf("expected protocol violation, got %v", err)
	}
	if fetcher.fileCalls != 0 {
		t.Fatalf("attachments fetched before validation: %d", fetcher.fileCalls)
	}
	if _, err := archive.threads.Read(context.Background(), "b", 1); !errors.Is(err, threadstore.ErrNotFound) {
		t.Fatalf("expected no snapshot, got %v", err)
	}
}

func TestSyncThreadCollapsesDuplicatePosts(t *testing.T) {
	archive := newTestArchive(t)
	fetcher := newFakeFetcher()
	fetcher.setThread("b", 1, post(2, 0), post(1, 1), post(2, 0))

	result, err := archive.engine(fetcher).SyncThread(context.Background(), "b", 1)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if result.Added != 2 {
		t.Fatalf("expected 2 added posts, got %d", result.Added)
	}
}

type recordingBlobLog struct {
	ids []string
}

func (r *recordingBlobLog) RecordBlob(_ context.Context, id string, _ int64, _ time.Time) error {
	r.ids = append(r.ids, id)
	return errors.New("ledger down")
}

func TestSyncThreadBlobRecorderFailureIsIgnored(t *testing.T) {
	archive := newTestArchive(t)
	fetcher := newFakeFetcher()
	fetcher.files["/b/src/1/a.gif"] = []byte("gif")
	fetcher.setThread("b", 1, post(1, 1, remote.File{Path: "/b/src/1/a.gif", Name: "a.gif"}))

	engine := archive.engine(fetcher)
	rec := &recordingBlobLog{}
	engine.SetBlobRecorder(rec)
	if _, err := engine.SyncThread(context.Background(), "b", 1); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(rec.ids) != 1 || rec.ids[0] != blobstore.ContentID([]byte("gif"), "gif") {
		t.Fatalf("unexpected recorded blobs: %v", rec.ids)
	}
}

func TestParseOPMarker(t *testing.T) {
	tests := []struct {
		raw     int
		want    bool
		wantErr bool
	}{
		{raw: 0, want: false},
		{raw: 1, want: true},
		{raw: 2, wantErr: true},
		{raw: -1, wantErr: true},
	}
	for _, tc := range tests {
		got, err := parseOPMarker(tc.raw)
		if (err != nil) != tc.wantErr {
			t.Fatalf("parseOPMarker(%d) err = %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("parseOPMarker(%d) = %v", tc.raw, got)
		}
	}
}

var errDiskFull = errors.New("disk full")

type failingThreadStore struct {
	threadstore.Store
}

func (failingThreadStore) Write(context.Context, string, *models.Thread) error {
	return errDiskFull
}

type failingContentStore struct {
	blobstore.ContentStore
}

func (failingContentStore) Put(context.Context, []byte, string) (blobstore.PutResult, error) {
	return blobstore.PutResult{}, errDiskFull
}

func TestSyncThreadSnapshotWriteFailure(t *testing.T) {
	archive := newTestArchive(t)
	fetcher := newFakeFetcher()
	fetcher.setThread("b", 1, post(1, 1), post(2, 0))

	engine := NewEngine(fetcher, failingThreadStore{Store: archive.threads}, archive.blobs, nil)
	_, err := engine.SyncThread(context.Background(), "b", 1)
	if !errors.Is(err, ErrStoreWrite) || !errors.Is(err, errDiskFull) {
		t.Fatalf("expected store write error, got %v", err)
	}
	if _, err := archive.threads.Read(context.Background(), "b", 1); !errors.Is(err, threadstore.ErrNotFound) {
		t.Fatalf("expected no snapshot, got %v", err)
	}
}

func TestSyncThreadBlobWriteFailure(t *testing.T) {
	archive := newTestArchive(t)
	fetcher := newFakeFetcher()
	fetcher.files["/b/src/1/a.png"] = []byte("png-bytes")
	fetcher.setThread("b", 1, post(1, 1, remote.File{Path: "/b/src/1/a.png", Name: "a.png"}))

	engine := NewEngine(fetcher, archive.threads, failingContentStore{ContentStore: archive.blobs}, nil)
	_, err := engine.SyncThread(context.Background(), "b", 1)
	if !errors.Is(err, ErrStoreWrite) || !errors.Is(err, errDiskFull) {
		t.Fatalf("expected store write error, got %v", err)
	}
	if _, err := archive.threads.Read(context.Background(), "b", 1); !errors.Is(err, threadstore.ErrNotFound) {
		t.Fatalf("expected no snapshot, got %v", err)
	}
}
