package archiver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chanvault/internal/metrics"
	"chanvault/internal/models"
	"chanvault/internal/threadstore"
)

type memoryRecorder struct {
	mu   sync.Mutex
	runs []models.SyncRun
}

func (r *memoryRecorder) RecordRun(_ context.Context, run models.SyncRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

func (r *memoryRecorder) statuses() map[models.SyncStatus]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[models.SyncStatus]int{}
	for _, run := range r.runs {
		out[run.Status]++
	}
	return out
}

func TestSyncBoardOnceIsolatesFailures(t *testing.T) {
	archive := newTestArchive(t)
	fetcher := newFakeFetcher()
	fetcher.catalog["b"] = []uint64{1, 2, 3}
	fetcher.setThread("b", 1, post(1, 1))
	fetcher.setThread("b", 3, post(3, 1))
	fetcher.failThread("b", 2, errRemote)

	recorder := &memoryRecorder{}
	scheduler := NewScheduler(archive.engine(fetcher), fetcher, SchedulerOptions{
		Concurrency: 2,
		Recorder:    recorder,
		Metrics:     metrics.New(),
	})

	result, err := scheduler.SyncBoardOnce(context.Background(), "b")
	if err != nil {
		t.Fatalf("sync board: %v", err)
	}
	if result.Threads != 3 || len(result.Synced) != 2 || len(result.Failures) != 1 {
		t.Fatalf("unexpected board result: %+v", result)
	}
	if result.Failures[0].ThreadID != 2 || !errors.Is(result.Failures[0].Err, ErrFetch) {
		t.Fatalf("unexpected failure: %+v", result.Failures[0])
	}

	ids, err := archive.threads.ListThreadIDs(context.Background(), "b")
	if err != nil {
		t.Fatalf("list threads: %v", err)
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Fatalf("unexpected persisted threads: %v", ids)
	}

	statuses := recorder.statuses()
	if statuses[models.SyncStatusOK] != 2 || statuses[models.SyncStatusFailed] != 1 {
		t.Fatalf("unexpected recorded statuses: %v", statuses)
	}
}

func TestSyncBoardOnceDedupesCatalog(t *testing.T) {
	archive := newTestArchive(t)
	fetcher := newFakeFetcher()
	fetcher.catalog["b"] = []uint64{7, 7, 7}
	fetcher.setThread("b", 7, post(7, 1))

	scheduler := NewScheduler(archive.engine(fetcher), fetcher, SchedulerOptions{})
	result, err := scheduler.SyncBoardOnce(context.Background(), "b")
	if err != nil {
		t.Fatalf("sync board: %v", err)
	}
	if result.Threads != 1 || fetcher.fetches != 1 {
		t.Fatalf("expected one unit, got threads=%d fetches=%d", result.Threads, fetcher.fetches)
	}
}

func TestSyncBoardOnceCatalogFailure(t *testing.T) {
	archive := newTestArchive(t)
	fetcher := newFakeFetcher()

	scheduler := NewScheduler(archive.engine(fetcher), fetcher, SchedulerOptions{})
	if _, err := scheduler.SyncBoardOnce(context.Background(), "missing"); !errors.Is(err, ErrFetch) {
		t.Fatalf("expected fetch error, got %v", err)
	}
}

func TestSyncThreadOnceRecordsUnchanged(t *testing.T) {
	archive := newTestArchive(t)
	fetcher := newFakeFetcher()
	fetcher.setThread("b", 100, post(100, 1))

	recorder := &memoryRecorder{}
	scheduler := NewScheduler(archive.engine(fetcher), fetcher, SchedulerOptions{Recorder: recorder})
	for i := 0; i < 2; i++ {
		if _, err := scheduler.SyncThreadOnce(context.Background(), "b", 100); err != nil {
			t.Fatalf("sync %d: %v", i, err)
		}
	}
	if len(recorder.runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(recorder.runs))
	}
	first, second := recorder.runs[0], recorder.runs[1]
	if first.Status != models.SyncStatusOK || !first.Discovered || first.Added != 1 {
		t.Fatalf("unexpected first run: %+v", first)
	}
	if second.Status != models.SyncStatusUnchanged || second.Board != "b" || second.ThreadID != 100 {
		t.Fatalf("unexpected second run: %+v", second)
	}
}

func TestMonitorThreadStopsOnFailure(t *testing.T) {
	archive := newTestArchive(t)
	fetcher := newFakeFetcher()
	fetcher.setThread("b", 1, post(1, 1))

	scheduler := NewScheduler(archive.engine(fetcher), fetcher, SchedulerOptions{})
	syncs := 0
	scheduler.syncer = syncerFunc(func(ctx context.Context, board string, id uint64) (models.SyncResult, error) {
		syncs++
		if syncs == 3 {
			fetcher.failThread("b", 1, errRemote)
		}
		return archive.engine(fetcher).SyncThread(ctx, board, id)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := scheduler.MonitorThread(ctx, "b", 1, 0); err != nil {
		t.Fatalf("monitor thread: %v", err)
	}
	if syncs != 3 {
		t.Fatalf("expected 3 syncs before stopping, got %d", syncs)
	}
	if ctx.Err() != nil {
		t.Fatalf("monitor should stop on failure, not timeout")
	}
	if _, err := archive.threads.Read(context.Background(), "b", 1); err != nil {
		t.Fatalf("archived thread should survive: %v", err)
	}
}

func TestMonitorBoardStopsOnCancel(t *testing.T) {
	archive := newTestArchive(t)
	fetcher := newFakeFetcher()
	fetcher.catalog["b"] = []uint64{1}
	fetcher.setThread("b", 1, post(1, 1))

	scheduler := NewScheduler(archive.engine(fetcher), fetcher, SchedulerOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- scheduler.MonitorBoard(ctx, "b", time.Hour)
	}()

	deadline := time.After(5 * time.Second)
	for {
		if _, err := archive.threads.Read(context.Background(), "b", 1); err == nil {
			break
		} else if !errors.Is(err, threadstore.ErrNotFound) {
			t.Fatalf("read: %v", err)
		}
		select {
		case <-deadline:
			t.Fatalf("first pass never persisted the thread")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("monitor board: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("monitor did not stop after cancellation")
	}
}

func TestWait(t *testing.T) {
	if err := wait(context.Background(), 0); err != nil {
		t.Fatalf("zero interval: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := wait(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

type syncerFunc func(ctx context.Context, board string, id uint64) (models.SyncResult, error)

func (f syncerFunc) SyncThread(ctx context.Context, board string, id uint64) (models.SyncResult, error) {
	return f(ctx, board, id)
}

func TestSyncBoardOnceBoundsConcurrency(t *testing.T) {
	const limit = 3
	fetcher := newFakeFetcher()
	for id := uint64(1); id <= 12; id++ {
		fetcher.catalog["b"] = append(fetcher.catalog["b"], id)
	}

	var (
		mu       sync.Mutex
		inFlight int
		peak     int
	)
	syncer := syncerFunc(func(ctx context.Context, board string, id uint64) (models.SyncResult, error) {
		mu.Lock()
		inFlight++
		peak = max(peak, inFlight)
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return models.SyncResult{Board: board, ThreadID: id}, nil
	})

	scheduler := NewScheduler(syncer, fetcher, SchedulerOptions{Concurrency: limit})
	result, err := scheduler.SyncBoardOnce(context.Background(), "b")
	if err != nil {
		t.Fatalf("sync board: %v", err)
	}
	if len(result.Synced) != 12 {
		t.Fatalf("expected 12 synced threads, got %d", len(result.Synced))
	}
	if peak > limit {
		t.Fatalf("peak in-flight units %d exceeds limit %d", peak, limit)
	}
	if peak < 2 {
		t.Fatalf("expected units to overlap, peak was %d", peak)
	}
}
