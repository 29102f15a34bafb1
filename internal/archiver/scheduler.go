package archiver

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"chanvault/internal/metrics"
	"chanvault/internal/models"
	"chanvault/internal/remote"
)

const DefaultConcurrency = 8

// ThreadSyncer runs one synchronization unit.
type ThreadSyncer interface {
	SyncThread(ctx context.Context, board string, threadID uint64) (models.SyncResult, error)
}

// ThreadLister lists the threads currently live on a board.
type ThreadLister interface {
	ListThreadIDs(ctx context.Context, board string) ([]uint64, error)
}

// RunRecorder persists the outcome of finished units.
type RunRecorder interface {
	RecordRun(ctx context.Context, run models.SyncRun) error
}

// SchedulerOptions configures a Scheduler. Zero values are valid.
type SchedulerOptions struct {
	Concurrency int
	Recorder    RunRecorder
	Metrics     *metrics.Collector
	Logger      *slog.Logger
}

// Scheduler drives one-shot and repeating synchronization of boards and threads.
type Scheduler struct {
	syncer      ThreadSyncer
	lister      ThreadLister
	concurrency int
	recorder    RunRecorder
	metrics     *metrics.Collector
	logger      *slog.Logger
	now         func() time.Time
}

// NewScheduler creates a scheduler.
func NewScheduler(syncer ThreadSyncer, lister ThreadLister, opts SchedulerOptions) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Scheduler{
		syncer:      syncer,
		lister:      lister,
		concurrency: concurrency,
		recorder:    opts.Recorder,
		metrics:     opts.Metrics,
		logger:      logger.With("component", "scheduler"),
		now:         time.Now,
	}
}

// SyncThreadOnce runs one synchronization unit and reports its outcome.
func (s *Scheduler) SyncThreadOnce(ctx context.Context, board string, threadID uint64) (models.SyncResult, error) {
	started := s.now()
	result, err := s.syncer.SyncThread(ctx, board, threadID)
	s.report(ctx, board, threadID, result, err, started)
	return result, err
}

// SyncBoardOnce syncs every live thread of a board with bounded concurrency.
// A failed unit is logged and collected; it never cancels its siblings.
func (s *Scheduler) SyncBoardOnce(ctx context.Context, board string) (models.BoardResult, error) {
	result := models.BoardResult{Board: board, Synced: []models.SyncResult{}, Failures: []models.ThreadFailure{}}

	ids, err := s.lister.ListThreadIDs(ctx, board)
	if err != nil {
		return result, newSyncError(ErrFetch, board, 0, "", err)
	}
	// Two units must never race on the same thread key.
	ids = lo.Uniq(ids)
	result.Threads = len(ids)
	s.logger.Info("fetched catalogue", "board", board, "threads", len(ids))

	type outcome struct {
		result models.SyncResult
		err    error
	}
	outcomes := make([]outcome, len(ids))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			res, err := s.SyncThreadOnce(ctx, board, id)
			outcomes[i] = outcome{result: res, err: err}
			return nil
		})
	}
	_ = g.Wait()

	for i, o := range outcomes {
		if o.err != nil {
			s.logger.Error("failed to dump thread", "board", board, "thread", ids[i], "error", o.err)
			result.Failures = append(result.Failures, models.ThreadFailure{ThreadID: ids[i], Err: o.err, Error: o.err.Error()})
			continue
		}
		result.Synced = append(result.Synced, o.result)
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// MonitorBoard repeats SyncBoardOnce every interval until ctx is cancelled.
func (s *Scheduler) MonitorBoard(ctx context.Context, board string, interval time.Duration) error {
	log := s.logger.With("board", board)
	for {
		res, err := s.SyncBoardOnce(ctx, board)
		switch {
		case ctx.Err() != nil:
		case err != nil:
			log.Error("failed to dump board", "error", err)
		default:
			log.Info("dumped board", "threads", res.Threads, "failures", len(res.Failures))
		}

		if err := wait(ctx, interval); err != nil {
			log.Info("finished monitoring board")
			return nil
		}
	}
}

// MonitorThread repeats SyncThreadOnce every interval and stops at the first
// failure, on the assumption that the thread was removed remotely.
func (s *Scheduler) MonitorThread(ctx context.Context, board string, threadID uint64, interval time.Duration) error {
	log := s.logger.With("board", board, "thread", threadID)
	for {
		if _, err := s.SyncThreadOnce(ctx, board, threadID); err != nil {
			switch {
			case ctx.Err() != nil:
			case remote.IsNotFound(err):
				log.Info("thread removed remotely")
			default:
				log.Warn("failed to dump thread, stopping", "error", err)
			}
			break
		}
		if err := wait(ctx, interval); err != nil {
			break
		}
	}
	log.Info("finished monitoring thread")
	return nil
}

func (s *Scheduler) report(ctx context.Context, board string, threadID uint64, result models.SyncResult, err error, started time.Time) {
	run := models.SyncRun{
		Board:              board,
		ThreadID:           threadID,
		Status:             models.SyncStatusOK,
		Discovered:         result.Discovered,
		Added:              result.Added,
		RemovedFlagged:     result.RemovedFlagged,
		Attachments:        result.Attachments,
		AttachmentFailures: result.AttachmentFailures,
		StartedAt:          started,
		FinishedAt:         s.now(),
	}
	switch {
	case err != nil:
		run.Status = models.SyncStatusFailed
		run.Error = err.Error()
	case !result.Changed():
		run.Status = models.SyncStatusUnchanged
	}

	s.metrics.ObserveRun(run)
	if s.recorder == nil {
		return
	}
	// Record even when the unit was cancelled.
	if err := s.recorder.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		s.logger.Warn("failed to record sync run", "board", run.Board, "thread", run.ThreadID, "error", err)
	}
}

// wait sleeps for d, returning early with ctx's error on cancellation.
func wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
