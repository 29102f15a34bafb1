package models

import "time"

// SyncStatus is the outcome of one thread synchronization unit.
type SyncStatus string

const (
	SyncStatusOK        SyncStatus = "ok"
	SyncStatusUnchanged SyncStatus = "unchanged"
	SyncStatusFailed    SyncStatus = "failed"
)

// SyncResult summarizes one successful thread synchronization.
type SyncResult struct {
	Board              string `json:"board"`
	ThreadID           uint64 `json:"thread_id"`
	Discovered         bool   `json:"discovered"`
	Added              int    `json:"added"`
	// RemovedFlagged counts only posts newly flagged deleted by this sync.
	// Posts flagged by an earlier sync are not counted again.
	RemovedFlagged     int    `json:"removed_flagged"`
	Attachments        int    `json:"attachments"`
	AttachmentFailures int    `json:"attachment_failures"`
}

// Changed reports whether the sync persisted anything.
func (r SyncResult) Changed() bool {
	return r.Discovered || r.Added > 0 || r.RemovedFlagged > 0
}

// ThreadFailure records one failed unit of a board sync.
type ThreadFailure struct {
	ThreadID uint64 `json:"thread_id"`
	Err      error  `json:"-"`
	Error    string `json:"error"`
}

// BoardResult aggregates one board-level sync pass.
type BoardResult struct {
	Board    string          `json:"board"`
	Threads  int             `json:"threads"`
	Synced   []SyncResult    `json:"synced"`
	Failures []ThreadFailure `json:"failures"`
}

// SyncRun is one ledger row describing a completed sync unit.
type SyncRun struct {
	ID                 int64      `json:"id"`
	Board              string     `json:"board"`
	ThreadID           uint64     `json:"thread_id"`
	Status             SyncStatus `json:"status"`
	Discovered         bool       `json:"discovered"`
	Added              int        `json:"added"`
	RemovedFlagged     int        `json:"removed_flagged"`
	Attachments        int        `json:"attachments"`
	AttachmentFailures int        `json:"attachment_failures"`
	Error              string     `json:"error,omitempty"`
	StartedAt          time.Time  `json:"started_at"`
	FinishedAt         time.Time  `json:"finished_at"`
}

// BlobRecord is one ledger row describing a stored blob.
type BlobRecord struct {
	ContentID   string    `json:"content_id"`
	SizeBytes   int64     `json:"size_bytes"`
	FirstSeenAt time.Time `json:"first_seen_at"`
}
