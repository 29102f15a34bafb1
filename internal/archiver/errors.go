package archiver

import (
	"errors"
	"fmt"
	"strconv"
)

// Error kinds. A *SyncError matches its kind with errors.Is.
var (
	ErrFetch             = errors.New("fetch failed")
	ErrAttachmentFetch   = errors.New("attachment fetch failed")
	ErrStoreRead         = errors.New("store read failed")
	ErrStoreWrite        = errors.New("store write failed")
	ErrProtocolViolation = errors.New("protocol invariant violation")
)

// SyncError carries the context of a failed synchronization step.
type SyncError struct {
	Kind     error
	Board    string
	ThreadID uint64
	Path     string
	Err      error
}

func newSyncError(kind error, board string, threadID uint64, path string, err error) *SyncError {
	return &SyncError{Kind: kind, Board: board, ThreadID: threadID, Path: path, Err: err}
}

func (e *SyncError) Error() string {
	if e == nil {
		return ""
	}
	where := "/" + e.Board + "/"
	if e.ThreadID != 0 {
		where += strconv.FormatUint(e.ThreadID, 10)
	}
	if e.Path != "" {
		where += " (" + e.Path + ")"
	}
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", e.Kind, where)
	}
	return fmt.Sprintf("%v: %s: %v", e.Kind, where, e.Err)
}

func (e *SyncError) Unwrap() []error {
	if e == nil {
		return nil
	}
	out := []error{}
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}
