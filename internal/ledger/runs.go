package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"chanvault/internal/models"
)

const syncRunColumns = "id, board, thread_id, status, discovered, added, removed_flagged, attachments, attachment_failures, error, started_at, finished_at"

const defaultRunLimit = 50

// RunFilter narrows ListRuns.
type RunFilter struct {
	Board    string
	ThreadID uint64
	Limit    int
}

// RecordRun inserts one sync run row.
func (l *Ledger) RecordRun(ctx context.Context, run models.SyncRun) error {
	_, err := l.db.ExecContext(ctx, `INSERT INTO sync_runs
  (board, thread_id, status, discovered, added, removed_flagged, attachments, attachment_failures, error, started_at, finished_at)
  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Board,
		int64(run.ThreadID),
		string(run.Status),
		boolToInt(run.Discovered),
		run.Added,
		run.RemovedFlagged,
		run.Attachments,
		run.AttachmentFailures,
		nullableString(run.Error),
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
	)
	return err
}

// ListRuns returns recent runs, newest first.
func (l *Ledger) ListRuns(ctx context.Context, filter RunFilter) ([]models.SyncRun, error) {
	clauses := []string{}
	args := []any{}
	if filter.Board != "" {
		clauses = append(clauses, "board = ?")
		args = append(args, filter.Board)
	}
	if filter.ThreadID != 0 {
		clauses = append(clauses, "thread_id = ?")
		args = append(args, int64(filter.ThreadID))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultRunLimit
	}

	query := `SELECT ` + syncRunColumns + ` FROM sync_runs`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []models.SyncRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(rows *sql.Rows) (models.SyncRun, error) {
	var (
		run        models.SyncRun
		threadID   int64
		status     string
		discovered int
		errText    sql.NullString
		startedAt  string
		finishedAt string
	)
	if err := rows.Scan(&run.ID, &run.Board, &threadID, &status, &discovered, &run.Added, &run.RemovedFlagged,
		&run.Attachments, &run.AttachmentFailures, &errText, &startedAt, &finishedAt); err != nil {
		return run, err
	}
	run.ThreadID = uint64(threadID)
	run.Status = models.SyncStatus(status)
	run.Discovered = discovered != 0
	run.Error = errText.String

	var err error
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return run, fmt.Errorf("parse started_at: %w", err)
	}
	if run.FinishedAt, err = parseTime(finishedAt); err != nil {
		return run, fmt.Errorf("parse finished_at: %w", err)
	}
	return run, nil
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
