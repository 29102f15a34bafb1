package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"chanvault/internal/archiver"
	"chanvault/internal/format"
	"chanvault/internal/ledger"
	"chanvault/internal/models"
)

var (
	outputFormatter format.Formatter = format.JSONFormatter{}
	stdout          io.Writer        = os.Stdout
)

func writeJSON(payload any) error {
	return outputFormatter.Write(stdout, payload)
}

func writeWith(f format.Formatter, payload any) error {
	return f.Write(stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(stdout, format, args...)
	return err
}

func writeLines(lines []string) error {
	for _, line := range lines {
		if err := writePlain("%s\n", line); err != nil {
			return err
		}
	}
	return nil
}

func writeSyncResult(r models.SyncResult) error {
	return writePlain("%s\n", formatSyncLine(r))
}

func writeBoardResult(r models.BoardResult) error {
	lines := []string{fmt.Sprintf("/%s/: %d threads, %d synced, %d failed", r.Board, r.Threads, len(r.Synced), len(r.Failures))}
	for _, s := range r.Synced {
		if s.Changed() {
			lines = append(lines, "  "+formatSyncLine(s))
		}
	}
	for _, f := range r.Failures {
		lines = append(lines, fmt.Sprintf("  ✗ %d: %s", f.ThreadID, f.Error))
	}
	return writeLines(lines)
}

func formatSyncLine(r models.SyncResult) string {
	if !r.Changed() {
		return fmt.Sprintf("○ /%s/%d nothing new", r.Board, r.ThreadID)
	}
	marker := "●"
	if r.Discovered {
		marker = "+"
	}
	line := fmt.Sprintf("%s /%s/%d +%d posts, %d deleted, %d attachments", marker, r.Board, r.ThreadID, r.Added, r.RemovedFlagged, r.Attachments)
	if r.AttachmentFailures > 0 {
		line += fmt.Sprintf(" (%d failed)", r.AttachmentFailures)
	}
	return line
}

func writeThreadDetail(board string, thread *models.Thread) error {
	lines := []string{
		fmt.Sprintf("thread: /%s/%d", board, thread.ID),
		fmt.Sprintf("posts: %d", len(thread.Posts)),
	}
	for _, p := range thread.Posts {
		header := fmt.Sprintf("--- #%d %s %s", p.ID, formatUnix(p.Timestamp), p.Name)
		if p.OP {
			header += " [OP]"
		}
		if p.Deleted {
			header += " [deleted]"
		}
		lines = append(lines, header)
		if p.Subject != "" {
			lines = append(lines, "subject: "+p.Subject)
		}
		if p.Message != "" {
			lines = append(lines, p.Message)
		}
		for _, f := range p.Files {
			lines = append(lines, fmt.Sprintf("  file: %s (%s)", f.ContentID, f.Name))
		}
	}
	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func writeCopyResults(results []archiver.CopyResult) error {
	for _, r := range results {
		if err := writePlain("/%s/%d: %d posts, %d blobs copied, %d already present\n",
			r.Board, r.ThreadID, r.Posts, r.BlobsCopied, r.BlobsSkipped); err != nil {
			return err
		}
	}
	return nil
}

func writeRuns(runs []models.SyncRun) error {
	for _, run := range runs {
		line := fmt.Sprintf("%s %-9s /%s/%d +%d -%d files=%d", formatTime(run.StartedAt), run.Status,
			run.Board, run.ThreadID, run.Added, run.RemovedFlagged, run.Attachments)
		if run.Error != "" {
			line += " error=" + run.Error
		}
		if err := writePlain("%s\n", line); err != nil {
			return err
		}
	}
	return nil
}

func writeMigrationPlan(plan *ledger.MigrationStatus) error {
	lines := []string{
		fmt.Sprintf("Current version: %d", plan.CurrentVersion),
		fmt.Sprintf("Available version: %d", plan.AvailableVersion),
	}
	if len(plan.Pending) == 0 {
		lines = append(lines, "No pending migrations.")
	} else {
		lines = append(lines, fmt.Sprintf("Pending migrations: %d", len(plan.Pending)))
		for _, m := range plan.Pending {
			lines = append(lines, fmt.Sprintf("  %d: %s", m.Version, m.Description))
		}
	}
	return writeLines(lines)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatUnix(ts uint64) string {
	return formatTime(time.Unix(int64(ts), 0))
}
