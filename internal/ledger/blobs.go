package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"chanvault/internal/models"
)

// RecordBlob remembers a stored blob. The first sighting wins.
func (l *Ledger) RecordBlob(ctx context.Context, contentID string, sizeBytes int64, seenAt time.Time) error {
	_, err := l.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO blobs (content_id, size_bytes, first_seen_at) VALUES (?, ?, ?)",
		contentID, sizeBytes, formatTime(seenAt))
	return err
}

// GetBlob returns one blob record, or nil when unknown.
func (l *Ledger) GetBlob(ctx context.Context, contentID string) (*models.BlobRecord, error) {
	var (
		rec    models.BlobRecord
		seenAt string
	)
	err := l.db.QueryRowContext(ctx,
		"SELECT content_id, size_bytes, first_seen_at FROM blobs WHERE content_id = ?", contentID).
		Scan(&rec.ContentID, &rec.SizeBytes, &seenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if rec.FirstSeenAt, err = parseTime(seenAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

// BlobStats returns the number of recorded blobs and their total size.
func (l *Ledger) BlobStats(ctx context.Context) (count int64, totalBytes int64, err error) {
	err = l.db.QueryRowContext(ctx, "SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM blobs").Scan(&count, &totalBytes)
	return count, totalBytes, err
}
