package archiver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/klauspost/compress/zstd"

	"chanvault/internal/models"
	"chanvault/internal/threadstore"
)

// ExportRecord is one line of a board export.
type ExportRecord struct {
	Board  string         `json:"board"`
	Thread *models.Thread `json:"thread"`
}

// Exporter streams archived snapshots as zstd-compressed JSON lines.
type Exporter struct {
	threads threadstore.Store
	logger  *slog.Logger
}

// NewExporter creates an exporter. logger may be nil.
func NewExporter(threads threadstore.Store, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{threads: threads, logger: logger.With("component", "exporter")}
}

// ExportBoard writes every snapshot of board to w, one thread per line,
// ascending by thread id. It returns the number of threads written.
func (e *Exporter) ExportBoard(ctx context.Context, board string, w io.Writer) (int, error) {
	ids, err := e.threads.ListThreadIDs(ctx, board)
	if err != nil {
		return 0, newSyncError(ErrStoreRead, board, 0, "", err)
	}

	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return 0, fmt.Errorf("zstd writer: %w", err)
	}
	enc := json.NewEncoder(zw)
	enc.SetEscapeHTML(false)

	written := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			_ = zw.Close()
			return written, err
		}
		thread, err := e.threads.Read(ctx, board, id)
		if err != nil {
			_ = zw.Close()
			return written, newSyncError(ErrStoreRead, board, id, "", err)
		}
		if err := enc.Encode(ExportRecord{Board: board, Thread: thread}); err != nil {
			_ = zw.Close()
			return written, fmt.Errorf("encode thread %d: %w", id, err)
		}
		written++
	}

	if err := zw.Close(); err != nil {
		return written, fmt.Errorf("flush export: %w", err)
	}
	e.logger.Info("exported board", "board", board, "threads", written)
	return written, nil
}

// ReadExport decodes an export stream produced by ExportBoard.
func ReadExport(r io.Reader) ([]ExportRecord, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer zr.Close()

	dec := json.NewDecoder(zr)
	var records []ExportRecord
	for {
		var rec ExportRecord
		err := dec.Decode(&rec)
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return records, fmt.Errorf("decode export: %w", err)
		}
		records = append(records, rec)
	}
}
