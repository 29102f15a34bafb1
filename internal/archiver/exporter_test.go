package archiver

import (
	"bytes"
	"context"
	"testing"
)

func TestExportBoard(t *testing.T) {
	src, _ := seedArchive(t)

	var buf bytes.Buffer
	n, err := NewExporter(src.threads, nil).ExportBoard(context.Background(), "b", &buf)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 threads, got %d", n)
	}

	records, err := ReadExport(&buf)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	for i, want := range []uint64{1, 2} {
		rec := records[i]
		if rec.Board != "b" || rec.Thread == nil || rec.Thread.ID != want {
			t.Fatalf("unexpected record %d: %+v", i, rec)
		}
		if len(rec.Thread.Posts) != 1 || len(rec.Thread.Posts[0].Files) != 1 {
			t.Fatalf("record %d lost content: %+v", i, rec.Thread)
		}
	}
}

func TestExportMissingBoard(t *testing.T) {
	archive := newTestArchive(t)
	var buf bytes.Buffer
	if _, err := NewExporter(archive.threads, nil).ExportBoard(context.Background(), "nope", &buf); err == nil {
		t.Fatalf("expected error for missing board")
	}
}
