package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"chanvault/internal/archiver"
	"chanvault/internal/config"
)

func newExportCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		board  string
		out    string
		verify bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a board as zstd-compressed JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			board, err := requireBoard(board)
			if err != nil {
				return err
			}
			if out == "" {
				return errors.New("--out is required")
			}

			threads, _, err := openStores(cfg.DataDir, cfg.SnapshotFormat)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return err
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			count, err := archiver.NewExporter(threads, nil).ExportBoard(cmd.Context(), board, f)
			if closeErr := f.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				_ = os.Remove(out)
				return fmt.Errorf("export /%s/: %w", board, err)
			}
			if verify {
				if err := verifyExport(out, board, count); err != nil {
					return err
				}
			}

			if *jsonOutput {
				return writeJSON(map[string]any{"board": board, "threads": count, "path": out})
			}
			return writePlain("exported %d threads of /%s/ to %s\n", count, board, out)
		},
	}

	cmd.Flags().StringVar(&board, "board", "", "board slug (required)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, e.g. b.jsonl.zst (required)")
	cmd.Flags().BoolVar(&verify, "verify", false, "read the export back and check every record")
	return cmd
}

func verifyExport(path, board string, want int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	records, err := archiver.ReadExport(f)
	if err != nil {
		return fmt.Errorf("verify %s: %w", path, err)
	}
	if len(records) != want {
		return fmt.Errorf("verify %s: read %d threads, wrote %d", path, len(records), want)
	}
	for _, rec := range records {
		if rec.Board != board || rec.Thread == nil {
			return fmt.Errorf("verify %s: unexpected record for /%s/", path, rec.Board)
		}
	}
	return nil
}
