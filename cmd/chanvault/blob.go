package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"chanvault/internal/config"
	"chanvault/internal/ledger"
)

func newBlobCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		out  string
		info bool
	)

	cmd := &cobra.Command{
		Use:   "blob <content-id>",
		Short: "Write a stored attachment to stdout or a file",
		Args:  requireContentID,
		RunE: func(cmd *cobra.Command, args []string) error {
			if info {
				return showBlobInfo(cmd, cfg, args[0], *jsonOutput)
			}
			_, blobs, err := openStores(cfg.DataDir, cfg.SnapshotFormat)
			if err != nil {
				return err
			}
			data, err := blobs.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				_, err := os.Stdout.Write(data)
				return err
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&info, "info", false, "print the ledger record instead of the bytes")
	return cmd
}

type blobInfo struct {
	ContentID   string `json:"content_id"`
	Stored      bool   `json:"stored"`
	SizeBytes   int64  `json:"size_bytes,omitempty"`
	FirstSeenAt string `json:"first_seen_at,omitempty"`
}

func showBlobInfo(cmd *cobra.Command, cfg *config.Config, contentID string, asJSON bool) error {
	if !cfg.Sync.Ledger {
		return errors.New("the sync ledger is disabled (sync.ledger = false)")
	}
	_, blobs, err := openStores(cfg.DataDir, cfg.SnapshotFormat)
	if err != nil {
		return err
	}
	stored, err := blobs.Has(cmd.Context(), contentID)
	if err != nil {
		return err
	}

	l, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		return err
	}
	defer l.Close()

	rec, err := l.GetBlob(cmd.Context(), contentID)
	if err != nil {
		return err
	}
	if rec == nil && !stored {
		return fmt.Errorf("blob %s is neither stored nor recorded", contentID)
	}

	info := blobInfo{ContentID: contentID, Stored: stored}
	if rec != nil {
		info.SizeBytes = rec.SizeBytes
		info.FirstSeenAt = formatTime(rec.FirstSeenAt)
	}
	if asJSON {
		return writeJSON(info)
	}
	lines := []string{"content id: " + info.ContentID, fmt.Sprintf("stored: %t", info.Stored)}
	if rec == nil {
		lines = append(lines, "not recorded in the ledger")
	} else {
		lines = append(lines, fmt.Sprintf("size: %d bytes", info.SizeBytes), "first seen: "+info.FirstSeenAt)
	}
	return writeLines(lines)
}
