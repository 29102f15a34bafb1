package main

import (
	"errors"

	"github.com/spf13/cobra"

	"chanvault/internal/config"
	"chanvault/internal/ledger"
)

func newHistoryCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		board    string
		threadID uint64
		limit    int
		blobs    bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent sync runs recorded in the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cfg.Sync.Ledger {
				return errors.New("the sync ledger is disabled (sync.ledger = false)")
			}
			if limit <= 0 {
				return errors.New("--limit must be positive")
			}
			filter := ledger.RunFilter{Board: board, Limit: limit}
			if board != "" {
				validated, err := requireBoard(board)
				if err != nil {
					return err
				}
				filter.Board = validated
			}
			id, ok, err := threadFlag(cmd, threadID)
			if err != nil {
				return err
			}
			if ok {
				filter.ThreadID = id
			}

			l, err := ledger.Open(cfg.LedgerPath())
			if err != nil {
				return err
			}
			defer l.Close()

			if blobs {
				return writeBlobStats(cmd, l, *jsonOutput)
			}

			runs, err := l.ListRuns(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(runs)
			}
			return writeRuns(runs)
		},
	}

	cmd.Flags().StringVar(&board, "board", "", "only runs of this board")
	cmd.Flags().Uint64Var(&threadID, "thread", 0, "only runs of this thread")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs")
	cmd.Flags().BoolVar(&blobs, "blobs", false, "summarize recorded blobs instead of listing runs")
	return cmd
}

func writeBlobStats(cmd *cobra.Command, l *ledger.Ledger, asJSON bool) error {
	count, total, err := l.BlobStats(cmd.Context())
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(map[string]int64{"blobs": count, "total_bytes": total})
	}
	return writePlain("%d blobs recorded, %d bytes total\n", count, total)
}
