package main

import (
	"github.com/spf13/cobra"

	"chanvault/internal/config"
)

func newThreadsCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var board string

	cmd := &cobra.Command{
		Use:   "threads",
		Short: "List archived threads of a board, or archived boards",
		RunE: func(cmd *cobra.Command, args []string) error {
			threads, _, err := openStores(cfg.DataDir, cfg.SnapshotFormat)
			if err != nil {
				return err
			}

			if board == "" {
				boards, err := threads.ListBoards(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(boards)
				}
				return writeLines(boards)
			}

			board, err := requireBoard(board)
			if err != nil {
				return err
			}
			ids, err := threads.ListThreadIDs(cmd.Context(), board)
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(ids)
			}
			for _, id := range ids {
				if err := writePlain("%d\n", id); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&board, "board", "", "board slug; lists boards when omitted")
	return cmd
}
