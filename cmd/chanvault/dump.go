package main

import (
	"github.com/spf13/cobra"

	"chanvault/internal/config"
)

func newDumpCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		board    string
		threadID uint64
	)

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Sync a board or a single thread once",
		Example: `  chanvault dump --board b
  chanvault dump --board b --thread 100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			board, err := requireBoard(board)
			if err != nil {
				return err
			}
			id, single, err := threadFlag(cmd, threadID)
			if err != nil {
				return err
			}

			return withApp(cfg, func(a *app) error {
				scheduler := a.scheduler()
				if single {
					result, err := scheduler.SyncThreadOnce(cmd.Context(), board, id)
					if err != nil {
						return err
					}
					if *jsonOutput {
						return writeJSON(result)
					}
					return writeSyncResult(result)
				}

				result, err := scheduler.SyncBoardOnce(cmd.Context(), board)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(result)
				}
				return writeBoardResult(result)
			})
		},
	}

	cmd.Flags().StringVar(&board, "board", "", "board slug (required)")
	cmd.Flags().Uint64Var(&threadID, "thread", 0, "sync only this thread")
	return cmd
}
