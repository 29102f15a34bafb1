package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"chanvault/internal/archiver"
	"chanvault/internal/config"
)

func newCopyCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		from     string
		to       string
		board    string
		threadID uint64
	)

	cmd := &cobra.Command{
		Use:   "copy",
		Short: "Copy archived threads and their attachments between archive roots",
		Example: `  chanvault copy --from ./old --to ./new --board b
  chanvault copy --to /mnt/backup --board b --thread 100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			board, err := requireBoard(board)
			if err != nil {
				return err
			}
			id, single, err := threadFlag(cmd, threadID)
			if err != nil {
				return err
			}
			if from == "" {
				from = cfg.DataDir
			}
			if to == "" {
				return errors.New("--to is required")
			}

			srcThreads, srcBlobs, err := openStores(from, cfg.SnapshotFormat)
			if err != nil {
				return err
			}
			dstThreads, dstBlobs, err := openStores(to, cfg.SnapshotFormat)
			if err != nil {
				return err
			}
			copier := archiver.NewCopier(
				archiver.Archive{Threads: srcThreads, Blobs: srcBlobs},
				archiver.Archive{Threads: dstThreads, Blobs: dstBlobs},
				slog.Default(),
			)

			if single {
				result, err := copier.CopyThread(cmd.Context(), board, id)
				if err != nil {
					return err
				}
				return writeCopyOutput([]archiver.CopyResult{result}, *jsonOutput)
			}

			// Threads that failed are reported after the ones that were copied.
			results, copyErr := copier.CopyBoard(cmd.Context(), board)
			if err := writeCopyOutput(results, *jsonOutput); err != nil {
				return err
			}
			return copyErr
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "source archive root (default data_dir)")
	cmd.Flags().StringVar(&to, "to", "", "destination archive root (required)")
	cmd.Flags().StringVar(&board, "board", "", "board slug (required)")
	cmd.Flags().Uint64Var(&threadID, "thread", 0, "copy only this thread")
	return cmd
}

func writeCopyOutput(results []archiver.CopyResult, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(results)
	}
	return writeCopyResults(results)
}
