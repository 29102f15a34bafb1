package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"chanvault/internal/config"
	"chanvault/internal/format"
)

func newShowCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		board      string
		threadID   uint64
		yamlOutput bool
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show an archived thread",
		RunE: func(cmd *cobra.Command, args []string) error {
			board, err := requireBoard(board)
			if err != nil {
				return err
			}
			id, ok, err := threadFlag(cmd, threadID)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("--thread is required")
			}
			if *jsonOutput && yamlOutput {
				return fmt.Errorf("--json and --yaml are mutually exclusive")
			}

			threads, _, err := openStores(cfg.DataDir, cfg.SnapshotFormat)
			if err != nil {
				return err
			}
			thread, err := threads.Read(cmd.Context(), board, id)
			if err != nil {
				return err
			}

			switch {
			case *jsonOutput:
				return writeJSON(thread)
			case yamlOutput:
				return writeWith(format.YAMLFormatter{}, thread)
			default:
				return writeThreadDetail(board, thread)
			}
		},
	}

	cmd.Flags().StringVar(&board, "board", "", "board slug (required)")
	cmd.Flags().Uint64Var(&threadID, "thread", 0, "thread number (required)")
	cmd.Flags().BoolVar(&yamlOutput, "yaml", false, "output YAML")
	return cmd
}
