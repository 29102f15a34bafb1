package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"chanvault/internal/threadstore"
)

func requireExactlyArgs(count int, message string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != count {
			return errors.New(message)
		}
		return nil
	}
}

func requireContentID(cmd *cobra.Command, args []string) error {
	return requireExactlyArgs(1, "content id is required")(cmd, args)
}

func requireBoard(board string) (string, error) {
	board = strings.TrimSpace(board)
	if board == "" {
		return "", errors.New("--board is required")
	}
	if err := threadstore.ValidateBoard(board); err != nil {
		return "", err
	}
	return board, nil
}

// threadFlag reports the --thread value and whether it was given.
func threadFlag(cmd *cobra.Command, threadID uint64) (uint64, bool, error) {
	if !cmd.Flags().Changed("thread") {
		return 0, false, nil
	}
	if threadID == 0 {
		return 0, false, fmt.Errorf("--thread must be a positive thread number")
	}
	return threadID, true, nil
}
