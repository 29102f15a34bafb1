package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"chanvault/internal/config"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var (
		jsonOutput bool
		logLevel   string
		dataDir    string
	)

	cmd := &cobra.Command{
		Use:           "chanvault",
		Short:         "Chanvault incrementally archives imageboard threads and their attachments",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(dataDir) != "" {
				cfg.DataDir = dataDir
			}
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel, cfg.LogFile)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "archive root directory (overrides data_dir)")

	cmd.AddCommand(
		newDumpCmd(cfg, &jsonOutput),
		newMonitorCmd(cfg),
		newThreadsCmd(cfg, &jsonOutput),
		newShowCmd(cfg, &jsonOutput),
		newBlobCmd(cfg, &jsonOutput),
		newCopyCmd(cfg, &jsonOutput),
		newExportCmd(cfg, &jsonOutput),
		newHistoryCmd(cfg, &jsonOutput),
		newMigrateCmd(cfg, &jsonOutput),
		newConfigCmd(cfg, &jsonOutput),
	)

	return cmd
}
