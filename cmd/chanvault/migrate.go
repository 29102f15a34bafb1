package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chanvault/internal/config"
	"chanvault/internal/ledger"
)

func newMigrateCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var inspect bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Bring the sync ledger schema up to date",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfg.LedgerPath()
			if !inspect {
				l, err := ledger.Open(path)
				if err != nil {
					return fmt.Errorf("migrate ledger %s: %w", path, err)
				}
				if err := l.Close(); err != nil {
					return err
				}
				if !*jsonOutput {
					return writePlain("Ledger schema is up to date.\n")
				}
			}

			plan, err := readMigrationPlan(path)
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(plan)
			}
			return writeMigrationPlan(plan)
		},
	}

	cmd.Flags().BoolVar(&inspect, "inspect", false, "report pending schema steps without applying them")
	return cmd
}

func readMigrationPlan(path string) (*ledger.MigrationStatus, error) {
	db, err := ledger.OpenRaw(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	plan, err := ledger.MigrationPlan(db)
	if err != nil {
		return nil, fmt.Errorf("inspect ledger %s: %w", path, err)
	}
	return plan, nil
}
