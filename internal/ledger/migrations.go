package ledger

import (
	"database/sql"
	"fmt"

	"github.com/samber/lo"
)

// schemaStep is one forward-only change to the ledger schema. Steps are
// listed in version order and the applied version lives in PRAGMA user_version.
type schemaStep struct {
	version int
	name    string
	stmts   []string
}

// MigrationStatus reports the applied and latest schema versions.
type MigrationStatus struct {
	CurrentVersion   int             `json:"current_version"`
	AvailableVersion int             `json:"available_version"`
	Pending          []MigrationInfo `json:"pending"`
}

// MigrationInfo describes a single pending schema step.
type MigrationInfo struct {
	Version     int    `json:"version"`
	Description string `json:"description"`
}

var schemaSteps = []schemaStep{
	{
		version: 1,
		name:    "sync_runs table",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS sync_runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  board TEXT NOT NULL,
  thread_id INTEGER NOT NULL,
  status TEXT NOT NULL,
  discovered INTEGER NOT NULL DEFAULT 0,
  added INTEGER NOT NULL DEFAULT 0,
  removed_flagged INTEGER NOT NULL DEFAULT 0,
  attachments INTEGER NOT NULL DEFAULT 0,
  attachment_failures INTEGER NOT NULL DEFAULT 0,
  error TEXT,
  started_at TEXT NOT NULL,
  finished_at TEXT NOT NULL
)`,
			`CREATE INDEX IF NOT EXISTS idx_sync_runs_board_thread ON sync_runs(board, thread_id)`,
			`CREATE INDEX IF NOT EXISTS idx_sync_runs_finished_desc ON sync_runs(finished_at DESC)`,
		},
	},
	{
		version: 2,
		name:    "blobs table",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS blobs (
  content_id TEXT PRIMARY KEY,
  size_bytes INTEGER NOT NULL,
  first_seen_at TEXT NOT NULL
)`,
		},
	},
}

func schemaVersion(db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

func pendingSteps(applied int) []schemaStep {
	return lo.Filter(schemaSteps, func(s schemaStep, _ int) bool { return s.version > applied })
}

func latestVersion() int {
	if len(schemaSteps) == 0 {
		return 0
	}
	return schemaSteps[len(schemaSteps)-1].version
}

// migrate brings the schema up to latestVersion, one transaction per step.
func migrate(db *sql.DB) error {
	applied, err := schemaVersion(db)
	if err != nil {
		return err
	}
	for _, step := range pendingSteps(applied) {
		if err := applyStep(db, step); err != nil {
			return err
		}
	}
	return nil
}

func applyStep(db *sql.DB, step schemaStep) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("schema v%d: begin: %w", step.version, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range step.stmts {
		if _, err = tx.Exec(stmt); err != nil {
			return fmt.Errorf("schema v%d (%s): %w", step.version, step.name, err)
		}
	}
	// PRAGMA does not accept bind parameters.
	if _, err = tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", step.version)); err != nil {
		return fmt.Errorf("schema v%d: bump version: %w", step.version, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("schema v%d: commit: %w", step.version, err)
	}
	return nil
}

// MigrationPlan reports pending schema steps without applying them.
func MigrationPlan(db *sql.DB) (*MigrationStatus, error) {
	applied, err := schemaVersion(db)
	if err != nil {
		return nil, err
	}
	return &MigrationStatus{
		CurrentVersion:   applied,
		AvailableVersion: latestVersion(),
		Pending: lo.Map(pendingSteps(applied), func(s schemaStep, _ int) MigrationInfo {
			return MigrationInfo{Version: s.version, Description: s.name}
		}),
	}, nil
}
