package database

import (
	"database/sql"
	"fmt"
)

// createSnapshotsTable holds one durable row per canvas; the archive sweep
// upserts into it, so canvas_id is the natural primary key
const createSnapshotsTable = `
CREATE TABLE IF NOT EXISTS canvas_snapshots (
	canvas_id   TEXT PRIMARY KEY,
	state       BLOB NOT NULL,
	archived_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_archived_at ON canvas_snapshots(archived_at);
`

// EnsureSchema creates the archive tables if they do not exist
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(createSnapshotsTable); err != nil {
		return fmt.Errorf("failed to create archive schema: %w", err)
	}
	return nil
}

// SchemaValidator provides database schema validation functionality
// ARCHITECTURAL DISCOVERY: Separate validation component enables deployment
// verification without coupling to schema creation
type SchemaValidator struct {
	db *sql.DB
}

// NewSchemaValidator creates a new schema validator
func NewSchemaValidator(db *sql.DB) *SchemaValidator {
	return &SchemaValidator{db: db}
}

// ValidateTablesExist verifies that all required tables exist
func (v *SchemaValidator) ValidateTablesExist() error {
	requiredTables := map[string]string{
		"canvas_snapshots": "Archived canvas state",
	}

	for table, description := range requiredTables {
		exists, err := v.tableExists(table)
		if err != nil {
			return fmt.Errorf("error checking table %s (%s): %w", table, description, err)
		}
		if !exists {
			return fmt.Errorf("required table %s (%s) does not exist", table, description)
		}
	}

	return nil
}

func (v *SchemaValidator) tableExists(name string) (bool, error) {
	var count int
	err := v.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
