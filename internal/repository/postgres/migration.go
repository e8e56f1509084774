package postgres

import (
	"database/sql"
	"fmt"
	"os"
)

// RunMigrations executes the schema.sql file to initialize the database
func RunMigrations(db *sql.DB) error {
	// Check a few common locations so this works regardless of where
	// 'go run' or the binary is executed from.
	possiblePaths := []string{
		"script/migration/schema.sql",       // From repo root (go run ./cmd/api)
		"../script/migration/schema.sql",    // From cmd/api
		"../../script/migration/schema.sql", // From internal/...
	}

	var schemaPath string
	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			schemaPath = path
			break
		}
	}
	if schemaPath == "" {
		schemaPath = "script/migration/schema.sql"
	}

	content, err := os.ReadFile(schemaPath)
	if err != nil {
		wd, _ := os.Getwd()
		return fmt.Errorf("failed to read migration file. Looking for '%s' (Current WD: %s). Error: %v", schemaPath, wd, err)
	}

	if _, err := db.Exec(string(content)); err != nil {
		return fmt.Errorf("failed to execute schema.sql: %v", err)
	}

	return nil
}
