package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

// DefaultDir is the repository-relative goose migrations directory.
const DefaultDir = "migrations"

// Run executes the given goose command against the provided database handle.
func Run(ctx context.Context, db *sql.DB, dir, command string) error {
	if db == nil {
		return fmt.Errorf("db handle is required")
	}
	if dir == "" {
		dir = DefaultDir
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	switch command {
	case "up":
		return goose.UpContext(ctx, db, dir)
	case "down":
		return goose.DownContext(ctx, db, dir)
	case "status":
		return goose.StatusContext(ctx, db, dir)
	default:
		return fmt.Errorf("unsupported migrate command %q", command)
	}
}

// RunVersion migrates up or down to the exact target version.
func RunVersion(ctx context.Context, db *sql.DB, dir string, version int64) error {
	if db == nil {
		return fmt.Errorf("db handle is required")
	}
	if dir == "" {
		dir = DefaultDir
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	return goose.UpToContext(ctx, db, dir, version)
}
