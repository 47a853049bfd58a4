// Package generator creates migration file skeletons for manual
// editing.
package generator

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/quillhq/stratum/migration/migrator"
)

// GenerateEmptyMigrationOptions contains options for empty migration generation
type GenerateEmptyMigrationOptions struct {
	// MigrationName is the name for the migration (required)
	MigrationName string
	// OutputDir is the directory where migration files will be saved
	OutputDir string
}

// MigrationFiles represents the generated migration files
type MigrationFiles struct {
	UpFile   string // Path to the up migration file
	DownFile string // Path to the down migration file
	Version  int    // Migration version (timestamp)
}

// GenerateEmptyMigration creates an empty up/down migration file pair
// with a fresh timestamp version. If a file for the version already
// exists and is non-empty, the version is bumped until the pair is
// free.
func GenerateEmptyMigration(opts GenerateEmptyMigrationOptions) (*MigrationFiles, error) {
	if opts.MigrationName == "" {
		return nil, fmt.Errorf("migration name is required")
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "./migrations"
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	version := migrator.GetNextMigrationVersion()
	upFilePath, downFilePath := migrationFilePaths(opts.OutputDir, version, opts.MigrationName)

	for {
		info, err := os.Stat(upFilePath)
		if err != nil || info.Size() == 0 {
			break
		}
		version++
		upFilePath, downFilePath = migrationFilePaths(opts.OutputDir, version, opts.MigrationName)
	}

	now := time.Now().Format(time.RFC3339)
	upSQL := fmt.Sprintf("-- Migration: %s\n-- Created: %s\n-- Direction: UP\n\n-- Add your SQL here\n", opts.MigrationName, now)
	downSQL := fmt.Sprintf("-- Migration: %s\n-- Created: %s\n-- Direction: DOWN\n\n-- Add your rollback SQL here\n", opts.MigrationName, now)

	if err := os.WriteFile(upFilePath, []byte(upSQL), 0o644); err != nil { //nolint:gosec // 0644 is fine
		return nil, fmt.Errorf("failed to write up migration file: %w", err)
	}
	if err := os.WriteFile(downFilePath, []byte(downSQL), 0o644); err != nil { //nolint:gosec // 0644 is fine
		return nil, fmt.Errorf("failed to write down migration file: %w", err)
	}

	return &MigrationFiles{
		UpFile:   upFilePath,
		DownFile: downFilePath,
		Version:  version,
	}, nil
}

func migrationFilePaths(outputDir string, version int, name string) (up, down string) {
	up = filepath.Join(outputDir, migrator.GenerateMigrationFileName(version, name, "up"))
	down = filepath.Join(outputDir, migrator.GenerateMigrationFileName(version, name, "down"))
	return up, down
}
