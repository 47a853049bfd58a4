// Package migrator applies ordered, forward-only schema migrations
// against a database, recording progress in a ledger table.
//
// The ledger (schema_migrations) is the only source of version truth:
// the current version is never inferred from schema introspection.
// Each migration is applied inside its own transaction; a failure
// rolls that migration back and aborts the run, leaving the database
// at the last successfully applied version.
package migrator

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/quillhq/stratum/config"
	"github.com/quillhq/stratum/dbschema"
	"github.com/quillhq/stratum/migration/lint"
)

// MigrationStatus represents the current state of migrations
type MigrationStatus struct {
	CurrentVersion    int   `json:"current_version"`
	PendingMigrations []int `json:"pending_migrations"`
	TotalMigrations   int   `json:"total_migrations"`
	HasPendingChanges bool  `json:"has_pending_changes"`
}

// Migrator handles database migrations
type Migrator struct {
	conn              *dbschema.DatabaseConnection
	migrationProvider MigrationProvider
	opts              *config.MigrateOptions
	initialized       bool
	logger            *slog.Logger
}

// NewFSMigrator creates a migrator that loads migrations from a
// filesystem following the NNNNNNNNNN_description.up.sql /
// .down.sql naming convention. Returns an error if the filesystem
// cannot be scanned or any migration misses its up or down file.
func NewFSMigrator(conn *dbschema.DatabaseConnection, fsys fs.FS) (*Migrator, error) {
	provider, err := NewFSMigrationProvider(fsys)
	if err != nil {
		return nil, err
	}
	return NewMigrator(conn, provider), nil
}

// NewMigrator creates a new migrator with the given database connection
func NewMigrator(conn *dbschema.DatabaseConnection, provider MigrationProvider) *Migrator {
	return &Migrator{
		conn:              conn,
		migrationProvider: provider,
		opts:              config.DefaultMigrateOptions(),
		logger:            slog.Default(),
	}
}

// WithLogger sets the logger for the migrator
func (m *Migrator) WithLogger(l *slog.Logger) *Migrator {
	tmp := *m
	tmp.logger = l
	return &tmp
}

// WithOptions sets the migration options for the migrator
func (m *Migrator) WithOptions(opts *config.MigrateOptions) *Migrator {
	tmp := *m
	tmp.opts = opts
	return &tmp
}

// MigrationProvider returns the migration provider
func (m *Migrator) MigrationProvider() MigrationProvider {
	return m.migrationProvider
}

// Options returns the migration options in effect
func (m *Migrator) Options() *config.MigrateOptions {
	return m.opts
}

// Initialize creates the ledger table if it doesn't exist
func (m *Migrator) Initialize(ctx context.Context) error {
	if m.initialized {
		return nil
	}

	// Executed directly on the connection, outside any writer
	// transaction.
	_, err := m.conn.ExecContext(ctx, ledgerSchemaSQL)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	m.initialized = true
	return nil
}

// GetCurrentVersion returns the current migration version from the ledger
func (m *Migrator) GetCurrentVersion(ctx context.Context) (int, error) {
	if err := m.Initialize(ctx); err != nil {
		return 0, fmt.Errorf("failed to initialize migrations table: %w", err)
	}

	var version int
	row := m.conn.QueryRowContext(ctx, getVersionSQL)
	if err := row.Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}

	return version, nil
}

// GetAppliedMigrations returns the applied migration versions in
// ascending order.
func (m *Migrator) GetAppliedMigrations(ctx context.Context) ([]int, error) {
	if err := m.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize migrations table: %w", err)
	}

	var applied []int
	query := fmt.Sprintf("SELECT version FROM %s ORDER BY version", config.LedgerTable)
	if err := m.conn.DB().SelectContext(ctx, &applied, query); err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}

	return applied, nil
}

// GetPendingMigrations returns the pending migration versions in
// ascending order.
func (m *Migrator) GetPendingMigrations(ctx context.Context) ([]int, error) {
	currentVersion, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return nil, err
	}

	var pending []int
	for _, migration := range m.migrationProvider.Migrations() {
		if migration.Version > currentVersion {
			pending = append(pending, migration.Version)
		}
	}

	sort.Ints(pending)
	return pending, nil
}

// GetPreviousMigrationVersion finds the migration version preceding
// the current one. Returns an error and -1 if no previous migration
// exists.
func (m *Migrator) GetPreviousMigrationVersion(ctx context.Context) (int, error) {
	currentVersion, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return -1, fmt.Errorf("failed to get current version: %w", err)
	}

	if currentVersion == 0 {
		return -1, fmt.Errorf("no previous migrations exist")
	}

	previousVersion := -1
	for _, migration := range m.migrationProvider.Migrations() {
		if migration.Version >= currentVersion {
			break
		}
		previousVersion = migration.Version
	}

	return previousVersion, nil
}

// GetMigrationStatus returns information about the current migration state
func (m *Migrator) GetMigrationStatus(ctx context.Context) (*MigrationStatus, error) {
	currentVersion, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current version: %w", err)
	}

	pendingMigrations, err := m.GetPendingMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending migrations: %w", err)
	}

	return &MigrationStatus{
		CurrentVersion:    currentVersion,
		PendingMigrations: pendingMigrations,
		TotalMigrations:   len(m.migrationProvider.Migrations()),
		HasPendingChanges: len(pendingMigrations) > 0,
	}, nil
}

// MigrateUp migrates the database up to the latest version
func (m *Migrator) MigrateUp(ctx context.Context) error {
	latest := 0
	for _, migration := range m.migrationProvider.Migrations() {
		if migration.Version > latest {
			latest = migration.Version
		}
	}
	return m.migrateUpTo(ctx, latest)
}

// MigrateDown migrates the database down to the previous version
func (m *Migrator) MigrateDown(ctx context.Context) error {
	if err := m.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize migrations table: %w", err)
	}

	targetVersion, err := m.GetPreviousMigrationVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get previous version: %w", err)
	}

	return m.MigrateDownTo(ctx, targetVersion)
}

// MigrateTo migrates the database to a specific version (up or down)
func (m *Migrator) MigrateTo(ctx context.Context, targetVersion int) error {
	currentVersion, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	if targetVersion == currentVersion {
		m.logger.Info("Already at target version", "version", targetVersion)
		return nil
	}

	if targetVersion > currentVersion {
		return m.migrateUpTo(ctx, targetVersion)
	}

	return m.MigrateDownTo(ctx, targetVersion)
}

// migrateUpTo applies pending migrations up to and including
// targetVersion. Before anything is applied, every pending migration
// in range is checked for destructive statements; a
// DestructiveChangeError aborts the run with nothing applied unless
// the options allow destructive changes.
func (m *Migrator) migrateUpTo(ctx context.Context, targetVersion int) error {
	if err := m.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize migrations table: %w", err)
	}

	currentVersion, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	migrations := m.migrationProvider.Migrations()
	runID := uuid.NewString()
	logger := m.logger.With("run", runID)

	logger.Info("Migrating up", "currentVersion", currentVersion, "targetVersion", targetVersion, "totalMigrations", len(migrations))

	if !m.opts.AllowDestructive {
		for _, migration := range migrations {
			if migration.Version <= currentVersion || migration.Version > targetVersion {
				continue
			}
			if destructive := lint.DestructiveStatements(migration.UpSQL); len(destructive) > 0 {
				return &DestructiveChangeError{
					Version:    migration.Version,
					Statements: destructive,
				}
			}
		}
	}

	m.conn.Writer().SetDryRun(m.opts.DryRun)

	for _, migration := range migrations {
		if migration.Version <= currentVersion || migration.Version > targetVersion {
			continue
		}

		logger.Info("Applying migration", "version", migration.Version, "description", migration.Description)

		record := fmt.Sprintf(recordMigrationSQL, migration.Version, migration.Description,
			FormatTimestampForDatabase(m.conn.Info().Dialect))
		if err := m.applyInTransaction(ctx, migration.Up, migration.Version, record); err != nil {
			return err
		}

		logger.Info("Applied migration", "version", migration.Version, "description", migration.Description)
	}

	logger.Info("Migrated successfully", "targetVersion", targetVersion)
	return nil
}

// MigrateDownTo rolls the database back down to the specified target version
func (m *Migrator) MigrateDownTo(ctx context.Context, targetVersion int) error {
	if err := m.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize migrations table: %w", err)
	}

	currentVersion, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	if targetVersion >= currentVersion {
		m.logger.Info("Already at or below target version", "targetVersion", targetVersion, "currentVersion", currentVersion)
		return nil
	}

	// Roll back newest first.
	migrations := make([]*Migration, len(m.migrationProvider.Migrations()))
	copy(migrations, m.migrationProvider.Migrations())
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version > migrations[j].Version
	})

	runID := uuid.NewString()
	logger := m.logger.With("run", runID)

	logger.Info("Migrating down", "targetVersion", targetVersion, "currentVersion", currentVersion, "totalMigrations", len(migrations))

	m.conn.Writer().SetDryRun(m.opts.DryRun)

	for _, migration := range migrations {
		if migration.Version <= targetVersion || migration.Version > currentVersion {
			continue
		}

		logger.Info("Rolling back migration", "version", migration.Version, "description", migration.Description)

		record := fmt.Sprintf(deleteMigrationSQL, migration.Version)
		if err := m.applyInTransaction(ctx, migration.Down, migration.Version, record); err != nil {
			return err
		}

		logger.Info("Rolled back migration", "version", migration.Version, "description", migration.Description)
	}

	logger.Info("All migrations rolled back successfully")
	return nil
}

// applyInTransaction runs a migration function and its ledger update
// inside a single transaction, rolling back both on any failure.
func (m *Migrator) applyInTransaction(ctx context.Context, fn MigrationFunc, version int, ledgerSQL string) error {
	if err := m.conn.Writer().BeginTransaction(); err != nil {
		return fmt.Errorf("failed to begin transaction for migration %d: %w", version, err)
	}

	if err := fn(ctx, m.conn); err != nil {
		_ = m.conn.Writer().RollbackTransaction()
		return fmt.Errorf("failed to apply migration %d: %w", version, err)
	}

	if err := m.conn.Writer().ExecuteSQL(ledgerSQL); err != nil {
		_ = m.conn.Writer().RollbackTransaction()
		return fmt.Errorf("failed to record migration %d: %w", version, err)
	}

	if err := m.conn.Writer().CommitTransaction(); err != nil {
		return fmt.Errorf("failed to commit transaction for migration %d: %w", version, err)
	}

	return nil
}
