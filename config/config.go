// Package config provides configuration options for the stratum schema
// migration system.
//
// This package provides a simple, programmatic API for configuring
// migration and lint behavior when using stratum as a library. It
// focuses on clean Go APIs rather than external configuration file
// management.
package config

// LedgerTable is the name of the table recording applied migrations.
// The ledger is the only source of version truth; schema introspection
// is never used to infer the current version.
const LedgerTable = "schema_migrations"

// MigrateOptions contains configuration options for migration runs.
type MigrateOptions struct {
	// AllowDestructive permits migrations containing DROP TABLE or
	// DROP COLUMN statements. By default such migrations abort the run
	// before anything is applied: dropped column data is discarded
	// permanently and there is no data-preservation step in the
	// migration files themselves, so the operator must opt in.
	AllowDestructive bool

	// DryRun logs every statement instead of executing it. The ledger
	// is not modified during a dry run.
	DryRun bool
}

// DefaultMigrateOptions returns the default migration options:
// destructive migrations rejected, statements executed for real.
func DefaultMigrateOptions() *MigrateOptions {
	return &MigrateOptions{}
}

// WithAllowDestructive returns a copy of the options with destructive
// migrations permitted.
func (o *MigrateOptions) WithAllowDestructive() *MigrateOptions {
	tmp := *o
	tmp.AllowDestructive = true
	return &tmp
}

// WithDryRun returns a copy of the options with dry-run mode enabled.
func (o *MigrateOptions) WithDryRun() *MigrateOptions {
	tmp := *o
	tmp.DryRun = true
	return &tmp
}

// LintOptions contains configuration options for migration sequence
// linting.
type LintOptions struct {
	// DestructiveIsError escalates destructive-statement findings from
	// warnings to errors.
	DestructiveIsError bool

	// IgnoredTables lists tables whose statements are excluded from
	// lint findings (scratch or vendor-managed tables).
	IgnoredTables []string
}

// DefaultLintOptions returns the default lint options: destructive
// statements reported as warnings, no tables ignored.
func DefaultLintOptions() *LintOptions {
	return &LintOptions{}
}

// WithIgnoredTables returns a new LintOptions with the specified
// ignored tables. This completely replaces the ignored tables list.
func WithIgnoredTables(tables ...string) *LintOptions {
	return &LintOptions{
		IgnoredTables: tables,
	}
}

// IsTableIgnored checks if the given table should be excluded from
// lint findings based on the current configuration.
func (o *LintOptions) IsTableIgnored(table string) bool {
	for _, ignored := range o.IgnoredTables {
		if ignored == table {
			return true
		}
	}
	return false
}
