package migrator

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/quillhq/stratum/core/sqlutil"
	"github.com/quillhq/stratum/dbschema"
)

//go:embed base/schema.sql
var ledgerSchemaSQL string

//go:embed base/get_version.sql
var getVersionSQL string

//go:embed base/record_migration.sql
var recordMigrationSQL string

//go:embed base/delete_migration.sql
var deleteMigrationSQL string

// MigrationFunc represents a migration function that operates on a database connection
type MigrationFunc func(context.Context, *dbschema.DatabaseConnection) error

// NoopMigrationFunc is a no-op migration function
func NoopMigrationFunc(_ context.Context, _ *dbschema.DatabaseConnection) error {
	return nil
}

// Migration represents a single forward-only schema transformation
// together with its rollback. UpSQL and DownSQL carry the raw SQL text
// when the migration originates from SQL files; the destructive guard
// and the linter inspect them.
type Migration struct {
	Version     int
	Description string
	Up          MigrationFunc
	Down        MigrationFunc
	UpSQL       string
	DownSQL     string
}

// SplitSQLStatements splits a SQL string into individual executable
// statements. Needed because MySQL doesn't accept multiple statements
// in a single Exec call; semicolons inside literals and comments are
// handled properly.
func SplitSQLStatements(sql string) []string {
	return sqlutil.SplitSQLStatements(sqlutil.StripComments(sql))
}

// MigrationFuncFromSQL returns a migration function that executes the
// given SQL through the connection's writer, one statement at a time.
func MigrationFuncFromSQL(sql string) MigrationFunc {
	return func(ctx context.Context, conn *dbschema.DatabaseConnection) error {
		for _, stmt := range SplitSQLStatements(sql) {
			if err := conn.Writer().ExecuteSQL(stmt); err != nil {
				return fmt.Errorf("failed to execute migration SQL: %w", err)
			}
		}
		return nil
	}
}

// CreateMigrationFromSQL creates a migration from SQL strings.
// This is useful for programmatically creating migrations.
func CreateMigrationFromSQL(version int, description, upSQL, downSQL string) *Migration {
	return &Migration{
		Version:     version,
		Description: description,
		Up:          MigrationFuncFromSQL(upSQL),
		Down:        MigrationFuncFromSQL(downSQL),
		UpSQL:       upSQL,
		DownSQL:     downSQL,
	}
}

// DestructiveChangeError is returned when a pending migration contains
// statements that discard data (DROP TABLE, DROP COLUMN) and the run
// was not configured to allow them.
type DestructiveChangeError struct {
	Version    int
	Statements []string
}

func (e *DestructiveChangeError) Error() string {
	return fmt.Sprintf("migration %d contains destructive statements (%s); rerun with destructive changes allowed to apply it",
		e.Version, strings.Join(e.Statements, "; "))
}
