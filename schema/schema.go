// Package schema carries the quill newsletter platform's canonical
// migration set, embedded so that deployments always run the exact
// sequence the binary was built with.
//
// The sequence evolves four tables: users, subscriptions,
// newsletter_issues and user_profiles. It includes two deliberate
// reverts (subscriptions gained and then lost a user link, and
// newsletter_issues gained and then lost ownership, slug and typed
// timestamps); the reverts are part of the recorded history and are
// replayed as-is.
package schema

import (
	"embed"
	"io/fs"

	"github.com/quillhq/stratum/dbschema"
	"github.com/quillhq/stratum/migration/lint"
	"github.com/quillhq/stratum/migration/migrator"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrations returns the embedded migration filesystem, rooted so that
// migration files sit at the top level.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		// The embed layout is fixed at compile time.
		panic(err)
	}
	return sub
}

// NewMigrator creates a migrator loaded with the embedded newsletter
// migration sequence.
func NewMigrator(conn *dbschema.DatabaseConnection) (*migrator.Migrator, error) {
	return migrator.NewFSMigrator(conn, Migrations())
}

// LintScripts returns the embedded sequence in the form the linter
// consumes, ordered by version.
func LintScripts() ([]lint.Script, error) {
	provider, err := migrator.NewFSMigrationProvider(Migrations())
	if err != nil {
		return nil, err
	}

	var scripts []lint.Script
	for _, migration := range provider.Migrations() {
		scripts = append(scripts, lint.Script{
			Version: migration.Version,
			Name:    migration.Description,
			SQL:     migration.UpSQL,
		})
	}
	return scripts, nil
}
