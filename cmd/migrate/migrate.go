package migrate

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/quillhq/stratum/config"
	"github.com/quillhq/stratum/dbschema"
	"github.com/quillhq/stratum/migration/migrator"
	"github.com/quillhq/stratum/schema"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [up|down|to|status]",
	Short: "Apply or roll back schema migrations",
	Long: `Apply or roll back schema migrations against the target database.

By default the embedded newsletter migration sequence is used; pass
--migrations-dir to run an on-disk sequence instead.

Migrations containing DROP TABLE or DROP COLUMN statements are refused
unless --allow-destructive is set: dropped data is discarded
permanently and these migrations carry no preservation step.`,
}

const (
	dbURLFlag            = "db-url"
	migrationsDirFlag    = "migrations-dir"
	allowDestructiveFlag = "allow-destructive"
	dryRunFlag           = "dry-run"
)

var migrateFlags = map[string]cobraflags.Flag{
	dbURLFlag: &cobraflags.StringFlag{
		Name:  dbURLFlag,
		Value: "",
		Usage: "Database URL (postgres:// or mysql://)",
	},
	migrationsDirFlag: &cobraflags.StringFlag{
		Name:  migrationsDirFlag,
		Value: "",
		Usage: "Directory with migration files; empty uses the embedded sequence",
	},
	allowDestructiveFlag: &cobraflags.BoolFlag{
		Name:  allowDestructiveFlag,
		Value: false,
		Usage: "Permit migrations that contain DROP TABLE / DROP COLUMN statements",
	},
	dryRunFlag: &cobraflags.BoolFlag{
		Name:  dryRunFlag,
		Value: false,
		Usage: "Log every statement instead of executing it",
	},
}

// NewMigrateCommand creates the migrate command with its subcommands
func NewMigrateCommand() *cobra.Command {
	cobraflags.RegisterMap(migrateCmd, migrateFlags)

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(func(m *migrator.Migrator) error {
				return m.MigrateUp(cmd.Context())
			})
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(func(m *migrator.Migrator) error {
				return m.MigrateDown(cmd.Context())
			})
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "to <version>",
		Short: "Migrate up or down to a specific version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid target version %q: %w", args[0], err)
			}
			return withMigrator(func(m *migrator.Migrator) error {
				return m.MigrateTo(cmd.Context(), version)
			})
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show current version and pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(func(m *migrator.Migrator) error {
				status, err := m.GetMigrationStatus(cmd.Context())
				if err != nil {
					return err
				}
				out, err := json.MarshalIndent(status, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			})
		},
	})

	return migrateCmd
}

func withMigrator(fn func(*migrator.Migrator) error) error {
	dbURL := migrateFlags[dbURLFlag].GetString()
	if dbURL == "" {
		return fmt.Errorf("database URL is required (use --db-url or STRATUM_DB_URL)")
	}

	conn, err := dbschema.ConnectToDatabase(dbURL)
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}
	defer conn.Close()

	m, err := newMigrator(conn)
	if err != nil {
		return err
	}

	opts := config.DefaultMigrateOptions()
	if migrateFlags[allowDestructiveFlag].GetBool() {
		opts = opts.WithAllowDestructive()
	}
	if migrateFlags[dryRunFlag].GetBool() {
		opts = opts.WithDryRun()
	}

	return fn(m.WithOptions(opts))
}

func newMigrator(conn *dbschema.DatabaseConnection) (*migrator.Migrator, error) {
	migrationsDir := migrateFlags[migrationsDirFlag].GetString()
	if migrationsDir == "" {
		return schema.NewMigrator(conn)
	}

	if _, err := os.Stat(migrationsDir); err != nil {
		return nil, fmt.Errorf("migrations directory is not accessible: %w", err)
	}
	return migrator.NewFSMigrator(conn, os.DirFS(migrationsDir))
}
