package lint

import (
	"fmt"
	"os"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/quillhq/stratum/config"
	"github.com/quillhq/stratum/migration/lint"
	"github.com/quillhq/stratum/migration/migrator"
	"github.com/quillhq/stratum/schema"
)

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Statically analyze the migration sequence",
	Long: `Statically analyze an ordered migration sequence without touching a
database.

Reported problems:
  - destructive statements (DROP TABLE, DROP COLUMN)
  - lossy type narrowing (TEXT to bounded VARCHAR)
  - dependency-order violations and duplicate versions

Order violations and duplicates are always errors; destructive
statements are warnings unless --strict-destructive is set.`,
	RunE: lintCommand,
}

const (
	migrationsDirFlag     = "migrations-dir"
	strictDestructiveFlag = "strict-destructive"
)

var lintFlags = map[string]cobraflags.Flag{
	migrationsDirFlag: &cobraflags.StringFlag{
		Name:  migrationsDirFlag,
		Value: "",
		Usage: "Directory with migration files; empty lints the embedded sequence",
	},
	strictDestructiveFlag: &cobraflags.BoolFlag{
		Name:  strictDestructiveFlag,
		Value: false,
		Usage: "Treat destructive statements as errors instead of warnings",
	},
}

// NewLintCommand creates the lint command
func NewLintCommand() *cobra.Command {
	cobraflags.RegisterMap(lintCmd, lintFlags)
	return lintCmd
}

func lintCommand(_ *cobra.Command, _ []string) error {
	scripts, err := loadScripts()
	if err != nil {
		return err
	}

	opts := config.DefaultLintOptions()
	opts.DestructiveIsError = lintFlags[strictDestructiveFlag].GetBool()

	findings := lint.Run(scripts, opts)
	if len(findings) == 0 {
		fmt.Println("No findings.")
		return nil
	}

	errors := 0
	for _, finding := range findings {
		fmt.Println(finding)
		if finding.Severity == lint.SeverityError {
			errors++
		}
	}

	if errors > 0 {
		return fmt.Errorf("%d error finding(s) in migration sequence", errors)
	}
	return nil
}

func loadScripts() ([]lint.Script, error) {
	migrationsDir := lintFlags[migrationsDirFlag].GetString()
	if migrationsDir == "" {
		return schema.LintScripts()
	}

	provider, err := migrator.NewFSMigrationProvider(os.DirFS(migrationsDir))
	if err != nil {
		return nil, fmt.Errorf("error loading migrations: %w", err)
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
