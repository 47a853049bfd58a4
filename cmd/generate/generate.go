package generate

import (
	"fmt"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/quillhq/stratum/migration/generator"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate empty migration files for manual editing",
	Long: `Generate empty skeleton migration files with a fresh timestamp
version and the standard naming convention.

Both up and down files are created; edit them to add the DDL for the
change and its rollback. The runner refuses sequences with missing
down files.`,
	RunE: generateCommand,
}

const (
	nameFlag      = "name"
	outputDirFlag = "output-dir"
)

var generateFlags = map[string]cobraflags.Flag{
	nameFlag: &cobraflags.StringFlag{
		Name:  nameFlag,
		Value: "",
		Usage: "Name for the migration (required)",
	},
	outputDirFlag: &cobraflags.StringFlag{
		Name:  outputDirFlag,
		Value: "./migrations",
		Usage: "Directory where migration files will be saved",
	},
}

// NewGenerateCommand creates the generate command
func NewGenerateCommand() *cobra.Command {
	cobraflags.RegisterMap(generateCmd, generateFlags)
	return generateCmd
}

func generateCommand(_ *cobra.Command, _ []string) error {
	migrationName := generateFlags[nameFlag].GetString()
	outputDir := generateFlags[outputDirFlag].GetString()

	if migrationName == "" {
		return fmt.Errorf("migration name is required (use --name flag)")
	}

	files, err := generator.GenerateEmptyMigration(generator.GenerateEmptyMigrationOptions{
		MigrationName: migrationName,
		OutputDir:     outputDir,
	})
	if err != nil {
		return fmt.Errorf("error generating migration files: %w", err)
	}

	fmt.Printf("Generated migration files:\n")
	fmt.Printf("  UP:   %s\n", files.UpFile)
	fmt.Printf("  DOWN: %s\n", files.DownFile)
	fmt.Printf("  Version: %d\n", files.Version)

	return nil
}
