// Command stratum manages the quill newsletter platform's database
// schema: applying versioned migrations, linting the migration
// sequence, generating migration skeletons and verifying replays.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quillhq/stratum/cmd/generate"
	"github.com/quillhq/stratum/cmd/lint"
	"github.com/quillhq/stratum/cmd/migrate"
	"github.com/quillhq/stratum/cmd/verify"
)

var rootCmd = &cobra.Command{
	Use:   "stratum",
	Short: "Schema migration toolkit for the quill newsletter platform",
	Long: `stratum maintains the canonical, versioned definition of the quill
relational schema. Migrations are forward-only DDL deltas applied in
strict order, each inside its own transaction, with progress recorded
in a ledger table.

Flags can also be provided through environment variables with the
STRATUM_ prefix (e.g. STRATUM_DB_URL).`,
	SilenceUsage: true,
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	viper.SetEnvPrefix("STRATUM")
	viper.AutomaticEnv()

	rootCmd.AddCommand(migrate.NewMigrateCommand())
	rootCmd.AddCommand(lint.NewLintCommand())
	rootCmd.AddCommand(generate.NewGenerateCommand())
	rootCmd.AddCommand(verify.NewVerifyCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
