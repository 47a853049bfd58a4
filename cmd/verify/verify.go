package verify

import (
	"fmt"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/quillhq/stratum/dbschema"
	"github.com/quillhq/stratum/migration/schemadiff"
	"github.com/quillhq/stratum/schema"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify that replaying the migration sequence reproduces the target schema",
	Long: `Replay the embedded migration sequence into a scratch database and
compare the resulting schema structurally against the target database.

The scratch database is dropped and rebuilt from scratch: pass a
database that holds nothing you want to keep. A clean diff means the
target matches an exact replay of the recorded history; any difference
indicates drift (out-of-band schema changes or a hand-edited
sequence).`,
	RunE: verifyCommand,
}

const (
	dbURLFlag      = "db-url"
	scratchURLFlag = "scratch-db-url"
)

var verifyFlags = map[string]cobraflags.Flag{
	dbURLFlag: &cobraflags.StringFlag{
		Name:  dbURLFlag,
		Value: "",
		Usage: "Target database URL to verify",
	},
	scratchURLFlag: &cobraflags.StringFlag{
		Name:  scratchURLFlag,
		Value: "",
		Usage: "Scratch database URL; all its tables are dropped and rebuilt",
	},
}

// NewVerifyCommand creates the verify command
func NewVerifyCommand() *cobra.Command {
	cobraflags.RegisterMap(verifyCmd, verifyFlags)
	return verifyCmd
}

func verifyCommand(cmd *cobra.Command, _ []string) error {
	dbURL := verifyFlags[dbURLFlag].GetString()
	scratchURL := verifyFlags[scratchURLFlag].GetString()
	if dbURL == "" || scratchURL == "" {
		return fmt.Errorf("both --db-url and --scratch-db-url are required")
	}
	if dbURL == scratchURL {
		return fmt.Errorf("target and scratch database URLs must differ")
	}

	target, err := dbschema.ConnectToDatabase(dbURL)
	if err != nil {
		return fmt.Errorf("error connecting to target database: %w", err)
	}
	defer target.Close()

	scratch, err := dbschema.ConnectToDatabase(scratchURL)
	if err != nil {
		return fmt.Errorf("error connecting to scratch database: %w", err)
	}
	defer scratch.Close()

	if err := scratch.Writer().DropAllTables(); err != nil {
		return fmt.Errorf("error resetting scratch database: %w", err)
	}

	m, err := schema.NewMigrator(scratch)
	if err != nil {
		return err
	}
	// The recorded history contains destructive reverts; replaying it
	// on an empty scratch database loses nothing.
	if err := m.WithOptions(m.Options().WithAllowDestructive()).MigrateUp(cmd.Context()); err != nil {
		return fmt.Errorf("error replaying migrations: %w", err)
	}

	replayed, err := scratch.Reader().ReadSchema()
	if err != nil {
		return fmt.Errorf("error reading replayed schema: %w", err)
	}
	current, err := target.Reader().ReadSchema()
	if err != nil {
		return fmt.Errorf("error reading target schema: %w", err)
	}

	diff := schemadiff.Compare(replayed, current)
	fmt.Println(diff.Summary())
	if diff.HasChanges() {
		return fmt.Errorf("target schema drifts from the recorded migration history")
	}
	return nil
}
