package config_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/quillhq/stratum/config"
)

func TestDefaultMigrateOptions(t *testing.T) {
	c := qt.New(t)

	opts := config.DefaultMigrateOptions()
	c.Assert(opts.AllowDestructive, qt.IsFalse)
	c.Assert(opts.DryRun, qt.IsFalse)
}

func TestMigrateOptions_With(t *testing.T) {
	c := qt.New(t)

	base := config.DefaultMigrateOptions()

	destructive := base.WithAllowDestructive()
	c.Assert(destructive.AllowDestructive, qt.IsTrue)
	c.Assert(base.AllowDestructive, qt.IsFalse, qt.Commentf("With* must not mutate the receiver"))

	dry := base.WithDryRun()
	c.Assert(dry.DryRun, qt.IsTrue)
	c.Assert(base.DryRun, qt.IsFalse)
}

func TestWithIgnoredTables(t *testing.T) {
	c := qt.New(t)

	opts := config.WithIgnoredTables("audit_log", "sessions")
	c.Assert(opts.IsTableIgnored("audit_log"), qt.IsTrue)
	c.Assert(opts.IsTableIgnored("sessions"), qt.IsTrue)
	c.Assert(opts.IsTableIgnored("users"), qt.IsFalse)
}

func TestDefaultLintOptions(t *testing.T) {
	c := qt.New(t)

	opts := config.DefaultLintOptions()
	c.Assert(opts.DestructiveIsError, qt.IsFalse)
	c.Assert(opts.IsTableIgnored("anything"), qt.IsFalse)
}
