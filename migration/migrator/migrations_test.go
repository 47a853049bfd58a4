package migrator

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestMigration_Basic(t *testing.T) {
	c := qt.New(t)

	migration := &Migration{
		Version:     1,
		Description: "Create users",
		Up:          NoopMigrationFunc,
		Down:        NoopMigrationFunc,
	}

	c.Assert(migration.Version, qt.Equals, 1)
	c.Assert(migration.Description, qt.Equals, "Create users")
	c.Assert(migration.Up, qt.IsNotNil)
	c.Assert(migration.Down, qt.IsNotNil)
}

func TestNoopMigrationFunc(t *testing.T) {
	c := qt.New(t)

	err := NoopMigrationFunc(context.Background(), nil)
	c.Assert(err, qt.IsNil)
}

func TestCreateMigrationFromSQL(t *testing.T) {
	c := qt.New(t)

	upSQL := "CREATE TABLE subscriptions (id uuid PRIMARY KEY)"
	downSQL := "DROP TABLE subscriptions"

	migration := CreateMigrationFromSQL(2, "Create subscriptions", upSQL, downSQL)

	c.Assert(migration.Version, qt.Equals, 2)
	c.Assert(migration.Description, qt.Equals, "Create subscriptions")
	c.Assert(migration.Up, qt.IsNotNil)
	c.Assert(migration.Down, qt.IsNotNil)

	// The raw SQL must be retained for the destructive guard and
	// the linter.
	c.Assert(migration.UpSQL, qt.Equals, upSQL)
	c.Assert(migration.DownSQL, qt.Equals, downSQL)
}

func TestMigrationStatus(t *testing.T) {
	c := qt.New(t)

	status := &MigrationStatus{
		CurrentVersion:    5,
		PendingMigrations: []int{6, 7, 8},
		TotalMigrations:   8,
		HasPendingChanges: true,
	}

	c.Assert(status.CurrentVersion, qt.Equals, 5)
	c.Assert(status.PendingMigrations, qt.HasLen, 3)
	c.Assert(status.TotalMigrations, qt.Equals, 8)
	c.Assert(status.HasPendingChanges, qt.IsTrue)
}

func TestSplitSQLStatements(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		expected []string
	}{
		{
			name: "single statement",
			sql:  "CREATE TABLE users (user_id uuid PRIMARY KEY);",
			expected: []string{
				"CREATE TABLE users (user_id uuid PRIMARY KEY)",
			},
		},
		{
			name: "multiple statements with comments",
			sql:  "-- users\nCREATE TABLE users (user_id uuid PRIMARY KEY);\n-- profiles\nCREATE TABLE user_profiles (user_profile_id uuid PRIMARY KEY);",
			expected: []string{
				"CREATE TABLE users (user_id uuid PRIMARY KEY)",
				"CREATE TABLE user_profiles (user_profile_id uuid PRIMARY KEY)",
			},
		},
		{
			name:     "empty SQL",
			sql:      "",
			expected: []string{},
		},
		{
			name:     "only comments",
			sql:      "-- This is a comment\n/* Another comment */",
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			c.Assert(SplitSQLStatements(tt.sql), qt.DeepEquals, tt.expected)
		})
	}
}

func TestDestructiveChangeError(t *testing.T) {
	c := qt.New(t)

	err := &DestructiveChangeError{
		Version:    7,
		Statements: []string{"ALTER TABLE subscriptions DROP COLUMN user_id"},
	}

	c.Assert(err.Error(), qt.Contains, "migration 7")
	c.Assert(err.Error(), qt.Contains, "DROP COLUMN user_id")
	c.Assert(err.Error(), qt.Contains, "destructive")
}
