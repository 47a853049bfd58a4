package lint_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/quillhq/stratum/config"
	"github.com/quillhq/stratum/migration/lint"
)

func findingsByRule(findings []lint.Finding, rule lint.Rule) []lint.Finding {
	var out []lint.Finding
	for _, f := range findings {
		if f.Rule == rule {
			out = append(out, f)
		}
	}
	return out
}

func TestRun_CleanSequence(t *testing.T) {
	c := qt.New(t)

	scripts := []lint.Script{
		{Version: 1, Name: "Create Users", SQL: `
			CREATE TABLE users (
				user_id uuid PRIMARY KEY,
				username TEXT NOT NULL UNIQUE
			);`},
		{Version: 2, Name: "Create Subscriptions", SQL: `
			CREATE TABLE subscriptions (
				id uuid PRIMARY KEY,
				email TEXT NOT NULL UNIQUE
			);`},
	}

	c.Assert(lint.Run(scripts, nil), qt.HasLen, 0)
}

func TestRun_DestructiveStatements(t *testing.T) {
	c := qt.New(t)

	scripts := []lint.Script{
		{Version: 1, Name: "Create Users", SQL: "CREATE TABLE users (user_id uuid PRIMARY KEY, bio TEXT);"},
		{Version: 2, Name: "Trim Users", SQL: "ALTER TABLE users DROP COLUMN bio;"},
		{Version: 3, Name: "Drop Users", SQL: "DROP TABLE users;"},
	}

	findings := lint.Run(scripts, nil)
	c.Assert(findings, qt.HasLen, 2)

	c.Assert(findings[0].Version, qt.Equals, 2)
	c.Assert(findings[0].Rule, qt.Equals, lint.RuleDestructive)
	c.Assert(findings[0].Severity, qt.Equals, lint.SeverityWarning)
	c.Assert(findings[0].Message, qt.Contains, "users.bio")

	c.Assert(findings[1].Version, qt.Equals, 3)
	c.Assert(findings[1].Rule, qt.Equals, lint.RuleDestructive)
	c.Assert(findings[1].Message, qt.Contains, "DROP TABLE users")
}

func TestRun_DestructiveIsError(t *testing.T) {
	c := qt.New(t)

	scripts := []lint.Script{
		{Version: 1, Name: "Create Users", SQL: "CREATE TABLE users (user_id uuid PRIMARY KEY);"},
		{Version: 2, Name: "Drop Users", SQL: "DROP TABLE users;"},
	}

	opts := config.DefaultLintOptions()
	opts.DestructiveIsError = true

	findings := lint.Run(scripts, opts)
	c.Assert(findings, qt.HasLen, 1)
	c.Assert(findings[0].Severity, qt.Equals, lint.SeverityError)
}

func TestRun_TypeNarrowing(t *testing.T) {
	c := qt.New(t)

	scripts := []lint.Script{
		{Version: 1, Name: "Create Newsletter Issues", SQL: `
			CREATE TABLE newsletter_issues (
				newsletter_issue_id uuid PRIMARY KEY,
				title TEXT NOT NULL
			);`},
		{Version: 2, Name: "Bound Title", SQL: "ALTER TABLE newsletter_issues ALTER COLUMN title TYPE VARCHAR(70);"},
	}

	findings := lint.Run(scripts, nil)
	c.Assert(findings, qt.HasLen, 1)
	c.Assert(findings[0].Rule, qt.Equals, lint.RuleTypeNarrowing)
	c.Assert(findings[0].Severity, qt.Equals, lint.SeverityWarning)
	c.Assert(findings[0].Message, qt.Contains, "newsletter_issues.title")
	c.Assert(findings[0].Message, qt.Contains, "VARCHAR(70)")
}

func TestRun_TypeWideningIsClean(t *testing.T) {
	c := qt.New(t)

	scripts := []lint.Script{
		{Version: 1, Name: "Create Newsletter Issues", SQL: `
			CREATE TABLE newsletter_issues (
				newsletter_issue_id uuid PRIMARY KEY,
				title VARCHAR(70) NOT NULL
			);`},
		{Version: 2, Name: "Unbound Title", SQL: "ALTER TABLE newsletter_issues ALTER COLUMN title TYPE TEXT;"},
	}

	c.Assert(lint.Run(scripts, nil), qt.HasLen, 0)
}

func TestRun_DependencyOrderViolations(t *testing.T) {
	tests := []struct {
		name            string
		scripts         []lint.Script
		expectedMessage string
	}{
		{
			name: "drop of a table never created",
			scripts: []lint.Script{
				{Version: 1, Name: "Drop Users", SQL: "DROP TABLE users;"},
			},
			expectedMessage: "no earlier migration creates it",
		},
		{
			name: "alter of a table never created",
			scripts: []lint.Script{
				{Version: 1, Name: "Expand Users", SQL: "ALTER TABLE users ADD COLUMN bio TEXT;"},
			},
			expectedMessage: "no earlier migration creates it",
		},
		{
			name: "drop of a column never added",
			scripts: []lint.Script{
				{Version: 1, Name: "Create Users", SQL: "CREATE TABLE users (user_id uuid PRIMARY KEY);"},
				{Version: 2, Name: "Trim Users", SQL: "ALTER TABLE users DROP COLUMN bio;"},
			},
			expectedMessage: "no earlier migration adds it",
		},
		{
			name: "drop of a constraint never added",
			scripts: []lint.Script{
				{Version: 1, Name: "Create Users", SQL: "CREATE TABLE users (user_id uuid PRIMARY KEY);"},
				{Version: 2, Name: "Unconstrain Users", SQL: "ALTER TABLE users DROP CONSTRAINT users_email_key;"},
			},
			expectedMessage: "no earlier migration adds it",
		},
		{
			name: "table created twice",
			scripts: []lint.Script{
				{Version: 1, Name: "Create Users", SQL: "CREATE TABLE users (user_id uuid PRIMARY KEY);"},
				{Version: 2, Name: "Create Users Again", SQL: "CREATE TABLE users (user_id uuid PRIMARY KEY);"},
			},
			expectedMessage: "already creates it",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)

			findings := lint.Run(tt.scripts, nil)
			violations := findingsByRule(findings, lint.RuleDependencyOrder)
			c.Assert(violations, qt.HasLen, 1)
			c.Assert(violations[0].Severity, qt.Equals, lint.SeverityError)
			c.Assert(violations[0].Message, qt.Contains, tt.expectedMessage)
		})
	}
}

func TestRun_ImplicitConstraintNames(t *testing.T) {
	c := qt.New(t)

	// An inline UNIQUE produces the default <table>_<column>_key
	// constraint name; dropping it later is not an order violation.
	scripts := []lint.Script{
		{Version: 1, Name: "Create Subscriptions", SQL: `
			CREATE TABLE subscriptions (
				id uuid PRIMARY KEY,
				email TEXT NOT NULL UNIQUE
			);`},
		{Version: 2, Name: "Unconstrain Email", SQL: "ALTER TABLE subscriptions DROP CONSTRAINT subscriptions_email_key;"},
	}

	c.Assert(lint.Run(scripts, nil), qt.HasLen, 0)
}

func TestRun_DuplicateVersion(t *testing.T) {
	c := qt.New(t)

	scripts := []lint.Script{
		{Version: 1, Name: "Create Users", SQL: "CREATE TABLE users (user_id uuid PRIMARY KEY);"},
		{Version: 1, Name: "Create Subscriptions", SQL: "CREATE TABLE subscriptions (id uuid PRIMARY KEY);"},
	}

	findings := lint.Run(scripts, nil)
	duplicates := findingsByRule(findings, lint.RuleDuplicateVersion)
	c.Assert(duplicates, qt.HasLen, 1)
	c.Assert(duplicates[0].Severity, qt.Equals, lint.SeverityError)
	c.Assert(duplicates[0].Message, qt.Contains, "version 1")
}

func TestRun_IgnoredTables(t *testing.T) {
	c := qt.New(t)

	scripts := []lint.Script{
		{Version: 1, Name: "Create Scratch", SQL: "CREATE TABLE scratch (id uuid PRIMARY KEY);"},
		{Version: 2, Name: "Drop Scratch", SQL: "DROP TABLE scratch;"},
	}

	opts := config.WithIgnoredTables("scratch")
	c.Assert(lint.Run(scripts, opts), qt.HasLen, 0)
}

func TestRun_NilOptions(t *testing.T) {
	c := qt.New(t)

	scripts := []lint.Script{
		{Version: 1, Name: "Create Users", SQL: "CREATE TABLE users (user_id uuid PRIMARY KEY);"},
	}

	c.Assert(lint.Run(scripts, nil), qt.HasLen, 0)
}

func TestDestructiveStatements(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		expected int
	}{
		{
			name:     "no destructive statements",
			sql:      "CREATE TABLE users (user_id uuid PRIMARY KEY); ALTER TABLE users ADD COLUMN bio TEXT;",
			expected: 0,
		},
		{
			name:     "drop table",
			sql:      "DROP TABLE users;",
			expected: 1,
		},
		{
			name:     "drop column among other statements",
			sql:      "ALTER TABLE subscriptions DROP CONSTRAINT subscriptions_email_user_id_key;\nALTER TABLE subscriptions DROP COLUMN user_id;",
			expected: 1,
		},
		{
			name:     "multiple drops",
			sql:      "ALTER TABLE users DROP COLUMN bio; DROP TABLE audit_log;",
			expected: 2,
		},
		{
			name:     "drop inside a comment is not counted",
			sql:      "-- DROP TABLE users\nCREATE TABLE users (user_id uuid PRIMARY KEY);",
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			c.Assert(lint.DestructiveStatements(tt.sql), qt.HasLen, tt.expected)
		})
	}
}

func TestFinding_String(t *testing.T) {
	c := qt.New(t)

	f := lint.Finding{
		Version:  7,
		Rule:     lint.RuleDestructive,
		Severity: lint.SeverityWarning,
		Message:  "DROP COLUMN subscriptions.user_id discards column data with no preservation step",
	}

	c.Assert(f.String(), qt.Equals, "warning: migration 7 [destructive-statement]: DROP COLUMN subscriptions.user_id discards column data with no preservation step")
}
