package lint

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestParseStatement(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		expected *statement
	}{
		{
			name: "drop table",
			sql:  "DROP TABLE users",
			expected: &statement{
				Kind:  stmtDropTable,
				Table: "users",
			},
		},
		{
			name: "drop table if exists with schema qualifier",
			sql:  "DROP TABLE IF EXISTS public.users",
			expected: &statement{
				Kind:  stmtDropTable,
				Table: "users",
			},
		},
		{
			name: "add column",
			sql:  "ALTER TABLE newsletter_issues ADD COLUMN content TEXT NOT NULL DEFAULT ''",
			expected: &statement{
				Kind:       stmtAddColumn,
				Table:      "newsletter_issues",
				Column:     "content",
				ColumnType: "TEXT",
			},
		},
		{
			name: "add column with references",
			sql:  "ALTER TABLE newsletter_issues ADD COLUMN user_id uuid NOT NULL REFERENCES users(user_id)",
			expected: &statement{
				Kind:       stmtAddColumn,
				Table:      "newsletter_issues",
				Column:     "user_id",
				ColumnType: "uuid",
			},
		},
		{
			name: "drop column",
			sql:  "ALTER TABLE subscriptions DROP COLUMN user_id",
			expected: &statement{
				Kind:   stmtDropColumn,
				Table:  "subscriptions",
				Column: "user_id",
			},
		},
		{
			name: "alter column type",
			sql:  "ALTER TABLE newsletter_issues ALTER COLUMN title TYPE VARCHAR(70)",
			expected: &statement{
				Kind:       stmtAlterColumnType,
				Table:      "newsletter_issues",
				Column:     "title",
				ColumnType: "VARCHAR(70)",
			},
		},
		{
			name: "alter column set data type with using clause",
			sql:  "ALTER TABLE newsletter_issues ALTER COLUMN published_at SET DATA TYPE timestamptz USING NULL",
			expected: &statement{
				Kind:       stmtAlterColumnType,
				Table:      "newsletter_issues",
				Column:     "published_at",
				ColumnType: "timestamptz",
			},
		},
		{
			name: "add named constraint",
			sql:  "ALTER TABLE newsletter_issues ADD CONSTRAINT newsletter_issues_user_id_slug_key UNIQUE (user_id, slug)",
			expected: &statement{
				Kind:       stmtAddConstraint,
				Table:      "newsletter_issues",
				Constraint: "newsletter_issues_user_id_slug_key",
			},
		},
		{
			name: "add anonymous constraint",
			sql:  "ALTER TABLE subscriptions ADD UNIQUE (email)",
			expected: &statement{
				Kind:  stmtAddConstraint,
				Table: "subscriptions",
			},
		},
		{
			name: "drop constraint",
			sql:  "ALTER TABLE subscriptions DROP CONSTRAINT subscriptions_email_key",
			expected: &statement{
				Kind:       stmtDropConstraint,
				Table:      "subscriptions",
				Constraint: "subscriptions_email_key",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			c.Assert(parseStatement(tt.sql), qt.DeepEquals, tt.expected)
		})
	}
}

func TestParseStatement_Untracked(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{name: "set not null", sql: "ALTER TABLE newsletter_issues ALTER COLUMN published_at SET NOT NULL"},
		{name: "drop not null", sql: "ALTER TABLE newsletter_issues ALTER COLUMN published_at DROP NOT NULL"},
		{name: "set default", sql: "ALTER TABLE users ALTER COLUMN created_at SET DEFAULT now()"},
		{name: "insert", sql: "INSERT INTO users (user_id) VALUES ('x')"},
		{name: "create index", sql: "CREATE INDEX idx_users_email ON users (email)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			c.Assert(parseStatement(tt.sql), qt.IsNil)
		})
	}
}

func TestParseStatement_CreateTable(t *testing.T) {
	c := qt.New(t)

	stmt := parseStatement(`CREATE TABLE subscriptions (
		id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
		email TEXT NOT NULL UNIQUE,
		subscribed_at TIMESTAMP WITH TIME ZONE NOT NULL,
		CONSTRAINT subscriptions_email_check CHECK (email <> '')
	)`)

	c.Assert(stmt, qt.IsNotNil)
	c.Assert(stmt.Kind, qt.Equals, stmtCreateTable)
	c.Assert(stmt.Table, qt.Equals, "subscriptions")
	c.Assert(stmt.Columns, qt.DeepEquals, []columnDef{
		{Name: "id", Type: "uuid", PrimaryKey: true},
		{Name: "email", Type: "TEXT", Unique: true},
		{Name: "subscribed_at", Type: "TIMESTAMP WITH TIME ZONE"},
	})
	c.Assert(stmt.TableCons, qt.DeepEquals, []string{"subscriptions_email_check"})
}

func TestSchemaModel_ImplicitConstraints(t *testing.T) {
	c := qt.New(t)

	model := newSchemaModel()
	model.apply(parseStatement("CREATE TABLE users (user_id uuid PRIMARY KEY, email TEXT UNIQUE)"))

	c.Assert(model.hasConstraint("users", "users_pkey"), qt.IsTrue)
	c.Assert(model.hasConstraint("users", "users_email_key"), qt.IsTrue)
	c.Assert(model.hasConstraint("users", "users_username_key"), qt.IsFalse)
}

func TestSchemaModel_Replay(t *testing.T) {
	c := qt.New(t)

	model := newSchemaModel()
	model.apply(parseStatement("CREATE TABLE newsletter_issues (newsletter_issue_id uuid PRIMARY KEY, title TEXT NOT NULL)"))
	model.apply(parseStatement("ALTER TABLE newsletter_issues ADD COLUMN slug TEXT NOT NULL DEFAULT ''"))
	model.apply(parseStatement("ALTER TABLE newsletter_issues ALTER COLUMN title TYPE VARCHAR(70)"))

	c.Assert(model.hasColumn("newsletter_issues", "slug"), qt.IsTrue)
	c.Assert(model.columnType("newsletter_issues", "title"), qt.Equals, "VARCHAR(70)")

	model.apply(parseStatement("ALTER TABLE newsletter_issues DROP COLUMN slug"))
	c.Assert(model.hasColumn("newsletter_issues", "slug"), qt.IsFalse)

	model.apply(parseStatement("DROP TABLE newsletter_issues"))
	c.Assert(model.hasTable("newsletter_issues"), qt.IsFalse)
}

func TestExtractType(t *testing.T) {
	tests := []struct {
		rest     string
		expected string
	}{
		{rest: "TEXT NOT NULL", expected: "TEXT"},
		{rest: "VARCHAR(70) NOT NULL DEFAULT ''", expected: "VARCHAR(70)"},
		{rest: "TIMESTAMP WITH TIME ZONE", expected: "TIMESTAMP WITH TIME ZONE"},
		{rest: "uuid REFERENCES users(user_id)", expected: "uuid"},
		{rest: "NUMERIC(10,2) DEFAULT 0", expected: "NUMERIC(10,2)"},
	}

	for _, tt := range tests {
		t.Run(tt.rest, func(t *testing.T) {
			c := qt.New(t)
			c.Assert(extractType(tt.rest), qt.Equals, tt.expected)
		})
	}
}
