package migrator_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/quillhq/stratum/migration/migrator"
)

func TestParseMigrationFileName_HappyPath(t *testing.T) {
	tests := []struct {
		name              string
		filename          string
		expectedVersion   int
		expectedName      string
		expectedDirection string
	}{
		{
			name:              "up migration",
			filename:          "0000000001_create_users.up.sql",
			expectedVersion:   1,
			expectedName:      "Create Users",
			expectedDirection: "up",
		},
		{
			name:              "down migration",
			filename:          "0000000001_create_users.down.sql",
			expectedVersion:   1,
			expectedName:      "Create Users",
			expectedDirection: "down",
		},
		{
			name:              "timestamp version",
			filename:          "1756339200_add_newsletter_issue_slug.up.sql",
			expectedVersion:   1756339200,
			expectedName:      "Add Newsletter Issue Slug",
			expectedDirection: "up",
		},
		{
			name:              "single word description",
			filename:          "0000000007_unlink_subscriptions.up.sql",
			expectedVersion:   7,
			expectedName:      "Unlink Subscriptions",
			expectedDirection: "up",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)

			parsed, err := migrator.ParseMigrationFileName(tt.filename)
			c.Assert(err, qt.IsNil)
			c.Assert(parsed.Version, qt.Equals, tt.expectedVersion)
			c.Assert(parsed.Name, qt.Equals, tt.expectedName)
			c.Assert(parsed.Direction, qt.Equals, tt.expectedDirection)
		})
	}
}

func TestParseMigrationFileName_UnhappyPath(t *testing.T) {
	tests := []struct {
		name     string
		filename string
	}{
		{name: "no version", filename: "create_users.up.sql"},
		{name: "no direction", filename: "0000000001_create_users.sql"},
		{name: "wrong extension", filename: "0000000001_create_users.up.txt"},
		{name: "bad direction", filename: "0000000001_create_users.sideways.sql"},
		{name: "empty", filename: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)

			_, err := migrator.ParseMigrationFileName(tt.filename)
			c.Assert(err, qt.IsNotNil)
		})
	}
}

func TestGenerateMigrationFileName(t *testing.T) {
	tests := []struct {
		name        string
		version     int
		description string
		direction   string
		expected    string
	}{
		{
			name:        "small version is zero padded",
			version:     3,
			description: "create newsletter issues",
			direction:   "up",
			expected:    "0000000003_create_newsletter_issues.up.sql",
		},
		{
			name:        "mixed case description is lowered",
			version:     4,
			description: "Expand Newsletter Issues",
			direction:   "down",
			expected:    "0000000004_expand_newsletter_issues.down.sql",
		},
		{
			name:        "timestamp version keeps its width",
			version:     1756339200,
			description: "create_user_profiles",
			direction:   "up",
			expected:    "1756339200_create_user_profiles.up.sql",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			c.Assert(migrator.GenerateMigrationFileName(tt.version, tt.description, tt.direction), qt.Equals, tt.expected)
		})
	}
}

func TestGenerateMigrationFileName_RoundTrip(t *testing.T) {
	c := qt.New(t)

	filename := migrator.GenerateMigrationFileName(42, "Link Subscriptions To Users", "up")
	parsed, err := migrator.ParseMigrationFileName(filename)
	c.Assert(err, qt.IsNil)
	c.Assert(parsed.Version, qt.Equals, 42)
	c.Assert(parsed.Name, qt.Equals, "Link Subscriptions To Users")
	c.Assert(parsed.Direction, qt.Equals, "up")
}

func TestFormatTimestampForDatabase(t *testing.T) {
	c := qt.New(t)

	formatted := migrator.FormatTimestampForDatabase("postgres")
	c.Assert(formatted, qt.Matches, `\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}`)
}
