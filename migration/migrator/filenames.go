package migrator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Migration files follow the naming convention
// NNNNNNNNNN_description.up.sql / NNNNNNNNNN_description.down.sql,
// where NNNNNNNNNN is a zero-padded version number (by convention a
// unix timestamp for generated files).
var migrationFileRe = regexp.MustCompile(`^(\d+)_([A-Za-z0-9_-]+)\.(up|down)\.sql$`)

// MigrationFile is a parsed migration filename
type MigrationFile struct {
	Version   int
	Name      string // human-readable, title-cased description
	Direction string // "up" or "down"
}

// ParseMigrationFileName parses a migration filename into its version,
// description and direction. The description is converted from
// snake_case to a title-cased sentence ("create_users" -> "Create
// Users"). Returns an error for names that don't match the convention.
func ParseMigrationFileName(filename string) (*MigrationFile, error) {
	matches := migrationFileRe.FindStringSubmatch(filename)
	if matches == nil {
		return nil, fmt.Errorf("not a migration filename: %s", filename)
	}

	version, err := strconv.Atoi(matches[1])
	if err != nil {
		return nil, fmt.Errorf("invalid migration version in %s: %w", filename, err)
	}

	name := strings.ReplaceAll(matches[2], "_", " ")
	name = cases.Title(language.English).String(name)

	return &MigrationFile{
		Version:   version,
		Name:      name,
		Direction: matches[3],
	}, nil
}

// GenerateMigrationFileName builds a migration filename from its
// parts. The version is zero-padded to ten digits so lexical and
// numeric ordering agree.
func GenerateMigrationFileName(version int, description, direction string) string {
	description = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(description), " ", "_"))
	return fmt.Sprintf("%010d_%s.%s.sql", version, description, direction)
}

// GetNextMigrationVersion returns a fresh migration version derived
// from the current unix time.
func GetNextMigrationVersion() int {
	return int(time.Now().Unix())
}

// FormatTimestampForDatabase returns the current UTC time in the
// literal format accepted by the dialect's timestamp columns.
func FormatTimestampForDatabase(dialect string) string {
	_ = dialect // postgres and mysql both accept this literal form
	return time.Now().UTC().Format("2006-01-02 15:04:05")
}
