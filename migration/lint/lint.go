// Package lint performs static analysis over an ordered migration
// sequence, without a database connection.
//
// Three classes of problems are reported:
//
//   - destructive statements (DROP TABLE, DROP COLUMN) that discard
//     data irreversibly,
//   - lossy type narrowing (an unbounded text column altered to a
//     bounded VARCHAR, which can fail or silently truncate),
//   - dependency-order violations (a statement targeting a table,
//     column or constraint that no earlier migration introduced, or a
//     duplicated version number).
//
// The checks replay the sequence against an in-memory structural
// model (see model.go), mirroring what the statements would do to a
// real schema.
package lint

import (
	"fmt"
	"strings"

	"github.com/quillhq/stratum/config"
	"github.com/quillhq/stratum/core/sqlutil"
)

// Severity of a lint finding
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Rule identifies the check that produced a finding
type Rule string

const (
	RuleDestructive      Rule = "destructive-statement"
	RuleTypeNarrowing    Rule = "type-narrowing"
	RuleDependencyOrder  Rule = "dependency-order"
	RuleDuplicateVersion Rule = "duplicate-version"
)

// Script is one migration's worth of SQL as input to the linter
type Script struct {
	Version int
	Name    string
	SQL     string
}

// Finding is a single problem discovered in the sequence
type Finding struct {
	Version   int
	Rule      Rule
	Severity  Severity
	Statement string // offending statement, truncated for display
	Message   string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: migration %d [%s]: %s", f.Severity, f.Version, f.Rule, f.Message)
}

// Run lints an ordered migration sequence and returns all findings.
// A nil opts uses config.DefaultLintOptions.
func Run(scripts []Script, opts *config.LintOptions) []Finding {
	if opts == nil {
		opts = config.DefaultLintOptions()
	}

	findings := make([]Finding, 0)
	model := newSchemaModel()
	seen := make(map[int]bool)

	for _, script := range scripts {
		if seen[script.Version] {
			findings = append(findings, Finding{
				Version:  script.Version,
				Rule:     RuleDuplicateVersion,
				Severity: SeverityError,
				Message:  fmt.Sprintf("version %d appears more than once in the sequence", script.Version),
			})
		}
		seen[script.Version] = true

		for _, raw := range sqlutil.SplitSQLStatements(sqlutil.StripComments(script.SQL)) {
			stmt := parseStatement(raw)
			if stmt == nil {
				continue
			}
			if opts.IsTableIgnored(stmt.Table) {
				// The statement still has to be replayed or later
				// references to the ignored table would misreport.
				model.apply(stmt)
				continue
			}

			findings = append(findings, checkStatement(model, script, stmt, raw, opts)...)
			model.apply(stmt)
		}
	}

	return findings
}

// DestructiveStatements returns the DROP TABLE / DROP COLUMN
// statements contained in the SQL, in source order. The migration
// runner uses this to guard destructive migrations.
func DestructiveStatements(sql string) []string {
	var destructive []string
	for _, raw := range sqlutil.SplitSQLStatements(sqlutil.StripComments(sql)) {
		stmt := parseStatement(raw)
		if stmt == nil {
			continue
		}
		if stmt.Kind == stmtDropTable || stmt.Kind == stmtDropColumn {
			destructive = append(destructive, excerpt(raw))
		}
	}
	return destructive
}

func checkStatement(model *schemaModel, script Script, stmt *statement, raw string, opts *config.LintOptions) []Finding {
	var findings []Finding

	destructiveSeverity := SeverityWarning
	if opts.DestructiveIsError {
		destructiveSeverity = SeverityError
	}

	switch stmt.Kind {
	case stmtDropTable:
		if !model.hasTable(stmt.Table) {
			findings = append(findings, orderViolation(script, raw,
				fmt.Sprintf("DROP TABLE %s, but no earlier migration creates it", stmt.Table)))
			break
		}
		findings = append(findings, Finding{
			Version:   script.Version,
			Rule:      RuleDestructive,
			Severity:  destructiveSeverity,
			Statement: excerpt(raw),
			Message:   fmt.Sprintf("DROP TABLE %s discards all rows with no preservation step", stmt.Table),
		})
	case stmtDropColumn:
		if !model.hasColumn(stmt.Table, stmt.Column) {
			findings = append(findings, orderViolation(script, raw,
				fmt.Sprintf("DROP COLUMN %s.%s, but no earlier migration adds it", stmt.Table, stmt.Column)))
			break
		}
		findings = append(findings, Finding{
			Version:   script.Version,
			Rule:      RuleDestructive,
			Severity:  destructiveSeverity,
			Statement: excerpt(raw),
			Message:   fmt.Sprintf("DROP COLUMN %s.%s discards column data with no preservation step", stmt.Table, stmt.Column),
		})
	case stmtAddColumn:
		if !model.hasTable(stmt.Table) {
			findings = append(findings, orderViolation(script, raw,
				fmt.Sprintf("ALTER TABLE %s, but no earlier migration creates it", stmt.Table)))
		}
	case stmtAlterColumnType:
		if !model.hasColumn(stmt.Table, stmt.Column) {
			findings = append(findings, orderViolation(script, raw,
				fmt.Sprintf("ALTER COLUMN %s.%s, but no earlier migration adds it", stmt.Table, stmt.Column)))
			break
		}
		oldType := model.columnType(stmt.Table, stmt.Column)
		if isUnboundedText(oldType) && isBoundedVarchar(stmt.ColumnType) {
			findings = append(findings, Finding{
				Version:   script.Version,
				Rule:      RuleTypeNarrowing,
				Severity:  SeverityWarning,
				Statement: excerpt(raw),
				Message: fmt.Sprintf("%s.%s narrows from %s to %s; existing values may exceed the bound and fail or truncate",
					stmt.Table, stmt.Column, oldType, stmt.ColumnType),
			})
		}
	case stmtAddConstraint:
		if !model.hasTable(stmt.Table) {
			findings = append(findings, orderViolation(script, raw,
				fmt.Sprintf("ADD CONSTRAINT on %s, but no earlier migration creates the table", stmt.Table)))
		}
	case stmtDropConstraint:
		if !model.hasConstraint(stmt.Table, stmt.Constraint) {
			findings = append(findings, orderViolation(script, raw,
				fmt.Sprintf("DROP CONSTRAINT %s on %s, but no earlier migration adds it", stmt.Constraint, stmt.Table)))
		}
	case stmtCreateTable:
		if model.hasTable(stmt.Table) {
			findings = append(findings, orderViolation(script, raw,
				fmt.Sprintf("CREATE TABLE %s, but an earlier migration already creates it", stmt.Table)))
		}
	}

	return findings
}

func orderViolation(script Script, raw, message string) Finding {
	return Finding{
		Version:   script.Version,
		Rule:      RuleDependencyOrder,
		Severity:  SeverityError,
		Statement: excerpt(raw),
		Message:   message,
	}
}

const excerptLen = 80

func excerpt(stmt string) string {
	stmt = strings.Join(strings.Fields(stmt), " ")
	if len(stmt) > excerptLen {
		return stmt[:excerptLen] + "..."
	}
	return stmt
}

func isUnboundedText(dataType string) bool {
	return strings.EqualFold(dataType, "TEXT")
}

func isBoundedVarchar(dataType string) bool {
	upper := strings.ToUpper(dataType)
	return (strings.HasPrefix(upper, "VARCHAR(") || strings.HasPrefix(upper, "CHARACTER VARYING(")) &&
		strings.HasSuffix(upper, ")")
}
