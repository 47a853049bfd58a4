// Package sqlutil provides low-level helpers for working with raw SQL
// migration text: stripping comments and splitting scripts into
// individual statements.
//
// Splitting cannot be done with a naive strings.Split on semicolons
// because semicolons may appear inside string literals, quoted
// identifiers and PostgreSQL dollar-quoted bodies. The scanner here
// tracks those contexts explicitly.
package sqlutil

import "strings"

// StripComments removes SQL line comments (-- ...) and block comments
// (/* ... */) from the input while preserving comment-like sequences
// inside string literals.
func StripComments(sql string) string {
	var out strings.Builder
	out.Grow(len(sql))

	i := 0
	for i < len(sql) {
		c := sql[i]

		switch {
		case c == '\'' || c == '"':
			end := skipQuoted(sql, i)
			out.WriteString(sql[i:end])
			i = end
		case c == '$':
			if tag := dollarTag(sql, i); tag != "" {
				end := skipDollarQuoted(sql, i, tag)
				out.WriteString(sql[i:end])
				i = end
				continue
			}
			out.WriteByte(c)
			i++
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			i += 2
			for i+1 < len(sql) && !(sql[i] == '*' && sql[i+1] == '/') {
				i++
			}
			if i+1 < len(sql) {
				i += 2
			} else {
				i = len(sql)
			}
		default:
			out.WriteByte(c)
			i++
		}
	}

	return out.String()
}

// SplitSQLStatements splits a SQL script into individual statements on
// top-level semicolons. Trailing semicolons are removed and empty
// statements are dropped. The result is never nil.
func SplitSQLStatements(sql string) []string {
	statements := make([]string, 0)

	var current strings.Builder
	i := 0
	for i < len(sql) {
		c := sql[i]

		switch {
		case c == '\'' || c == '"':
			end := skipQuoted(sql, i)
			current.WriteString(sql[i:end])
			i = end
		case c == '$':
			if tag := dollarTag(sql, i); tag != "" {
				end := skipDollarQuoted(sql, i, tag)
				current.WriteString(sql[i:end])
				i = end
				continue
			}
			current.WriteByte(c)
			i++
		case c == ';':
			if stmt := strings.TrimSpace(current.String()); stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
			i++
		default:
			current.WriteByte(c)
			i++
		}
	}

	if stmt := strings.TrimSpace(current.String()); stmt != "" {
		statements = append(statements, stmt)
	}

	return statements
}

// skipQuoted returns the index just past a quoted region starting at
// start. Doubled quotes ('') inside single-quoted literals are treated
// as escapes.
func skipQuoted(sql string, start int) int {
	quote := sql[start]
	i := start + 1
	for i < len(sql) {
		if sql[i] == quote {
			// Doubled quote is an escaped quote, not a terminator.
			if quote == '\'' && i+1 < len(sql) && sql[i+1] == quote {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return len(sql)
}

// dollarTag returns the dollar-quote tag ("$$", "$body$", ...) starting
// at start, or "" if the text at start is not a valid opening tag.
func dollarTag(sql string, start int) string {
	i := start + 1
	for i < len(sql) {
		c := sql[i]
		if c == '$' {
			return sql[start : i+1]
		}
		if !isTagChar(c) {
			return ""
		}
		i++
	}
	return ""
}

// skipDollarQuoted returns the index just past the closing tag of a
// dollar-quoted region. An unterminated region consumes the rest of
// the input.
func skipDollarQuoted(sql string, start int, tag string) int {
	end := strings.Index(sql[start+len(tag):], tag)
	if end < 0 {
		return len(sql)
	}
	return start + len(tag) + end + len(tag)
}

func isTagChar(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
