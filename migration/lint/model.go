package lint

import (
	"regexp"
	"strings"
)

// statementKind classifies the DDL statements the linter understands.
// Anything else (DML, GRANT, COMMENT, ...) is ignored.
type statementKind int

const (
	stmtCreateTable statementKind = iota
	stmtDropTable
	stmtAddColumn
	stmtDropColumn
	stmtAlterColumnType
	stmtAddConstraint
	stmtDropConstraint
)

type statement struct {
	Kind       statementKind
	Table      string
	Column     string
	ColumnType string // for ADD COLUMN / ALTER COLUMN TYPE
	Constraint string // for ADD/DROP CONSTRAINT (empty when unnamed)
	Columns    []columnDef
	TableCons  []string // named table-level constraints of CREATE TABLE
}

type columnDef struct {
	Name       string
	Type       string
	Unique     bool
	PrimaryKey bool
}

var (
	createTableRe = regexp.MustCompile(`(?is)^CREATE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?([^\s(]+)\s*\((.*)\)\s*$`)
	dropTableRe   = regexp.MustCompile(`(?is)^DROP\s+TABLE\s+(?:IF\s+EXISTS\s+)?([^\s;]+)`)
	alterTableRe  = regexp.MustCompile(`(?is)^ALTER\s+TABLE\s+(?:ONLY\s+)?(?:IF\s+EXISTS\s+)?([^\s]+)\s+(.*)$`)

	addColumnRe    = regexp.MustCompile(`(?is)^ADD\s+(?:COLUMN\s+)?(?:IF\s+NOT\s+EXISTS\s+)?([^\s(]+)\s+(.*)$`)
	dropColumnRe   = regexp.MustCompile(`(?is)^DROP\s+COLUMN\s+(?:IF\s+EXISTS\s+)?([^\s,;]+)`)
	alterColumnRe  = regexp.MustCompile(`(?is)^(?:ALTER\s+(?:COLUMN\s+)?|MODIFY\s+(?:COLUMN\s+)?)([^\s]+)\s+(?:SET\s+DATA\s+TYPE\s+|TYPE\s+)?(.+)$`)
	addConstrRe    = regexp.MustCompile(`(?is)^ADD\s+CONSTRAINT\s+([^\s(]+)`)
	addAnonConstrRe = regexp.MustCompile(`(?is)^ADD\s+(?:UNIQUE|PRIMARY\s+KEY|FOREIGN\s+KEY|CHECK)\b`)
	dropConstrRe   = regexp.MustCompile(`(?is)^DROP\s+CONSTRAINT\s+(?:IF\s+EXISTS\s+)?([^\s,;]+)`)
)

// parseStatement classifies a single DDL statement, returning nil for
// statements the linter does not track.
func parseStatement(raw string) *statement {
	sql := strings.TrimSpace(raw)

	if m := createTableRe.FindStringSubmatch(sql); m != nil {
		stmt := &statement{
			Kind:  stmtCreateTable,
			Table: cleanIdent(m[1]),
		}
		stmt.Columns, stmt.TableCons = parseColumnDefs(m[2])
		return stmt
	}

	if m := dropTableRe.FindStringSubmatch(sql); m != nil {
		return &statement{
			Kind:  stmtDropTable,
			Table: cleanIdent(m[1]),
		}
	}

	m := alterTableRe.FindStringSubmatch(sql)
	if m == nil {
		return nil
	}
	table := cleanIdent(m[1])
	action := strings.TrimSpace(m[2])

	if am := dropColumnRe.FindStringSubmatch(action); am != nil {
		return &statement{
			Kind:   stmtDropColumn,
			Table:  table,
			Column: cleanIdent(am[1]),
		}
	}
	if am := dropConstrRe.FindStringSubmatch(action); am != nil {
		return &statement{
			Kind:       stmtDropConstraint,
			Table:      table,
			Constraint: cleanIdent(am[1]),
		}
	}
	if am := addConstrRe.FindStringSubmatch(action); am != nil {
		return &statement{
			Kind:       stmtAddConstraint,
			Table:      table,
			Constraint: cleanIdent(am[1]),
		}
	}
	if addAnonConstrRe.MatchString(action) {
		return &statement{
			Kind:  stmtAddConstraint,
			Table: table,
		}
	}
	if am := addColumnRe.FindStringSubmatch(action); am != nil {
		return &statement{
			Kind:       stmtAddColumn,
			Table:      table,
			Column:     cleanIdent(am[1]),
			ColumnType: extractType(am[2]),
		}
	}
	if am := alterColumnRe.FindStringSubmatch(action); am != nil {
		// Only type changes are tracked; SET NOT NULL, SET DEFAULT
		// and similar ALTER COLUMN forms carry no type.
		rest := strings.TrimSpace(am[2])
		if restIsTypeChange(action) {
			return &statement{
				Kind:       stmtAlterColumnType,
				Table:      table,
				Column:     cleanIdent(am[1]),
				ColumnType: extractType(rest),
			}
		}
	}

	return nil
}

func restIsTypeChange(action string) bool {
	upper := strings.ToUpper(action)
	return strings.Contains(upper, " TYPE ") || strings.HasPrefix(upper, "MODIFY ")
}

// parseColumnDefs splits the body of a CREATE TABLE into column
// definitions and named table-level constraints. Commas inside parens
// (VARCHAR(70), NUMERIC(10,2), UNIQUE (a, b)) do not split.
func parseColumnDefs(body string) ([]columnDef, []string) {
	var columns []columnDef
	var constraints []string

	for _, entry := range splitTopLevel(body) {
		fields := strings.Fields(entry)
		if len(fields) == 0 {
			continue
		}

		head := strings.ToUpper(fields[0])
		switch head {
		case "CONSTRAINT":
			if len(fields) > 1 {
				constraints = append(constraints, cleanIdent(fields[1]))
			}
		case "PRIMARY", "UNIQUE", "FOREIGN", "CHECK", "KEY", "INDEX":
			// Unnamed table-level constraint; nothing to track.
		default:
			upper := strings.ToUpper(entry)
			columns = append(columns, columnDef{
				Name:       cleanIdent(fields[0]),
				Type:       extractType(strings.TrimSpace(entry[len(fields[0]):])),
				Unique:     strings.Contains(upper, " UNIQUE"),
				PrimaryKey: strings.Contains(upper, " PRIMARY KEY"),
			})
		}
	}

	return columns, constraints
}

func splitTopLevel(body string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(body[start:i]))
				start = i + 1
			}
		}
	}
	parts = append(parts, strings.TrimSpace(body[start:]))
	return parts
}

// columnAttrKeywords end the type portion of a column definition.
var columnAttrKeywords = map[string]bool{
	"NOT": true, "NULL": true, "DEFAULT": true, "PRIMARY": true,
	"UNIQUE": true, "REFERENCES": true, "CHECK": true,
	"CONSTRAINT": true, "USING": true, "COLLATE": true,
	"GENERATED": true, "AUTO_INCREMENT": true,
}

// extractType returns the leading data type of a column definition
// tail ("VARCHAR(70) NOT NULL DEFAULT ''" -> "VARCHAR(70)",
// "TIMESTAMP WITH TIME ZONE NOT NULL" -> "TIMESTAMP WITH TIME ZONE").
func extractType(rest string) string {
	var typeTokens []string
	for _, token := range strings.Fields(rest) {
		if columnAttrKeywords[strings.ToUpper(strings.TrimRight(token, ",;"))] {
			break
		}
		typeTokens = append(typeTokens, strings.TrimRight(token, ",;"))
	}
	return strings.Join(typeTokens, " ")
}

func cleanIdent(ident string) string {
	ident = strings.TrimRight(ident, ",;")
	ident = strings.Trim(ident, "\"`")
	// Strip any schema qualifier.
	if i := strings.LastIndex(ident, "."); i >= 0 {
		ident = ident[i+1:]
	}
	return strings.ToLower(ident)
}

// schemaModel is the in-memory structural state the lint replay
// maintains: tables, their columns with declared types, and named
// constraints.
type schemaModel struct {
	tables map[string]*tableModel
}

type tableModel struct {
	columns     map[string]string // name -> declared type
	constraints map[string]bool
}

func newSchemaModel() *schemaModel {
	return &schemaModel{tables: make(map[string]*tableModel)}
}

func (m *schemaModel) apply(stmt *statement) {
	switch stmt.Kind {
	case stmtCreateTable:
		table := &tableModel{
			columns:     make(map[string]string),
			constraints: make(map[string]bool),
		}
		for _, col := range stmt.Columns {
			table.columns[col.Name] = col.Type
			// Column-level UNIQUE / PRIMARY KEY produce implicit
			// constraints; track them under their default PostgreSQL
			// names so later DROP CONSTRAINT statements resolve.
			if col.Unique {
				table.constraints[stmt.Table+"_"+col.Name+"_key"] = true
			}
			if col.PrimaryKey {
				table.constraints[stmt.Table+"_pkey"] = true
			}
		}
		for _, con := range stmt.TableCons {
			table.constraints[con] = true
		}
		m.tables[stmt.Table] = table
	case stmtDropTable:
		delete(m.tables, stmt.Table)
	case stmtAddColumn:
		if table := m.tables[stmt.Table]; table != nil {
			table.columns[stmt.Column] = stmt.ColumnType
		}
	case stmtDropColumn:
		if table := m.tables[stmt.Table]; table != nil {
			delete(table.columns, stmt.Column)
		}
	case stmtAlterColumnType:
		if table := m.tables[stmt.Table]; table != nil {
			if _, ok := table.columns[stmt.Column]; ok {
				table.columns[stmt.Column] = stmt.ColumnType
			}
		}
	case stmtAddConstraint:
		if table := m.tables[stmt.Table]; table != nil && stmt.Constraint != "" {
			table.constraints[stmt.Constraint] = true
		}
	case stmtDropConstraint:
		if table := m.tables[stmt.Table]; table != nil {
			delete(table.constraints, stmt.Constraint)
		}
	}
}

func (m *schemaModel) hasTable(name string) bool {
	_, ok := m.tables[name]
	return ok
}

func (m *schemaModel) hasColumn(table, column string) bool {
	t := m.tables[table]
	if t == nil {
		return false
	}
	_, ok := t.columns[column]
	return ok
}

func (m *schemaModel) columnType(table, column string) string {
	t := m.tables[table]
	if t == nil {
		return ""
	}
	return t.columns[column]
}

func (m *schemaModel) hasConstraint(table, constraint string) bool {
	t := m.tables[table]
	if t == nil {
		return false
	}
	return t.constraints[constraint]
}
