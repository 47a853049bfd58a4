package types

import (
	"fmt"
	"strings"
)

// SchemaDiff represents the structural differences between two
// database schemas: what the current schema is missing, carries extra,
// or defines differently relative to the target schema.
type SchemaDiff struct {
	TablesAdded    []string    `json:"tables_added"`    // in target, missing from current
	TablesRemoved  []string    `json:"tables_removed"`  // in current, missing from target
	TablesModified []TableDiff `json:"tables_modified"` // present in both, structure differs

	IndexesAdded   []string `json:"indexes_added"`
	IndexesRemoved []string `json:"indexes_removed"`

	ConstraintsAdded   []string `json:"constraints_added"`
	ConstraintsRemoved []string `json:"constraints_removed"`
}

// TableDiff represents differences within a single table
type TableDiff struct {
	TableName       string       `json:"table_name"`
	ColumnsAdded    []string     `json:"columns_added"`
	ColumnsRemoved  []string     `json:"columns_removed"`
	ColumnsModified []ColumnDiff `json:"columns_modified"`
}

// ColumnDiff represents property-level differences of a single column.
// Changes maps a property name to an "old -> new" description.
type ColumnDiff struct {
	ColumnName string            `json:"column_name"`
	Changes    map[string]string `json:"changes"`
}

// HasChanges reports whether the diff contains any difference at all
func (d *SchemaDiff) HasChanges() bool {
	return len(d.TablesAdded) > 0 ||
		len(d.TablesRemoved) > 0 ||
		len(d.TablesModified) > 0 ||
		len(d.IndexesAdded) > 0 ||
		len(d.IndexesRemoved) > 0 ||
		len(d.ConstraintsAdded) > 0 ||
		len(d.ConstraintsRemoved) > 0
}

// Summary renders the diff as a human-readable report, one line per
// difference. An empty diff renders as "schemas are identical".
func (d *SchemaDiff) Summary() string {
	if !d.HasChanges() {
		return "schemas are identical"
	}

	var b strings.Builder
	for _, table := range d.TablesAdded {
		fmt.Fprintf(&b, "+ table %s\n", table)
	}
	for _, table := range d.TablesRemoved {
		fmt.Fprintf(&b, "- table %s\n", table)
	}
	for _, table := range d.TablesModified {
		for _, col := range table.ColumnsAdded {
			fmt.Fprintf(&b, "+ column %s.%s\n", table.TableName, col)
		}
		for _, col := range table.ColumnsRemoved {
			fmt.Fprintf(&b, "- column %s.%s\n", table.TableName, col)
		}
		for _, col := range table.ColumnsModified {
			for property, change := range col.Changes {
				fmt.Fprintf(&b, "~ column %s.%s %s: %s\n", table.TableName, col.ColumnName, property, change)
			}
		}
	}
	for _, idx := range d.IndexesAdded {
		fmt.Fprintf(&b, "+ index %s\n", idx)
	}
	for _, idx := range d.IndexesRemoved {
		fmt.Fprintf(&b, "- index %s\n", idx)
	}
	for _, con := range d.ConstraintsAdded {
		fmt.Fprintf(&b, "+ constraint %s\n", con)
	}
	for _, con := range d.ConstraintsRemoved {
		fmt.Fprintf(&b, "- constraint %s\n", con)
	}

	return strings.TrimRight(b.String(), "\n")
}
