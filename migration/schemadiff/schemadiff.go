// Package schemadiff compares two introspected database schemas and
// reports their structural differences.
//
// It backs replay verification: applying the full migration sequence
// to an empty scratch database must produce a schema identical to the
// target database's (spareness of the diff is the pass criterion), and
// it detects drift between environments that claim the same migration
// version.
package schemadiff

import (
	"fmt"
	"sort"
	"strings"

	dbtypes "github.com/quillhq/stratum/dbschema/types"
	difftypes "github.com/quillhq/stratum/migration/schemadiff/types"
)

// Compare computes the differences between a target schema and the
// current schema. "Added" entries exist in target but not in current,
// "removed" entries exist in current but not in target.
func Compare(target, current *dbtypes.DBSchema) *difftypes.SchemaDiff {
	diff := &difftypes.SchemaDiff{}

	compareTables(target, current, diff)
	compareIndexes(target, current, diff)
	compareConstraints(target, current, diff)

	return diff
}

func compareTables(target, current *dbtypes.DBSchema, diff *difftypes.SchemaDiff) {
	currentTables := make(map[string]*dbtypes.DBTable)
	for i := range current.Tables {
		currentTables[current.Tables[i].Name] = &current.Tables[i]
	}
	targetTables := make(map[string]*dbtypes.DBTable)
	for i := range target.Tables {
		targetTables[target.Tables[i].Name] = &target.Tables[i]
	}

	for name := range targetTables {
		if _, ok := currentTables[name]; !ok {
			diff.TablesAdded = append(diff.TablesAdded, name)
		}
	}
	for name := range currentTables {
		if _, ok := targetTables[name]; !ok {
			diff.TablesRemoved = append(diff.TablesRemoved, name)
		}
	}
	sort.Strings(diff.TablesAdded)
	sort.Strings(diff.TablesRemoved)

	var modifiedNames []string
	for name := range targetTables {
		if _, ok := currentTables[name]; ok {
			modifiedNames = append(modifiedNames, name)
		}
	}
	sort.Strings(modifiedNames)

	for _, name := range modifiedNames {
		tableDiff := compareColumns(targetTables[name], currentTables[name])
		if len(tableDiff.ColumnsAdded) > 0 || len(tableDiff.ColumnsRemoved) > 0 || len(tableDiff.ColumnsModified) > 0 {
			diff.TablesModified = append(diff.TablesModified, tableDiff)
		}
	}
}

func compareColumns(target, current *dbtypes.DBTable) difftypes.TableDiff {
	tableDiff := difftypes.TableDiff{TableName: target.Name}

	currentCols := make(map[string]*dbtypes.DBColumn)
	for i := range current.Columns {
		currentCols[current.Columns[i].Name] = &current.Columns[i]
	}
	targetCols := make(map[string]*dbtypes.DBColumn)
	for i := range target.Columns {
		targetCols[target.Columns[i].Name] = &target.Columns[i]
	}

	for name := range targetCols {
		if _, ok := currentCols[name]; !ok {
			tableDiff.ColumnsAdded = append(tableDiff.ColumnsAdded, name)
		}
	}
	for name := range currentCols {
		if _, ok := targetCols[name]; !ok {
			tableDiff.ColumnsRemoved = append(tableDiff.ColumnsRemoved, name)
		}
	}
	sort.Strings(tableDiff.ColumnsAdded)
	sort.Strings(tableDiff.ColumnsRemoved)

	var commonNames []string
	for name := range targetCols {
		if _, ok := currentCols[name]; ok {
			commonNames = append(commonNames, name)
		}
	}
	sort.Strings(commonNames)

	for _, name := range commonNames {
		changes := compareColumn(targetCols[name], currentCols[name])
		if len(changes) > 0 {
			tableDiff.ColumnsModified = append(tableDiff.ColumnsModified, difftypes.ColumnDiff{
				ColumnName: name,
				Changes:    changes,
			})
		}
	}

	return tableDiff
}

// compareColumn diffs the structural properties of a single column.
// Changes are recorded as "current -> target".
func compareColumn(target, current *dbtypes.DBColumn) map[string]string {
	changes := make(map[string]string)

	if current.DataType != target.DataType {
		changes["type"] = fmt.Sprintf("%s -> %s", current.DataType, target.DataType)
	}
	if current.IsNullable != target.IsNullable {
		changes["nullable"] = fmt.Sprintf("%s -> %s", current.IsNullable, target.IsNullable)
	}
	if deref(current.ColumnDefault) != deref(target.ColumnDefault) {
		changes["default"] = fmt.Sprintf("%s -> %s", deref(current.ColumnDefault), deref(target.ColumnDefault))
	}
	if derefInt(current.CharacterMaxLength) != derefInt(target.CharacterMaxLength) {
		changes["max_length"] = fmt.Sprintf("%d -> %d", derefInt(current.CharacterMaxLength), derefInt(target.CharacterMaxLength))
	}
	if current.IsPrimaryKey != target.IsPrimaryKey {
		changes["primary_key"] = fmt.Sprintf("%t -> %t", current.IsPrimaryKey, target.IsPrimaryKey)
	}
	if current.IsUnique != target.IsUnique {
		changes["unique"] = fmt.Sprintf("%t -> %t", current.IsUnique, target.IsUnique)
	}

	return changes
}

func compareIndexes(target, current *dbtypes.DBSchema, diff *difftypes.SchemaDiff) {
	currentIdx := make(map[string]bool)
	for _, idx := range current.Indexes {
		currentIdx[indexKey(idx)] = true
	}
	targetIdx := make(map[string]bool)
	for _, idx := range target.Indexes {
		targetIdx[indexKey(idx)] = true
	}

	for key := range targetIdx {
		if !currentIdx[key] {
			diff.IndexesAdded = append(diff.IndexesAdded, key)
		}
	}
	for key := range currentIdx {
		if !targetIdx[key] {
			diff.IndexesRemoved = append(diff.IndexesRemoved, key)
		}
	}
	sort.Strings(diff.IndexesAdded)
	sort.Strings(diff.IndexesRemoved)
}

func compareConstraints(target, current *dbtypes.DBSchema, diff *difftypes.SchemaDiff) {
	currentCons := make(map[string]bool)
	for _, con := range current.Constraints {
		currentCons[constraintKey(con)] = true
	}
	targetCons := make(map[string]bool)
	for _, con := range target.Constraints {
		targetCons[constraintKey(con)] = true
	}

	for key := range targetCons {
		if !currentCons[key] {
			diff.ConstraintsAdded = append(diff.ConstraintsAdded, key)
		}
	}
	for key := range currentCons {
		if !targetCons[key] {
			diff.ConstraintsRemoved = append(diff.ConstraintsRemoved, key)
		}
	}
	sort.Strings(diff.ConstraintsAdded)
	sort.Strings(diff.ConstraintsRemoved)
}

// indexKey identifies an index by structure rather than name, so
// auto-named indexes compare equal across independent replays.
func indexKey(idx dbtypes.DBIndex) string {
	kind := "index"
	switch {
	case idx.IsPrimary:
		kind = "primary"
	case idx.IsUnique:
		kind = "unique"
	}
	cols := make([]string, len(idx.Columns))
	copy(cols, idx.Columns)
	sort.Strings(cols)
	return fmt.Sprintf("%s(%s) %s", idx.TableName, strings.Join(cols, ","), kind)
}

// constraintKey identifies a constraint by structure: table, type,
// column and, for foreign keys, the referenced column and rules.
func constraintKey(con dbtypes.DBConstraint) string {
	key := fmt.Sprintf("%s %s(%s)", con.Type, con.TableName, con.ColumnName)
	if con.ForeignTable != nil && con.ForeignColumn != nil {
		key += fmt.Sprintf(" -> %s(%s)", *con.ForeignTable, *con.ForeignColumn)
	}
	if con.DeleteRule != nil {
		key += " on-delete=" + *con.DeleteRule
	}
	if con.UpdateRule != nil {
		key += " on-update=" + *con.UpdateRule
	}
	return key
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}
