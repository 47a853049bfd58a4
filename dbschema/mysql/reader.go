// Package mysql implements schema introspection and DDL execution for
// MySQL databases.
package mysql

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/quillhq/stratum/config"
	"github.com/quillhq/stratum/dbschema/types"
)

// Reader reads schema from MySQL databases
type Reader struct {
	db     *sql.DB
	schema string
}

// NewReader creates a new MySQL schema reader. The schema is the
// database name.
func NewReader(db *sql.DB, schema string) *Reader {
	return &Reader{
		db:     db,
		schema: schema,
	}
}

// ReadSchema reads the complete structural schema: tables with their
// columns, indexes and constraints. The migration ledger table is
// excluded so that replayed schemas compare clean.
func (r *Reader) ReadSchema() (*types.DBSchema, error) {
	schema := &types.DBSchema{}

	tables, err := r.readTables()
	if err != nil {
		return nil, fmt.Errorf("failed to read tables: %w", err)
	}
	schema.Tables = tables

	indexes, err := r.readIndexes()
	if err != nil {
		return nil, fmt.Errorf("failed to read indexes: %w", err)
	}
	schema.Indexes = indexes

	constraints, err := r.readConstraints()
	if err != nil {
		return nil, fmt.Errorf("failed to read constraints: %w", err)
	}
	schema.Constraints = constraints

	return schema, nil
}

func (r *Reader) readTables() ([]types.DBTable, error) {
	tablesQuery := `
		SELECT table_name, table_type, COALESCE(table_comment, '')
		FROM information_schema.tables
		WHERE table_schema = ? AND table_name <> ?
		ORDER BY table_name`

	rows, err := r.db.Query(tablesQuery, r.schema, config.LedgerTable)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	var tables []types.DBTable
	for rows.Next() {
		var table types.DBTable
		if err := rows.Scan(&table.Name, &table.Type, &table.Comment); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}

		columns, err := r.readColumns(table.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to read columns for table %s: %w", table.Name, err)
		}
		table.Columns = columns

		tables = append(tables, table)
	}

	return tables, rows.Err()
}

func (r *Reader) readColumns(tableName string) ([]types.DBColumn, error) {
	columnsQuery := `
		SELECT
			column_name,
			data_type,
			is_nullable,
			column_default,
			character_maximum_length,
			numeric_precision,
			numeric_scale,
			ordinal_position,
			column_key,
			extra
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position`

	rows, err := r.db.Query(columnsQuery, r.schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	var columns []types.DBColumn
	for rows.Next() {
		var col types.DBColumn
		var columnKey, extra string
		err := rows.Scan(
			&col.Name,
			&col.DataType,
			&col.IsNullable,
			&col.ColumnDefault,
			&col.CharacterMaxLength,
			&col.NumericPrecision,
			&col.NumericScale,
			&col.OrdinalPosition,
			&columnKey,
			&extra,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}

		col.IsPrimaryKey = columnKey == "PRI"
		col.IsUnique = columnKey == "UNI"
		col.IsAutoIncrement = strings.Contains(extra, "auto_increment")

		columns = append(columns, col)
	}

	return columns, rows.Err()
}

func (r *Reader) readIndexes() ([]types.DBIndex, error) {
	indexesQuery := `
		SELECT
			index_name,
			table_name,
			GROUP_CONCAT(column_name ORDER BY seq_in_index) AS columns,
			MAX(non_unique) = 0 AS is_unique
		FROM information_schema.statistics
		WHERE table_schema = ? AND table_name <> ?
		GROUP BY index_name, table_name
		ORDER BY table_name, index_name`

	rows, err := r.db.Query(indexesQuery, r.schema, config.LedgerTable)
	if err != nil {
		return nil, fmt.Errorf("failed to query indexes: %w", err)
	}
	defer rows.Close()

	var indexes []types.DBIndex
	for rows.Next() {
		var idx types.DBIndex
		var columns string
		if err := rows.Scan(&idx.Name, &idx.TableName, &columns, &idx.IsUnique); err != nil {
			return nil, fmt.Errorf("failed to scan index: %w", err)
		}
		idx.Columns = strings.Split(columns, ",")
		idx.IsPrimary = idx.Name == "PRIMARY"
		indexes = append(indexes, idx)
	}

	return indexes, rows.Err()
}

func (r *Reader) readConstraints() ([]types.DBConstraint, error) {
	constraintsQuery := `
		SELECT
			tc.constraint_name,
			tc.table_name,
			tc.constraint_type,
			COALESCE(kcu.column_name, ''),
			kcu.referenced_table_name,
			kcu.referenced_column_name,
			rc.delete_rule,
			rc.update_rule
		FROM information_schema.table_constraints tc
		LEFT JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
			AND tc.table_name = kcu.table_name
		LEFT JOIN information_schema.referential_constraints rc
			ON tc.constraint_name = rc.constraint_name
			AND tc.table_schema = rc.constraint_schema
		WHERE tc.table_schema = ? AND tc.table_name <> ?
		ORDER BY tc.table_name, tc.constraint_name, kcu.ordinal_position`

	rows, err := r.db.Query(constraintsQuery, r.schema, config.LedgerTable)
	if err != nil {
		return nil, fmt.Errorf("failed to query constraints: %w", err)
	}
	defer rows.Close()

	var constraints []types.DBConstraint
	for rows.Next() {
		var con types.DBConstraint
		err := rows.Scan(
			&con.Name,
			&con.TableName,
			&con.Type,
			&con.ColumnName,
			&con.ForeignTable,
			&con.ForeignColumn,
			&con.DeleteRule,
			&con.UpdateRule,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan constraint: %w", err)
		}
		constraints = append(constraints, con)
	}

	return constraints, rows.Err()
}
