// Package postgres implements schema introspection and DDL execution
// for PostgreSQL databases.
package postgres

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/quillhq/stratum/config"
	"github.com/quillhq/stratum/dbschema/types"
)

// Reader reads schema from PostgreSQL databases
type Reader struct {
	db     *sql.DB
	schema string
}

// NewReader creates a new PostgreSQL schema reader. An empty schema
// defaults to "public".
func NewReader(db *sql.DB, schema string) *Reader {
	if schema == "" {
		schema = "public"
	}
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

	enhanceTablesWithConstraints(schema.Tables, schema.Constraints)
	enhanceTablesWithIndexes(schema.Tables, schema.Indexes)

	return schema, nil
}

func (r *Reader) readTables() ([]types.DBTable, error) {
	tablesQuery := `
		SELECT t.table_name, t.table_type,
		       COALESCE(obj_description(c.oid), '') AS table_comment
		FROM information_schema.tables t
		LEFT JOIN pg_class c ON c.relname = t.table_name
		LEFT JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE t.table_schema = $1 AND (n.nspname = $1 OR n.nspname IS NULL)
		AND t.table_name <> $2
		ORDER BY t.table_name`

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
			ordinal_position
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`

	rows, err := r.db.Query(columnsQuery, r.schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	var columns []types.DBColumn
	for rows.Next() {
		var col types.DBColumn
		err := rows.Scan(
			&col.Name,
			&col.DataType,
			&col.IsNullable,
			&col.ColumnDefault,
			&col.CharacterMaxLength,
			&col.NumericPrecision,
			&col.NumericScale,
			&col.OrdinalPosition,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}

		// SERIAL columns surface as a nextval() default.
		if col.ColumnDefault != nil {
			col.IsAutoIncrement = strings.Contains(*col.ColumnDefault, "nextval(") &&
				strings.Contains(*col.ColumnDefault, "_seq")
		}

		columns = append(columns, col)
	}

	return columns, rows.Err()
}

func (r *Reader) readIndexes() ([]types.DBIndex, error) {
	indexesQuery := `
		SELECT
			i.relname AS index_name,
			t.relname AS table_name,
			array_to_string(array_agg(a.attname ORDER BY x.ordinality), ',') AS columns,
			ix.indisunique,
			ix.indisprimary,
			pg_get_indexdef(ix.indexrelid) AS definition
		FROM pg_index ix
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		CROSS JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS x(attnum, ordinality)
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = x.attnum
		WHERE n.nspname = $1 AND t.relname <> $2
		GROUP BY i.relname, t.relname, ix.indisunique, ix.indisprimary, ix.indexrelid
		ORDER BY t.relname, i.relname`

	rows, err := r.db.Query(indexesQuery, r.schema, config.LedgerTable)
	if err != nil {
		return nil, fmt.Errorf("failed to query indexes: %w", err)
	}
	defer rows.Close()

	var indexes []types.DBIndex
	for rows.Next() {
		var idx types.DBIndex
		var columns string
		if err := rows.Scan(&idx.Name, &idx.TableName, &columns, &idx.IsUnique, &idx.IsPrimary, &idx.Definition); err != nil {
			return nil, fmt.Errorf("failed to scan index: %w", err)
		}
		idx.Columns = strings.Split(columns, ",")
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
			ccu.table_name AS foreign_table,
			ccu.column_name AS foreign_column,
			rc.delete_rule,
			rc.update_rule,
			cc.check_clause
		FROM information_schema.table_constraints tc
		LEFT JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		LEFT JOIN information_schema.referential_constraints rc
			ON tc.constraint_name = rc.constraint_name
			AND tc.table_schema = rc.constraint_schema
		LEFT JOIN information_schema.constraint_column_usage ccu
			ON rc.unique_constraint_name = ccu.constraint_name
			AND rc.unique_constraint_schema = ccu.constraint_schema
		LEFT JOIN information_schema.check_constraints cc
			ON tc.constraint_name = cc.constraint_name
			AND tc.table_schema = cc.constraint_schema
		WHERE tc.table_schema = $1 AND tc.table_name <> $2
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
			&con.CheckClause,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan constraint: %w", err)
		}
		constraints = append(constraints, con)
	}

	return constraints, rows.Err()
}

// enhanceTablesWithConstraints marks primary-key and unique columns
// based on the constraint list.
func enhanceTablesWithConstraints(tables []types.DBTable, constraints []types.DBConstraint) {
	for i := range tables {
		for _, con := range constraints {
			if con.TableName != tables[i].Name || con.ColumnName == "" {
				continue
			}
			col := tables[i].Column(con.ColumnName)
			if col == nil {
				continue
			}
			switch con.Type {
			case "PRIMARY KEY":
				col.IsPrimaryKey = true
			case "UNIQUE":
				col.IsUnique = true
			}
		}
	}
}

// enhanceTablesWithIndexes marks single-column unique indexes on their
// columns; multi-column unique indexes stay table-level.
func enhanceTablesWithIndexes(tables []types.DBTable, indexes []types.DBIndex) {
	for i := range tables {
		for _, idx := range indexes {
			if idx.TableName != tables[i].Name || !idx.IsUnique || len(idx.Columns) != 1 {
				continue
			}
			if col := tables[i].Column(idx.Columns[0]); col != nil {
				if idx.IsPrimary {
					col.IsPrimaryKey = true
				} else {
					col.IsUnique = true
				}
			}
		}
	}
}
