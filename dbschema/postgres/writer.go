package postgres

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/quillhq/stratum/config"
)

// Writer executes DDL against PostgreSQL databases. It supports an
// optional transaction and a dry-run mode in which statements are
// logged but not executed.
type Writer struct {
	db     *sql.DB
	tx     *sql.Tx
	dryRun bool
}

// NewWriter creates a new PostgreSQL schema writer
func NewWriter(db *sql.DB) *Writer {
	return &Writer{db: db}
}

// ExecuteSQL executes a statement, inside the current transaction if
// one is open. In dry-run mode the statement is logged and skipped.
func (w *Writer) ExecuteSQL(query string) error {
	if w.dryRun {
		slog.Info("Dry run", "sql", query)
		return nil
	}

	var err error
	if w.tx != nil {
		_, err = w.tx.Exec(query)
	} else {
		_, err = w.db.Exec(query)
	}
	if err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// BeginTransaction starts a transaction. Nested transactions are an
// error.
func (w *Writer) BeginTransaction() error {
	if w.dryRun {
		return nil
	}
	if w.tx != nil {
		return fmt.Errorf("transaction already in progress")
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	w.tx = tx
	return nil
}

// CommitTransaction commits the current transaction
func (w *Writer) CommitTransaction() error {
	if w.dryRun {
		return nil
	}
	if w.tx == nil {
		return fmt.Errorf("no transaction in progress")
	}

	err := w.tx.Commit()
	w.tx = nil
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RollbackTransaction rolls back the current transaction
func (w *Writer) RollbackTransaction() error {
	if w.dryRun {
		return nil
	}
	if w.tx == nil {
		return fmt.Errorf("no transaction in progress")
	}

	err := w.tx.Rollback()
	w.tx = nil
	if err != nil {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// DropAllTables drops every table in the public schema, including the
// migration ledger. Destructive; used to reset scratch databases
// before a replay.
func (w *Writer) DropAllTables() error {
	rows, err := w.db.Query(`
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'`)
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate tables: %w", err)
	}

	for _, table := range tables {
		stmt := fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", pq.QuoteIdentifier(table))
		if err := w.ExecuteSQL(stmt); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}

	// The ledger may live outside the listed schema on some setups.
	return w.ExecuteSQL(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", pq.QuoteIdentifier(config.LedgerTable)))
}

// SetDryRun toggles dry-run mode
func (w *Writer) SetDryRun(dryRun bool) {
	w.dryRun = dryRun
}

// IsDryRun reports whether dry-run mode is enabled
func (w *Writer) IsDryRun() bool {
	return w.dryRun
}
