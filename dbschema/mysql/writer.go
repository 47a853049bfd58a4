package mysql

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/quillhq/stratum/config"
)

// Writer executes DDL against MySQL databases.
//
// MySQL DDL is not transactional (each statement commits implicitly),
// so the transaction methods here only scope DML such as ledger
// updates. A failed DDL statement can still leave a partially applied
// migration behind; callers surface this in their error messages.
type Writer struct {
	db     *sql.DB
	tx     *sql.Tx
	dryRun bool
}

// NewWriter creates a new MySQL schema writer
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

// DropAllTables drops every table in the current database, including
// the migration ledger. Foreign key checks are suspended for the
// duration so drop order does not matter.
func (w *Writer) DropAllTables() error {
	rows, err := w.db.Query(`
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'`)
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

	if err := w.ExecuteSQL("SET FOREIGN_KEY_CHECKS = 0"); err != nil {
		return err
	}
	for _, table := range tables {
		stmt := fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdentifier(table))
		if err := w.ExecuteSQL(stmt); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	if err := w.ExecuteSQL(fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdentifier(config.LedgerTable))); err != nil {
		return err
	}
	return w.ExecuteSQL("SET FOREIGN_KEY_CHECKS = 1")
}

// SetDryRun toggles dry-run mode
func (w *Writer) SetDryRun(dryRun bool) {
	w.dryRun = dryRun
}

// IsDryRun reports whether dry-run mode is enabled
func (w *Writer) IsDryRun() bool {
	return w.dryRun
}

func quoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
