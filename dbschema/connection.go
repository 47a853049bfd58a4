// Package dbschema provides database connections for the stratum
// migration toolkit, together with dialect-specific schema readers and
// writers.
//
// A DatabaseConnection is created from a URL. The URL scheme selects
// the dialect: postgres:// (or postgresql://) uses the pgx stdlib
// driver, mysql:// uses go-sql-driver. The connection bundles a
// SchemaReader for introspection and a SchemaWriter for executing DDL
// within transactions.
package dbschema

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/jmoiron/sqlx"

	_ "github.com/go-sql-driver/mysql" // mysql driver
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"github.com/quillhq/stratum/dbschema/mysql"
	"github.com/quillhq/stratum/dbschema/postgres"
	"github.com/quillhq/stratum/dbschema/types"
)

// DatabaseConnection bundles a live database handle with its dialect
// reader and writer.
type DatabaseConnection struct {
	db     *sqlx.DB
	info   types.DBInfo
	reader types.SchemaReader
	writer types.SchemaWriter
}

// ConnectToDatabase opens a connection to the database identified by
// the URL and wires up the dialect-specific reader and writer. The
// connection is verified with a ping before being returned.
func ConnectToDatabase(databaseURL string) (*DatabaseConnection, error) {
	parsed, err := url.Parse(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	switch parsed.Scheme {
	case "postgres", "postgresql":
		return connectPostgres(databaseURL, parsed)
	case "mysql":
		return connectMySQL(databaseURL, parsed)
	default:
		return nil, fmt.Errorf("unsupported database scheme: %q", parsed.Scheme)
	}
}

func connectPostgres(databaseURL string, parsed *url.URL) (*DatabaseConnection, error) {
	// pgx pool parameters are not understood by database/sql; they are
	// only valid for pgxpool URLs.
	cleanURL := removePostgresPoolParams(databaseURL)

	db, err := sqlx.Connect("pgx", cleanURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	schema := parsed.Query().Get("search_path")
	if schema == "" {
		schema = "public"
	}

	conn := &DatabaseConnection{
		db: db,
		info: types.DBInfo{
			Dialect: "postgres",
			Schema:  schema,
			URL:     databaseURL,
		},
		reader: postgres.NewReader(db.DB, schema),
		writer: postgres.NewWriter(db.DB),
	}
	conn.readServerVersion("SELECT version()")
	return conn, nil
}

func connectMySQL(databaseURL string, parsed *url.URL) (*DatabaseConnection, error) {
	dsn, dbName, err := mysqlDSN(parsed)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mysql: %w", err)
	}

	conn := &DatabaseConnection{
		db: db,
		info: types.DBInfo{
			Dialect: "mysql",
			Schema:  dbName,
			URL:     databaseURL,
		},
		reader: mysql.NewReader(db.DB, dbName),
		writer: mysql.NewWriter(db.DB),
	}
	conn.readServerVersion("SELECT VERSION()")
	return conn, nil
}

func (c *DatabaseConnection) readServerVersion(query string) {
	var version string
	if err := c.db.QueryRow(query).Scan(&version); err == nil {
		c.info.Version = version
	}
}

// Reader returns the schema reader for this connection's dialect
func (c *DatabaseConnection) Reader() types.SchemaReader {
	return c.reader
}

// Writer returns the schema writer for this connection's dialect
func (c *DatabaseConnection) Writer() types.SchemaWriter {
	return c.writer
}

// Info returns connection metadata
func (c *DatabaseConnection) Info() types.DBInfo {
	return c.info
}

// DB returns the underlying sqlx handle for convenience queries
func (c *DatabaseConnection) DB() *sqlx.DB {
	return c.db
}

// Close closes the database connection
func (c *DatabaseConnection) Close() error {
	return c.db.Close()
}

// ExecContext executes a statement directly on the connection, outside
// any writer transaction.
func (c *DatabaseConnection) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.db.ExecContext(ctx, query, args...)
}

// QueryRowContext runs a single-row query on the connection
func (c *DatabaseConnection) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return c.db.QueryRowContext(ctx, query, args...)
}

// Query runs a multi-row query on the connection
func (c *DatabaseConnection) Query(query string, args ...any) (*sql.Rows, error) {
	return c.db.Query(query, args...)
}

// Exec executes a statement on the connection
func (c *DatabaseConnection) Exec(query string, args ...any) (sql.Result, error) {
	return c.db.Exec(query, args...)
}

// removePostgresPoolParams strips pgxpool-only query parameters
// (pool_max_conns, pool_min_conns) from a postgres URL so it can be
// passed to database/sql. Invalid URLs are returned unchanged.
func removePostgresPoolParams(databaseURL string) string {
	parsed, err := url.Parse(databaseURL)
	if err != nil {
		return databaseURL
	}

	query := parsed.Query()
	if _, hasMax := query["pool_max_conns"]; !hasMax {
		if _, hasMin := query["pool_min_conns"]; !hasMin {
			return databaseURL
		}
	}

	query.Del("pool_max_conns")
	query.Del("pool_min_conns")
	parsed.RawQuery = query.Encode()

	return parsed.String()
}

// mysqlDSN converts a mysql:// URL into the DSN format expected by
// go-sql-driver and returns it together with the database name.
func mysqlDSN(parsed *url.URL) (dsn, dbName string, err error) {
	dbName = strings.TrimPrefix(parsed.Path, "/")
	if dbName == "" {
		return "", "", fmt.Errorf("mysql URL is missing a database name")
	}

	host := parsed.Host
	if !strings.Contains(host, ":") {
		host += ":3306"
	}

	var creds string
	if parsed.User != nil {
		creds = parsed.User.Username()
		if password, ok := parsed.User.Password(); ok {
			creds += ":" + password
		}
		creds += "@"
	}

	dsn = fmt.Sprintf("%stcp(%s)/%s", creds, host, dbName)
	if parsed.RawQuery != "" {
		dsn += "?" + parsed.RawQuery
	}
	return dsn, dbName, nil
}
