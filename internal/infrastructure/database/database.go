package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"           // Postgres driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Database configuration constants.
const (
	// msPerSecond converts seconds to milliseconds.
	msPerSecond = 1000

	// connectionTimeout is the timeout for verifying database connectivity.
	connectionTimeout = 5 * time.Second

	// defaultBusyTimeout is the SQLite lock wait in seconds.
	defaultBusyTimeout = 5
)

// Driver names as registered with database/sql.
const (
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// DB wraps a sql.DB connection for reading sensor history.
// It provides placeholder rebinding, health checks, and SQLite migrations.
type DB struct {
	*sql.DB
	driver string
	target string
}

// Config contains database connection options.
// These map to the store section of charts.yaml.
type Config struct {
	// Driver is mysql, sqlite3 or postgres.
	Driver string

	// Socket is a MySQL unix socket; it wins over Host/Port when set.
	Socket string

	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Path is the SQLite database file.
	Path string

	// ReadWrite opens SQLite read-write (needed for migrations).
	// Otherwise the file is opened read-only.
	ReadWrite bool

	// Location is the zone MySQL DATETIME values are interpreted in.
	Location *time.Location
}

// Open creates a new database connection with the specified configuration.
//
// It performs the following setup:
//  1. Builds the driver-specific DSN
//  2. Opens a small connection pool (the tool runs a handful of queries)
//  3. Verifies the connection with a ping
//
// Parameters:
//   - ctx: Context for the connectivity check
//   - cfg: Database configuration
//
// Returns:
//   - *DB: Connected database wrapper
//   - error: ErrUnsupportedDriver, or if connection fails
func Open(ctx context.Context, cfg Config) (*DB, error) {
	dsn, target, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	db := &DB{
		DB:     sqlDB,
		driver: cfg.Driver,
		target: target,
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		sqlDB.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, target, err)
	}

	return db, nil
}

// buildDSN returns the DSN and a password-free description of the target
// suitable for logs.
func buildDSN(cfg Config) (dsn, target string, err error) {
	switch cfg.Driver {
	case DriverMySQL:
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.DBName = cfg.Name
		mc.ParseTime = true
		mc.Loc = cfg.Location
		if mc.Loc == nil {
			mc.Loc = time.Local
		}
		if cfg.Socket != "" {
			mc.Net = "unix"
			mc.Addr = cfg.Socket
		} else {
			port := cfg.Port
			if port == 0 {
				port = 3306
			}
			mc.Net = "tcp"
			mc.Addr = cfg.Host + ":" + strconv.Itoa(port)
		}
		return mc.FormatDSN(), fmt.Sprintf("mysql://%s/%s", mc.Addr, cfg.Name), nil

	case DriverSQLite:
		if cfg.Path == "" {
			return "", "", fmt.Errorf("sqlite3: path is required")
		}
		// See: https://github.com/mattn/go-sqlite3#connection-string
		dsn := fmt.Sprintf("file:%s?_busy_timeout=%d", cfg.Path, defaultBusyTimeout*msPerSecond)
		if !cfg.ReadWrite {
			dsn += "&mode=ro"
		}
		return dsn, "sqlite://" + cfg.Path, nil

	case DriverPostgres:
		port := cfg.Port
		if port == 0 {
			port = 5432
		}
		parts := []string{
			"host=" + quoteConnValue(cfg.Host),
			"port=" + strconv.Itoa(port),
			"dbname=" + quoteConnValue(cfg.Name),
			"sslmode=disable",
		}
		if cfg.User != "" {
			parts = append(parts, "user="+quoteConnValue(cfg.User))
		}
		if cfg.Password != "" {
			parts = append(parts, "password="+quoteConnValue(cfg.Password))
		}
		u := url.URL{Scheme: "postgres", Host: fmt.Sprintf("%s:%d", cfg.Host, port), Path: "/" + cfg.Name}
		return strings.Join(parts, " "), u.String(), nil

	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
}

// quoteConnValue quotes a libpq key/value connection string value.
func quoteConnValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// Close closes the database connection gracefully.
//
// Returns:
//   - error: If closing fails
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Driver returns the database/sql driver name.
func (db *DB) Driver() string {
	return db.driver
}

// Target returns a loggable description of the connection (no password).
func (db *DB) Target() string {
	return db.target
}

// HealthCheck verifies the database answers queries and, when table is
// not empty, that the readings table can be read. A missing table is
// reported here rather than on the first chart.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - table: Readings table, already validated as an identifier
//
// Returns:
//   - error: nil if healthy, ErrQueryFailed describing the issue otherwise
func (db *DB) HealthCheck(ctx context.Context, table string) error {
	query := "SELECT 1"
	if table != "" {
		query = "SELECT 1 FROM " + table + " LIMIT 1"
	}

	var result int
	err := db.QueryRowContext(ctx, query).Scan(&result)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: health check: %w", ErrQueryFailed, err)
	}
	return nil
}

// Rebind rewrites ? placeholders into the driver's native form.
// MySQL and SQLite use ? already; Postgres needs $1, $2, ...
func (db *DB) Rebind(query string) string {
	return Rebind(db.driver, query)
}

// Rebind rewrites ? placeholders for the given driver.
func Rebind(driver, query string) string {
	if driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// QueryContext executes a query that returns rows, rebinding placeholders
// and wrapping errors consistently.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - query: SQL query with ? placeholders
//   - args: Arguments for placeholders
//
// Returns:
//   - *sql.Rows: Rows to iterate (caller must Close)
//   - error: If the query fails
func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	rows, err := db.DB.QueryContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	return rows, nil
}

// ExecContext executes a query that doesn't return rows (INSERT, UPDATE, DELETE).
// Used by migrations and test fixtures; the chart pipeline itself never writes.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - query: SQL query with ? placeholders
//   - args: Arguments for placeholders
//
// Returns:
//   - sql.Result: Contains LastInsertId and RowsAffected
//   - error: If execution fails
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	result, err := db.DB.ExecContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	return result, nil
}

// BeginTx starts a new transaction with the given options.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - opts: Transaction options (nil for defaults)
//
// Returns:
//   - *sql.Tx: Transaction to execute queries on
//   - error: If starting transaction fails
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	tx, err := db.DB.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	return tx, nil
}
