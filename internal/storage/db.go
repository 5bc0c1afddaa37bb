// Package storage provides read access to the campaign-metrics and funnel tables.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Common errors
var (
	ErrNotFound          = errors.New("record not found")
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Dialect selects placeholder syntax for generated queries.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Placeholder returns the bind marker for the n-th argument, starting at 1.
func (d Dialect) Placeholder(n int) string {
	if d == DialectPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// sqliteDriverName is go-sqlite3 with Unicode-aware UPPER/LOWER, so Cyrillic
// campaign names fold the same way they do on Postgres.
const sqliteDriverName = "sqlite3_insights"

func init() {
	sql.Register(sqliteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			if err := conn.RegisterFunc("upper", foldWith(strings.ToUpper), true); err != nil {
				return fmt.Errorf("register upper: %w", err)
			}
			if err := conn.RegisterFunc("lower", foldWith(strings.ToLower), true); err != nil {
				return fmt.Errorf("register lower: %w", err)
			}
			return nil
		},
	})
}

func foldWith(fold func(string) string) func(interface{}) interface{} {
	return func(v interface{}) interface{} {
		switch s := v.(type) {
		case string:
			return fold(s)
		case []byte:
			return fold(string(s))
		default:
			return v
		}
	}
}

// PoolOptions tunes the connection pool.
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store is an opened database plus the dialect its queries must use.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open opens a store for driver "sqlite" or "postgres".
func Open(driver, dsn string, opts PoolOptions) (*Store, error) {
	var (
		sqlDriver string
		dialect   Dialect
	)
	switch driver {
	case "sqlite", "sqlite3":
		sqlDriver, dialect = sqliteDriverName, DialectSQLite
	case "postgres", "postgresql":
		sqlDriver, dialect = "postgres", DialectPostgres
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	return &Store{db: db, dialect: dialect}, nil
}

// NewStore wraps an already opened database.
func NewStore(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// DB exposes the underlying pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect reports the placeholder dialect of the store.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the pool.
func (s *Store) Close() error {
	return s.db.Close()
}
