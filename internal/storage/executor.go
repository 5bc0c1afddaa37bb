package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/observability"
)

// Executor runs generated read-only queries. Each call checks out a single
// connection, runs exactly one statement and releases the connection.
type Executor struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewExecutor creates an executor over an open store.
func NewExecutor(store *Store, logger *observability.Logger) *Executor {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Executor{db: store.DB(), logger: logger.WithComponent("executor")}
}

// Run executes query with bound args. On failure it returns an empty table
// together with the error so callers can still render a no-data report.
func (e *Executor) Run(ctx context.Context, query string, args ...interface{}) (*ResultTable, error) {
	start := time.Now()
	log := e.logger.WithContext(ctx)

	conn, err := e.db.Conn(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to acquire connection")
		return EmptyTable(), fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	table, err := scanTable(ctx, conn, query, args)
	if err != nil {
		log.Error().Err(err).Str("sql", query).Int("args", len(args)).Msg("Query failed")
		return EmptyTable(), err
	}

	log.Debug().
		Int("rows", table.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("Query executed")
	return table, nil
}

func scanTable(ctx context.Context, db DB, query string, args []interface{}) (*ResultTable, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	table := &ResultTable{Columns: cols, Rows: [][]interface{}{}}
	for rows.Next() {
		raw := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make([]interface{}, len(cols))
		for i, v := range raw {
			row[i] = normalizeCell(v)
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return table, nil
}
