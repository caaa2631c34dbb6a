package internal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lychee-technology/resultmap"
	"go.uber.org/zap"
)

// RowConsumer receives one tuple per row, one element per result builder.
type RowConsumer func(tuple []any) error

// ReadRows materializes every row of rows through mapping and closes rows.
func ReadRows(ctx context.Context, rows resultmap.Rows, mapping *resultmap.ResultSetMapping, consumer RowConsumer) (int64, error) {
	if rows == nil || mapping == nil {
		return 0, resultmap.NewInvalidArgumentError("rows and mapping are required")
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return 0, resultmap.NewRowReadError("failed to read column labels", err)
	}
	index := resultmap.NewColumnIndex(columns)

	var count int64
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return count, resultmap.NewRowReadError(fmt.Sprintf("failed to scan row %d", count), err)
		}
		tuple, err := mapping.BuildRow(resultmap.RowValues{Index: index, Values: values})
		if err != nil {
			return count, err
		}
		if consumer != nil {
			if err := consumer(tuple); err != nil {
				return count, err
			}
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return count, resultmap.NewRowReadError("error iterating rows", err)
	}
	return count, nil
}

// pgxQuerier is satisfied by *pgxpool.Pool, *pgx.Conn and pgxmock pools.
type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PgxRowSource runs queries through pgx.
type PgxRowSource struct {
	pool pgxQuerier
}

func NewPgxRowSource(pool pgxQuerier) *PgxRowSource {
	return &PgxRowSource{pool: pool}
}

func (s *PgxRowSource) QueryRows(ctx context.Context, query string, args ...any) (resultmap.Rows, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &pgxRows{rows: rows}, nil
}

// pgxRows adapts pgx.Rows to resultmap.Rows.
type pgxRows struct {
	rows pgx.Rows
}

func (r *pgxRows) Columns() ([]string, error) {
	fields := r.rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}
	return columns, nil
}

func (r *pgxRows) Next() bool { return r.rows.Next() }

// Scan fills *any destinations with the decoded row values and defers to pgx otherwise.
func (r *pgxRows) Scan(dest ...any) error {
	targets := make([]*any, len(dest))
	for i, d := range dest {
		p, ok := d.(*any)
		if !ok {
			return r.rows.Scan(dest...)
		}
		targets[i] = p
	}
	values, err := r.rows.Values()
	if err != nil {
		return err
	}
	if len(values) != len(targets) {
		return fmt.Errorf("row has %d values, %d destinations given", len(values), len(targets))
	}
	for i, p := range targets {
		*p = values[i]
	}
	return nil
}

func (r *pgxRows) Close() error {
	r.rows.Close()
	return nil
}

func (r *pgxRows) Err() error { return r.rows.Err() }

// sqlQuerier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type sqlQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// SQLRowSource runs queries through database/sql (lib/pq, sqlite3, duckdb, sqlmock).
type SQLRowSource struct {
	db sqlQuerier
}

func NewSQLRowSource(db sqlQuerier) *SQLRowSource {
	return &SQLRowSource{db: db}
}

func (s *SQLRowSource) QueryRows(ctx context.Context, query string, args ...any) (resultmap.Rows, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		zap.S().Debugw("query failed", "error", err)
		return nil, err
	}
	return rows, nil
}
