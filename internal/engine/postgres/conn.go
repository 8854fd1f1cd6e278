// Package postgres implements engine.Conn on pgx v5. A pool capped at one
// connection is created and that connection is acquired for the lifetime of
// the handle, so temporary objects stay visible to every statement.
//
// pgx does not multiplex a connection: while a result set is open any other
// statement fails with "conn busy". Cursors must therefore be drained or
// closed before the next statement.
package postgres

import (
	"context"
	"fmt"
	"io"
	"iter"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sqlview/internal/engine"
)

// Config holds Postgres connection settings.
type Config struct {
	// DSN is a libpq-style URL or keyword/value string.
	DSN string
}

// Conn is an engine.Conn over one acquired pgx connection.
type Conn struct {
	dialect Dialect

	mu     sync.Mutex
	pool   *pgxpool.Pool
	pc     *pgxpool.Conn
	closed bool
}

// NewConn connects and pins a single connection.
func NewConn(ctx context.Context, cfg Config) (*Conn, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres: DSN must not be empty")
	}
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	pcfg.MaxConns = 1
	pcfg.MinConns = 0

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	pc, err := pool.Acquire(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: acquire: %w", err)
	}
	return &Conn{dialect: NewDialect(), pool: pool, pc: pc}, nil
}

func (c *Conn) Dialect() engine.Dialect { return c.dialect }

func (c *Conn) conn() (*pgx.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, engine.ErrConnClosed
	}
	return c.pc.Conn(), nil
}

// execArgs switches to the simple protocol when arguments are present;
// utility statements such as CREATE TABLE AS cannot take server-side
// parameters.
func execArgs(args []any) []any {
	if len(args) == 0 {
		return nil
	}
	return append([]any{pgx.QueryExecModeSimpleProtocol}, args...)
}

func (c *Conn) Exec(ctx context.Context, query string, args ...any) error {
	conn, err := c.conn()
	if err != nil {
		return err
	}
	if _, err := conn.Exec(ctx, query, execArgs(args)...); err != nil {
		return fmt.Errorf("postgres: exec: %w", err)
	}
	return nil
}

func (c *Conn) Query(ctx context.Context, query string, args ...any) (engine.Rows, error) {
	conn, err := c.conn()
	if err != nil {
		return nil, err
	}
	rs, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query: %w", err)
	}
	fds := rs.FieldDescriptions()
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = fd.Name
	}
	return &rows{rows: rs, cols: cols}, nil
}

// BulkInsert streams rows through COPY FROM STDIN.
func (c *Conn) BulkInsert(ctx context.Context, table string, columns []string, src iter.Seq2[[]any, error]) (int64, error) {
	conn, err := c.conn()
	if err != nil {
		return 0, err
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("postgres: bulk insert: columns must not be empty")
	}
	next, stop := iter.Pull2(src)
	defer stop()

	n, err := conn.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromFunc(func() ([]any, error) {
		row, err, ok := next()
		if !ok {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row length %d != columns length %d", len(row), len(columns))
		}
		return row, nil
	}))
	if err != nil {
		return n, fmt.Errorf("postgres: copy into %s: %w", table, err)
	}
	return n, nil
}

// CreateFunction is unsupported: Go functions cannot run inside the server.
func (c *Conn) CreateFunction(name string, _ int, _ engine.ScalarFunc) error {
	return fmt.Errorf("postgres: create function %q: %w", name, engine.ErrUnsupported)
}

// Close releases the connection and the pool. It is idempotent.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.pc.Release()
	c.pool.Close()
	return nil
}

type rows struct {
	rows pgx.Rows
	cols []string
}

func (r *rows) Columns() []string { return r.cols }

func (r *rows) Next(dest []any) error {
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return fmt.Errorf("postgres: rows: %w", err)
		}
		return io.EOF
	}
	vals, err := r.rows.Values()
	if err != nil {
		return fmt.Errorf("postgres: values: %w", err)
	}
	copy(dest, vals)
	return nil
}

func (r *rows) Close() error {
	r.rows.Close()
	return nil
}

var _ engine.Conn = (*Conn)(nil)
