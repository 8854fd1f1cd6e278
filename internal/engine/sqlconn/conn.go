// Package sqlconn adapts a database/sql driver to engine.Conn by pinning a
// single *sql.Conn for the lifetime of the handle. Temporary objects are
// session-scoped, so every statement must travel over that one session.
package sqlconn

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"sync"
	"time"

	"sqlview/internal/engine"
)

// Conn is an engine.Conn over one pinned database/sql session.
type Conn struct {
	prefix  string
	dialect engine.Dialect

	mu     sync.Mutex
	db     *sql.DB
	conn   *sql.Conn
	closed bool

	// Bulk, when set, replaces the generic prepared-INSERT loader. It is
	// handed the raw driver connection via (*sql.Conn).Raw.
	Bulk func(ctx context.Context, c *sql.Conn, table string, columns []string, rows iter.Seq2[[]any, error]) (int64, error)
}

// Open opens driverName/dsn, restricts the pool to one connection and pins
// it. prefix is used for error messages ("sqlite", "mysql", ...).
func Open(ctx context.Context, prefix, driverName, dsn string, d engine.Dialect) (*Conn, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%s: DSN must not be empty", prefix)
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", prefix, err)
	}
	c, err := Pin(ctx, prefix, db, d)
	if err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// Pin takes ownership of db and pins one session from it.
func Pin(ctx context.Context, prefix string, db *sql.DB, d engine.Dialect) (*Conn, error) {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	conn, err := db.Conn(pingCtx)
	if err != nil {
		return nil, fmt.Errorf("%s: connect: %w", prefix, err)
	}
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: ping: %w", prefix, err)
	}
	return &Conn{prefix: prefix, dialect: d, db: db, conn: conn}, nil
}

func (c *Conn) Dialect() engine.Dialect { return c.dialect }

func (c *Conn) session() (*sql.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, engine.ErrConnClosed
	}
	return c.conn, nil
}

func (c *Conn) Exec(ctx context.Context, query string, args ...any) error {
	conn, err := c.session()
	if err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: exec: %w", c.prefix, err)
	}
	return nil
}

func (c *Conn) Query(ctx context.Context, query string, args ...any) (engine.Rows, error) {
	conn, err := c.session()
	if err != nil {
		return nil, err
	}
	rs, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", c.prefix, err)
	}
	cols, err := rs.Columns()
	if err != nil {
		rs.Close()
		return nil, fmt.Errorf("%s: columns: %w", c.prefix, err)
	}
	return &Rows{prefix: c.prefix, rows: rs, cols: cols}, nil
}

// BulkInsert loads rows with Bulk when set, otherwise with a prepared INSERT
// executed per row inside one transaction.
func (c *Conn) BulkInsert(ctx context.Context, table string, columns []string, rows iter.Seq2[[]any, error]) (int64, error) {
	conn, err := c.session()
	if err != nil {
		return 0, err
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("%s: bulk insert: columns must not be empty", c.prefix)
	}
	if c.Bulk != nil {
		return c.Bulk(ctx, conn, table, columns, rows)
	}

	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = c.dialect.QuoteIdent(col)
		placeholders[i] = c.dialect.Placeholder(i + 1)
	}
	stmtSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		c.dialect.QuoteIdent(table),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
	)

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: begin tx: %w", c.prefix, err)
	}
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("%s: prepare insert: %w", c.prefix, err)
	}
	defer stmt.Close()

	var inserted int64
	for row, err := range rows {
		if err != nil {
			_ = tx.Rollback()
			return inserted, fmt.Errorf("%s: bulk insert: %w", c.prefix, err)
		}
		if len(row) != len(columns) {
			_ = tx.Rollback()
			return inserted, fmt.Errorf("%s: bulk insert: row length %d != columns length %d", c.prefix, len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = tx.Rollback()
			return inserted, fmt.Errorf("%s: insert: %w", c.prefix, err)
		}
		inserted++
	}
	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("%s: commit: %w", c.prefix, err)
	}
	return inserted, nil
}

// CreateFunction is unsupported for generic database/sql engines.
func (c *Conn) CreateFunction(name string, _ int, _ engine.ScalarFunc) error {
	return fmt.Errorf("%s: create function %q: %w", c.prefix, name, engine.ErrUnsupported)
}

// Close releases the pinned session and the pool. It is idempotent.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return errors.Join(c.conn.Close(), c.db.Close())
}

// Rows adapts *sql.Rows to engine.Rows.
type Rows struct {
	prefix string
	rows   *sql.Rows
	cols   []string
	ptrs   []any
}

func (r *Rows) Columns() []string { return r.cols }

func (r *Rows) Next(dest []any) error {
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return fmt.Errorf("%s: rows: %w", r.prefix, err)
		}
		return io.EOF
	}
	if r.ptrs == nil {
		r.ptrs = make([]any, len(r.cols))
	}
	vals := make([]any, len(r.cols))
	for i := range vals {
		r.ptrs[i] = &vals[i]
	}
	if err := r.rows.Scan(r.ptrs...); err != nil {
		return fmt.Errorf("%s: scan: %w", r.prefix, err)
	}
	for i := range dest {
		if i < len(vals) {
			dest[i] = vals[i]
		}
	}
	return nil
}

// Close is idempotent; *sql.Rows.Close already is.
func (r *Rows) Close() error { return r.rows.Close() }

var _ engine.Conn = (*Conn)(nil)
