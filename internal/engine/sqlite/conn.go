package sqlite

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"sqlview/internal/engine"
	"sqlview/internal/engine/sqlconn"
)

// Conn is a SQLite session. The underlying connection is opened on first use
// so that functions registered beforehand are visible to it.
type Conn struct {
	cfg     Config
	dialect Dialect

	mu     sync.Mutex
	sc     *sqlconn.Conn
	funcs  map[string]bool
	closed bool
}

// NewConn validates cfg and returns a Conn that connects lazily.
func NewConn(cfg Config) (*Conn, error) {
	if strings.TrimSpace(cfg.dsn()) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	return &Conn{cfg: cfg, dialect: NewDialect()}, nil
}

func (c *Conn) Dialect() engine.Dialect { return c.dialect }

func (c *Conn) session(ctx context.Context) (*sqlconn.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, engine.ErrConnClosed
	}
	if c.sc != nil {
		return c.sc, nil
	}
	// Snapshot before connecting: the driver wires functions at open time.
	funcs := slotNames()
	sc, err := sqlconn.Open(ctx, "sqlite", "sqlite", c.cfg.dsn(), c.dialect)
	if err != nil {
		return nil, err
	}
	if c.cfg.ForeignKeys {
		// Ignore errors; the pragma is best effort.
		_ = sc.Exec(ctx, "PRAGMA foreign_keys = ON")
	}
	c.sc, c.funcs = sc, funcs
	return sc, nil
}

func (c *Conn) Exec(ctx context.Context, query string, args ...any) error {
	sc, err := c.session(ctx)
	if err != nil {
		return err
	}
	return sc.Exec(ctx, query, args...)
}

func (c *Conn) Query(ctx context.Context, query string, args ...any) (engine.Rows, error) {
	sc, err := c.session(ctx)
	if err != nil {
		return nil, err
	}
	return sc.Query(ctx, query, args...)
}

func (c *Conn) BulkInsert(ctx context.Context, table string, columns []string, rows iter.Seq2[[]any, error]) (int64, error) {
	sc, err := c.session(ctx)
	if err != nil {
		return 0, err
	}
	return sc.BulkInsert(ctx, table, columns, rows)
}

// CreateFunction registers fn as a scalar SQL function. Names are global to
// the process; a later registration of the same name replaces the Go
// implementation for every SQLite Conn. A name first seen after this Conn
// connected cannot reach it and is reported as an error.
func (c *Conn) CreateFunction(name string, arity int, fn engine.ScalarFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return engine.ErrConnClosed
	}
	if _, err := bindFunction(name, arity, fn); err != nil {
		return err
	}
	if c.sc != nil && !c.funcs[strings.ToLower(strings.TrimSpace(name))] {
		return fmt.Errorf("sqlite: function %q registered after the connection opened: %w", name, engine.ErrUnsupported)
	}
	return nil
}

// Close is idempotent.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.sc == nil {
		return nil
	}
	return c.sc.Close()
}

var _ engine.Conn = (*Conn)(nil)
