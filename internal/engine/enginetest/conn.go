// Package enginetest provides an in-memory engine.Conn for exercising the
// temporary-object lifecycle without a real database. It models the one
// engine property that matters: DDL is serialized connection-wide, so a
// DROP issued while any result set is open fails.
package enginetest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"regexp"
	"strings"
	"sync"

	"sqlview/internal/engine"
)

// ErrLocked is returned by Exec for a DROP issued while rows are open.
var ErrLocked = errors.New("enginetest: database table is locked")

var (
	createRe = regexp.MustCompile(`^CREATE (?:TEMPORARY )?(VIEW|TABLE) (\S+)`)
	dropRe   = regexp.MustCompile(`^DROP (VIEW|TABLE) (\S+)`)
	selectRe = regexp.MustCompile(`^SELECT \* FROM (\S+)$`)
)

// Conn records every statement it sees and keeps a set of live objects.
// Reads of "SELECT * FROM <name>" return the rows bulk-inserted into that
// name, or DefaultRows when none were.
type Conn struct {
	mu        sync.Mutex
	dialect   engine.Dialect
	log       []string
	objects   map[string]string
	data      map[string][][]any
	cols      map[string][]string
	open      int
	violation []string
	funcs     map[string]engine.ScalarFunc
	closed    bool

	// DefaultRows backs any query that does not read a loaded table.
	DefaultRows [][]any
	// FailExec, when set, is consulted before every Exec.
	FailExec func(query string) error
}

// New returns an empty Conn using the shared ANSI dialect.
func New() *Conn {
	return &Conn{
		dialect:     engine.ANSI{DialectName: "enginetest"},
		objects:     make(map[string]string),
		data:        make(map[string][][]any),
		cols:        make(map[string][]string),
		funcs:       make(map[string]engine.ScalarFunc),
		DefaultRows: [][]any{{int64(1)}, {int64(2)}},
	}
}

func (c *Conn) Dialect() engine.Dialect { return c.dialect }

func (c *Conn) Exec(_ context.Context, q string, _ ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return engine.ErrConnClosed
	}
	c.log = append(c.log, q)
	if c.FailExec != nil {
		if err := c.FailExec(q); err != nil {
			return err
		}
	}
	if m := dropRe.FindStringSubmatch(q); m != nil {
		if c.open > 0 {
			c.violation = append(c.violation, q)
			return fmt.Errorf("%w: %d statement(s) in progress", ErrLocked, c.open)
		}
		kind, ok := c.objects[m[2]]
		if !ok {
			return fmt.Errorf("enginetest: no such %s: %s", strings.ToLower(m[1]), m[2])
		}
		if kind != m[1] {
			return fmt.Errorf("enginetest: use DROP %s to delete %s %s", kind, strings.ToLower(kind), m[2])
		}
		delete(c.objects, m[2])
		delete(c.data, m[2])
		return nil
	}
	if m := createRe.FindStringSubmatch(q); m != nil {
		if _, exists := c.objects[m[2]]; exists {
			return fmt.Errorf("enginetest: %s already exists", m[2])
		}
		c.objects[m[2]] = m[1]
	}
	return nil
}

func (c *Conn) Query(_ context.Context, q string, _ ...any) (engine.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, engine.ErrConnClosed
	}
	c.log = append(c.log, q)

	data, cols := c.DefaultRows, []string{"n"}
	if m := selectRe.FindStringSubmatch(q); m != nil {
		if _, ok := c.objects[m[1]]; !ok {
			return nil, fmt.Errorf("enginetest: no such table: %s", m[1])
		}
		if d, ok := c.data[m[1]]; ok {
			data, cols = d, c.cols[m[1]]
		}
	}
	c.open++
	return &rows{conn: c, cols: cols, data: data}, nil
}

func (c *Conn) BulkInsert(_ context.Context, table string, columns []string, src iter.Seq2[[]any, error]) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	table = c.dialect.QuoteIdent(table)
	if _, ok := c.objects[table]; !ok {
		return 0, fmt.Errorf("enginetest: no such table: %s", table)
	}
	var n int64
	for row, err := range src {
		if err != nil {
			return n, err
		}
		if len(row) != len(columns) {
			return n, fmt.Errorf("enginetest: row has %d values, expected %d", len(row), len(columns))
		}
		c.data[table] = append(c.data[table], append([]any(nil), row...))
		n++
	}
	c.cols[table] = append([]string(nil), columns...)
	return n, nil
}

func (c *Conn) CreateFunction(name string, _ int, fn engine.ScalarFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.funcs[name] = fn
	return nil
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Statements returns a copy of every statement seen, in order.
func (c *Conn) Statements() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.log...)
}

// Drops returns the DROP statements seen, in order, including failed ones.
func (c *Conn) Drops() []string {
	var out []string
	for _, s := range c.Statements() {
		if strings.HasPrefix(s, "DROP ") {
			out = append(out, s)
		}
	}
	return out
}

// Objects returns the names of live objects.
func (c *Conn) Objects() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.objects))
	for name := range c.objects {
		out = append(out, name)
	}
	return out
}

// Exists reports whether name is a live object.
func (c *Conn) Exists(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.objects[name]
	return ok
}

// OpenRows reports how many result sets are still open.
func (c *Conn) OpenRows() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Violations returns DROP statements rejected because rows were open.
func (c *Conn) Violations() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.violation...)
}

// Func returns a registered scalar function.
func (c *Conn) Func(name string) (engine.ScalarFunc, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn, ok := c.funcs[name]
	return fn, ok
}

type rows struct {
	conn   *Conn
	cols   []string
	data   [][]any
	pos    int
	closed bool
}

func (r *rows) Columns() []string { return r.cols }

func (r *rows) Next(dest []any) error {
	if r.closed {
		return io.EOF
	}
	if r.pos >= len(r.data) {
		return io.EOF
	}
	copy(dest, r.data[r.pos])
	r.pos++
	return nil
}

func (r *rows) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.conn.mu.Lock()
	r.conn.open--
	r.conn.mu.Unlock()
	return nil
}

var _ engine.Conn = (*Conn)(nil)
