package tempdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"slices"

	"github.com/sirupsen/logrus"

	"sqlview/internal/engine"
	"sqlview/internal/metrics"
)

// cursorState is what the registry tracks. active and read are guarded by
// db.mu.
type cursorState struct {
	db     *Database
	id     uint64
	table  string
	sql    string
	rows   engine.Rows
	cols   []string
	active bool
	read   int64
}

// finishLocked closes the statement. Caller holds db.mu.
func (c *cursorState) finishLocked() error {
	if !c.active {
		return nil
	}
	c.active = false
	err := c.rows.Close()
	metrics.RecordRows(c.db.job, "read", c.read)
	c.db.log.WithFields(logrus.Fields{"cursor": c.id, "table": c.table, "rows": c.read}).Debug("cursor closed")
	if err != nil {
		return fmt.Errorf("tempdb: close cursor on %s: %w", c.table, err)
	}
	return nil
}

// RowCursor streams the rows of a Table. It holds a statement open on the
// connection, which blocks every queued drop, until it is exhausted or
// closed.
type RowCursor struct {
	st      *cursorState
	cleanup runtime.Cleanup
	row     Row
	err     error
	done    bool
	closed  bool
}

// newCursor opens "SELECT * FROM <t>" and registers the cursor.
func (db *Database) newCursor(ctx context.Context, t *Table) (*RowCursor, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil, ErrClosed
	}
	st := t.state()
	if st == nil {
		return nil, ErrReleased
	}
	if st.db != db {
		return nil, ErrForeignTable
	}

	q := "SELECT * FROM " + st.ident
	rows, err := db.conn.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("tempdb: iterate %s: %w", st.name, err)
	}
	cs := &cursorState{
		db:     db,
		table:  st.name,
		sql:    q,
		rows:   rows,
		cols:   rows.Columns(),
		active: true,
	}
	db.cursors.add(cs)
	db.log.WithFields(logrus.Fields{"cursor": cs.id, "table": st.name}).Debug("cursor opened")

	c := &RowCursor{st: cs}
	c.cleanup = runtime.AddCleanup(c, func(cs *cursorState) {
		cs.db.mu.Lock()
		defer cs.db.mu.Unlock()
		_ = cs.finishLocked()
		_ = cs.db.collectLocked(context.Background())
	}, cs)
	return c, nil
}

// Next advances to the next row. It returns false once the rows are
// exhausted, on error, or after Close; reaching the end closes the cursor.
func (c *RowCursor) Next() bool {
	if c.done {
		return false
	}
	db := c.st.db
	db.mu.Lock()
	defer db.mu.Unlock()

	if !c.st.active {
		// Closed underneath us by Database.Close.
		c.done, c.row = true, Row{}
		if db.closed {
			c.err = ErrClosed
		}
		return false
	}

	dest := make([]any, len(c.st.cols))
	err := c.st.rows.Next(dest)
	if err == nil {
		c.st.read++
		c.row = Row{cols: c.st.cols, vals: dest}
		return true
	}
	if !errors.Is(err, io.EOF) {
		c.err = fmt.Errorf("tempdb: read %s: %w", c.st.table, err)
	}
	c.done, c.closed, c.row = true, true, Row{}
	c.cleanup.Stop()
	c.err = errors.Join(c.err, c.st.finishLocked(), db.collectLocked(context.Background()))
	return false
}

// Row returns the current row. It is valid after Next returned true.
func (c *RowCursor) Row() Row { return c.row }

// Err returns the read error, or the error from drops run when the cursor
// reached its end.
func (c *RowCursor) Err() error { return c.err }

// Close ends the cursor early and runs any drops it was holding back. It is
// idempotent and a no-op after natural exhaustion.
func (c *RowCursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed, c.done, c.row = true, true, Row{}
	c.cleanup.Stop()
	db := c.st.db
	db.mu.Lock()
	defer db.mu.Unlock()
	return errors.Join(c.st.finishLocked(), db.collectLocked(context.Background()))
}

// Columns returns the result column names.
func (c *RowCursor) Columns() []string { return slices.Clone(c.st.cols) }

// SQL is the statement the cursor was opened with.
func (c *RowCursor) SQL() string { return c.st.sql }

// Active reports whether the cursor still holds its statement open.
func (c *RowCursor) Active() bool {
	c.st.db.mu.Lock()
	defer c.st.db.mu.Unlock()
	return c.st.active
}
