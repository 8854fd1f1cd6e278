package tempdb

import (
	"context"
	"fmt"
	"iter"
	"runtime"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"sqlview/internal/engine"
)

// tableState is shared by every handle on one stored object. refs and deps
// are guarded by db.mu.
type tableState struct {
	db          *Database
	name        string
	ident       string
	kind        engine.ObjectKind
	temporary   bool
	stmt        string
	fingerprint uint64
	bindings    []string

	refs int
	deps []*tableState
}

func (st *tableState) releaseLocked() {
	if st.refs <= 0 {
		return
	}
	st.refs--
	if st.refs == 0 {
		st.db.scheduleDropLocked(st)
	}
}

func (st *tableState) fields() logrus.Fields {
	return logrus.Fields{
		"name":        st.name,
		"kind":        st.kind,
		"fingerprint": fmt.Sprintf("%016x", st.fingerprint),
	}
}

// handle is one owned reference. It is the cleanup argument, so it must not
// point back at its Table.
type handle struct {
	st       *tableState
	released atomic.Bool
}

func (h *handle) release(ctx context.Context) error {
	if !h.released.CompareAndSwap(false, true) {
		return nil
	}
	db := h.st.db
	db.mu.Lock()
	defer db.mu.Unlock()
	h.st.releaseLocked()
	return db.collectLocked(ctx)
}

// Table is a handle on a view or table in the Database. Each handle owns one
// reference; the object is dropped once every handle is released (and, for
// views, every view built on it is gone). Handles released neither
// explicitly nor by the garbage collector keep the object alive until Close.
type Table struct {
	h       *handle
	cleanup runtime.Cleanup
}

func newTable(st *tableState) *Table {
	h := &handle{st: st}
	t := &Table{h: h}
	t.cleanup = runtime.AddCleanup(t, func(h *handle) {
		// Failures are logged by collection; there is no caller to return to.
		_ = h.release(context.Background())
	}, h)
	return t
}

// state returns the shared state, or nil once this handle is released.
func (t *Table) state() *tableState {
	if t == nil || t.h.released.Load() {
		return nil
	}
	return t.h.st
}

// Name is the engine name of the object, unquoted.
func (t *Table) Name() string { return t.h.st.name }

// Ident is Name quoted for the engine, ready to splice into SQL.
func (t *Table) Ident() string { return t.h.st.ident }

func (t *Table) Kind() engine.ObjectKind { return t.h.st.kind }

// Temporary reports whether the object is dropped automatically.
func (t *Table) Temporary() bool { return t.h.st.temporary }

// Statement is the statement that created the object.
func (t *Table) Statement() string { return t.h.st.stmt }

// Fingerprint is the xxh3 hash of Statement.
func (t *Table) Fingerprint() uint64 { return t.h.st.fingerprint }

// Bindings lists the binding names the object was built with.
func (t *Table) Bindings() []string { return slices.Clone(t.h.st.bindings) }

func (t *Table) Database() *Database { return t.h.st.db }

func (t *Table) String() string { return t.h.st.name }

// View creates a temporary view from selectStmt, in which "_" names t.
func (t *Table) View(ctx context.Context, selectStmt string, opts ...QueryOption) (*Table, error) {
	o := queryOptions{self: t}
	for _, opt := range opts {
		opt(&o)
	}
	return t.h.st.db.query(ctx, selectStmt, engine.View, o)
}

// Table materializes selectStmt into a temporary table, in which "_" names
// t. An empty selectStmt copies t.
func (t *Table) Table(ctx context.Context, selectStmt string, opts ...QueryOption) (*Table, error) {
	if strings.TrimSpace(selectStmt) == "" {
		selectStmt = "SELECT * FROM _"
	}
	o := queryOptions{self: t}
	for _, opt := range opts {
		opt(&o)
	}
	return t.h.st.db.query(ctx, selectStmt, engine.Table, o)
}

// Iterate opens a cursor over every row of t.
func (t *Table) Iterate(ctx context.Context) (*RowCursor, error) {
	return t.h.st.db.newCursor(ctx, t)
}

// Rows iterates t with a cursor that is always closed when the loop ends.
// A failure is yielded once as the final element. When the loop breaks
// early nothing more can be yielded, so an error from the drops run on
// close is only logged; the failed drop stays queued and the next Collect
// or Release returns it.
func (t *Table) Rows(ctx context.Context) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		c, err := t.Iterate(ctx)
		if err != nil {
			yield(Row{}, err)
			return
		}
		defer c.Close()
		for c.Next() {
			if !yield(c.Row(), nil) {
				return
			}
		}
		if err := c.Err(); err != nil {
			yield(Row{}, err)
		}
	}
}

// Retain returns a new handle on the same object, which then stays alive
// until both handles are released.
func (t *Table) Retain() (*Table, error) {
	db := t.h.st.db
	db.mu.Lock()
	defer db.mu.Unlock()
	st := t.state()
	if st == nil {
		return nil, ErrReleased
	}
	st.refs++
	return newTable(st), nil
}

// Release gives up this handle. When it was the last reference on a
// temporary object, the object's DROP is queued and run as soon as no cursor
// is open. Release is idempotent; the returned error comes from running
// queued drops.
func (t *Table) Release(ctx context.Context) error {
	t.cleanup.Stop()
	return t.h.release(ctx)
}
