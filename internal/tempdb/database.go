// Package tempdb manages the lifetime of the temporary views and tables that
// back composed queries on a single engine connection.
//
// Every composed query becomes a temporary object. Releasing the last handle
// on one queues its DROP, but the engine serializes DDL against every open
// statement on the connection, so queued drops only run once no RowCursor is
// open. They then run back to back in the order they were queued.
//
//	db := tempdb.Open(conn)
//	defer db.Close(ctx)
//
//	people, _ := db.LoadValues(ctx, []string{"id", "name"}, rows)
//	adults, _ := people.View(ctx, "SELECT * FROM _ WHERE age >= 18")
//	for row, err := range adults.Rows(ctx) {
//	    ...
//	}
//	adults.Release(ctx)
//
// Handles that are dropped without Release are released by a runtime
// cleanup once the garbage collector finds them unreachable.
package tempdb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/zeebo/xxh3"

	"sqlview/internal/engine"
	"sqlview/internal/metrics"
)

// Database owns one engine connection and every temporary object created on
// it. All methods are safe for concurrent use; they are serialized by one
// mutex.
type Database struct {
	mu            sync.Mutex
	conn          engine.Conn
	dialect       engine.Dialect
	log           logrus.FieldLogger
	job           string
	progressEvery int

	names   nameAllocator
	pending dropQueue
	cursors cursorRegistry
	closed  bool
}

// Open wraps conn. The Database takes ownership of conn and closes it in
// Close.
func Open(conn engine.Conn, opts ...Option) *Database {
	db := &Database{
		conn:          conn,
		dialect:       conn.Dialect(),
		log:           defaultLogger(),
		job:           "sqlview",
		progressEvery: 100000,
		names:         nameAllocator{prefix: DefaultNamePrefix},
	}
	for _, o := range opts {
		o(db)
	}
	return db
}

// Dialect returns the engine dialect.
func (db *Database) Dialect() engine.Dialect { return db.dialect }

// Query creates a temporary object of kind from selectStmt and returns a
// handle on it. Bindings are exposed to selectStmt through a WITH clause
// that Query writes; selectStmt must not start with its own.
func (db *Database) Query(ctx context.Context, selectStmt string, kind engine.ObjectKind, opts ...QueryOption) (*Table, error) {
	var o queryOptions
	for _, opt := range opts {
		opt(&o)
	}
	return db.query(ctx, selectStmt, kind, o)
}

func (db *Database) query(ctx context.Context, selectStmt string, kind engine.ObjectKind, o queryOptions) (t *Table, err error) {
	start := time.Now()
	defer func() { metrics.RecordStep(db.job, "query", err, time.Since(start)) }()

	if strings.TrimSpace(selectStmt) == "" {
		return nil, fmt.Errorf("%w: empty select statement", ErrUsage)
	}
	if startsWithWith(selectStmt) {
		return nil, ErrWithClause
	}
	if !kind.Valid() || !db.dialect.Supports(kind) {
		return nil, fmt.Errorf("%w: temporary %s on %s", ErrKind, kind, db.dialect.Name())
	}
	if kind == engine.View && len(o.params) > 0 {
		return nil, ErrViewParams
	}

	for _, b := range o.bindings {
		if b.name == "_" {
			return nil, fmt.Errorf("%w: %q is reserved for the receiver", ErrBinding, b.name)
		}
	}
	binds := o.bindings
	if o.self != nil {
		binds = append([]binding{{"_", o.self}}, o.bindings...)
	}
	if err := validateBindings(binds); err != nil {
		return nil, err
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil, ErrClosed
	}

	deps := make([]*tableState, 0, len(binds))
	for _, b := range binds {
		st, err := db.bindingState(b)
		if err != nil {
			return nil, err
		}
		deps = append(deps, st)
	}

	name := db.dialect.TempName(db.names.next())
	ident := db.dialect.QuoteIdent(name)
	with := strings.Join(lo.Map(binds, func(b binding, i int) string {
		return fmt.Sprintf("%s AS (SELECT * FROM %s)", b.name, deps[i].ident)
	}), ", ")

	stmt, err := db.dialect.CreateAs(kind, ident, with, selectStmt)
	if err != nil {
		return nil, fmt.Errorf("tempdb: %w", err)
	}
	st := &tableState{
		db:          db,
		name:        name,
		ident:       ident,
		kind:        kind,
		temporary:   true,
		stmt:        stmt,
		fingerprint: xxh3.HashString(stmt),
		bindings:    lo.Map(binds, func(b binding, _ int) string { return b.name }),
		refs:        1,
	}
	log := db.log.WithFields(st.fields())
	if err := db.conn.Exec(ctx, stmt, o.params...); err != nil {
		log.WithError(err).Debug("create failed")
		return nil, fmt.Errorf("tempdb: create %s: %w", strings.ToLower(string(kind)), err)
	}
	log.Debug("created")
	metrics.RecordObject(db.job, string(kind), "created")

	// A view resolves its sources each time it is read, so it keeps them
	// alive. A table copied the rows at creation.
	if kind == engine.View {
		for _, d := range deps {
			d.refs++
		}
		st.deps = deps
	}
	return newTable(st), nil
}

func validateBindings(binds []binding) error {
	if dup := lo.FindDuplicates(lo.Map(binds, func(b binding, _ int) string { return strings.ToLower(b.name) })); len(dup) > 0 {
		return fmt.Errorf("%w: duplicate binding name %q", ErrBinding, dup[0])
	}
	for _, b := range binds {
		if !identRe.MatchString(b.name) {
			return fmt.Errorf("%w: binding name %q is not a plain identifier", ErrBinding, b.name)
		}
		if b.table == nil {
			return fmt.Errorf("%w: binding %q has a nil table", ErrBinding, b.name)
		}
	}
	return nil
}

// bindingState resolves a binding to its live state. Caller holds db.mu.
func (db *Database) bindingState(b binding) (*tableState, error) {
	st := b.table.state()
	if st == nil {
		return nil, fmt.Errorf("%w: binding %q", ErrReleased, b.name)
	}
	if st.db != db {
		return nil, fmt.Errorf("%w: binding %q", ErrForeignTable, b.name)
	}
	return st, nil
}

// CreateFunction registers a scalar SQL function on the connection.
func (db *Database) CreateFunction(name string, arity int, fn engine.ScalarFunc) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	if err := db.conn.CreateFunction(name, arity, fn); err != nil {
		return fmt.Errorf("tempdb: create function %s: %w", name, err)
	}
	db.log.WithFields(logrus.Fields{"function": name, "arity": arity}).Debug("function registered")
	return nil
}

// Collect runs queued drops if no cursor is open. It is called automatically
// whenever a drop is queued or a cursor closes.
func (db *Database) Collect(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.collectLocked(ctx)
}

// collectLocked prunes closed cursors and, when none remain open, executes
// queued drops in FIFO order. It stops at the first failure. Caller holds
// db.mu.
func (db *Database) collectLocked(ctx context.Context) (err error) {
	if db.pending.len() == 0 || db.closed {
		return nil
	}
	if open := db.cursors.prune(); open > 0 {
		db.log.WithFields(logrus.Fields{"pending": db.pending.len(), "open_cursors": open}).Debug("drops deferred")
		return nil
	}

	start := time.Now()
	defer func() { metrics.RecordStep(db.job, "collect", err, time.Since(start)) }()

	// Drops must not be abandoned half-way because the caller's context
	// ended; the object would leak for the rest of the session.
	ctx = context.WithoutCancel(ctx)
	flushed := 0
	for db.pending.len() > 0 {
		d := db.pending.peek()
		if err := db.conn.Exec(ctx, d.stmt); err != nil {
			metrics.RecordDrop(db.job, string(d.kind), err)
			derr := &DropError{Stmt: d.stmt, Pending: db.pending.len(), Err: err}
			db.log.WithError(err).WithFields(logrus.Fields{
				"stmt":    d.stmt,
				"pending": db.pending.len(),
			}).Error("deferred drop failed")
			return derr
		}
		metrics.RecordDrop(db.job, string(d.kind), nil)
		db.pending.pop()
		flushed++
	}
	db.log.WithField("dropped", flushed).Debug("pending drops flushed")
	return nil
}

// scheduleDropLocked queues the drop for st and releases what st kept alive.
// Caller holds db.mu.
func (db *Database) scheduleDropLocked(st *tableState) {
	if st.temporary && !db.closed {
		stmt := db.dialect.Drop(st.kind, st.ident, true)
		db.pending.push(pendingDrop{stmt: stmt, name: st.name, kind: st.kind})
		metrics.RecordObject(db.job, string(st.kind), "queued")
		db.log.WithFields(st.fields()).Debug("drop queued")
	}
	for _, d := range st.deps {
		d.releaseLocked()
	}
	st.deps = nil
}

// Pending returns the queued DROP statements in execution order.
func (db *Database) Pending() []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.pending.stmts()
}

// OpenCursors returns how many cursors are still open.
func (db *Database) OpenCursors() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.cursors.prune()
}

// Close closes every open cursor, flushes queued drops and closes the
// connection. Objects still referenced are left to the end of the session.
// Close is idempotent.
func (db *Database) Close(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}

	var errs []error
	for _, c := range db.cursors.active() {
		errs = append(errs, c.finishLocked())
	}
	errs = append(errs, db.collectLocked(ctx))
	db.closed = true
	if err := db.conn.Close(); err != nil {
		errs = append(errs, fmt.Errorf("tempdb: close connection: %w", err))
	}
	db.log.WithField("pending", db.pending.len()).Debug("database closed")
	return errors.Join(errs...)
}
