// Package engine defines the narrow contract between the temporary-object
// lifecycle manager and the relational engine it drives.
//
// A Conn is exactly one physical session against the engine. Temporary views
// and tables are session-scoped, and the engine serializes DDL against every
// live statement on the session, so implementations must never hand out more
// than one underlying connection.
//
// Concrete engines live in subpackages (sqlite, postgres, mysql, mssql) and
// register themselves with Register from init. Importing
// sqlview/internal/engine/all wires every built-in backend.
package engine

import (
	"context"
	"errors"
	"iter"

	"sqlview/internal/ddl"
)

// ObjectKind is the kind of schema object a composed query materializes as.
type ObjectKind string

const (
	View  ObjectKind = "VIEW"
	Table ObjectKind = "TABLE"
)

// Valid reports whether k is one of the known kinds.
func (k ObjectKind) Valid() bool { return k == View || k == Table }

var (
	// ErrUnsupported is returned for operations an engine cannot perform,
	// such as registering Go scalar functions on a server engine.
	ErrUnsupported = errors.New("engine: unsupported operation")

	// ErrConnClosed is returned by a Conn used after Close.
	ErrConnClosed = errors.New("engine: connection closed")
)

// ScalarFunc is a user-defined scalar SQL function. args holds one driver
// value per SQL argument; the result must be a driver-compatible value.
type ScalarFunc func(args []any) (any, error)

// Rows is an open statement producing rows. It holds the session's statement
// slot until Close, which must be idempotent.
type Rows interface {
	// Columns returns the result column names in order.
	Columns() []string
	// Next fills dest (len(dest) == len(Columns())) with the next row and
	// returns io.EOF once the rows are exhausted.
	Next(dest []any) error
	Close() error
}

// Conn is the Connection Handle.
type Conn interface {
	Dialect() Dialect

	// Exec runs a statement that produces no rows (typically DDL).
	Exec(ctx context.Context, query string, args ...any) error

	// Query opens a row-producing statement.
	Query(ctx context.Context, query string, args ...any) (Rows, error)

	// BulkInsert inserts every row yielded by rows into table (unquoted, as
	// returned by Dialect.TempName) within one transaction and returns the
	// number of rows inserted. A non-nil error from rows aborts the load.
	BulkInsert(ctx context.Context, table string, columns []string, rows iter.Seq2[[]any, error]) (int64, error)

	// CreateFunction registers a scalar function with the session.
	CreateFunction(name string, arity int, fn ScalarFunc) error

	Close() error
}

// Dialect renders the statements the lifecycle manager issues. Names passed
// in are already quoted with QuoteIdent unless noted otherwise.
type Dialect interface {
	Name() string

	// QuoteIdent quotes a single identifier.
	QuoteIdent(id string) string

	// TempName turns a generated base name into the engine's spelling of a
	// session-temporary object name (unquoted).
	TempName(base string) string

	// Supports reports whether temporary objects of kind k can be created.
	Supports(k ObjectKind) bool

	// CreateAs renders the statement creating temporary object name of kind k
	// from selectStmt. with is a rendered common-table-expression list
	// (without the WITH keyword) or "".
	CreateAs(k ObjectKind, name, with, selectStmt string) (string, error)

	// CreateTable renders a CREATE TABLE for bulk loads.
	CreateTable(def ddl.TableDef) (string, error)

	// Drop renders the statement destroying an object created by CreateAs or
	// CreateTable.
	Drop(k ObjectKind, name string, temporary bool) string

	// MapType maps a logical type (see ddl.Type*) to a column type.
	MapType(logical string) string

	// Placeholder returns the n-th (1-based) bind placeholder.
	Placeholder(n int) string
}
