package tempdb

import (
	"errors"
	"fmt"
)

// ErrUsage is the class of caller mistakes detected before any statement is
// sent to the engine. Every usage error wraps it.
var ErrUsage = errors.New("tempdb: usage error")

var (
	// ErrWithClause rejects a select statement that starts with its own WITH
	// clause; bindings are the only way to name other tables.
	ErrWithClause = fmt.Errorf("%w: select statement must not start with a WITH clause; pass bindings instead", ErrUsage)

	// ErrBinding reports an invalid binding name or table.
	ErrBinding = fmt.Errorf("%w: invalid binding", ErrUsage)

	// ErrReleased reports use of a Table handle after Release.
	ErrReleased = fmt.Errorf("%w: table handle already released", ErrUsage)

	// ErrForeignTable reports a binding owned by another Database.
	ErrForeignTable = fmt.Errorf("%w: table belongs to another database", ErrUsage)

	// ErrViewParams rejects bind parameters for a VIEW; engines store view
	// text, not values.
	ErrViewParams = fmt.Errorf("%w: views cannot take bind parameters", ErrUsage)

	// ErrKind reports an object kind the engine cannot create temporarily.
	ErrKind = fmt.Errorf("%w: unsupported object kind", ErrUsage)

	// ErrColumns reports an invalid column list or a row of the wrong width.
	ErrColumns = fmt.Errorf("%w: invalid columns", ErrUsage)

	// ErrClosed reports use of a closed Database.
	ErrClosed = fmt.Errorf("%w: database closed", ErrUsage)
)

// ErrInvariant marks a deferred DROP that the engine rejected. The queue is
// only flushed with no cursor open, so this signals a lifecycle bug or an
// object removed behind the manager's back.
var ErrInvariant = errors.New("tempdb: deferred drop failed")

// DropError is returned by collection when a queued DROP fails. The failed
// statement and everything behind it stay queued, so every later Release or
// Collect retries it and returns a DropError again; no later drop runs until
// the cause is cleared on the engine side.
type DropError struct {
	Stmt    string
	Pending int
	Err     error
}

func (e *DropError) Error() string {
	return fmt.Sprintf("tempdb: deferred drop failed: %s (%d still pending): %v", e.Stmt, e.Pending, e.Err)
}

// Unwrap exposes both ErrInvariant and the engine error.
func (e *DropError) Unwrap() []error { return []error{ErrInvariant, e.Err} }
