package sqlite

import (
	"sqlview/internal/ddl"
	"sqlview/internal/engine"
)

// Dialect is the SQLite spelling of the lifecycle statements.
type Dialect struct{ engine.ANSI }

// NewDialect returns the SQLite dialect.
func NewDialect() Dialect { return Dialect{engine.ANSI{DialectName: "sqlite"}} }

// MapType uses SQLite storage classes.
func (Dialect) MapType(logical string) string {
	switch logical {
	case ddl.TypeInt, ddl.TypeBool:
		return "INTEGER"
	case ddl.TypeFloat:
		return "REAL"
	case ddl.TypeBlob:
		return "BLOB"
	default:
		return "TEXT"
	}
}
