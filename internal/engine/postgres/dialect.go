package postgres

import (
	"strconv"

	"sqlview/internal/ddl"
	"sqlview/internal/engine"
)

// Dialect is the Postgres spelling of the lifecycle statements.
type Dialect struct{ engine.ANSI }

// NewDialect returns the Postgres dialect.
func NewDialect() Dialect { return Dialect{engine.ANSI{DialectName: "postgres"}} }

func (Dialect) MapType(logical string) string {
	switch logical {
	case ddl.TypeInt:
		return "BIGINT"
	case ddl.TypeFloat:
		return "DOUBLE PRECISION"
	case ddl.TypeBool:
		return "BOOLEAN"
	case ddl.TypeBlob:
		return "BYTEA"
	case ddl.TypeTimestamp:
		return "TIMESTAMPTZ"
	default:
		return "TEXT"
	}
}

// Placeholder uses positional $n parameters.
func (Dialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }
