package engine

import (
	"fmt"
	"strings"

	"sqlview/internal/ddl"
)

// ANSI is the dialect shared by engines that spell temporary objects as
// CREATE TEMPORARY {VIEW|TABLE} and quote with double quotes (SQLite,
// Postgres). Backends embed it and override what differs.
type ANSI struct {
	// DialectName is returned by Name.
	DialectName string
}

func (a ANSI) Name() string { return a.DialectName }

// QuoteIdent wraps id in double quotes, doubling embedded quotes.
func (ANSI) QuoteIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

func (ANSI) TempName(base string) string { return base }

func (ANSI) Supports(k ObjectKind) bool { return k.Valid() }

// CreateAs renders CREATE TEMPORARY {VIEW|TABLE} name AS [WITH with] select.
func (ANSI) CreateAs(k ObjectKind, name, with, selectStmt string) (string, error) {
	if !k.Valid() {
		return "", fmt.Errorf("%w: object kind %q", ErrUnsupported, k)
	}
	if with != "" {
		return fmt.Sprintf("CREATE TEMPORARY %s %s AS WITH %s %s", k, name, with, selectStmt), nil
	}
	return fmt.Sprintf("CREATE TEMPORARY %s %s AS %s", k, name, selectStmt), nil
}

func (a ANSI) CreateTable(def ddl.TableDef) (string, error) {
	return ddl.BuildCreateTableSQL(def, a.QuoteIdent)
}

// Drop renders DROP {VIEW|TABLE} name; temporary objects need no extra
// keyword in this dialect.
func (ANSI) Drop(k ObjectKind, name string, _ bool) string {
	return fmt.Sprintf("DROP %s %s", k, name)
}

// MapType maps logical types to broadly portable SQL types.
func (ANSI) MapType(logical string) string {
	switch logical {
	case ddl.TypeInt:
		return "BIGINT"
	case ddl.TypeFloat:
		return "DOUBLE PRECISION"
	case ddl.TypeBool:
		return "BOOLEAN"
	case ddl.TypeBlob:
		return "BLOB"
	case ddl.TypeTimestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func (ANSI) Placeholder(int) string { return "?" }
