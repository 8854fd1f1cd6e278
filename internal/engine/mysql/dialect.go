package mysql

import (
	"fmt"
	"strings"

	"sqlview/internal/ddl"
	"sqlview/internal/engine"
)

// Dialect is the MySQL spelling. MySQL has no temporary views, so only
// tables are supported.
type Dialect struct{}

func (Dialect) Name() string { return "mysql" }

func (Dialect) QuoteIdent(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

func (Dialect) TempName(base string) string { return base }

func (Dialect) Supports(k engine.ObjectKind) bool { return k == engine.Table }

func (d Dialect) CreateAs(k engine.ObjectKind, name, with, selectStmt string) (string, error) {
	if !d.Supports(k) {
		return "", fmt.Errorf("mysql: temporary %s: %w", strings.ToLower(string(k)), engine.ErrUnsupported)
	}
	if with != "" {
		return fmt.Sprintf("CREATE TEMPORARY TABLE %s AS WITH %s %s", name, with, selectStmt), nil
	}
	return fmt.Sprintf("CREATE TEMPORARY TABLE %s AS %s", name, selectStmt), nil
}

func (d Dialect) CreateTable(def ddl.TableDef) (string, error) {
	return ddl.BuildCreateTableSQL(def, d.QuoteIdent)
}

// Drop names TEMPORARY explicitly so a permanent table of the same name is
// never touched.
func (Dialect) Drop(k engine.ObjectKind, name string, temporary bool) string {
	if temporary && k == engine.Table {
		return "DROP TEMPORARY TABLE " + name
	}
	return fmt.Sprintf("DROP %s %s", k, name)
}

func (Dialect) MapType(logical string) string {
	switch logical {
	case ddl.TypeInt:
		return "BIGINT"
	case ddl.TypeFloat:
		return "DOUBLE"
	case ddl.TypeBool:
		return "BOOLEAN"
	case ddl.TypeBlob:
		return "LONGBLOB"
	case ddl.TypeTimestamp:
		return "DATETIME(6)"
	default:
		return "LONGTEXT"
	}
}

func (Dialect) Placeholder(int) string { return "?" }

var _ engine.Dialect = Dialect{}
