package mssql

import (
	"fmt"
	"strconv"
	"strings"

	"sqlview/internal/ddl"
	"sqlview/internal/engine"
)

// Dialect is the SQL Server spelling. Session-temporary objects are #tables;
// there are no temporary views.
type Dialect struct{}

func (Dialect) Name() string { return "mssql" }

func (Dialect) QuoteIdent(id string) string { return "[" + strings.ReplaceAll(id, "]", "]]") + "]" }

// TempName prefixes base with # so the table lives in tempdb for the
// session only.
func (Dialect) TempName(base string) string {
	if strings.HasPrefix(base, "#") {
		return base
	}
	return "#" + base
}

func (Dialect) Supports(k engine.ObjectKind) bool { return k == engine.Table }

// CreateAs materializes with SELECT ... INTO, wrapping selectStmt as a
// derived table so the common table expressions stay in front.
func (d Dialect) CreateAs(k engine.ObjectKind, name, with, selectStmt string) (string, error) {
	if !d.Supports(k) {
		return "", fmt.Errorf("mssql: temporary %s: %w", strings.ToLower(string(k)), engine.ErrUnsupported)
	}
	body := fmt.Sprintf("SELECT * INTO %s FROM (%s) AS q", name, selectStmt)
	if with != "" {
		return "WITH " + with + " " + body, nil
	}
	return body, nil
}

func (d Dialect) CreateTable(def ddl.TableDef) (string, error) {
	// #tables are temporary by name; CREATE TEMPORARY TABLE is not T-SQL.
	def.Temporary = false
	return ddl.BuildCreateTableSQL(def, d.QuoteIdent)
}

func (Dialect) Drop(k engine.ObjectKind, name string, _ bool) string {
	return fmt.Sprintf("DROP %s %s", k, name)
}

func (Dialect) MapType(logical string) string {
	switch logical {
	case ddl.TypeInt:
		return "BIGINT"
	case ddl.TypeFloat:
		return "FLOAT"
	case ddl.TypeBool:
		return "BIT"
	case ddl.TypeBlob:
		return "VARBINARY(MAX)"
	case ddl.TypeTimestamp:
		return "DATETIME2"
	default:
		return "NVARCHAR(MAX)"
	}
}

func (Dialect) Placeholder(n int) string { return "@p" + strconv.Itoa(n) }

var _ engine.Dialect = Dialect{}
