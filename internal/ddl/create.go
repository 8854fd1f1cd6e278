// Package ddl defines a small, backend-agnostic model for SQL DDL and helpers
// to render CREATE TABLE statements from that model.
//
// The package stays generic: identifier quoting is delegated to the caller
// (each engine dialect passes its own quote function) and ColumnDef.Default is
// emitted as raw SQL.
package ddl

import (
	"fmt"
	"strings"
)

// BuildCreateTableSQL renders a CREATE [TEMPORARY] TABLE statement from a
// TableDef.
//
// Rules:
//
//   - t.FQN must be non-empty; each dotted segment is passed through quote.
//
//   - Each column must have a non-empty Name and SQLType and is rendered as:
//
//     <quoted Name> <SQLType> [NOT NULL] [DEFAULT <Default>]
//
//   - Columns with PrimaryKey == true are collected into a trailing
//     PRIMARY KEY (...) clause.
//
// A nil quote emits identifiers verbatim.
func BuildCreateTableSQL(t TableDef, quote func(string) string) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}
	if quote == nil {
		quote = func(s string) string { return s }
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", name)
		}

		var sb strings.Builder
		sb.WriteString(quote(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)

		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}

		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}

		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, quote(name))
		}
	}

	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	create := "CREATE TABLE"
	if t.Temporary {
		create = "CREATE TEMPORARY TABLE"
	}

	return fmt.Sprintf("%s %s (%s)", create, QuoteFQN(fqn, quote), strings.Join(cols, ", ")), nil
}

// QuoteFQN quotes a possibly dotted name like "main.events" segment by
// segment. Empty segments are ignored.
func QuoteFQN(fqn string, quote func(string) string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, quote(p))
	}
	return strings.Join(out, ".")
}
