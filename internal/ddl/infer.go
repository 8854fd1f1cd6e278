package ddl

import (
	"strings"
	"time"
)

// LogicalType reports the logical column type of a single Go value, or ""
// when v is nil and carries no type information.
func LogicalType(v any) string {
	switch v.(type) {
	case nil:
		return ""
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TypeInt
	case float32, float64:
		return TypeFloat
	case bool:
		return TypeBool
	case []byte:
		return TypeBlob
	case time.Time:
		return TypeTimestamp
	default:
		return TypeText
	}
}

// merge widens two logical types into one that can hold both.
func merge(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "", a == b:
		return a
	case (a == TypeInt && b == TypeFloat) || (a == TypeFloat && b == TypeInt):
		return TypeFloat
	default:
		return TypeText
	}
}

// InferColumns derives one nullable ColumnDef per column from sample rows.
//
// Each column's logical type is the widening of every non-nil value seen in
// that position; a column with only nil values (or no rows at all) is text.
// overrides maps column name to a logical type and wins over inference.
// mapType turns the logical type into the dialect's SQL type.
func InferColumns(columns []string, rows [][]any, overrides map[string]string, mapType func(string) string) []ColumnDef {
	logical := make([]string, len(columns))
	for _, row := range rows {
		for i := range columns {
			if i >= len(row) {
				break
			}
			logical[i] = merge(logical[i], LogicalType(row[i]))
		}
	}

	defs := make([]ColumnDef, len(columns))
	for i, name := range columns {
		lt := logical[i]
		if o, ok := overrides[name]; ok && strings.TrimSpace(o) != "" {
			lt = strings.ToLower(strings.TrimSpace(o))
		}
		if lt == "" {
			lt = TypeText
		}
		defs[i] = ColumnDef{Name: name, SQLType: mapType(lt), Nullable: true}
	}
	return defs
}
