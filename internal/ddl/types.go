package ddl

// ColumnDef describes a single column in a table definition. It intentionally
// uses simple, database-agnostic fields.
//
// Fields:
//   - Name: logical column name (unquoted; quoting/escaping happens at render time)
//   - SQLType: target SQL type (e.g., TEXT, BIGINT, TIMESTAMPTZ)
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
//   - Default: raw default expression (e.g., 'anon', CURRENT_TIMESTAMP)
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableDef holds the table name and an ordered list of columns. Temporary
// selects CREATE TEMPORARY TABLE for dialects that spell it that way.
type TableDef struct {
	FQN       string
	Columns   []ColumnDef
	Temporary bool
}

// Logical column types produced by inference and consumed by the dialects'
// MapType functions.
const (
	TypeInt       = "int"
	TypeFloat     = "float"
	TypeBool      = "bool"
	TypeText      = "text"
	TypeBlob      = "blob"
	TypeTimestamp = "timestamp"
)
