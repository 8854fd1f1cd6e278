package tempdb

import (
	"github.com/sirupsen/logrus"

	"sqlview/internal/logging"
)

// DefaultNamePrefix prefixes generated object names.
const DefaultNamePrefix = "_tmp_"

// Option configures a Database.
type Option func(*Database)

// WithLogger sets the logger. Lifecycle events log at debug, drop failures at
// error.
func WithLogger(l logrus.FieldLogger) Option {
	return func(db *Database) {
		if l != nil {
			db.log = l
		}
	}
}

// WithNamePrefix sets the prefix of generated names. It must be a plain
// identifier; invalid values are ignored.
func WithNamePrefix(p string) Option {
	return func(db *Database) {
		if identRe.MatchString(p) {
			db.names.prefix = p
		}
	}
}

// WithJob sets the job label attached to metrics.
func WithJob(job string) Option {
	return func(db *Database) { db.job = job }
}

// WithProgressEvery makes LoadStream log progress every n rows; 0 disables.
func WithProgressEvery(n int) Option {
	return func(db *Database) {
		if n >= 0 {
			db.progressEvery = n
		}
	}
}

func defaultLogger() logrus.FieldLogger { return logging.Discard() }

// QueryOption configures a single Query, View or Table call.
type QueryOption func(*queryOptions)

type binding struct {
	name  string
	table *Table
}

type queryOptions struct {
	self     *Table
	bindings []binding
	params   []any
}

// Bind makes t available as name inside the select statement. name must be
// a plain identifier; "_" is reserved for the receiver of View and Table.
func Bind(name string, t *Table) QueryOption {
	return func(o *queryOptions) { o.bindings = append(o.bindings, binding{name, t}) }
}

// Params passes positional bind parameters to the statement (TABLE only).
func Params(args ...any) QueryOption {
	return func(o *queryOptions) { o.params = append(o.params, args...) }
}

// LoadOption configures LoadValues and LoadStream.
type LoadOption func(*loadOptions)

type loadOptions struct {
	name      string
	types     map[string]string
	inferRows int
}

// Named creates a permanent table called name instead of a temporary one.
// Permanent tables are never dropped automatically.
func Named(name string) LoadOption {
	return func(o *loadOptions) { o.name = name }
}

// ColumnTypes overrides inferred logical types (see ddl.Type*) per column.
func ColumnTypes(types map[string]string) LoadOption {
	return func(o *loadOptions) { o.types = types }
}

// InferRows limits how many leading rows LoadStream buffers to infer column
// types. The default is 1000.
func InferRows(n int) LoadOption {
	return func(o *loadOptions) {
		if n > 0 {
			o.inferRows = n
		}
	}
}
