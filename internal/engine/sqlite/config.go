// Package sqlite implements engine.Conn on modernc.org/sqlite.
package sqlite

// DefaultDSN is used when Config.DSN is empty: a private in-memory database.
const DefaultDSN = ":memory:"

// Config holds SQLite connection settings derived from engine.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   ":memory:"
	//   "file:scratch.db?_pragma=busy_timeout(5000)"
	DSN string

	// ForeignKeys turns on PRAGMA foreign_keys after connecting.
	ForeignKeys bool
}

func (c Config) dsn() string {
	if c.DSN == "" {
		return DefaultDSN
	}
	return c.DSN
}
