// Package all wires all built-in engine backends into the engine registry.
//
// It exists purely for side effects: importing it runs the init functions of
// each backend, which register their factories with engine.Register. After
// that the following kinds are available to engine.Open:
//
//   - "sqlite"   (sqlview/internal/engine/sqlite)
//   - "postgres" (sqlview/internal/engine/postgres)
//   - "mysql"    (sqlview/internal/engine/mysql)
//   - "mssql"    (sqlview/internal/engine/mssql)
//
// Typical usage:
//
//	import (
//	    _ "sqlview/internal/engine/all"
//
//	    "sqlview/internal/engine"
//	    "sqlview/internal/tempdb"
//	)
//
//	conn, err := engine.Open(ctx, engine.Config{Kind: "sqlite"})
//	if err != nil {
//	    // handle error
//	}
//	db := tempdb.Open(conn)
//	defer db.Close(ctx)
//
// A binary that needs only a subset can import the backends it wants
// directly instead of this package.
package all

import (
	_ "sqlview/internal/engine/mssql"
	_ "sqlview/internal/engine/mysql"
	_ "sqlview/internal/engine/postgres"
	_ "sqlview/internal/engine/sqlite"
)
