package sqlite

import (
	"context"

	"sqlview/internal/engine"
)

// newConn is a test hook that points to NewConn by default.
var newConn = NewConn

func init() {
	engine.Register("sqlite", func(_ context.Context, cfg engine.Config) (engine.Conn, error) {
		c, err := newConn(Config{DSN: cfg.DSN, ForeignKeys: true})
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}
