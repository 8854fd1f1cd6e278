package postgres

import (
	"context"

	"sqlview/internal/engine"
)

// newConn is a test hook that points to NewConn by default.
// Tests may replace this variable to avoid real DB connections.
var newConn = NewConn

func init() {
	engine.Register("postgres", func(ctx context.Context, cfg engine.Config) (engine.Conn, error) {
		c, err := newConn(ctx, Config{DSN: cfg.DSN})
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}
