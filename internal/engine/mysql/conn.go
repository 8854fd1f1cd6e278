// Package mysql implements engine.Conn on go-sql-driver/mysql.
//
// The driver cannot issue a statement while a result set is still being
// read on the same connection, and MySQL refuses to open a temporary table
// twice within one statement.
package mysql

import (
	"context"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"sqlview/internal/engine/sqlconn"
)

// Config holds MySQL connection settings.
type Config struct {
	// DSN uses the driver format: user:pass@tcp(host:3306)/db?params.
	DSN string
}

// normalizeDSN validates dsn and turns on the options the lifecycle manager
// relies on.
func normalizeDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.InterpolateParams = true
	return cfg.FormatDSN(), nil
}

// NewConn validates the DSN and pins one session.
func NewConn(ctx context.Context, cfg Config) (*sqlconn.Conn, error) {
	dsn, err := normalizeDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}
	return sqlconn.Open(ctx, "mysql", "mysql", dsn, Dialect{})
}
