//go:build integration

package postgres

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"sqlview/internal/engine"
)

// getTestDSN reads PG_TEST_DSN. If it is empty, the test is skipped.
func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("PG_TEST_DSN")
	if dsn == "" {
		t.Skip("PG_TEST_DSN not set; skipping Postgres integration tests")
	}
	return dsn
}

func TestTemporaryObjectsIntegration(t *testing.T) {
	dsn := getTestDSN(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	c, err := NewConn(ctx, Config{DSN: dsn})
	if err != nil {
		t.Fatalf("NewConn() error = %v", err)
	}
	defer c.Close()
	d := c.Dialect()

	if err := c.Exec(ctx, `CREATE TEMPORARY TABLE "src" ("n" BIGINT)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	n, err := c.BulkInsert(ctx, "src", []string{"n"}, engine.SliceRows([][]any{{int64(1)}, {int64(2)}}))
	if err != nil || n != 2 {
		t.Fatalf("BulkInsert = %d, %v", n, err)
	}

	create, _ := d.CreateAs(engine.View, d.QuoteIdent("v"), `_ AS (SELECT * FROM "src")`, "SELECT n + 1 AS n FROM _")
	if err := c.Exec(ctx, create); err != nil {
		t.Fatalf("create view: %v", err)
	}

	rows, err := c.Query(ctx, `SELECT * FROM "v" ORDER BY n`)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	var got []int64
	for {
		dest := make([]any, 1)
		err := rows.Next(dest)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		got = append(got, dest[0].(int64))
	}
	rows.Close()
	if len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Fatalf("rows = %v, want [2 3]", got)
	}

	if err := c.Exec(ctx, d.Drop(engine.View, d.QuoteIdent("v"), true)); err != nil {
		t.Fatalf("drop view: %v", err)
	}
}
