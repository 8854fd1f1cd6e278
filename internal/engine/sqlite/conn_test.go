package sqlite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"sqlview/internal/engine"
)

/*
Package-level test helpers (TB-aware)
*/

func newMemConn(tb testing.TB) *Conn {
	tb.Helper()
	c, err := NewConn(Config{})
	if err != nil {
		tb.Fatalf("NewConn: %v", err)
	}
	tb.Cleanup(func() { _ = c.Close() })
	return c
}

func mustExec(tb testing.TB, c engine.Conn, stmt string, args ...any) {
	tb.Helper()
	if err := c.Exec(context.Background(), stmt, args...); err != nil {
		tb.Fatalf("exec %q: %v", stmt, err)
	}
}

func readAll(tb testing.TB, rows engine.Rows) [][]any {
	tb.Helper()
	defer rows.Close()
	var out [][]any
	for {
		dest := make([]any, len(rows.Columns()))
		err := rows.Next(dest)
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			tb.Fatalf("Next: %v", err)
		}
		out = append(out, dest)
	}
}

func uniqFuncName(tb testing.TB) string {
	n := strings.NewReplacer("/", "_", "-", "_").Replace(tb.Name())
	return strings.ToLower(fmt.Sprintf("fn_%s", n))
}

/*
Unit tests
*/

func TestTemporaryViewRoundTrip(t *testing.T) {
	t.Parallel()

	c := newMemConn(t)
	ctx := context.Background()
	d := c.Dialect()

	mustExec(t, c, `CREATE TEMPORARY TABLE "src" ("n" INTEGER)`)
	n, err := c.BulkInsert(ctx, "src", []string{"n"}, engine.SliceRows([][]any{{1}, {2}, {3}}))
	if err != nil {
		t.Fatalf("BulkInsert: %v", err)
	}
	if n != 3 {
		t.Fatalf("BulkInsert inserted %d rows, want 3", n)
	}

	create, err := d.CreateAs(engine.View, d.QuoteIdent("v"), `_ AS (SELECT * FROM "src")`, "SELECT n * 10 AS n FROM _ WHERE n > 1")
	if err != nil {
		t.Fatalf("CreateAs: %v", err)
	}
	mustExec(t, c, create)

	rows, err := c.Query(ctx, `SELECT * FROM "v"`)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	got := readAll(t, rows)
	if len(got) != 2 || got[0][0] != int64(20) || got[1][0] != int64(30) {
		t.Fatalf("rows = %#v, want [[20] [30]]", got)
	}
	mustExec(t, c, d.Drop(engine.View, d.QuoteIdent("v"), true))
}

// TestDropBlockedByOpenStatement pins down the engine property the lifecycle
// manager is built around: DDL fails while any statement is mid-iteration.
func TestDropBlockedByOpenStatement(t *testing.T) {
	t.Parallel()

	c := newMemConn(t)
	ctx := context.Background()

	mustExec(t, c, `CREATE TEMPORARY TABLE "a" ("n" INTEGER)`)
	mustExec(t, c, `INSERT INTO "a" VALUES (1), (2)`)
	mustExec(t, c, `CREATE TEMPORARY TABLE "b" ("n" INTEGER)`)

	rows, err := c.Query(ctx, `SELECT * FROM "a"`)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	dest := make([]any, 1)
	if err := rows.Next(dest); err != nil {
		t.Fatalf("Next: %v", err)
	}

	if err := c.Exec(ctx, `DROP TABLE "b"`); err == nil {
		t.Fatalf("DROP with an open statement succeeded, want error")
	}

	if err := rows.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	mustExec(t, c, `DROP TABLE "b"`)
}

func TestCreateFunctionBeforeOpen(t *testing.T) {
	t.Parallel()

	c := newMemConn(t)
	name := uniqFuncName(t)

	err := c.CreateFunction(name, 1, func(args []any) (any, error) {
		v, _ := args[0].(int64)
		return v * 2, nil
	})
	if err != nil {
		t.Fatalf("CreateFunction: %v", err)
	}

	rows, err := c.Query(context.Background(), fmt.Sprintf("SELECT %s(21)", name))
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	got := readAll(t, rows)
	if len(got) != 1 || got[0][0] != int64(42) {
		t.Fatalf("rows = %#v, want [[42]]", got)
	}
}

func TestCreateFunctionAfterOpen(t *testing.T) {
	t.Parallel()

	c := newMemConn(t)
	mustExec(t, c, "SELECT 1")

	err := c.CreateFunction(uniqFuncName(t), 0, func([]any) (any, error) { return int64(1), nil })
	if !errors.Is(err, engine.ErrUnsupported) {
		t.Fatalf("CreateFunction after open error = %v, want ErrUnsupported", err)
	}
}

func TestCreateFunctionArityMismatch(t *testing.T) {
	t.Parallel()

	c := newMemConn(t)
	name := uniqFuncName(t)
	fn := func([]any) (any, error) { return nil, nil }
	if err := c.CreateFunction(name, 1, fn); err != nil {
		t.Fatalf("CreateFunction: %v", err)
	}
	if err := c.CreateFunction(name, 2, fn); err == nil {
		t.Fatalf("CreateFunction with different arity succeeded, want error")
	}
}

func TestUseAfterClose(t *testing.T) {
	t.Parallel()

	c, err := NewConn(Config{})
	if err != nil {
		t.Fatalf("NewConn: %v", err)
	}
	mustExec(t, c, "SELECT 1")
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := c.Exec(context.Background(), "SELECT 1"); !errors.Is(err, engine.ErrConnClosed) {
		t.Fatalf("Exec after Close error = %v, want ErrConnClosed", err)
	}
}

func TestBulkInsertRowLengthMismatch(t *testing.T) {
	t.Parallel()

	c := newMemConn(t)
	mustExec(t, c, `CREATE TEMPORARY TABLE "t" ("a" TEXT, "b" TEXT)`)
	_, err := c.BulkInsert(context.Background(), "t", []string{"a", "b"}, engine.SliceRows([][]any{{"x"}}))
	if err == nil || !strings.Contains(err.Error(), "row length") {
		t.Fatalf("BulkInsert error = %v, want row length error", err)
	}
}

func TestDialectMapType(t *testing.T) {
	t.Parallel()

	d := NewDialect()
	cases := map[string]string{
		"int": "INTEGER", "bool": "INTEGER", "float": "REAL", "text": "TEXT", "blob": "BLOB", "timestamp": "TEXT",
	}
	for in, want := range cases {
		if got := d.MapType(in); got != want {
			t.Errorf("MapType(%q) = %q, want %q", in, got, want)
		}
	}
	if d.Name() != "sqlite" {
		t.Errorf("Name() = %q", d.Name())
	}
}

func TestRegistrationUsesNewConnHook(t *testing.T) {
	orig := newConn
	defer func() { newConn = orig }()

	var gotCfg Config
	newConn = func(cfg Config) (*Conn, error) {
		gotCfg = cfg
		return orig(cfg)
	}

	c, err := engine.Open(context.Background(), engine.Config{Kind: "sqlite", DSN: "file:hook?mode=memory"})
	if err != nil {
		t.Fatalf("engine.Open() error = %v", err)
	}
	defer c.Close()

	if gotCfg.DSN != "file:hook?mode=memory" || !gotCfg.ForeignKeys {
		t.Fatalf("hook cfg = %+v", gotCfg)
	}
}

/*
Benchmarks
*/

func BenchmarkBulkInsert(b *testing.B) {
	c := newMemConn(b)
	ctx := context.Background()
	mustExec(b, c, `CREATE TEMPORARY TABLE "bench" ("id" INTEGER, "label" TEXT)`)

	rows := make([][]any, 1000)
	for i := range rows {
		rows[i] = []any{i, fmt.Sprintf("row-%d", i)}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.BulkInsert(ctx, "bench", []string{"id", "label"}, engine.SliceRows(rows)); err != nil {
			b.Fatalf("BulkInsert: %v", err)
		}
	}
}
