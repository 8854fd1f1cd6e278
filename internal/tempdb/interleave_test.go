package tempdb

import (
	"context"
	"math/rand/v2"
	"testing"

	"sqlview/internal/engine"
	"sqlview/internal/engine/enginetest"
)

// TestRandomInterleavings drives random sequences of creates, cursor reads
// and releases and checks that the connection never sees a DROP while a
// result set is open.
func TestRandomInterleavings(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for seed := range uint64(50) {
		r := rand.New(rand.NewPCG(seed, 0x5eed))
		conn := enginetest.New()
		db := Open(conn)

		var (
			tables  []*Table
			cursors []*RowCursor
		)
		pick := func(n int) int { return r.IntN(n) }

		for step := 0; step < 200; step++ {
			switch op := r.IntN(6); {
			case op == 0 || len(tables) == 0:
				kind := engine.View
				if r.IntN(2) == 0 {
					kind = engine.Table
				}
				tb, err := db.Query(ctx, "SELECT 1 AS n", kind)
				if err != nil {
					t.Fatalf("seed %d step %d: Query: %v", seed, step, err)
				}
				tables = append(tables, tb)
			case op == 1:
				src := tables[pick(len(tables))]
				var opts []QueryOption
				if len(tables) > 1 {
					opts = append(opts, Bind("other", tables[pick(len(tables))]))
				}
				if v, err := src.View(ctx, "SELECT * FROM _", opts...); err == nil {
					tables = append(tables, v)
				} else {
					t.Fatalf("seed %d step %d: View: %v", seed, step, err)
				}
			case op == 2:
				c, err := tables[pick(len(tables))].Iterate(ctx)
				if err != nil {
					t.Fatalf("seed %d step %d: Iterate: %v", seed, step, err)
				}
				cursors = append(cursors, c)
			case op == 3 && len(cursors) > 0:
				i := pick(len(cursors))
				if !cursors[i].Next() {
					if err := cursors[i].Err(); err != nil {
						t.Fatalf("seed %d step %d: Next: %v", seed, step, err)
					}
					cursors = append(cursors[:i], cursors[i+1:]...)
				}
			case op == 4 && len(cursors) > 0:
				i := pick(len(cursors))
				if err := cursors[i].Close(); err != nil {
					t.Fatalf("seed %d step %d: Close cursor: %v", seed, step, err)
				}
				cursors = append(cursors[:i], cursors[i+1:]...)
			default:
				i := pick(len(tables))
				if err := tables[i].Release(ctx); err != nil {
					t.Fatalf("seed %d step %d: Release: %v", seed, step, err)
				}
				tables = append(tables[:i], tables[i+1:]...)
			}
			if conn.OpenRows() == 0 && len(db.Pending()) != 0 {
				t.Fatalf("seed %d step %d: drops pending with no cursor open: %v", seed, step, db.Pending())
			}
		}

		for _, c := range cursors {
			if err := c.Close(); err != nil {
				t.Fatalf("seed %d: Close cursor: %v", seed, err)
			}
		}
		for _, tb := range tables {
			if err := tb.Release(ctx); err != nil {
				t.Fatalf("seed %d: Release: %v", seed, err)
			}
		}
		if v := conn.Violations(); len(v) != 0 {
			t.Fatalf("seed %d: drops issued with rows open: %v", seed, v)
		}
		if objs := conn.Objects(); len(objs) != 0 {
			t.Fatalf("seed %d: objects leaked: %v", seed, objs)
		}
		if err := db.Close(ctx); err != nil {
			t.Fatalf("seed %d: Close: %v", seed, err)
		}
	}
}
