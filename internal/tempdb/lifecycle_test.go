package tempdb

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"sqlview/internal/engine"
	"sqlview/internal/engine/enginetest"
)

func Test_Lifecycle(t *testing.T) {
	ctx := context.Background()

	Convey("Given a database on one connection", t, func() {
		conn := enginetest.New()
		db := Open(conn, WithNamePrefix("q"), WithJob("lifecycle"))
		Reset(func() { _ = db.Close(ctx) })

		base, err := db.LoadValues(ctx, []string{"n"}, [][]any{{int64(1)}, {int64(2)}})
		So(err, ShouldBeNil)
		So(base.Name(), ShouldEqual, "q1")

		Convey("a view built on a loaded table", func() {
			v, err := base.View(ctx, "SELECT * FROM _ WHERE n > 1")
			So(err, ShouldBeNil)
			So(v.Statement(), ShouldStartWith, `CREATE TEMPORARY VIEW "q2" AS WITH _ AS (SELECT * FROM "q1")`)

			Convey("keeps the table alive after the table handle is released", func() {
				So(base.Release(ctx), ShouldBeNil)
				So(conn.Drops(), ShouldBeEmpty)

				Convey("and drops both, view first, once the view goes", func() {
					So(v.Release(ctx), ShouldBeNil)
					So(conn.Drops(), ShouldResemble, []string{`DROP VIEW "q2"`, `DROP TABLE "q1"`})
				})
			})

			Convey("is not dropped while a cursor on it is open", func() {
				c, err := v.Iterate(ctx)
				So(err, ShouldBeNil)
				So(v.Release(ctx), ShouldBeNil)
				So(db.Pending(), ShouldResemble, []string{`DROP VIEW "q2"`})
				So(conn.Drops(), ShouldBeEmpty)

				Convey("and is dropped exactly once when the cursor closes", func() {
					So(c.Close(), ShouldBeNil)
					So(c.Close(), ShouldBeNil)
					So(conn.Drops(), ShouldResemble, []string{`DROP VIEW "q2"`})
					So(conn.Violations(), ShouldBeEmpty)
				})
			})
		})

		Convey("a cursor on one table holds back drops of every other", func() {
			a, err := db.Query(ctx, "SELECT 1 AS n", engine.View)
			So(err, ShouldBeNil)
			b, err := db.Query(ctx, "SELECT 2 AS n", engine.View)
			So(err, ShouldBeNil)

			c, err := base.Iterate(ctx)
			So(err, ShouldBeNil)
			So(a.Release(ctx), ShouldBeNil)
			So(b.Release(ctx), ShouldBeNil)
			So(db.OpenCursors(), ShouldEqual, 1)
			So(conn.Drops(), ShouldBeEmpty)

			for c.Next() {
			}
			So(c.Err(), ShouldBeNil)
			So(conn.Drops(), ShouldResemble, []string{`DROP VIEW "q2"`, `DROP VIEW "q3"`})
		})

		Convey("a query with its own WITH clause never reaches the engine", func() {
			before := len(conn.Statements())
			_, err := db.Query(ctx, "WITH x AS (SELECT 1) SELECT * FROM x", engine.View)
			So(errors.Is(err, ErrUsage), ShouldBeTrue)
			So(conn.Statements(), ShouldHaveLength, before)
		})

		Convey("closing the database", func() {
			c, err := base.Iterate(ctx)
			So(err, ShouldBeNil)
			So(base.Release(ctx), ShouldBeNil)
			So(db.Close(ctx), ShouldBeNil)

			Convey("closes open cursors and flushes the queue", func() {
				So(c.Active(), ShouldBeFalse)
				So(conn.OpenRows(), ShouldEqual, 0)
				So(conn.Drops(), ShouldResemble, []string{`DROP TABLE "q1"`})
			})

			Convey("rejects further work", func() {
				_, err := db.Query(ctx, "SELECT 1", engine.View)
				So(err, ShouldEqual, ErrClosed)
				So(db.CreateFunction("f", 0, func([]any) (any, error) { return nil, nil }), ShouldEqual, ErrClosed)
			})
		})
	})
}
