package tempdb

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/zeebo/xxh3"

	"sqlview/internal/ddl"
	"sqlview/internal/engine"
	"sqlview/internal/metrics"
)

const defaultInferRows = 1000

func loadOpts(opts []LoadOption) loadOptions {
	o := loadOptions{inferRows: defaultInferRows}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func checkColumns(columns []string) error {
	if len(columns) == 0 {
		return fmt.Errorf("%w: at least one column is required", ErrColumns)
	}
	for _, c := range columns {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("%w: empty column name", ErrColumns)
		}
	}
	if dup := lo.FindDuplicates(columns); len(dup) > 0 {
		return fmt.Errorf("%w: duplicate column %q", ErrColumns, dup[0])
	}
	return nil
}

// LoadValues creates a table with one column per name in columns and inserts
// rows in one transaction. Column types are inferred from the values. The
// table is temporary unless Named is given; a named table is permanent and
// its lifetime is the caller's business.
func (db *Database) LoadValues(ctx context.Context, columns []string, rows [][]any, opts ...LoadOption) (*Table, error) {
	o := loadOpts(opts)
	if err := checkColumns(columns); err != nil {
		return nil, err
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrColumns, i, len(r), len(columns))
		}
	}
	defs := ddl.InferColumns(columns, rows, o.types, db.dialect.MapType)
	return db.load(ctx, "load", columns, defs, engine.SliceRows(rows), o)
}

// LoadStream is LoadValues for rows arriving on a channel. Up to
// InferRows leading rows are buffered to infer column types; the rest are
// streamed into the table as they arrive, with progress logged every
// WithProgressEvery rows. Loading ends when in is closed.
func (db *Database) LoadStream(ctx context.Context, columns []string, in <-chan []any, opts ...LoadOption) (*Table, error) {
	o := loadOpts(opts)
	if err := checkColumns(columns); err != nil {
		return nil, err
	}

	sample := make([][]any, 0, min(o.inferRows, 64))
	open := true
fill:
	for len(sample) < o.inferRows {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case row, ok := <-in:
			if !ok {
				open = false
				break fill
			}
			sample = append(sample, row)
		}
	}
	defs := ddl.InferColumns(columns, sample, o.types, db.dialect.MapType)
	return db.load(ctx, "stream", columns, defs, db.streamRows(ctx, len(columns), sample, in, open), o)
}

// streamRows yields the buffered sample, then drains in until it is closed.
func (db *Database) streamRows(ctx context.Context, width int, sample [][]any, in <-chan []any, open bool) iter.Seq2[[]any, error] {
	return func(yield func([]any, error) bool) {
		var (
			total    int64
			start    = time.Now()
			lastTS   = start
			lastRows int64
		)
		emit := func(row []any) bool {
			if len(row) != width {
				yield(nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrColumns, total, len(row), width))
				return false
			}
			if !yield(row, nil) {
				return false
			}
			total++
			if db.progressEvery > 0 && total%int64(db.progressEvery) == 0 {
				now := time.Now()
				since := now.Sub(lastTS)
				rps := float64(0)
				if since > 0 {
					rps = float64(total-lastRows) / since.Seconds()
				}
				db.log.WithFields(logrus.Fields{
					"rows":    humanize.Comma(total),
					"rps":     fmt.Sprintf("%.0f", rps),
					"elapsed": now.Sub(start).Truncate(time.Millisecond),
				}).Info("load progress")
				lastTS, lastRows = now, total
			}
			return true
		}

		for _, row := range sample {
			if !emit(row) {
				return
			}
		}
		if !open {
			return
		}
		for {
			select {
			case <-ctx.Done():
				yield(nil, ctx.Err())
				return
			case row, ok := <-in:
				if !ok {
					return
				}
				if !emit(row) {
					return
				}
			}
		}
	}
}

func (db *Database) load(ctx context.Context, step string, columns []string, defs []ddl.ColumnDef, rows iter.Seq2[[]any, error], o loadOptions) (t *Table, err error) {
	start := time.Now()
	defer func() { metrics.RecordStep(db.job, step, err, time.Since(start)) }()

	temporary := o.name == ""
	if !temporary && !identRe.MatchString(o.name) {
		return nil, fmt.Errorf("%w: table name %q is not a plain identifier", ErrUsage, o.name)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil, ErrClosed
	}

	name := o.name
	if temporary {
		name = db.dialect.TempName(db.names.next())
	}
	stmt, err := db.dialect.CreateTable(ddl.TableDef{FQN: name, Columns: defs, Temporary: temporary})
	if err != nil {
		return nil, fmt.Errorf("tempdb: %w", err)
	}
	st := &tableState{
		db:          db,
		name:        name,
		ident:       db.dialect.QuoteIdent(name),
		kind:        engine.Table,
		temporary:   temporary,
		stmt:        stmt,
		fingerprint: xxh3.HashString(stmt),
		refs:        1,
	}
	log := db.log.WithFields(st.fields())
	if err := db.conn.Exec(ctx, stmt); err != nil {
		return nil, fmt.Errorf("tempdb: create table %s: %w", name, err)
	}

	n, err := db.conn.BulkInsert(ctx, name, columns, rows)
	if err != nil {
		// Leave nothing behind: the half-loaded table goes through the
		// same deferred path as any other drop.
		db.pending.push(pendingDrop{stmt: db.dialect.Drop(engine.Table, st.ident, temporary), name: name, kind: engine.Table})
		log.WithError(err).Debug("load failed")
		if cerr := db.collectLocked(ctx); cerr != nil {
			return nil, fmt.Errorf("tempdb: load %s: %w (cleanup: %v)", name, err, cerr)
		}
		return nil, fmt.Errorf("tempdb: load %s: %w", name, err)
	}
	metrics.RecordRows(db.job, "loaded", n)
	metrics.RecordObject(db.job, string(engine.Table), "created")
	log.WithField("rows", n).Debug("loaded")
	return newTable(st), nil
}
