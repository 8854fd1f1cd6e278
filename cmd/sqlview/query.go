package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"sqlview/internal/csvsrc"
	"sqlview/internal/datasource"
	"sqlview/internal/datasource/file"
	"sqlview/internal/datasource/httpds"
	"sqlview/internal/engine"
	_ "sqlview/internal/engine/all"
	"sqlview/internal/metrics"
	"sqlview/internal/tempdb"
)

type queryOpts struct {
	binds     []string
	bindFiles []string
	params    []string
	kind      string
	format    string
	limit     int
	raw       bool
}

func newQueryCmd(a *app) *cobra.Command {
	var o queryOpts
	cmd := &cobra.Command{
		Use:   "query [flags] SELECT ...",
		Short: "Load CSV bindings and run a select statement over them",
		Long: `Load every --bind NAME=SOURCE into a temporary table, expose the tables
to the statement under their names and print the result.

SOURCE is a CSV file path, an http(s) URL or "-" for standard input. A bare
--bind SOURCE is named after the file, e.g. "Sales 2024.csv" binds as
sales_2024. --bind-file reads one binding per line ('#' starts a comment).

Examples:
  sqlview query --bind p=people.csv "SELECT * FROM p WHERE age > 30"
  cat people.csv | sqlview query --bind p=- "SELECT count(*) FROM p"
  sqlview query --bind https://example.com/cars.csv "SELECT * FROM cars"
  sqlview query --bind a=a.csv --bind b=b.csv --format csv \
      "SELECT a.id, b.total FROM a JOIN b USING (id)"
  sqlview query --kind table --param 10 "SELECT n FROM nums WHERE n < ?" --bind nums=n.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runQuery(cmd.Context(), cmd, strings.Join(args, " "), o)
		},
	}
	f := cmd.Flags()
	f.StringArrayVarP(&o.binds, "bind", "b", nil, "NAME=SOURCE or SOURCE binding (repeatable)")
	f.StringArrayVar(&o.bindFiles, "bind-file", nil, "file listing one binding per line (repeatable)")
	f.StringArrayVarP(&o.params, "param", "p", nil, "positional bind parameter (repeatable; table kind only)")
	f.StringVarP(&o.kind, "kind", "k", "view", "object the query is stored as: view or table")
	f.StringVarP(&o.format, "format", "f", "table", "output format: "+strings.Join(formats, ", "))
	f.IntVar(&o.limit, "limit", 0, "print at most N rows (0 = all)")
	f.BoolVar(&o.raw, "raw", false, "load CSV values as text without type coercion")
	return cmd
}

type binding struct {
	name, ref string
}

var bindNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// parseBinds accepts NAME=SOURCE or a bare SOURCE named after its base
// name. A prefix before '=' that is not an identifier belongs to the
// source, so URLs with query strings bind as-is.
func parseBinds(specs []string) ([]binding, error) {
	out := make([]binding, 0, len(specs))
	seen := make(map[string]string, len(specs))
	stdin := false
	for _, s := range specs {
		s = strings.TrimSpace(s)
		name, ref, ok := strings.Cut(s, "=")
		name, ref = strings.TrimSpace(name), strings.TrimSpace(ref)
		if !ok || !bindNameRe.MatchString(name) {
			name, ref = csvsrc.NormalizeName(datasource.BaseName(s)), s
		}
		if ref == "" {
			return nil, fmt.Errorf("invalid --bind %q: want NAME=SOURCE or SOURCE", s)
		}
		if prev, dup := seen[strings.ToLower(name)]; dup {
			return nil, fmt.Errorf("invalid --bind %q: name %s already bound to %s", s, name, prev)
		}
		if ref == "-" {
			if stdin {
				return nil, fmt.Errorf("invalid --bind %q: standard input can be bound once", s)
			}
			stdin = true
		}
		seen[strings.ToLower(name)] = ref
		out = append(out, binding{name, ref})
	}
	return out, nil
}

// bindSpecs returns the --bind-file entries followed by --bind.
func bindSpecs(o queryOpts) ([]string, error) {
	var specs []string
	for _, p := range o.bindFiles {
		l, err := file.ReadList(p)
		if err != nil {
			return nil, fmt.Errorf("--bind-file: %w", err)
		}
		specs = append(specs, l...)
	}
	return append(specs, o.binds...), nil
}

func parseKind(s string) (engine.ObjectKind, error) {
	k := engine.ObjectKind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("invalid --kind %q: want view or table", s)
	}
	return k, nil
}

func (a *app) runQuery(ctx context.Context, cmd *cobra.Command, stmt string, o queryOpts) (err error) {
	start := time.Now()
	specs, err := bindSpecs(o)
	if err != nil {
		return err
	}
	binds, err := parseBinds(specs)
	if err != nil {
		return err
	}
	kind, err := parseKind(o.kind)
	if err != nil {
		return err
	}
	if !validFormat(o.format) {
		return fmt.Errorf("invalid --format %q: want one of %s", o.format, strings.Join(formats, ", "))
	}
	comma, err := csvsrc.ParseComma(a.cfg.CSV.Comma)
	if err != nil {
		return err
	}

	conn, err := engine.Open(ctx, engine.Config{Kind: a.cfg.Engine.Kind, DSN: a.cfg.Engine.DSN})
	if err != nil {
		return err
	}
	db := tempdb.Open(conn,
		tempdb.WithLogger(a.log),
		tempdb.WithJob(a.cfg.Job),
		tempdb.WithNamePrefix(a.cfg.Tempdb.NamePrefix),
		tempdb.WithProgressEvery(a.cfg.Tempdb.ProgressEvery),
	)
	defer func() {
		err = errors.Join(err, db.Close(context.WithoutCancel(ctx)))
		if ferr := metrics.Flush(); ferr != nil {
			a.log.WithError(ferr).Warn("metrics flush failed")
		}
	}()
	if err := registerFunctions(db); err != nil {
		return err
	}

	res := datasource.Resolver{
		HTTP: httpds.NewClient(httpds.Config{
			Timeout:            a.cfg.HTTP.Timeout,
			MaxRetries:         a.cfg.HTTP.MaxRetries,
			InsecureSkipVerify: a.cfg.HTTP.Insecure,
			Header:             http.Header{"User-Agent": []string{"sqlview"}},
		}),
		Stdin: cmd.InOrStdin(),
	}
	opts := make([]tempdb.QueryOption, 0, len(binds)+1)
	for _, b := range binds {
		t, err := a.loadCSV(ctx, db, res.Resolve(b.ref), b, csvsrc.Options{
			Comma:            comma,
			NormalizeHeaders: a.cfg.CSV.NormalizeHeaders,
			Raw:              o.raw,
		})
		if err != nil {
			return err
		}
		defer t.Release(ctx)
		opts = append(opts, tempdb.Bind(b.name, t))
	}
	if len(o.params) > 0 {
		params := make([]any, len(o.params))
		for i, p := range o.params {
			params[i] = csvsrc.Coerce(p)
		}
		opts = append(opts, tempdb.Params(params...))
	}

	out, err := db.Query(ctx, stmt, kind, opts...)
	if err != nil {
		return err
	}
	defer out.Release(ctx)

	n, err := render(ctx, cmd.OutOrStdout(), out, o.format, o.limit)
	if err != nil {
		return err
	}
	a.log.WithFields(logrus.Fields{
		"rows":    humanize.Comma(n),
		"elapsed": time.Since(start).Truncate(time.Millisecond),
	}).Info("query done")
	return nil
}

// loadCSV streams one CSV source into a temporary table; parsing runs
// alongside the load.
func (a *app) loadCSV(ctx context.Context, db *tempdb.Database, ds datasource.Source, b binding, opt csvsrc.Options) (*tempdb.Table, error) {
	f, err := ds.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", b.name, err)
	}
	defer f.Close()
	fields := logrus.Fields{"bind": b.name, "source": b.ref}
	if l, ok := ds.(*file.Local); ok {
		if n := l.Size(); n >= 0 {
			fields["size"] = humanize.Bytes(uint64(n))
		}
	}
	a.log.WithFields(fields).Debug("loading")

	src, err := csvsrc.NewSource(f, opt)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", b.name, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	rows := make(chan []any, 1024)
	g.Go(func() error {
		defer close(rows)
		return src.Stream(gctx, rows)
	})

	var t *tempdb.Table
	g.Go(func() error {
		var err error
		t, err = db.LoadStream(gctx, src.Columns(), rows, tempdb.InferRows(a.cfg.CSV.InferRows))
		if err != nil {
			// Unblock the parser.
			for range rows {
			}
		}
		return err
	})
	if err := g.Wait(); err != nil {
		if t != nil {
			_ = t.Release(ctx)
		}
		return nil, fmt.Errorf("bind %s: %w", b.name, err)
	}
	return t, nil
}

// registerFunctions installs helpers usable from queries where the engine
// accepts Go functions.
func registerFunctions(db *tempdb.Database) error {
	err := db.CreateFunction("normalize_name", 1, func(args []any) (any, error) {
		switch v := args[0].(type) {
		case nil:
			return nil, nil
		case string:
			return csvsrc.NormalizeName(v), nil
		case []byte:
			return csvsrc.NormalizeName(string(v)), nil
		default:
			return csvsrc.NormalizeName(fmt.Sprint(v)), nil
		}
	})
	if errors.Is(err, engine.ErrUnsupported) {
		return nil
	}
	return err
}
