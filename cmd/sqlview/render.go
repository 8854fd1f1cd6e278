package main

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"

	"sqlview/internal/tempdb"
)

var formats = []string{"table", "csv", "markdown", "html", "tsv"}

func validFormat(f string) bool { return slices.Contains(formats, f) }

// render prints the rows of t in format and returns how many were printed.
func render(ctx context.Context, w io.Writer, t *tempdb.Table, format string, limit int) (int64, error) {
	c, err := t.Iterate(ctx)
	if err != nil {
		return 0, err
	}
	defer c.Close()

	tw := table.NewWriter()
	header := make(table.Row, 0, len(c.Columns()))
	for _, col := range c.Columns() {
		header = append(header, col)
	}
	tw.AppendHeader(header)

	var n int64
	for c.Next() {
		if limit > 0 && n >= int64(limit) {
			break
		}
		vals := c.Row().Values()
		row := make(table.Row, len(vals))
		for i, v := range vals {
			row[i] = cell(v)
		}
		tw.AppendRow(row)
		n++
	}
	if err := c.Err(); err != nil {
		return n, err
	}
	if err := c.Close(); err != nil {
		return n, err
	}

	var out string
	switch format {
	case "csv":
		out = tw.RenderCSV()
	case "tsv":
		out = tw.RenderTSV()
	case "markdown":
		out = tw.RenderMarkdown()
	case "html":
		out = tw.RenderHTML()
	default:
		tw.SetStyle(table.StyleLight)
		tw.AppendFooter(table.Row{fmt.Sprintf("%d row(s)", n)})
		out = tw.Render()
	}
	_, err = fmt.Fprintln(w, out)
	return n, err
}

func cell(v any) any {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	default:
		return x
	}
}
