package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"sqlview/internal/engine"
)

// kindNotes describes what each backend can create temporarily.
var kindNotes = map[string]string{
	"sqlite":   "VIEW, TABLE; Go scalar functions",
	"postgres": "VIEW, TABLE",
	"mysql":    "TABLE",
	"mssql":    "TABLE (#temp)",
}

func newEnginesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "engines",
		Short: "List the available engine kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := table.NewWriter()
			tw.SetStyle(table.StyleLight)
			tw.AppendHeader(table.Row{"Kind", "Temporary objects"})
			for _, k := range engine.ListKinds() {
				tw.AppendRow(table.Row{k, kindNotes[k]})
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), tw.Render())
			return err
		},
	}
}
