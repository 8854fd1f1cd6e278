package main

import (
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"sqlview/internal/config"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			issues := config.ValidateConfig(a.cfg)
			w := cmd.OutOrStdout()
			if len(issues) == 0 {
				_, err := fmt.Fprintln(w, "configuration OK")
				return err
			}
			tw := table.NewWriter()
			tw.SetStyle(table.StyleLight)
			tw.AppendHeader(table.Row{"Severity", "Path", "Message"})
			for _, i := range issues {
				tw.AppendRow(table.Row{i.Severity, i.Path, i.Message})
			}
			if _, err := fmt.Fprintln(w, tw.Render()); err != nil {
				return err
			}
			if config.HasErrors(issues) {
				return errors.New("configuration has errors")
			}
			return nil
		},
	}
}
