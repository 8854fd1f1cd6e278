package main

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sqlview/internal/config"
	"sqlview/internal/logging"
	"sqlview/internal/metrics"
	"sqlview/internal/metrics/datadog"
	"sqlview/internal/metrics/prompush"
)

// app is the state shared by subcommands once the root has loaded config.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     config.Config
	log     *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "sqlview",
		Short:         "Query CSV files with SQL through temporary views",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVarP(&a.cfgFile, "config", "c", "", "config file (yaml, json or toml)")
	f.String("engine", "", "engine kind: sqlite, postgres, mysql or mssql")
	f.String("dsn", "", "engine DSN")
	f.String("job", "", "job label for logs and metrics")
	f.String("log-level", "", "log level (debug, info, warn, error)")
	f.String("log-format", "", "log format (text or json)")
	f.String("metrics", "", "metrics backend (none, prompush or datadog)")
	f.String("comma", "", "CSV delimiter")
	for flag, key := range map[string]string{
		"engine":     "engine.kind",
		"dsn":        "engine.dsn",
		"job":        "job",
		"log-level":  "log.level",
		"log-format": "log.format",
		"metrics":    "metrics.backend",
		"comma":      "csv.comma",
	} {
		_ = a.v.BindPFlag(key, f.Lookup(flag))
	}

	root.AddCommand(newQueryCmd(a), newEnginesCmd(), newValidateCmd(a))
	return root
}

// init loads configuration, builds the logger and installs the metrics
// backend. validate only needs the first step.
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	if cmd.Name() == "validate" {
		return nil
	}

	if issues := config.ValidateConfig(cfg); config.HasErrors(issues) {
		return fmt.Errorf("invalid configuration: %s", joinIssues(issues))
	}
	a.log, err = logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	b, err := newMetricsBackend(cfg)
	if err != nil {
		return err
	}
	metrics.SetBackend(b)
	return nil
}

func newMetricsBackend(cfg config.Config) (metrics.Backend, error) {
	m := cfg.Metrics
	switch strings.ToLower(m.Backend) {
	case "", "none":
		return nil, nil
	case "prompush":
		b, err := prompush.NewBackend(cfg.Job, m.PushgatewayURL)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{Addr: m.DatadogAddr, Namespace: m.Namespace, GlobalTags: m.Tags})
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown metrics backend %q", m.Backend)
	}
}

func joinIssues(issues []config.Issue) string {
	parts := make([]string, 0, len(issues))
	for _, i := range issues {
		if i.Severity == config.SeverityError {
			parts = append(parts, i.Path+": "+i.Message)
		}
	}
	return strings.Join(parts, "; ")
}
