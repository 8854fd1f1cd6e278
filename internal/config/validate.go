package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding that should be surfaced to users but
	// does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the config (e.g. "engine.kind"). Message is
// human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// KnownEngines lists the engine kinds built into sqlview.
var KnownEngines = []string{"mssql", "mysql", "postgres", "sqlite"}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// HasErrors reports whether issues contains at least one SeverityError.
func HasErrors(issues []Issue) bool {
	return slices.ContainsFunc(issues, func(i Issue) bool { return i.Severity == SeverityError })
}

// ValidateConfig performs static validation of cfg. It does not mutate cfg;
// callers decide whether warnings are fatal.
func ValidateConfig(cfg Config) []Issue {
	var issues []Issue

	if strings.TrimSpace(cfg.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "job",
			Message:  "job is empty; metrics and logs will carry an empty job label",
		})
	}
	issues = append(issues, validateEngine(cfg.Engine)...)
	issues = append(issues, validateTempdb(cfg.Tempdb)...)
	issues = append(issues, validateLog(cfg.Log)...)
	issues = append(issues, validateMetrics(cfg.Metrics)...)
	issues = append(issues, validateCSV(cfg.CSV)...)
	issues = append(issues, validateHTTP(cfg.HTTP)...)
	return issues
}

func validateEngine(e EngineConfig) []Issue {
	var issues []Issue
	kind := strings.TrimSpace(e.Kind)
	switch {
	case kind == "":
		issues = append(issues, Issue{SeverityError, "engine.kind", "engine kind is required"})
	case !slices.Contains(KnownEngines, kind):
		issues = append(issues, Issue{SeverityError, "engine.kind",
			fmt.Sprintf("unsupported engine kind %q (want one of %s)", kind, strings.Join(KnownEngines, ", "))})
	case kind != "sqlite" && strings.TrimSpace(e.DSN) == "":
		issues = append(issues, Issue{SeverityError, "engine.dsn",
			fmt.Sprintf("dsn is required for engine kind %q", kind)})
	}
	if kind == "mysql" || kind == "mssql" {
		issues = append(issues, Issue{SeverityWarning, "engine.kind",
			fmt.Sprintf("%s has no temporary views; only TABLE queries are supported", kind)})
	}
	return issues
}

func validateTempdb(t TempdbConfig) []Issue {
	var issues []Issue
	if t.NamePrefix != "" && !identRe.MatchString(t.NamePrefix) {
		issues = append(issues, Issue{SeverityError, "tempdb.name_prefix",
			fmt.Sprintf("name prefix %q must be a plain identifier", t.NamePrefix)})
	}
	if t.ProgressEvery < 0 {
		issues = append(issues, Issue{SeverityError, "tempdb.progress_every", "must be >= 0"})
	}
	return issues
}

func validateLog(l LogConfig) []Issue {
	var issues []Issue
	if l.Level != "" {
		if _, err := logrus.ParseLevel(l.Level); err != nil {
			issues = append(issues, Issue{SeverityError, "log.level", err.Error()})
		}
	}
	switch l.Format {
	case "", "text", "json":
	default:
		issues = append(issues, Issue{SeverityError, "log.format",
			fmt.Sprintf("unknown log format %q (want text or json)", l.Format)})
	}
	return issues
}

func validateMetrics(m MetricsConfig) []Issue {
	var issues []Issue
	switch m.Backend {
	case "", "none":
	case "prompush":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{SeverityError, "metrics.pushgateway_url", "required for the prompush backend"})
		}
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, Issue{SeverityError, "metrics.datadog_addr", "required for the datadog backend"})
		}
	default:
		issues = append(issues, Issue{SeverityError, "metrics.backend",
			fmt.Sprintf("unknown metrics backend %q (want none, prompush or datadog)", m.Backend)})
	}
	for i, tag := range m.Tags {
		if !strings.Contains(tag, ":") {
			issues = append(issues, Issue{SeverityWarning, fmt.Sprintf("metrics.tags[%d]", i),
				fmt.Sprintf("tag %q is not in key:value form", tag)})
		}
	}
	return issues
}

func validateCSV(c CSVConfig) []Issue {
	var issues []Issue
	if c.Comma != "" && c.Comma != `\t` && utf8.RuneCountInString(c.Comma) != 1 {
		issues = append(issues, Issue{SeverityError, "csv.comma",
			fmt.Sprintf("delimiter %q must be a single character", c.Comma)})
	}
	if c.InferRows < 0 {
		issues = append(issues, Issue{SeverityError, "csv.infer_rows", "must be >= 0"})
	}
	return issues
}

func validateHTTP(h HTTPConfig) []Issue {
	var issues []Issue
	if h.Timeout < 0 {
		issues = append(issues, Issue{SeverityError, "http.timeout", "must be >= 0"})
	}
	if h.MaxRetries < 0 {
		issues = append(issues, Issue{SeverityError, "http.max_retries", "must be >= 0"})
	}
	if h.Insecure {
		issues = append(issues, Issue{SeverityWarning, "http.insecure", "TLS certificates of http bindings are not verified"})
	}
	return issues
}
