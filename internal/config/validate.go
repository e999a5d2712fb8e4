package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap/zapcore"

	"userload/internal/ddl"
	"userload/internal/records"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single validation finding. Path is the dotted YAML key.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static checks over cfg without touching the filesystem
// or network. storageKinds lists the registered backends; nil skips that
// check.
func Validate(cfg *Config, storageKinds []string) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(cfg.Job) == "" {
		add(SeverityError, "job", "job must not be empty; it labels logs and metrics")
	}
	if strings.TrimSpace(cfg.Input) == "" {
		add(SeverityError, "input", "input path must not be empty")
	}
	if strings.TrimSpace(cfg.Output) == "" {
		add(SeverityError, "output", "output path must not be empty")
	}
	if cfg.Input != "" && cfg.Output != "" &&
		filepath.Clean(cfg.Resolve(cfg.Input)) == filepath.Clean(cfg.Resolve(cfg.Output)) {
		add(SeverityError, "output", "output %q would overwrite the input", cfg.Output)
	}
	if cfg.LogLevel != "" {
		if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
			add(SeverityError, "log_level", "unknown level %q", cfg.LogLevel)
		}
	}
	if cfg.LogFile == "" && !cfg.LogConsole {
		add(SeverityWarning, "log_file", "no log file and console logging off; the run will be silent")
	}
	if len(cfg.NAValues) == 0 {
		add(SeverityWarning, "na_values", "no NA tokens configured; only empty fields count as missing")
	}
	for from, to := range cfg.HeaderMap {
		if !slices.Contains(records.CanonicalColumns, to) {
			add(SeverityWarning, "header_map."+from, "maps to %q, which is not a canonical column", to)
		}
	}

	issues = append(issues, validateStorage(cfg.Storage, storageKinds)...)
	issues = append(issues, validateMetrics(cfg.Metrics)...)
	return issues
}

func validateStorage(s Storage, kinds []string) []Issue {
	var issues []Issue
	if s.Kind == "" {
		issues = append(issues, Issue{SeverityError, "storage.kind", "storage kind must not be empty"})
	} else if kinds != nil && !slices.Contains(kinds, s.Kind) {
		issues = append(issues, Issue{SeverityError, "storage.kind",
			fmt.Sprintf("unsupported kind %q (have %s)", s.Kind, strings.Join(kinds, ", "))})
	}
	if strings.TrimSpace(s.DSN) == "" {
		issues = append(issues, Issue{SeverityError, "storage.dsn", "storage DSN must not be empty"})
	}
	if s.Table != "" {
		if err := ddl.ValidateFQN(s.Table); err != nil {
			issues = append(issues, Issue{SeverityError, "storage.table", err.Error()})
		}
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	switch m.Backend {
	case "", "none":
	case "prompush":
		if m.PushgatewayURL == "" {
			return []Issue{{SeverityError, "metrics.pushgateway_url", "required when metrics.backend is prompush"}}
		}
	case "datadog":
		if m.DatadogAddr == "" {
			return []Issue{{SeverityError, "metrics.datadog_addr", "required when metrics.backend is datadog"}}
		}
	default:
		return []Issue{{SeverityError, "metrics.backend", fmt.Sprintf("unknown backend %q", m.Backend)}}
	}
	return nil
}
