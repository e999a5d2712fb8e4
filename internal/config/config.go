// Package config centralizes run configuration. Every tunable has a default,
// may be set in an optional YAML job file, overridden by a USERLOAD_*
// environment variable, and finally by an explicit command-line flag.
//
// LoadFromArgs takes the flag set, environment lookup and arguments
// explicitly, so the binary and its tests go through the same path:
//
//	cfg, err := config.LoadFromArgs(flag.CommandLine, os.Getenv, os.Args[1:])
//
//	fs := flag.NewFlagSet("test", flag.ContinueOnError)
//	getenv := func(k string) string { return testEnv[k] }
//	cfg, err := config.LoadFromArgs(fs, getenv, []string{"-input=a.csv"})
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable holding the YAML job file path.
const EnvConfig = "USERLOAD_CONFIG"

// Config holds all process configuration. Relative paths are resolved
// against BaseDir with Resolve.
type Config struct {
	BaseDir    string            `yaml:"base_dir"`
	Job        string            `yaml:"job"`
	Input      string            `yaml:"input"`
	Output     string            `yaml:"output"`
	LogFile    string            `yaml:"log_file"`
	LogLevel   string            `yaml:"log_level"`
	LogConsole bool              `yaml:"log_console"`
	NAValues   []string          `yaml:"na_values"`
	HeaderMap  map[string]string `yaml:"header_map"`
	Storage    Storage           `yaml:"storage"`
	Metrics    Metrics           `yaml:"metrics"`

	// File is the YAML file the config was read from, if any.
	File string `yaml:"-"`
}

// Storage selects the store backend.
type Storage struct {
	Kind  string `yaml:"kind"`
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

// Metrics selects the metrics backend: "none", "prompush" or "datadog".
type Metrics struct {
	Backend        string `yaml:"backend"`
	PushgatewayURL string `yaml:"pushgateway_url"`
	DatadogAddr    string `yaml:"datadog_addr"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		BaseDir:  ".",
		Job:      "userload",
		Input:    "dataset_startup.csv",
		Output:   "newdataset_startup.csv",
		LogFile:  "data_processing.log",
		LogLevel: "info",
		NAValues: []string{"NA", "n/a"},
		Storage: Storage{
			Kind:  "sqlite",
			DSN:   "users.db",
			Table: "users",
		},
		Metrics: Metrics{Backend: "none"},
	}
}

// binding ties one flag and one environment variable to a Config field.
type binding struct {
	flag   string
	env    string
	usage  string
	isBool bool
	get    func(*Config) string
	set    func(*Config, string) error
}

func str(dst func(*Config) *string) (func(*Config) string, func(*Config, string) error) {
	return func(c *Config) string { return *dst(c) },
		func(c *Config, v string) error { *dst(c) = v; return nil }
}

var bindings = func() []binding {
	sb := func(name, env, usage string, dst func(*Config) *string) binding {
		g, s := str(dst)
		return binding{flag: name, env: env, usage: usage, get: g, set: s}
	}
	return []binding{
		sb("base_dir", "USERLOAD_BASE_DIR", "Directory relative paths are resolved against", func(c *Config) *string { return &c.BaseDir }),
		sb("job", "USERLOAD_JOB", "Job name used in logs and metrics", func(c *Config) *string { return &c.Job }),
		sb("input", "USERLOAD_INPUT", "Input CSV path", func(c *Config) *string { return &c.Input }),
		sb("output", "USERLOAD_OUTPUT", "Cleaned CSV output path", func(c *Config) *string { return &c.Output }),
		sb("log_file", "USERLOAD_LOG_FILE", "JSON log file path (empty disables)", func(c *Config) *string { return &c.LogFile }),
		sb("log_level", "USERLOAD_LOG_LEVEL", "Log level: debug, info, warn, error", func(c *Config) *string { return &c.LogLevel }),
		{
			flag: "log_console", env: "USERLOAD_LOG_CONSOLE", usage: "Also log to stderr", isBool: true,
			get: func(c *Config) string { return fmt.Sprint(c.LogConsole) },
			set: func(c *Config, v string) error {
				b, err := parseBool(v)
				c.LogConsole = b
				return err
			},
		},
		{
			flag: "na_values", env: "USERLOAD_NA_VALUES", usage: "Comma-separated tokens read as missing",
			get: func(c *Config) string { return strings.Join(c.NAValues, ",") },
			set: func(c *Config, v string) error { c.NAValues = splitList(v); return nil },
		},
		sb("storage_kind", "USERLOAD_STORAGE_KIND", "Store backend: sqlite, postgres, mysql, mssql", func(c *Config) *string { return &c.Storage.Kind }),
		sb("storage_dsn", "USERLOAD_STORAGE_DSN", "Store DSN (sqlite: file path)", func(c *Config) *string { return &c.Storage.DSN }),
		sb("storage_table", "USERLOAD_STORAGE_TABLE", "Store table name", func(c *Config) *string { return &c.Storage.Table }),
		sb("metrics_backend", "USERLOAD_METRICS_BACKEND", "Metrics backend: none, prompush, datadog", func(c *Config) *string { return &c.Metrics.Backend }),
		sb("pushgateway_url", "USERLOAD_PUSHGATEWAY_URL", "Prometheus Pushgateway URL", func(c *Config) *string { return &c.Metrics.PushgatewayURL }),
		sb("datadog_addr", "USERLOAD_DATADOG_ADDR", "DogStatsD address", func(c *Config) *string { return &c.Metrics.DatadogAddr }),
	}
}()

// rawValue records the literal flag argument so it can be applied last.
type rawValue struct {
	s      string
	isBool bool
}

func (v *rawValue) String() string     { return v.s }
func (v *rawValue) Set(s string) error { v.s = s; return nil }
func (v *rawValue) IsBoolFlag() bool   { return v.isBool }

// LoadFromArgs defines the config flags on fs, parses args and layers the
// sources: defaults, then the YAML file named by -config or USERLOAD_CONFIG,
// then USERLOAD_* variables from getenv, then flags present in args.
func LoadFromArgs(fs *flag.FlagSet, getenv func(string) string, args []string) (*Config, error) {
	cfg := Defaults()

	configPath := fs.String("config", "", "YAML job file (env "+EnvConfig+")")
	raw := make(map[string]*rawValue, len(bindings))
	byFlag := make(map[string]binding, len(bindings))
	for _, b := range bindings {
		v := &rawValue{isBool: b.isBool}
		raw[b.flag] = v
		byFlag[b.flag] = b
		fs.Var(v, b.flag, fmt.Sprintf("%s (env %s, default %q)", b.usage, b.env, b.get(&cfg)))
	}

	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	path := *configPath
	if path == "" {
		path = getenv(EnvConfig)
	}
	if path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			return nil, err
		}
		cfg.File = path
	}

	for _, b := range bindings {
		if v := getenv(b.env); v != "" {
			if err := b.set(&cfg, v); err != nil {
				return nil, fmt.Errorf("config: env %s: %w", b.env, err)
			}
		}
	}

	var ferr error
	fs.Visit(func(f *flag.Flag) {
		b, ok := byFlag[f.Name]
		if !ok || ferr != nil {
			return
		}
		if err := b.set(&cfg, raw[f.Name].s); err != nil {
			ferr = fmt.Errorf("config: flag -%s: %w", f.Name, err)
		}
	})
	if ferr != nil {
		return nil, ferr
	}
	return &cfg, nil
}

// loadYAML overlays the file onto cfg. Unknown keys are rejected.
func loadYAML(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}
	return nil
}

// Resolve returns p unchanged when empty or absolute, otherwise joined to
// BaseDir.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.BaseDir == "" {
		return p
	}
	return filepath.Join(c.BaseDir, p)
}

// StorageDSN returns the DSN to open. A SQLite DSN that is a plain file path
// is resolved against BaseDir; in-memory and URI forms are left alone.
func (c *Config) StorageDSN() string {
	dsn := c.Storage.DSN
	if c.Storage.Kind != "sqlite" || dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return dsn
	}
	return c.Resolve(dsn)
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", v)
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
