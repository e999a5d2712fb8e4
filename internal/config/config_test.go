package config

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, env map[string]string, args ...string) (*Config, error) {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return LoadFromArgs(fs, func(k string) string { return env[k] }, args)
}

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := load(t, nil)
	require.NoError(t, err)
	want := Defaults()
	assert.Equal(t, &want, cfg)
	assert.Empty(t, Validate(cfg, []string{"sqlite"}))
}

func TestLoad_Precedence(t *testing.T) {
	t.Parallel()

	path := writeYAML(t, `
base_dir: /data
input: from-yaml.csv
output: out-yaml.csv
log_level: debug
storage:
  kind: postgres
  dsn: postgres://yaml
header_map:
  surname: last_name
`)
	env := map[string]string{
		EnvConfig:               path,
		"USERLOAD_INPUT":        "from-env.csv",
		"USERLOAD_STORAGE_DSN":  "postgres://env",
		"USERLOAD_LOG_CONSOLE":  "yes",
		"USERLOAD_STORAGE_KIND": "",
	}

	cfg, err := load(t, env, "-input=from-flag.csv")
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "/data", cfg.BaseDir)              // yaml over default
	assert.Equal(t, "from-flag.csv", cfg.Input)        // flag over env over yaml
	assert.Equal(t, "out-yaml.csv", cfg.Output)        // yaml only
	assert.Equal(t, "debug", cfg.LogLevel)             // yaml only
	assert.Equal(t, "postgres", cfg.Storage.Kind)      // empty env value does not override
	assert.Equal(t, "postgres://env", cfg.Storage.DSN) // env over yaml
	assert.Equal(t, "users", cfg.Storage.Table)        // default survives a partial yaml section
	assert.True(t, cfg.LogConsole)
	assert.Equal(t, map[string]string{"surname": "last_name"}, cfg.HeaderMap)
}

func TestLoad_ConfigFlagBeatsEnv(t *testing.T) {
	t.Parallel()

	envFile := writeYAML(t, "job: from-env-file\n")
	flagFile := writeYAML(t, "job: from-flag-file\n")

	cfg, err := load(t, map[string]string{EnvConfig: envFile}, "-config", flagFile)
	require.NoError(t, err)
	assert.Equal(t, "from-flag-file", cfg.Job)
}

func TestLoad_BoolAndListFlags(t *testing.T) {
	t.Parallel()

	cfg, err := load(t, nil, "-log_console", "-na_values", "NA, -, null,")
	require.NoError(t, err)
	assert.True(t, cfg.LogConsole)
	assert.Equal(t, []string{"NA", "-", "null"}, cfg.NAValues)

	cfg, err = load(t, map[string]string{"USERLOAD_LOG_CONSOLE": "on"}, "-log_console=false")
	require.NoError(t, err)
	assert.False(t, cfg.LogConsole)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	_, err := load(t, map[string]string{"USERLOAD_LOG_CONSOLE": "maybe"})
	assert.ErrorContains(t, err, "USERLOAD_LOG_CONSOLE")

	_, err = load(t, nil, "-no_such_flag")
	assert.Error(t, err)

	_, err = load(t, nil, "-config", writeYAML(t, "inputs: typo.csv\n"))
	assert.ErrorContains(t, err, "decode")

	_, err = load(t, nil, "-config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "open")
}

func TestLoad_EmptyYAMLKeepsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := load(t, nil, "-config", writeYAML(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Defaults().Input, cfg.Input)
}

func TestResolve(t *testing.T) {
	t.Parallel()

	c := Config{BaseDir: "/srv/job"}
	assert.Equal(t, "/srv/job/in.csv", c.Resolve("in.csv"))
	assert.Equal(t, "/abs/in.csv", c.Resolve("/abs/in.csv"))
	assert.Equal(t, "", c.Resolve(""))

	c.Storage = Storage{Kind: "sqlite", DSN: "users.db"}
	assert.Equal(t, "/srv/job/users.db", c.StorageDSN())
	c.Storage.DSN = ":memory:"
	assert.Equal(t, ":memory:", c.StorageDSN())
	c.Storage.DSN = "file:users.db?mode=rwc"
	assert.Equal(t, "file:users.db?mode=rwc", c.StorageDSN())
	c.Storage = Storage{Kind: "postgres", DSN: "postgres://h/db"}
	assert.Equal(t, "postgres://h/db", c.StorageDSN())
}

func TestLoad_SampleJobFile(t *testing.T) {
	t.Parallel()

	cfg, err := load(t, nil, "-config", filepath.Join("..", "..", "configs", "userload.yaml"))
	require.NoError(t, err)
	assert.True(t, cfg.LogConsole)
	assert.Equal(t, "first_name", cfg.HeaderMap["prenom"])
	assert.Empty(t, Validate(cfg, []string{"sqlite"}))
}
