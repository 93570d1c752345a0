package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("bee-test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestParseFlags_Defaults(t *testing.T) {
	cfg, err := parseFlags(newFlagSet(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"bee.toml"}, cfg.ConfigPaths)
	assert.Equal(t, "debug", cfg.Mode)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.MetricsAddr)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.NoError(t, validateFlags(cfg))
}

func TestParseFlags_EnvFallbacks(t *testing.T) {
	t.Setenv("BEE_CONFIG", "base.toml, local.yaml")
	t.Setenv("BEE_LOG_LEVEL", "debug")
	t.Setenv("BEE_METRICS_ADDR", ":9090")
	t.Setenv("BEE_SHUTDOWN_TIMEOUT", "5s")
	t.Setenv("BEE_VALIDATE", "true")

	cfg, err := parseFlags(newFlagSet(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"base.toml", "local.yaml"}, cfg.ConfigPaths)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.Validate)

	cfg, err = parseFlags(newFlagSet(), []string{"-log-level", "warn", "-config", "other.json"})
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, []string{"other.json"}, cfg.ConfigPaths)
}

func TestValidateFlags(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CLIConfig)
	}{
		{"log level", func(c *CLIConfig) { c.LogLevel = "trace" }},
		{"log format", func(c *CLIConfig) { c.LogFormat = "xml" }},
		{"mode", func(c *CLIConfig) { c.Mode = "staging" }},
		{"no config", func(c *CLIConfig) { c.ConfigPaths = nil }},
		{"timeout", func(c *CLIConfig) { c.ShutdownTimeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := parseFlags(newFlagSet(), nil)
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, validateFlags(cfg))

			cfg.ShowVersion = true
			assert.NoError(t, validateFlags(cfg))
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn", "json")
	logger.Info("hidden")
	logger.Warn("shown", "stage", "sink")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "sink", line["stage"])
	assert.Equal(t, appName, line["service"])
	assert.Equal(t, Version, line["version"])
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bee.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRun_ValidateOnly(t *testing.T) {
	path := writeConfig(t, `
buffer_size = 8
[source]
type = "file"
path = "events.jsonl"
[decoder]
type = "json"
[processor]
type = ["filter", "enrich"]
filter.rules = ["block_number gt 10"]
[sink]
type = "console"
`)
	assert.NoError(t, run([]string{"-config", path, "-validate", "-log-level", "error"}))
}

func TestRun_RejectsBadConfig(t *testing.T) {
	path := writeConfig(t, "buffer_size = 8\n[source]\ntype = \"carrier-pigeon\"\n[decoder]\ntype = \"json\"\n[sink]\ntype = \"console\"\n")
	err := run([]string{"-config", path, "-validate", "-log-level", "error"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestRun_FileToFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.jsonl")
	require.NoError(t, os.WriteFile(input, []byte("{\"n\":1}\n{\"n\":2}\nnot json\n{\"n\":3}\n"), 0o600))

	path := writeConfig(t, `
buffer_size = 4
[source]
type = "file"
path = "`+filepath.ToSlash(input)+`"
[decoder]
type = "json"
max_thread = 2
[processor]
type = "filter"
filter.rules = "n gte 2"
[sink]
type = "file"
directory = "`+filepath.ToSlash(dir)+`"
file_prefix = "out"
`)
	require.NoError(t, run([]string{"-config", path, "-log-level", "error"}))

	data, err := os.ReadFile(filepath.Join(dir, "out.jsonl"))
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	assert.ElementsMatch(t, [][]byte{[]byte(`{"n":2}`), []byte(`{"n":3}`)}, lines)
}

func TestRun_Version(t *testing.T) {
	assert.NoError(t, run([]string{"-version"}))
}
