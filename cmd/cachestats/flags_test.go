package main

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/cachestats/management"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestParseFlags_Defaults(t *testing.T) {
	cfg, err := parseFlags(newFlagSet(), nil)
	require.NoError(t, err)

	assert.Empty(t, cfg.ConfigPath)
	assert.Empty(t, cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.NoError(t, validateFlags(cfg))
}

func TestParseFlags_EnvFallback(t *testing.T) {
	t.Setenv("CACHESTATS_LOG_LEVEL", "debug")
	t.Setenv("CACHESTATS_SHUTDOWN_TIMEOUT", "5s")

	cfg, err := parseFlags(newFlagSet(), []string{"--log-format=text"})
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

func TestValidateFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0o600))

	tests := []struct {
		name    string
		cfg     CLIConfig
		wantErr bool
	}{
		{"existing config", CLIConfig{ConfigPath: path, ShutdownTimeout: time.Second}, false},
		{"missing config", CLIConfig{ConfigPath: path + ".missing", ShutdownTimeout: time.Second}, true},
		{"bad level", CLIConfig{LogLevel: "loud", ShutdownTimeout: time.Second}, true},
		{"bad format", CLIConfig{LogFormat: "xml", ShutdownTimeout: time.Second}, true},
		{"zero timeout", CLIConfig{}, true},
		{"bad query", CLIConfig{Query: "justone", ShutdownTimeout: time.Second}, true},
		{"watch", CLIConfig{Watch: true, ShutdownTimeout: time.Second}, false},
		{"write config", CLIConfig{WriteConfig: "out.yml", ShutdownTimeout: time.Second}, false},
		{"write config bad extension", CLIConfig{WriteConfig: "out.toml", ShutdownTimeout: time.Second}, true},
		{"query and watch", CLIConfig{Query: "app/sessions", Watch: true, ShutdownTimeout: time.Second}, true},
		{"validate and write config", CLIConfig{Validate: true, WriteConfig: "out.json", ShutdownTimeout: time.Second}, true},
		{"version skips checks", CLIConfig{ShowVersion: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFlags(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseQueryTarget(t *testing.T) {
	req, err := parseQueryTarget("app/sessions")
	require.NoError(t, err)
	assert.Equal(t, management.QueryRequest{Namespace: "app", Name: "sessions"}, req)

	req, err = parseQueryTarget("app/sessions/CacheHits")
	require.NoError(t, err)
	assert.Equal(t, "CacheHits", req.Attribute)

	req, err = parseQueryTarget("file:%2F%2F%2Fopt%2Fehcache%2Fmanager/myCache/CachePuts")
	require.NoError(t, err)
	assert.Equal(t, management.QueryRequest{
		Namespace: "file:///opt/ehcache/manager",
		Name:      "myCache",
		Attribute: "CachePuts",
	}, req)

	for _, bad := range []string{"", "app", "app//CacheHits", "a/b/c/d", " /x", "app/%zz"} {
		_, err := parseQueryTarget(bad)
		assert.Error(t, err, bad)
	}
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: warn
  format: json
caches:
  - namespace: app
    name: sessions
    capacity: 4
`), 0o600))

	cfg, err := loadConfig(&CLIConfig{ConfigPath: path, LogFormat: "text"})
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	require.Len(t, cfg.Caches, 1)
	assert.Equal(t, 4, cfg.Caches[0].Capacity)

	_, err = loadConfig(&CLIConfig{ConfigPath: path, LogLevel: "chatty"})
	assert.Error(t, err)
}
