package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "/run/kapsule/daemon.sock", cfg.Socket)
	assert.Equal(t, "30s", cfg.Timeout)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kapsulectl.toml")
	require.NoError(t, os.WriteFile(path, []byte("socket = \"/tmp/test.sock\"\ntimeout = \"5s\"\n"), 0600))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/test.sock", cfg.Socket)
	assert.Equal(t, "5s", cfg.Timeout)
	assert.Equal(t, "info", cfg.LogLevel) // unset keys keep their defaults
}

func TestLoadConfigPerUserFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "kapsule")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kapsulectl.toml"), []byte("log_level = \"debug\"\n"), 0600))

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/run/kapsule/daemon.sock", cfg.Socket)
}

func TestLoadConfigMissingExplicitPath(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}
