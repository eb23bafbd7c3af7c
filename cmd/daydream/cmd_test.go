package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Daydream v")
}

func TestConfigInitAndSessionLs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daydream.yaml")

	out, err := run(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")

	_, err = run(t, "config", "init", path)
	assert.Error(t, err, "refuses to overwrite")

	out, err = run(t, "session", "ls", "--config", path, "--store", "memory", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "No active sessions found.")
}
