package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/envlog/log"
)

func TestSchemaCmd(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	cmd := newSchemaCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, "envlog configuration", doc["title"])
	assert.Contains(t, doc, "properties")
}

// TestRootCmdPrecedence mutates the environment and must not run in parallel.
func TestRootCmdPrecedence(t *testing.T) {
	for _, key := range []string{log.DisableFilterEnvKey, log.FilterAliasEnvKey} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	// The file asks for terminal output and errors only.
	path := filepath.Join(t.TempDir(), "log.yaml")
	require.NoError(t, os.WriteFile(path, []byte("format: terminal\nfilter: error\nqueueSize: 64\n"), 0o600))

	// The environment overrides both file values.
	t.Setenv(log.FormatEnvKey, "json")
	t.Setenv(log.FilterEnvKey, "warn")

	var stderr bytes.Buffer

	cmd := newRootCmd()
	cmd.SetErr(&stderr)
	// The flag overrides the environment's filter.
	cmd.SetArgs([]string{"--log-config", path, "--log-filter", "info"})

	require.NoError(t, cmd.Execute())

	var msgs []string

	sc := bufio.NewScanner(&stderr)
	for sc.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &entry), "env format beats file format")

		msg, ok := entry["msg"].(string)
		require.True(t, ok)

		msgs = append(msgs, msg)
	}

	require.NoError(t, sc.Err())

	assert.Equal(t, []string{
		"pipeline ready",
		"info sample",
		"warn sample",
		"error sample",
	}, msgs, "flag filter beats env and file filters")
}

func TestRootCmdInvalidFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "log.yaml")
	require.NoError(t, os.WriteFile(path, []byte("format: xml\n"), 0o600))

	cmd := newRootCmd()
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--log-config", path})

	err := cmd.Execute()
	require.ErrorIs(t, err, log.ErrReadConfig)
	require.ErrorIs(t, err, log.ErrUnknownLogFormat)
}
