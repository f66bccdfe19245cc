package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/graphgrad/internal/cli"
)

func TestRun_Version(t *testing.T) {
	var out, logs bytes.Buffer
	require.NoError(t, run(&out, &logs, []string{"version"}))
	assert.Equal(t, "graphgrad "+version+"\n", out.String())
}

func TestRun_UsageWithoutArgs(t *testing.T) {
	var out, logs bytes.Buffer
	require.NoError(t, run(&out, &logs, nil))
	assert.Contains(t, out.String(), "Usage:")
}

func TestRun_BadFlag(t *testing.T) {
	var out, logs bytes.Buffer
	err := run(&out, &logs, []string{"-passes", "-1", "g.hcl"})
	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}

func TestRun_Graph(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.hcl")
	src := `
leaf "x" { value = [1, 2, 3] }
leaf "y" { value = [4, 5, 6] }
node "d" {
  op     = "sub"
  inputs = ["x", "y"]
}
output = "d"
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))

	var out, logs bytes.Buffer
	require.NoError(t, run(&out, &logs, []string{"-log-level", "warn", path}))
	assert.Contains(t, out.String(), "y [leaf (3,)] value=[4 5 6] grad=[-1 -1 -1]")
	assert.Empty(t, logs.String())
}
