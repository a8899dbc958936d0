package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: echo-pass
description: Echo settles with its computed value.
steps:
  - invoke: demo/echo
    args:
      message: hi
      count: 1
    expect:
      result:
        response: "Echo: hi"
assertions:
  - type: trace_count
    ref: demo/echo
    count: 1
`

const failingScenario = `name: echo-fail
description: Wrong expected response.
steps:
  - invoke: demo/echo
    args:
      message: hi
      count: 1
    expect:
      result:
        response: "wrong"
`

func writeScenario(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestTest_AllPass(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "pass.yaml", passingScenario)

	out, err := execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "PASS  echo-pass")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTest_FailureSetsExitCode(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "pass.yaml", passingScenario)
	writeScenario(t, dir, "fail.yaml", failingScenario)

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "FAIL  echo-fail")
	assert.Contains(t, out, "1 passed, 1 failed, 2 total")
}

func TestTest_FilterSelectsByName(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "pass.yaml", passingScenario)
	writeScenario(t, dir, "fail.yaml", failingScenario)

	out, err := execute(t, "test", dir, "--filter", "echo-pass")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTest_MissingDirectory(t *testing.T) {
	_, err := execute(t, "test", "no/such/dir")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTest_MalformedScenario(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "bad.yaml", "name: only-a-name\n")

	_, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
