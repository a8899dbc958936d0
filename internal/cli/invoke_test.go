package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoke_Echo(t *testing.T) {
	out, err := execute(t, "invoke", "demo/echo",
		"--args", `{"message":"hi","count":2}`)
	require.NoError(t, err)
	assert.Contains(t, out, `"response":"Echo: hi"`)
	assert.Contains(t, out, `"repeated":["hi","hi"]`)
}

func TestInvoke_PersistsAcrossRunsWithDataDir(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "invoke", "demo/sendMessage",
		"--as", "alice",
		"--args", `{"text":"hello"}`,
		"--data-dir", dir)
	require.NoError(t, err)

	out, err := execute(t, "invoke", "demo/listMessages",
		"--args", `{}`,
		"--data-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, `"author":"alice"`)
	assert.Contains(t, out, `"text":"hello"`)
}

func TestInvoke_UnauthenticatedMutation(t *testing.T) {
	out, err := execute(t, "invoke", "demo/sendMessage",
		"--args", `{"text":"hello"}`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "UNAUTHENTICATED")
}

func TestInvoke_UnknownFunction(t *testing.T) {
	out, err := execute(t, "invoke", "demo/nope", "--args", `{}`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "NOT_FOUND")
}

func TestInvoke_InternalFunctionHidden(t *testing.T) {
	out, err := execute(t, "invoke", "demo/messageCount", "--args", `{}`)
	require.Error(t, err)
	assert.Contains(t, out, "NOT_FOUND")
}

func TestInvoke_MalformedArgs(t *testing.T) {
	_, err := execute(t, "invoke", "demo/echo", "--args", `not json`)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
