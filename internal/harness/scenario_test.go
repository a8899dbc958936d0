package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScenario_Valid(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: basic
description: One echo invocation.
steps:
  - invoke: demo/echo
    args:
      message: hi
      count: 1
assertions:
  - type: trace_count
    ref: demo/echo
    count: 1
`))
	require.NoError(t, err)

	assert.Equal(t, "basic", s.Name)
	require.Len(t, s.Steps, 1)
	assert.Equal(t, "demo/echo", s.Steps[0].Invoke)
	assert.Equal(t, map[string]any{"message": "hi", "count": 1}, s.Steps[0].Args)
	require.Len(t, s.Assertions, 1)
	assert.Equal(t, AssertTraceCount, s.Assertions[0].Type)
}

func TestParseScenario_RejectsUnknownFields(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
description: Misspelled key.
steps:
  - invoke: demo/echo
assertion:
  - type: trace_count
`))
	assert.Error(t, err)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "description: d\nsteps:\n  - invoke: f\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: n\nsteps:\n  - invoke: f\n",
			want: "description is required",
		},
		{
			name: "no steps",
			yaml: "name: n\ndescription: d\n",
			want: "steps list is required",
		},
		{
			name: "step with neither invoke nor run_jobs",
			yaml: "name: n\ndescription: d\nsteps:\n  - token: t\n",
			want: "invoke or run_jobs is required",
		},
		{
			name: "step with both invoke and run_jobs",
			yaml: "name: n\ndescription: d\nsteps:\n  - invoke: f\n    run_jobs: true\n",
			want: "mutually exclusive",
		},
		{
			name: "run_jobs step with args",
			yaml: "name: n\ndescription: d\nsteps:\n  - run_jobs: true\n    args: {x: 1}\n",
			want: "run_jobs takes no token, args, or expect",
		},
		{
			name: "undeclared token",
			yaml: "name: n\ndescription: d\nsteps:\n  - invoke: f\n    token: ghost\n",
			want: "not declared in identities",
		},
		{
			name: "assertion without type",
			yaml: "name: n\ndescription: d\nsteps:\n  - invoke: f\nassertions:\n  - ref: f\n",
			want: "type is required",
		},
		{
			name: "trace_contains without ref",
			yaml: "name: n\ndescription: d\nsteps:\n  - invoke: f\nassertions:\n  - type: trace_contains\n",
			want: "ref is required",
		},
		{
			name: "trace_order without refs",
			yaml: "name: n\ndescription: d\nsteps:\n  - invoke: f\nassertions:\n  - type: trace_order\n",
			want: "refs list is required",
		},
		{
			name: "final_state without table",
			yaml: "name: n\ndescription: d\nsteps:\n  - invoke: f\nassertions:\n  - type: final_state\n    expect: {x: 1}\n",
			want: "table is required",
		},
		{
			name: "final_state without expect",
			yaml: "name: n\ndescription: d\nsteps:\n  - invoke: f\nassertions:\n  - type: final_state\n    table: t\n",
			want: "expect is required",
		},
		{
			name: "unknown assertion type",
			yaml: "name: n\ndescription: d\nsteps:\n  - invoke: f\nassertions:\n  - type: wat\n",
			want: "unknown assertion type",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/no_such_file.yaml")
	assert.Error(t, err)
}

func TestLoadScenario_FromDisk(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/echo_roundtrip.yaml")
	require.NoError(t, err)
	assert.Equal(t, "echo-roundtrip", s.Name)
}
