package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Golden scenarios pin the exact canonical trace of each flow. The
// fixed id generators and clocks make reruns byte-identical.
func TestGoldenScenarios(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	r := newDemoRunner(t)
	for _, file := range files {
		scenario, err := LoadScenario(file)
		require.NoError(t, err, file)

		t.Run(scenario.Name, func(t *testing.T) {
			require.NoError(t, RunWithGolden(t, r, scenario))
		})
	}
}
