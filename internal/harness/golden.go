package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/Makisuo/confect-plus/internal/wire"
)

// snapshot converts a trace to a canonical wire value. Empty fields
// are omitted so the golden files stay readable.
func snapshot(scenarioName string, trace []TraceEvent) wire.Value {
	events := make(wire.Array, len(trace))
	for i, event := range trace {
		obj := wire.Object{
			"seq":     wire.Int(int64(event.Seq)),
			"kind":    wire.String(event.Kind),
			"outcome": wire.String(event.Outcome),
		}
		if event.Ref != "" {
			obj["ref"] = wire.String(event.Ref)
		}
		if event.Subject != "" {
			obj["subject"] = wire.String(event.Subject)
		}
		if event.Args != nil {
			obj["args"] = event.Args
		}
		if event.Result != nil {
			obj["result"] = event.Result
		}
		if event.Kind == "run_jobs" {
			obj["jobs_ran"] = wire.Int(int64(event.JobsRan))
		}
		events[i] = obj
	}
	return wire.Object{
		"name":  wire.String(scenarioName),
		"trace": events,
	}
}

// RunWithGolden executes a scenario and pins its trace against
// testdata/golden/<name>.golden. Regenerate with -update.
func RunWithGolden(t *testing.T, r *Runner, scenario *Scenario) error {
	t.Helper()

	result, err := r.Run(scenario)
	if err != nil {
		return err
	}

	data, err := wire.MarshalCanonical(snapshot(scenario.Name, result.Trace))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return nil
}
