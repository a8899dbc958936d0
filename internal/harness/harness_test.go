package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makisuo/confect-plus/internal/demo"
	"github.com/Makisuo/confect-plus/internal/wire"
)

func demoDeployment() Deployment {
	return Deployment{
		Tables:        demo.Tables(),
		VectorIndexes: []string{demo.VectorIndex},
		Register:      demo.Register,
	}
}

func newDemoRunner(t *testing.T) *Runner {
	t.Helper()
	r, err := NewRunner(demoDeployment())
	require.NoError(t, err)
	return r
}

func TestNewRunner_RequiresTablesAndRegister(t *testing.T) {
	_, err := NewRunner(Deployment{Register: demo.Register})
	assert.ErrorContains(t, err, "no entity schema set")

	_, err = NewRunner(Deployment{Tables: demo.Tables()})
	assert.ErrorContains(t, err, "no register function")
}

func TestRun_EchoScenario(t *testing.T) {
	r := newDemoRunner(t)

	result, err := r.Run(&Scenario{
		Name:        "echo",
		Description: "echo settles",
		Steps: []Step{
			{
				Invoke: demo.RefEcho,
				Args:   map[string]any{"message": "hi", "count": 2},
				Expect: &ExpectClause{Result: map[string]any{"response": "Echo: hi"}},
			},
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Trace, 1)
	event := result.Trace[0]
	assert.Equal(t, 1, event.Seq)
	assert.Equal(t, "invoke", event.Kind)
	assert.Equal(t, demo.RefEcho, event.Ref)
	assert.Equal(t, "ok", event.Outcome)
	assert.Equal(t, wire.String("Echo: hi"), event.Result.(wire.Object)["response"])
}

func TestRun_ExpectResultMismatch(t *testing.T) {
	r := newDemoRunner(t)

	_, err := r.Run(&Scenario{
		Name:        "mismatch",
		Description: "wrong expected response",
		Steps: []Step{
			{
				Invoke: demo.RefEcho,
				Args:   map[string]any{"message": "hi", "count": 1},
				Expect: &ExpectClause{Result: map[string]any{"response": "nope"}},
			},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "result mismatch")
}

func TestRun_ExpectErrorCode(t *testing.T) {
	r := newDemoRunner(t)

	result, err := r.Run(&Scenario{
		Name:        "anon-send",
		Description: "anonymous posting is rejected",
		Identities:  map[string]string{"tok-a": "a"},
		Steps: []Step{
			{
				Invoke: demo.RefSendMessage,
				Args:   map[string]any{"text": "hi"},
				Expect: &ExpectClause{Error: "UNAUTHENTICATED"},
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "UNAUTHENTICATED", result.Trace[0].Outcome)
}

func TestRun_UnexpectedErrorFailsStep(t *testing.T) {
	r := newDemoRunner(t)

	_, err := r.Run(&Scenario{
		Name:        "surprise",
		Description: "step without expect must succeed",
		Steps: []Step{
			{Invoke: "demo/vanished"},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected error")
}

func TestRun_IsolatedBetweenRuns(t *testing.T) {
	r := newDemoRunner(t)

	scenario := &Scenario{
		Name:        "isolation",
		Description: "each run starts from an empty store",
		Identities:  map[string]string{"tok-a": "a"},
		Steps: []Step{
			{
				Invoke: demo.RefSendMessage,
				Token:  "tok-a",
				Args:   map[string]any{"text": "only one"},
				Expect: &ExpectClause{Result: map[string]any{"id": "doc-1"}},
			},
		},
		Assertions: []Assertion{
			{Type: AssertTraceCount, Ref: demo.RefSendMessage, Count: 1},
		},
	}

	for i := 0; i < 2; i++ {
		_, err := r.Run(scenario)
		require.NoError(t, err, "run %d", i)
	}
}

func TestRun_ScheduledJobFlow(t *testing.T) {
	r := newDemoRunner(t)

	result, err := r.Run(&Scenario{
		Name:        "scheduled-notification",
		Description: "an action schedules an internal mutation, the drain lands it",
		Steps: []Step{
			{
				Invoke: demo.RefNotifySimilar,
				Args:   map[string]any{"text": "release checklist", "limit": 3},
				Expect: &ExpectClause{Result: map[string]any{"jobId": "job-1", "total": 0}},
			},
			{RunJobs: true},
		},
		Assertions: []Assertion{
			{
				Type:   AssertFinalState,
				Table:  "notifications",
				Where:  map[string]any{"text": "release checklist"},
				Expect: map[string]any{"matches": 0},
			},
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Trace, 2)
	drain := result.Trace[1]
	assert.Equal(t, "run_jobs", drain.Kind)
	assert.Equal(t, "ok", drain.Outcome)
	assert.Equal(t, 1, drain.JobsRan)
}

func TestRun_FinalStateNoMatch(t *testing.T) {
	r := newDemoRunner(t)

	_, err := r.Run(&Scenario{
		Name:        "empty-state",
		Description: "final_state over an empty table fails",
		Steps: []Step{
			{
				Invoke: demo.RefEcho,
				Args:   map[string]any{"message": "x", "count": 0},
			},
		},
		Assertions: []Assertion{
			{
				Type:   AssertFinalState,
				Table:  "messages",
				Where:  map[string]any{"author": "nobody"},
				Expect: map[string]any{"text": "anything"},
			},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no messages document matches")
}

func TestSnapshot_OmitsEmptyFields(t *testing.T) {
	v := snapshot("s", []TraceEvent{
		{Seq: 1, Kind: "run_jobs", Outcome: "ok", JobsRan: 2},
	})
	data, err := wire.MarshalCanonical(v)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"name":"s","trace":[{"jobs_ran":2,"kind":"run_jobs","outcome":"ok","seq":1}]}`,
		string(data))
}
