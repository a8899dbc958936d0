package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/Makisuo/confect-plus/internal/effect"
	"github.com/Makisuo/confect-plus/internal/funcs"
	"github.com/Makisuo/confect-plus/internal/identity"
	"github.com/Makisuo/confect-plus/internal/local"
	"github.com/Makisuo/confect-plus/internal/platform"
	"github.com/Makisuo/confect-plus/internal/sched"
	"github.com/Makisuo/confect-plus/internal/schema"
	"github.com/Makisuo/confect-plus/internal/store"
	"github.com/Makisuo/confect-plus/internal/testutil"
	"github.com/Makisuo/confect-plus/internal/wire"
)

// harnessEpoch pins document creation times across runs.
var harnessEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// Deployment is what the harness hosts: an entity schema set, the
// function registrations, and any similarity indexes.
type Deployment struct {
	Tables        *schema.Tables
	VectorIndexes []string
	Register      func(*funcs.Registry) error
}

// Runner executes scenarios against fresh hosts.
//
// Every Run builds a new host in a temporary directory with
// deterministic ids and clocks, so scenarios are isolated and their
// traces reproducible.
type Runner struct {
	dep Deployment
}

// NewRunner creates a runner for the deployment.
func NewRunner(dep Deployment) (*Runner, error) {
	if dep.Tables == nil {
		return nil, fmt.Errorf("harness: deployment has no entity schema set")
	}
	if dep.Register == nil {
		return nil, fmt.Errorf("harness: deployment has no register function")
	}
	return &Runner{dep: dep}, nil
}

// TraceEvent is one settled step.
type TraceEvent struct {
	// Seq is the 1-based step position.
	Seq int

	// Kind is "invoke" or "run_jobs".
	Kind string

	// Ref, Subject, and Args describe an invocation step.
	Ref     string
	Subject string
	Args    wire.Value

	// Outcome is "ok", a failure code, or "defect".
	Outcome string

	// Result is the settled return value of a successful invocation.
	Result wire.Value

	// JobsRan counts the jobs a run_jobs step drained.
	JobsRan int
}

// Result is one scenario execution.
type Result struct {
	Trace []TraceEvent
}

// Run executes a scenario: build a fresh host, run every step checking
// its expect clause, then evaluate the assertions. The trace comes
// back even when an assertion fails, so callers can still snapshot it.
func (r *Runner) Run(scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "harness-*")
	if err != nil {
		return nil, fmt.Errorf("harness: %w", err)
	}
	defer os.RemoveAll(dir)

	host, err := local.New(local.Config{
		DataDir:       dir,
		Tables:        r.dep.Tables,
		VectorIndexes: r.dep.VectorIndexes,
		Identity:      buildIdentities(scenario.Identities),
		StoreOptions: []store.Option{
			store.WithIDGenerator(testutil.NewSeqDocIDs("doc")),
			store.WithClock(testutil.NewFixedClock(harnessEpoch).Now),
		},
		QueueOptions: []sched.Option{
			sched.WithIDFunc(testutil.NewSeqJobIDs("job").Next),
			sched.WithClock(testutil.NewFixedClock(harnessEpoch).Now),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("harness: %w", err)
	}
	defer host.Close()

	if err := r.dep.Register(host.Registry()); err != nil {
		return nil, fmt.Errorf("harness: register: %w", err)
	}

	ctx := context.Background()
	result := &Result{}
	for i, step := range scenario.Steps {
		event, err := runStep(ctx, host, scenario, i, step)
		if err != nil {
			return nil, err
		}
		result.Trace = append(result.Trace, event)
	}

	slog.Debug("scenario steps settled", "scenario", scenario.Name, "steps", len(result.Trace))

	for i, assertion := range scenario.Assertions {
		if err := evalAssertion(ctx, host, result.Trace, &assertion); err != nil {
			return result, fmt.Errorf("%s: assertions[%d]: %w", scenario.Name, i, err)
		}
	}
	return result, nil
}

func runStep(ctx context.Context, host *local.Host, scenario *Scenario, i int, step Step) (TraceEvent, error) {
	event := TraceEvent{Seq: i + 1}

	if step.RunJobs {
		event.Kind = "run_jobs"
		// Relative schedules anchor on the wall clock, so drain well
		// past it.
		ran, err := host.RunDueJobs(ctx, time.Now().Add(time.Hour))
		if err != nil {
			return event, fmt.Errorf("%s: steps[%d]: run jobs: %w", scenario.Name, i, err)
		}
		event.Outcome = "ok"
		event.JobsRan = ran
		return event, nil
	}

	args, err := wire.FromGo(anyMap(step.Args))
	if err != nil {
		return event, fmt.Errorf("%s: steps[%d]: args: %w", scenario.Name, i, err)
	}

	event.Kind = "invoke"
	event.Ref = step.Invoke
	event.Subject = scenario.Identities[step.Token]
	event.Args = args

	out, invokeErr := host.Invoke(ctx, platform.FuncRef(step.Invoke), step.Token, args)
	switch {
	case invokeErr == nil:
		event.Outcome = "ok"
		event.Result = out
	case effect.IsDefect(invokeErr):
		event.Outcome = "defect"
	default:
		if f, ok := effect.AsFailure(invokeErr); ok {
			event.Outcome = string(f.Code)
		} else {
			return event, fmt.Errorf("%s: steps[%d]: %w", scenario.Name, i, invokeErr)
		}
	}

	if err := checkExpect(step.Expect, event, invokeErr); err != nil {
		return event, fmt.Errorf("%s: steps[%d]: %w", scenario.Name, i, err)
	}
	return event, nil
}

func checkExpect(expect *ExpectClause, event TraceEvent, invokeErr error) error {
	if expect == nil {
		if invokeErr != nil {
			return fmt.Errorf("unexpected error: %v", invokeErr)
		}
		return nil
	}

	if expect.Error != "" {
		if event.Outcome != expect.Error {
			return fmt.Errorf("expected failure %q, got %q", expect.Error, event.Outcome)
		}
		return nil
	}
	if invokeErr != nil {
		return fmt.Errorf("expected success, got: %v", invokeErr)
	}

	if expect.Result != nil {
		want, err := wire.FromGo(anyMap(expect.Result))
		if err != nil {
			return fmt.Errorf("expect.result: %w", err)
		}
		got, ok := event.Result.(wire.Object)
		if !ok {
			return fmt.Errorf("result is not an object")
		}
		if err := matchSubset(got, want.(wire.Object)); err != nil {
			return fmt.Errorf("result mismatch: %w", err)
		}
	}
	return nil
}

// buildIdentities maps scenario tokens onto a static provider. Tokens
// are added in sorted order so construction is deterministic.
func buildIdentities(tokens map[string]string) identity.Provider {
	if len(tokens) == 0 {
		return nil
	}
	provider := identity.NewStatic("harness")
	keys := make([]string, 0, len(tokens))
	for token := range tokens {
		keys = append(keys, token)
	}
	sort.Strings(keys)
	for _, token := range keys {
		provider.AddToken(token, tokens[token], nil)
	}
	return provider
}

// anyMap never hands wire.FromGo a nil map: a step without args is an
// empty invocation object.
func anyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// matchSubset checks every field of want against got.
func matchSubset(got, want wire.Object) error {
	for key, wantVal := range want {
		gotVal, ok := got[key]
		if !ok {
			return fmt.Errorf("missing field %q", key)
		}
		if !wire.Equal(gotVal, wantVal) {
			return fmt.Errorf("field %q: got %v, want %v", key, gotVal, wantVal)
		}
	}
	return nil
}
