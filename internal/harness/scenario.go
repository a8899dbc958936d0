package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is one conformance test: a named flow of invocations with
// expectations, plus assertions over the final trace and state.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Identities maps invocation tokens to subjects. Steps reference
	// tokens; an empty token invokes unauthenticated.
	Identities map[string]string `yaml:"identities,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and final state after all steps.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is either a public invocation or a scheduler drain, never both.
type Step struct {
	// Invoke is the function reference to call.
	Invoke string `yaml:"invoke,omitempty"`

	// Token selects the caller identity; empty is unauthenticated.
	Token string `yaml:"token,omitempty"`

	// Args are the raw invocation arguments.
	Args map[string]any `yaml:"args,omitempty"`

	// Expect validates the step's settlement. A step without an
	// expect clause must merely settle without error.
	Expect *ExpectClause `yaml:"expect,omitempty"`

	// RunJobs drains every due scheduled job instead of invoking.
	RunJobs bool `yaml:"run_jobs,omitempty"`
}

// ExpectClause pins a step's outcome.
type ExpectClause struct {
	// Error is the expected failure code (e.g. "UNAUTHENTICATED").
	// Empty means the step must succeed.
	Error string `yaml:"error,omitempty"`

	// Result holds expected return fields. Subset match: only the
	// listed fields are compared.
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion validates the trace or the final document state.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count,
	// final_state.
	Type string `yaml:"type"`

	// Ref is the function reference (trace_contains, trace_count).
	Ref string `yaml:"ref,omitempty"`

	// Args are expected invocation arguments, subset-matched
	// (trace_contains).
	Args map[string]any `yaml:"args,omitempty"`

	// Refs is the expected invocation order (trace_order). The trace
	// must contain these references as a subsequence.
	Refs []string `yaml:"refs,omitempty"`

	// Count is the expected number of invocations (trace_count).
	Count int `yaml:"count,omitempty"`

	// Table names the document table (final_state).
	Table string `yaml:"table,omitempty"`

	// Where filters documents by exact field values (final_state).
	Where map[string]any `yaml:"where,omitempty"`

	// Expect holds expected field values for every document the
	// where clause selects, subset-matched (final_state). At least
	// one document must match the where clause.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML bytes.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		switch {
		case step.RunJobs && step.Invoke != "":
			return fmt.Errorf("steps[%d]: run_jobs and invoke are mutually exclusive", i)
		case !step.RunJobs && step.Invoke == "":
			return fmt.Errorf("steps[%d]: invoke or run_jobs is required", i)
		case step.RunJobs && (step.Token != "" || step.Args != nil || step.Expect != nil):
			return fmt.Errorf("steps[%d]: run_jobs takes no token, args, or expect", i)
		}
		if step.Token != "" {
			if _, ok := s.Identities[step.Token]; !ok {
				return fmt.Errorf("steps[%d]: token %q not declared in identities", i, step.Token)
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceContains:
		if a.Ref == "" {
			return fmt.Errorf("assertions[%d]: ref is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Refs) == 0 {
			return fmt.Errorf("assertions[%d]: refs list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Ref == "" {
			return fmt.Errorf("assertions[%d]: ref is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
