// Package harness is the conformance harness: it runs YAML-defined
// invocation scenarios against a freshly-built single-process host and
// checks the resulting trace and final state.
//
// A scenario declares identities, a sequence of steps (public
// invocations or a scheduler drain), per-step expectations, and
// trailing assertions over the trace and the document store. Every run
// uses deterministic document ids, job ids, and clocks, so a
// scenario's trace is stable and can be pinned with a golden file.
//
// Golden traces are canonical JSON. Regenerate them with:
//
//	go test ./internal/harness -update
package harness
