package harness

import (
	"context"
	"fmt"

	"github.com/Makisuo/confect-plus/internal/local"
	"github.com/Makisuo/confect-plus/internal/platform"
	"github.com/Makisuo/confect-plus/internal/wire"
)

// evalAssertion checks one assertion against the settled trace and the
// host's final state.
func evalAssertion(ctx context.Context, host *local.Host, trace []TraceEvent, a *Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		return assertTraceContains(trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(trace, a)
	case AssertTraceCount:
		return assertTraceCount(trace, a)
	case AssertFinalState:
		return assertFinalState(ctx, host, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertTraceContains requires some invocation of Ref whose arguments
// subset-match Args.
func assertTraceContains(trace []TraceEvent, a *Assertion) error {
	want, err := wire.FromGo(anyMap(a.Args))
	if err != nil {
		return fmt.Errorf("trace_contains: args: %w", err)
	}
	for _, event := range trace {
		if event.Kind != "invoke" || event.Ref != a.Ref {
			continue
		}
		args, ok := event.Args.(wire.Object)
		if !ok {
			continue
		}
		if matchSubset(args, want.(wire.Object)) == nil {
			return nil
		}
	}
	return fmt.Errorf("trace_contains: no invocation of %q with matching args", a.Ref)
}

// assertTraceOrder requires Refs to appear as a subsequence of the
// invocations.
func assertTraceOrder(trace []TraceEvent, a *Assertion) error {
	next := 0
	for _, event := range trace {
		if next == len(a.Refs) {
			break
		}
		if event.Kind == "invoke" && event.Ref == a.Refs[next] {
			next++
		}
	}
	if next != len(a.Refs) {
		return fmt.Errorf("trace_order: %q not found in order (matched %d of %d)",
			a.Refs[next], next, len(a.Refs))
	}
	return nil
}

// assertTraceCount requires exactly Count invocations of Ref.
func assertTraceCount(trace []TraceEvent, a *Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Kind == "invoke" && event.Ref == a.Ref {
			count++
		}
	}
	if count != a.Count {
		return fmt.Errorf("trace_count: %q invoked %d times, want %d", a.Ref, count, a.Count)
	}
	return nil
}

// assertFinalState scans the table and requires that at least one
// document matches the where clause, and that every matching document
// subset-matches the expected fields. System fields ("_id",
// "_creationTime") participate like declared fields.
func assertFinalState(ctx context.Context, host *local.Host, a *Assertion) error {
	where, err := wire.FromGo(anyMap(a.Where))
	if err != nil {
		return fmt.Errorf("final_state: where: %w", err)
	}
	expect, err := wire.FromGo(anyMap(a.Expect))
	if err != nil {
		return fmt.Errorf("final_state: expect: %w", err)
	}

	matched := 0
	cursor := ""
	for {
		page, err := host.Store().Scan(ctx, a.Table, platform.ScanRequest{Cursor: cursor})
		if err != nil {
			return fmt.Errorf("final_state: scan %q: %w", a.Table, err)
		}
		for _, doc := range page.Documents {
			if matchSubset(doc, where.(wire.Object)) != nil {
				continue
			}
			matched++
			if err := matchSubset(doc, expect.(wire.Object)); err != nil {
				return fmt.Errorf("final_state: %s document %v: %w", a.Table, doc["_id"], err)
			}
		}
		if page.Done {
			break
		}
		cursor = page.Cursor
	}

	if matched == 0 {
		return fmt.Errorf("final_state: no %s document matches the where clause", a.Table)
	}
	return nil
}
