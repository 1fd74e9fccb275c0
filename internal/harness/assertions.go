package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/roach88/graphgate/internal/client"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s -> %s\n", event.Seq, event.Command, formatValue(event.Params), event.Status)
	}

	return buf.String()
}

// assertTraceContains checks if the trace contains a command with matching
// params (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Command != assertion.Command {
			continue
		}
		if matchSubset(event.Params, assertion.Params, "params") == "" {
			return nil
		}
	}

	expected := assertion.Command
	if len(assertion.Params) > 0 {
		expected = fmt.Sprintf("%s with params %s", assertion.Command, formatValue(assertion.Params))
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the commands first appear in the given order.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	first := make(map[string]int)
	for i, event := range trace {
		if _, seen := first[event.Command]; !seen {
			first[event.Command] = i
		}
	}

	prev := -1
	for _, cmd := range assertion.Commands {
		pos, ok := first[cmd]
		if !ok {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: strings.Join(assertion.Commands, " -> "),
				Actual:   fmt.Sprintf("%s not found in trace", cmd),
				Trace:    trace,
			}
		}
		if pos < prev {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: strings.Join(assertion.Commands, " -> "),
				Actual:   fmt.Sprintf("%s first appears before %s", cmd, trace[prev].Command),
				Trace:    trace,
			}
		}
		prev = pos
	}
	return nil
}

// assertTraceCount checks that a command appears exactly Count times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Command == assertion.Command {
			count++
		}
	}
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%s appears %d times", assertion.Command, assertion.Count),
			Actual:   fmt.Sprintf("appears %d times", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState sends a read-only command and subset-matches its result.
func assertFinalState(ctx context.Context, sender Sender, assertion Assertion) error {
	params, err := normalizeParams(assertion.Params)
	if err != nil {
		return err
	}

	raw, err := sender.Send(ctx, assertion.Command, params)
	var remote *client.RemoteError
	if errors.As(err, &remote) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s succeeds", assertion.Command),
			Actual:   fmt.Sprintf("error: %s", remote.Message),
		}
	}
	if err != nil {
		return fmt.Errorf("final_state %s: %w", assertion.Command, err)
	}

	actual, err := decodeJSON(raw)
	if err != nil {
		return fmt.Errorf("final_state %s: decode result: %w", assertion.Command, err)
	}
	if mismatch := matchSubset(actual, assertion.Expect, assertion.Command); mismatch != "" {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: formatValue(assertion.Expect),
			Actual:   mismatch,
		}
	}
	return nil
}

// matchSubset reports the first place actual differs from expected, or ""
// if every key expected names is present and equal. Extra keys in actual
// are ignored at any depth. Lists must match element by element.
func matchSubset(actual, expected any, path string) string {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return fmt.Sprintf("%s: expected an object, got %s", path, formatValue(actual))
		}
		for key, ev := range exp {
			av, exists := act[key]
			if !exists {
				return fmt.Sprintf("%s.%s: missing", path, key)
			}
			if m := matchSubset(av, ev, path+"."+key); m != "" {
				return m
			}
		}
		return ""
	case []any:
		act, ok := actual.([]any)
		if !ok {
			return fmt.Sprintf("%s: expected a list, got %s", path, formatValue(actual))
		}
		if len(act) != len(exp) {
			return fmt.Sprintf("%s: expected %d elements, got %d", path, len(exp), len(act))
		}
		for i := range exp {
			if m := matchSubset(act[i], exp[i], fmt.Sprintf("%s[%d]", path, i)); m != "" {
				return m
			}
		}
		return ""
	}

	if valuesEqual(actual, expected) {
		return ""
	}
	return fmt.Sprintf("%s: expected %s, got %s", path, formatValue(expected), formatValue(actual))
}

// valuesEqual compares two scalars. Numbers compare by value regardless
// of their Go type.
func valuesEqual(actual, expected any) bool {
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}
	af, aNum := toFloat(actual)
	ef, eNum := toFloat(expected)
	if aNum || eNum {
		return aNum && eNum && af == ef
	}
	return actual == expected
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, !math.IsNaN(n)
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func formatValue(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Sender Sender
	Ctx    context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides gateway access for final_state assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			if actx == nil || actx.Sender == nil {
				err = fmt.Errorf("final_state requires a gateway")
			} else {
				err = assertFinalState(actx.Ctx, actx.Sender, assertion)
			}
		default:
			err = fmt.Errorf("unknown assertion type %q", assertion.Type)
		}

		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion[%d]: %v", i, err))
		}
	}
	return errs
}
