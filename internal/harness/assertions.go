package harness

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/roach88/cadbridge/internal/docmodel"
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

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, ev := range e.Trace {
			status := "ok"
			if !ev.OK {
				status = "failed: " + ev.Message
			}
			fmt.Fprintf(&buf, "  [%d] %s (%s)\n", i+1, ev.Action, status)
		}
	}
	return buf.String()
}

// AssertionContext provides the final document for state assertions.
type AssertionContext struct {
	Ctx  context.Context
	Doc  docmodel.Reader
	Keys map[string]docmodel.ElementID // fixture key -> id
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var msgs []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertParamEquals, AssertElementCount:
			if actx == nil || actx.Doc == nil {
				err = fmt.Errorf("assertion[%d]: %s requires a document", i, a.Type)
			} else if a.Type == AssertParamEquals {
				err = assertParamEquals(actx, a)
			} else {
				err = assertElementCount(actx, a)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	return msgs
}

func matches(ev TraceEvent, a Assertion) bool {
	return ev.Action == a.Action && (a.OK == nil || *a.OK == ev.OK)
}

func describe(a Assertion) string {
	if a.OK == nil {
		return a.Action
	}
	return fmt.Sprintf("%s (ok=%t)", a.Action, *a.OK)
}

// assertTraceContains checks that some step ran the action.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if matches(ev, a) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: describe(a),
		Actual:   "no matching step",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the actions appear in the given relative
// order. Other steps may be interleaved.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, ev := range trace {
		if next < len(a.Actions) && ev.Action == a.Actions[next] {
			next++
		}
	}
	if next == len(a.Actions) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: strings.Join(a.Actions, " -> "),
		Actual:   fmt.Sprintf("order broken at %q", a.Actions[next]),
		Trace:    trace,
	}
}

// assertTraceCount checks the exact number of matching steps.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	n := 0
	for _, ev := range trace {
		if matches(ev, a) {
			n++
		}
	}
	if n == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%d x %s", a.Count, describe(a)),
		Actual:   fmt.Sprintf("%d", n),
		Trace:    trace,
	}
}

// assertParamEquals checks a parameter's display value in the final
// document.
func assertParamEquals(actx *AssertionContext, a Assertion) error {
	id, err := actx.resolve(a.Element)
	if err != nil {
		return fmt.Errorf("param_equals: %w", err)
	}
	params, err := actx.Doc.Parameters(actx.Ctx, id)
	if err != nil {
		return fmt.Errorf("param_equals: element %s: %w", a.Element, err)
	}
	for _, p := range params {
		if p.Name != a.Param {
			continue
		}
		if got := p.ValueString(); got != a.Value {
			return &AssertionError{
				Type:     AssertParamEquals,
				Expected: fmt.Sprintf("%s.%s = %q", a.Element, a.Param, a.Value),
				Actual:   fmt.Sprintf("%q", got),
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     AssertParamEquals,
		Expected: fmt.Sprintf("%s.%s = %q", a.Element, a.Param, a.Value),
		Actual:   "parameter not found",
	}
}

// assertElementCount checks how many elements of a class exist, optionally
// within one view.
func assertElementCount(actx *AssertionContext, a Assertion) error {
	q := docmodel.Query{Class: docmodel.Class(a.Class), Types: docmodel.AnyKind}
	if a.View != "" {
		id, err := actx.resolve(a.View)
		if err != nil {
			return fmt.Errorf("element_count: %w", err)
		}
		q.ViewID = id
	}
	els, err := actx.Doc.Elements(actx.Ctx, q)
	if err != nil {
		return fmt.Errorf("element_count: %w", err)
	}
	if len(els) == a.Count {
		return nil
	}
	scope := a.Class
	if a.View != "" {
		scope += " in " + a.View
	}
	return &AssertionError{
		Type:     AssertElementCount,
		Expected: fmt.Sprintf("%d x %s", a.Count, scope),
		Actual:   fmt.Sprintf("%d", len(els)),
	}
}

// resolve maps a fixture key or a literal id to an element id.
func (c *AssertionContext) resolve(ref string) (docmodel.ElementID, error) {
	if id, ok := c.Keys[ref]; ok {
		return id, nil
	}
	n, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return docmodel.InvalidElementID, errors.New("unknown element " + strconv.Quote(ref))
	}
	return docmodel.ElementID(n), nil
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// matchSubset reports whether actual contains expected. Maps match when
// every expected key matches; extra keys in actual are ignored. Everything
// else must be equal.
func matchSubset(actual, expected any) bool {
	want, ok := expected.(map[string]any)
	if !ok {
		return valuesEqual(actual, expected)
	}
	got, ok := actual.(map[string]any)
	if !ok {
		return false
	}
	for key, v := range want {
		av, exists := got[key]
		if !exists || !matchSubset(av, v) {
			return false
		}
	}
	return true
}

// valuesEqual compares two normalized values for equality.
func valuesEqual(actual, expected any) bool {
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}
	return reflect.DeepEqual(actual, expected)
}
