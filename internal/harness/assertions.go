package harness

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/reactors/internal/store"
	"github.com/roach88/reactors/internal/timing"
	"github.com/roach88/reactors/internal/trace"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string        // Assertion type for categorization
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Trace    []trace.Entry // Relevant trace entries for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	// Header with assertion type
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)

	// Expected vs Actual (most important info)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nTrace:\n")
		_ = trace.WriteText(&buf, e.Trace)
	}

	return buf.String()
}

// matchReaction reports whether name matches want. A want without "#n"
// matches every reaction of that reactor.
func matchReaction(name, want string) bool {
	if name == want {
		return true
	}
	return !strings.Contains(want, "#") && strings.HasPrefix(name, want+"#")
}

// assertFiresCount checks that the reaction executed exactly Expected times.
func assertFiresCount(entries []trace.Entry, assertion Assertion) error {
	count := 0
	for _, e := range entries {
		if e.Kind == trace.KindExec && matchReaction(e.Reaction, assertion.Reaction) {
			count++
		}
	}

	if count != assertion.Expected {
		return &AssertionError{
			Type:     AssertFiresCount,
			Expected: fmt.Sprintf("%d executions of %s", assertion.Expected, assertion.Reaction),
			Actual:   fmt.Sprintf("%d executions", count),
		}
	}
	return nil
}

// assertFiresOrder checks that reactions first executed in the specified
// order. Other executions may intervene.
func assertFiresOrder(entries []trace.Entry, assertion Assertion) error {
	// Step 1: Find first position of each expected reaction
	positions := make(map[string]int)
	for i, e := range entries {
		if e.Kind != trace.KindExec {
			continue
		}
		for _, want := range assertion.Reactions {
			if positions[want] == 0 && matchReaction(e.Reaction, want) {
				positions[want] = i + 1 // 1-indexed for readability
			}
		}
	}

	// Step 2: Verify all reactions found
	for _, r := range assertion.Reactions {
		if positions[r] == 0 {
			return &AssertionError{
				Type:     AssertFiresOrder,
				Expected: fmt.Sprintf("all reactions executed: %v", assertion.Reactions),
				Actual:   fmt.Sprintf("missing reaction: %s", r),
			}
		}
	}

	// Step 3: Verify order
	for i := 1; i < len(assertion.Reactions); i++ {
		prev := assertion.Reactions[i-1]
		curr := assertion.Reactions[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertFiresOrder,
				Expected: fmt.Sprintf("reactions in order: %v", assertion.Reactions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
			}
		}
	}
	return nil
}

// recorded returns the value entries of matching reactions and label.
func recorded(entries []trace.Entry, reaction, label string) []trace.Entry {
	var out []trace.Entry
	for _, e := range entries {
		if e.Kind == trace.KindValue && matchReaction(e.Reaction, reaction) &&
			(label == "" || e.Label == label) {
			out = append(out, e)
		}
	}
	return out
}

// assertValueAt checks that a matching value was recorded at the tag.
func assertValueAt(entries []trace.Entry, assertion Assertion) error {
	tag, err := timing.ParseTag(assertion.Tag)
	if err != nil {
		return err
	}

	var atTag []trace.Entry
	for _, e := range recorded(entries, assertion.Reaction, assertion.Label) {
		if e.Tag != tag {
			continue
		}
		if valuesEqual(e.Value, assertion.Value) {
			return nil
		}
		atTag = append(atTag, e)
	}

	actual := "nothing recorded at " + tag.String()
	if len(atTag) > 0 {
		actual = fmt.Sprintf("%d other value(s) at %s", len(atTag), tag)
	}
	return &AssertionError{
		Type:     AssertValueAt,
		Expected: fmt.Sprintf("%s recorded %s=%s at %s", assertion.Reaction, assertion.Label, trace.FormatValue(assertion.Value), tag),
		Actual:   actual,
		Trace:    atTag,
	}
}

// assertValues reads the stored trace back and compares the recorded
// sequence, so the check covers the store round trip.
func assertValues(ctx context.Context, st *store.Store, runID string, assertion Assertion) error {
	if _, err := st.ReadRun(ctx, runID); err != nil {
		return fmt.Errorf("values assertion: %w", err)
	}
	entries, err := st.ReadEntries(ctx, runID)
	if err != nil {
		return fmt.Errorf("values assertion: %w", err)
	}

	got := recorded(entries, assertion.Reaction, assertion.Label)
	match := len(got) == len(assertion.Values)
	for i := 0; match && i < len(got); i++ {
		match = valuesEqual(got[i].Value, assertion.Values[i])
	}
	if match {
		return nil
	}

	actual := make([]string, len(got))
	for i, e := range got {
		actual[i] = trace.FormatValue(e.Value)
	}
	expected := make([]string, len(assertion.Values))
	for i, v := range assertion.Values {
		expected[i] = trace.FormatValue(v)
	}
	return &AssertionError{
		Type:     AssertValues,
		Expected: fmt.Sprintf("%s %s = [%s]", assertion.Reaction, assertion.Label, strings.Join(expected, " ")),
		Actual:   fmt.Sprintf("[%s]", strings.Join(actual, " ")),
	}
}

// assertStopsAt checks the run's last tag.
func assertStopsAt(result *Result, assertion Assertion) error {
	tag, err := timing.ParseTag(assertion.Tag)
	if err != nil {
		return err
	}
	if result.Stats.Last != tag {
		return &AssertionError{
			Type:     AssertStopsAt,
			Expected: fmt.Sprintf("shutdown at %s", tag),
			Actual:   fmt.Sprintf("shutdown at %s", result.Stats.Last),
		}
	}
	return nil
}

// valuesEqual compares a recorded value with one decoded from YAML.
// Integers compare by value regardless of width.
func valuesEqual(actual, expected any) bool {
	if reflect.DeepEqual(actual, expected) {
		return true
	}
	if actual == nil || expected == nil {
		return false
	}
	return trace.FormatValue(actual) == trace.FormatValue(expected)
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
	RunID string
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for values assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertFiresCount:
			err = assertFiresCount(result.Trace, assertion)
		case AssertFiresOrder:
			err = assertFiresOrder(result.Trace, assertion)
		case AssertValueAt:
			err = assertValueAt(result.Trace, assertion)
		case AssertValues:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: values requires database context", i)
			} else {
				err = assertValues(actx.Ctx, actx.Store, actx.RunID, assertion)
			}
		case AssertStopsAt:
			err = assertStopsAt(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
