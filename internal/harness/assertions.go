package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/contactstore/internal/backend"
	"github.com/roach88/contactstore/internal/contacts"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Calls    []string // Full call log for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	// Header with assertion type
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)

	// Expected vs Actual (most important info)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Calls) > 0 {
		fmt.Fprintf(&buf, "\nBackend calls:\n")
		for i, call := range e.Calls {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, call)
		}
	}

	return buf.String()
}

// assertCallCount checks the call appears exactly the specified number of times.
func assertCallCount(calls []string, assertion Assertion) error {
	count := 0
	for _, call := range calls {
		if call == assertion.Call {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertCallCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Call),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Calls:    calls,
		}
	}

	return nil
}

// assertCallOrder checks the listed calls occur in order.
// Calls don't need to be consecutive (intervening calls are allowed), and
// a call listed twice must occur twice.
func assertCallOrder(calls []string, assertion Assertion) error {
	next := 0
	for _, call := range calls {
		if next < len(assertion.Calls) && call == assertion.Calls[next] {
			next++
		}
	}

	if next < len(assertion.Calls) {
		return &AssertionError{
			Type:     AssertCallOrder,
			Expected: fmt.Sprintf("calls in order: %v", assertion.Calls),
			Actual: fmt.Sprintf("matched %d of %d, missing %s",
				next, len(assertion.Calls), assertion.Calls[next]),
			Calls: calls,
		}
	}

	return nil
}

// assertIndex compares the listed maps of ix exactly. Maps the assertion
// does not name are not checked.
func assertIndex(kind string, ix *contacts.Index, assertion Assertion) error {
	if ix == nil {
		return &AssertionError{
			Type:     kind,
			Expected: "an index",
			Actual:   "no index",
		}
	}

	maps := map[string]map[string]backend.Key{
		"byUid":      ix.ByUID,
		"byTel":      ix.ByTel,
		"byShortTel": ix.ByShortTel,
	}

	for _, name := range sortedKeys(assertion.Index) {
		expected := assertion.Index[name]
		actual := maps[name]
		if !keysEqual(expected, actual) {
			return &AssertionError{
				Type:     kind,
				Expected: fmt.Sprintf("%s = %s", name, formatKeys(expected)),
				Actual:   fmt.Sprintf("%s = %s", name, formatKeys(toInt64(actual))),
			}
		}
	}

	return nil
}

func assertDirty(dirty bool, assertion Assertion) error {
	if dirty != *assertion.Dirty {
		return &AssertionError{
			Type:     AssertDirty,
			Expected: fmt.Sprintf("dirty = %t", *assertion.Dirty),
			Actual:   fmt.Sprintf("dirty = %t", dirty),
		}
	}
	return nil
}

func keysEqual(expected map[string]int64, actual map[string]backend.Key) bool {
	if len(expected) != len(actual) {
		return false
	}
	for k, v := range expected {
		got, ok := actual[k]
		if !ok || int64(got) != v {
			return false
		}
	}
	return true
}

func toInt64(m map[string]backend.Key) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = int64(v)
	}
	return out
}

// formatKeys renders a map with sorted keys for stable messages.
func formatKeys(m map[string]int64) string {
	parts := make([]string, 0, len(m))
	for _, k := range sortedKeys(m) {
		parts = append(parts, fmt.Sprintf("%s:%d", k, m[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertCallCount:
			err = assertCallCount(result.Calls, assertion)
		case AssertCallOrder:
			err = assertCallOrder(result.Calls, assertion)
		case AssertFinalIndex:
			err = assertIndex(AssertFinalIndex, result.Index, assertion)
		case AssertPersistedIndex:
			err = assertIndex(AssertPersistedIndex, result.Persisted, assertion)
		case AssertDirty:
			if assertion.Dirty == nil {
				err = fmt.Errorf("assertion[%d]: dirty requires a value", i)
			} else {
				err = assertDirty(result.Dirty, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
