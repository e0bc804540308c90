package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It carries the trace so a failure can be read without re-running.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s\n", i+1, describe(ev))
	}

	return buf.String()
}

func describe(ev TraceEvent) string {
	switch ev.Type {
	case EventStep:
		return "step " + ev.Step
	case EventStatus:
		return "status " + ev.Status
	case EventSaved:
		if ev.Sample != nil {
			return fmt.Sprintf("saved %s id=%d", ev.Trigger, ev.Sample.ID)
		}
		return "saved " + ev.Trigger
	case EventError:
		return "error " + ev.Kind
	case EventPosition:
		if ev.Position != nil {
			return fmt.Sprintf("position %.6f,%.6f", ev.Position.Latitude, ev.Position.Longitude)
		}
	}
	return ev.Type
}

func assertStatus(result *Result, a Assertion) error {
	if result.Final.Status == a.Status {
		return nil
	}
	return &AssertionError{
		Type:     AssertStatus,
		Expected: a.Status,
		Actual:   result.Final.Status,
		Trace:    result.Trace,
	}
}

func assertTriggerCount(result *Result, a Assertion) error {
	n := 0
	for _, tr := range result.Triggers() {
		if tr == a.Trigger {
			n++
		}
	}
	if n == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTriggerCount,
		Expected: fmt.Sprintf("%d saves with trigger %s", a.Count, a.Trigger),
		Actual:   fmt.Sprintf("%d saves", n),
		Trace:    result.Trace,
	}
}

// assertTriggerOrder checks that the expected triggers occur as a
// subsequence of the saved triggers. Other saves may be interleaved.
func assertTriggerOrder(result *Result, a Assertion) error {
	got := result.Triggers()
	next := 0
	for _, tr := range got {
		if next < len(a.Triggers) && tr == a.Triggers[next] {
			next++
		}
	}
	if next == len(a.Triggers) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTriggerOrder,
		Expected: fmt.Sprintf("triggers in order %v", a.Triggers),
		Actual:   fmt.Sprintf("saved triggers %v (matched %d)", got, next),
		Trace:    result.Trace,
	}
}

func assertSampleCount(result *Result, a Assertion) error {
	if result.Final.Samples == uint64(a.Count) {
		return nil
	}
	return &AssertionError{
		Type:     AssertSampleCount,
		Expected: fmt.Sprintf("%d samples", a.Count),
		Actual:   fmt.Sprintf("%d samples", result.Final.Samples),
		Trace:    result.Trace,
	}
}

func assertLastError(result *Result, a Assertion) error {
	if result.Final.LastError == a.Kind {
		return nil
	}
	return &AssertionError{
		Type:     AssertLastError,
		Expected: fmt.Sprintf("last error %q", a.Kind),
		Actual:   fmt.Sprintf("last error %q", result.Final.LastError),
		Trace:    result.Trace,
	}
}

func assertErrorCount(result *Result, a Assertion) error {
	kinds := result.ErrorKinds()
	if len(kinds) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertErrorCount,
		Expected: fmt.Sprintf("%d errors", a.Count),
		Actual:   fmt.Sprintf("%d errors %v", len(kinds), kinds),
		Trace:    result.Trace,
	}
}

// EvaluateAssertions checks every assertion against result and returns the
// failure messages. The result itself is not modified.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertStatus:
			err = assertStatus(result, a)
		case AssertTriggerCount:
			err = assertTriggerCount(result, a)
		case AssertTriggerOrder:
			err = assertTriggerOrder(result, a)
		case AssertSampleCount:
			err = assertSampleCount(result, a)
		case AssertLastError:
			err = assertLastError(result, a)
		case AssertErrorCount:
			err = assertErrorCount(result, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
