package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loctrack/internal/location"
)

func sampleResult() *Result {
	r := NewResult()
	r.Trace = []TraceEvent{
		{Type: EventStep, Step: ActionStart},
		{Type: EventStatus, Status: "Active"},
		{Type: EventSaved, Trigger: "eager", Sample: &location.Sample{ID: 1}},
		{Type: EventSaved, Trigger: "update", Sample: &location.Sample{ID: 2}},
		{Type: EventError, Kind: "DURABILITY_WRITE_FAILED"},
		{Type: EventSaved, Trigger: "timer", Sample: &location.Sample{ID: 3}},
	}
	r.Final = FinalState{Status: "Active", LastError: "DURABILITY_WRITE_FAILED", Samples: 3}
	return r
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	errs := EvaluateAssertions(sampleResult(), []Assertion{
		{Type: AssertStatus, Status: "Active"},
		{Type: AssertTriggerCount, Trigger: "eager", Count: 1},
		{Type: AssertTriggerCount, Trigger: "manual", Count: 0},
		{Type: AssertTriggerOrder, Triggers: []string{"eager", "timer"}},
		{Type: AssertSampleCount, Count: 3},
		{Type: AssertLastError, Kind: "DURABILITY_WRITE_FAILED"},
		{Type: AssertErrorCount, Count: 1},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		want      string
	}{
		{"status", Assertion{Type: AssertStatus, Status: "Idle"}, "Expected: Idle"},
		{"trigger_count", Assertion{Type: AssertTriggerCount, Trigger: "update", Count: 2}, "Actual: 1 saves"},
		{"trigger_order", Assertion{Type: AssertTriggerOrder, Triggers: []string{"timer", "eager"}}, "matched 1"},
		{"sample_count", Assertion{Type: AssertSampleCount, Count: 1}, "Actual: 3 samples"},
		{"last_error", Assertion{Type: AssertLastError, Kind: ""}, `Actual: last error "DURABILITY_WRITE_FAILED"`},
		{"error_count", Assertion{Type: AssertErrorCount, Count: 0}, "Actual: 1 errors"},
		{"unknown", Assertion{Type: "vibes"}, `unknown assertion type "vibes"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(sampleResult(), []Assertion{tt.assertion})
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.want)
		})
	}
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertStatus,
		Expected: "Idle",
		Actual:   "Active",
		Trace:    sampleResult().Trace,
	}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: status")
	assert.Contains(t, msg, "[1] step start")
	assert.Contains(t, msg, "[3] saved eager id=1")
	assert.Contains(t, msg, "[5] error DURABILITY_WRITE_FAILED")
}
