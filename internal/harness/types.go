package harness

import "github.com/roach88/loctrack/internal/location"

// Trace event types.
const (
	EventStep     = "step"
	EventStatus   = "status"
	EventPosition = "position"
	EventSaved    = "saved"
	EventError    = "error"
)

// TraceEvent is one entry of a scenario trace. Only the fields relevant to
// Type are set.
type TraceEvent struct {
	Type     string             `json:"type"`
	Step     string             `json:"step,omitempty"`
	Status   string             `json:"status,omitempty"`
	Trigger  string             `json:"trigger,omitempty"`
	Kind     string             `json:"kind,omitempty"`
	Position *location.Position `json:"position,omitempty"`
	Sample   *location.Sample   `json:"sample,omitempty"`
}

// FinalState is what the scenario left behind.
type FinalState struct {
	Status    string `json:"status"`
	LastError string `json:"last_error,omitempty"`
	Samples   uint64 `json:"samples"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace holds steps and observer notifications in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	Final FinalState `json:"final"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Triggers returns the triggers of saved events in trace order.
func (r *Result) Triggers() []string {
	var out []string
	for _, ev := range r.Trace {
		if ev.Type == EventSaved {
			out = append(out, ev.Trigger)
		}
	}
	return out
}

// ErrorKinds returns the kinds of error events in trace order.
func (r *Result) ErrorKinds() []string {
	var out []string
	for _, ev := range r.Trace {
		if ev.Type == EventError {
			out = append(out, ev.Kind)
		}
	}
	return out
}
