package harness

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/loctrack/internal/location"
	"github.com/roach88/loctrack/internal/source"
)

// Step actions.
const (
	ActionStart         = "start"
	ActionStop          = "stop"
	ActionPosition      = "position"
	ActionPositionError = "position_error"
	ActionTick          = "tick"
	ActionSetProbe      = "set_probe"
	ActionFailWrites    = "fail_writes"
)

// Assertion types.
const (
	AssertStatus       = "status"
	AssertTriggerCount = "trigger_count"
	AssertTriggerOrder = "trigger_order"
	AssertSampleCount  = "sample_count"
	AssertLastError    = "last_error"
	AssertErrorCount   = "error_count"
)

// Scenario is a scripted tracking session.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description says what the scenario checks.
	Description string `yaml:"description"`

	// Probe is the fix the first probe returns.
	Probe *location.Position `yaml:"probe,omitempty"`

	// ProbeError makes the first probe fail with this source code instead.
	ProbeError string `yaml:"probe_error,omitempty"`

	// SavePeriodMs is the backstop period. Zero means the tracker default.
	SavePeriodMs int64 `yaml:"save_period_ms,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one action applied to the session.
type Step struct {
	Action string `yaml:"action"`

	// Position is the fix for position and set_probe.
	Position *location.Position `yaml:"position,omitempty"`

	// Error is a source error code for position_error and set_probe.
	Error string `yaml:"error,omitempty"`

	// Message accompanies Error.
	Message string `yaml:"message,omitempty"`

	// Fail toggles blob write failures for fail_writes.
	Fail bool `yaml:"fail,omitempty"`

	// ExpectError is the error kind start must return.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion is a check evaluated against the finished run.
type Assertion struct {
	Type string `yaml:"type"`

	// Status is the expected final status (status).
	Status string `yaml:"status,omitempty"`

	// Trigger and Count are used by trigger_count. Count alone is used by
	// sample_count and error_count.
	Trigger string `yaml:"trigger,omitempty"`
	Count   int    `yaml:"count"`

	// Triggers is the expected relative order (trigger_order).
	Triggers []string `yaml:"triggers,omitempty"`

	// Kind is the expected last error kind (last_error).
	Kind string `yaml:"kind,omitempty"`
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return s, nil
}

// ParseScenario decodes and validates scenario YAML.
// Unknown fields are rejected.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty scenario")
		}
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Probe == nil && s.ProbeError == "" {
		return fmt.Errorf("probe or probe_error is required")
	}
	if s.Probe != nil && s.ProbeError != "" {
		return fmt.Errorf("probe and probe_error are mutually exclusive")
	}
	if s.ProbeError != "" {
		if _, err := source.ParseCode(s.ProbeError); err != nil {
			return fmt.Errorf("probe_error: %w", err)
		}
	}
	if s.SavePeriodMs < 0 {
		return fmt.Errorf("save_period_ms must be non-negative")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st *Step) error {
	switch st.Action {
	case "":
		return fmt.Errorf("steps[%d]: action is required", index)
	case ActionStart, ActionStop, ActionTick, ActionFailWrites:
	case ActionPosition:
		if st.Position == nil {
			return fmt.Errorf("steps[%d]: position is required for position", index)
		}
	case ActionPositionError:
		if _, err := source.ParseCode(st.Error); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	case ActionSetProbe:
		if (st.Position == nil) == (st.Error == "") {
			return fmt.Errorf("steps[%d]: set_probe needs exactly one of position or error", index)
		}
		if st.Error != "" {
			if _, err := source.ParseCode(st.Error); err != nil {
				return fmt.Errorf("steps[%d]: %w", index, err)
			}
		}
	default:
		return fmt.Errorf("steps[%d]: unknown action %q", index, st.Action)
	}
	if st.ExpectError != "" && st.Action != ActionStart {
		return fmt.Errorf("steps[%d]: expect_error is only valid for start", index)
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertStatus:
		if a.Status == "" {
			return fmt.Errorf("assertions[%d]: status is required for status", index)
		}
	case AssertTriggerCount:
		if a.Trigger == "" {
			return fmt.Errorf("assertions[%d]: trigger is required for trigger_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trigger_count", index)
		}
	case AssertTriggerOrder:
		if len(a.Triggers) == 0 {
			return fmt.Errorf("assertions[%d]: triggers list is required for trigger_order", index)
		}
	case AssertSampleCount, AssertErrorCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertLastError:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
