package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/loctrack/internal/durability"
	"github.com/roach88/loctrack/internal/location"
	"github.com/roach88/loctrack/internal/recorder"
	"github.com/roach88/loctrack/internal/source"
	"github.com/roach88/loctrack/internal/store"
	"github.com/roach88/loctrack/internal/testutil"
	"github.com/roach88/loctrack/internal/tracking"
)

// Epoch is the manual clock's starting time for every scenario.
var Epoch = time.UnixMilli(1700000000000)

// tickWait bounds how long a tick step waits for the backstop goroutine.
const tickWait = 2 * time.Second

// errWriteFailed is what blob writes return after fail_writes.
var errWriteFailed = errors.New("scripted write failure")

// Harness holds the wired components for one scenario run.
type Harness struct {
	scenario *Scenario
	src      *testutil.ScriptedSource
	clock    *testutil.ManualClock
	backend  *testutil.BlockingBackend
	manager  *durability.Manager
	recorder *recorder.Recorder
	tracker  *tracking.Tracker
	trace    *traceObserver
	period   time.Duration
	logger   *slog.Logger
}

// Run executes a scenario and evaluates its assertions.
//
// Returns an error only when the components cannot be wired. Step
// expectation and assertion failures are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with the components logging to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	if scenario == nil {
		return nil, fmt.Errorf("scenario is nil")
	}
	ctx := context.Background()

	h, err := newHarness(ctx, scenario, logger)
	if err != nil {
		return nil, err
	}
	defer h.close()

	result := NewResult()
	for i, step := range scenario.Steps {
		h.executeStep(ctx, i, step, result)
	}

	result.Trace = h.trace.events()
	st := h.tracker.Status()
	result.Final = FinalState{
		Status:    st.Status.String(),
		LastError: errorKind(st.LastError),
		Samples:   h.recorder.Count(),
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	h.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"events", len(result.Trace))
	return result, nil
}

func newHarness(ctx context.Context, scenario *Scenario, logger *slog.Logger) (*Harness, error) {
	h := &Harness{
		scenario: scenario,
		clock:    testutil.NewManualClock(Epoch),
		backend:  testutil.NewBlockingBackend(),
		trace:    &traceObserver{},
		period:   tracking.DefaultSavePeriod,
		logger:   logger,
	}
	if scenario.SavePeriodMs > 0 {
		h.period = time.Duration(scenario.SavePeriodMs) * time.Millisecond
	}

	h.src = testutil.NewScriptedSource(location.Position{})
	if scenario.Probe != nil {
		h.src.SetProbe(*scenario.Probe, nil)
	} else {
		h.src.SetProbe(location.Position{}, positionError(scenario.ProbeError, ""))
	}

	h.manager = durability.New(h.backend, durability.WithLogger(logger))
	rec, err := recorder.Open(ctx, h.manager,
		recorder.WithLogger(logger),
		recorder.WithExportClock(h.clock.Now),
		recorder.WithStoreOptions(store.WithNow(h.clock.Now)))
	if err != nil {
		_ = h.manager.Close()
		return nil, fmt.Errorf("open recorder: %w", err)
	}
	h.recorder = rec

	h.tracker = tracking.New(h.src, h.recorder,
		tracking.WithSavePeriod(h.period),
		tracking.WithTicker(func(d time.Duration) tracking.Ticker { return h.clock.NewTicker(d) }),
		tracking.WithObserver(h.trace),
		tracking.WithLogger(logger),
		tracking.WithIDGenerator(tracking.NewSequentialGenerator("session")))
	return h, nil
}

func (h *Harness) close() {
	h.tracker.Close()
	_ = h.manager.Close()
	_ = h.backend.Close()
}

// executeStep applies one step and drains the resulting events.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) {
	h.trace.record(TraceEvent{Type: EventStep, Step: step.Action})

	switch step.Action {
	case ActionStart:
		err := h.tracker.Start(ctx)
		got := errorKind(err)
		if got != step.ExpectError {
			result.AddError(fmt.Sprintf("steps[%d] start: expected error %q, got %q", index, step.ExpectError, got))
		}

	case ActionStop:
		h.tracker.Stop()

	case ActionPosition:
		if !h.src.Emit(*step.Position) {
			result.AddError(fmt.Sprintf("steps[%d] position: no active subscription", index))
		}

	case ActionPositionError:
		if !h.src.Fail(positionError(step.Error, step.Message)) {
			result.AddError(fmt.Sprintf("steps[%d] position_error: no active subscription", index))
		}

	case ActionTick:
		h.tick(index, result)

	case ActionSetProbe:
		if step.Position != nil {
			h.src.SetProbe(*step.Position, nil)
		} else {
			h.src.SetProbe(location.Position{}, positionError(step.Error, step.Message))
		}

	case ActionFailWrites:
		if step.Fail {
			h.backend.FailPuts(errWriteFailed)
		} else {
			h.backend.FailPuts(nil)
		}
	}

	n := h.tracker.Drain(ctx)
	h.logger.Debug("step executed",
		"step", index,
		"action", step.Action,
		"events", n)
}

// tick advances the clock one save period. When a backstop ticker is live
// it waits until the tick event is queued.
func (h *Harness) tick(index int, result *Result) {
	before := h.tracker.Pending()
	tk := h.clock.LastTicker()
	live := tk != nil && !tk.Stopped()

	h.clock.Advance(h.period)
	if !live {
		return
	}

	deadline := time.Now().Add(tickWait)
	for h.tracker.Pending() <= before {
		if time.Now().After(deadline) {
			result.AddError(fmt.Sprintf("steps[%d] tick: backstop event not queued", index))
			return
		}
		time.Sleep(time.Millisecond)
	}
}

func positionError(code, message string) error {
	c, _ := source.ParseCode(code)
	if message == "" {
		message = code
	}
	return source.NewPositionError(c, "%s", message)
}

// errorKind names err for traces and expectations. Nil is "".
func errorKind(err error) string {
	if err == nil {
		return ""
	}
	if k := location.KindOf(err); k != "" {
		return string(k)
	}
	switch {
	case errors.Is(err, tracking.ErrStartInProgress):
		return "START_IN_PROGRESS"
	case errors.Is(err, tracking.ErrStartAborted):
		return "START_ABORTED"
	case errors.Is(err, tracking.ErrClosed):
		return "CLOSED"
	}
	return "ERROR"
}

// traceObserver records tracker notifications as trace events.
type traceObserver struct {
	mu    sync.Mutex
	trace []TraceEvent
}

func (o *traceObserver) record(ev TraceEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.trace = append(o.trace, ev)
}

func (o *traceObserver) events() []TraceEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]TraceEvent{}, o.trace...)
}

func (o *traceObserver) StatusChanged(s tracking.Session) {
	o.record(TraceEvent{Type: EventStatus, Status: s.Status.String()})
}

func (o *traceObserver) PositionUpdated(p location.Position) {
	p.Accuracy = location.CloneAccuracy(p.Accuracy)
	o.record(TraceEvent{Type: EventPosition, Position: &p})
}

func (o *traceObserver) SampleSaved(s location.Sample, trigger tracking.Trigger) {
	o.record(TraceEvent{Type: EventSaved, Trigger: string(trigger), Sample: &s})
}

func (o *traceObserver) ErrorRaised(err error) {
	o.record(TraceEvent{Type: EventError, Kind: errorKind(err)})
}
