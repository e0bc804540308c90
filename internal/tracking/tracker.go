package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/loctrack/internal/location"
	"github.com/roach88/loctrack/internal/observability"
	"github.com/roach88/loctrack/internal/queue"
	"github.com/roach88/loctrack/internal/source"
)

// DefaultSavePeriod is the backstop save interval.
const DefaultSavePeriod = 30 * time.Second

var (
	// ErrStartInProgress is returned by Start while a probe is outstanding.
	ErrStartInProgress = errors.New("tracking: start already in progress")

	// ErrStartAborted is returned by Start when Stop ran during the probe.
	ErrStartAborted = errors.New("tracking: start aborted by stop")

	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("tracking: tracker closed")
)

// Saver persists a position. Implemented by *recorder.Recorder.
type Saver interface {
	Save(ctx context.Context, pos location.Position) (location.Sample, error)
}

type eventKind int

const (
	eventPosition eventKind = iota
	eventError
	eventTick
	eventEager
)

func (k eventKind) String() string {
	switch k {
	case eventPosition:
		return "position"
	case eventError:
		return "position_error"
	case eventTick:
		return "tick"
	case eventEager:
		return "eager"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// event is one unit of work for the loop. gen ties it to the session that
// produced it.
type event struct {
	kind eventKind
	gen  uint64
	pos  location.Position
	err  error
}

// Tracker is the capture state machine.
//
// Thread-safety model:
//   - Start/Stop/Status/Close: safe from any goroutine
//   - Run: must be called from exactly one goroutine
//   - Drain: alternative to Run for hosts that drive the loop themselves;
//     never call it while Run is running
//
// INVARIANTS:
//   - a subscription and a ticker exist only while Active
//   - gen changes every time a session starts or ends, so events queued by a
//     previous session are never applied
type Tracker struct {
	src        source.PositionSource
	saver      Saver
	cfg        source.Config
	savePeriod time.Duration
	newTicker  TickerFunc
	observer   Observer
	logger     *slog.Logger
	metrics    observability.MetricsRecorder
	ids        SessionIDGenerator

	events *queue.Queue[event]

	mu         sync.Mutex
	closed     bool
	gen        uint64
	session    Session
	sub        source.Subscription
	ticker     Ticker
	tickerStop chan struct{}
	notes      []func()
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithConfig sets the options passed to the source. Default: source.DefaultConfig().
func WithConfig(cfg source.Config) Option {
	return func(t *Tracker) {
		t.cfg = cfg
	}
}

// WithSavePeriod sets the backstop save interval. Default: 30s.
func WithSavePeriod(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.savePeriod = d
		}
	}
}

// WithTicker sets the ticker factory. Default: NewTimeTicker.
func WithTicker(f TickerFunc) Option {
	return func(t *Tracker) {
		t.newTicker = f
	}
}

// WithObserver sets the notification sink. Default: NopObserver.
func WithObserver(o Observer) Option {
	return func(t *Tracker) {
		t.observer = o
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// WithMetrics sets the metrics recorder. Default: no-op.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(t *Tracker) {
		t.metrics = m
	}
}

// WithIDGenerator sets the session ID generator. Default: UUIDv7Generator.
func WithIDGenerator(g SessionIDGenerator) Option {
	return func(t *Tracker) {
		t.ids = g
	}
}

// New creates an Idle tracker reading from src and saving through saver.
func New(src source.PositionSource, saver Saver, opts ...Option) *Tracker {
	t := &Tracker{
		src:        src,
		saver:      saver,
		cfg:        source.DefaultConfig(),
		savePeriod: DefaultSavePeriod,
		newTicker:  NewTimeTicker,
		observer:   NopObserver{},
		logger:     slog.Default(),
		metrics:    observability.NoopMetrics{},
		ids:        UUIDv7Generator{},
		events:     queue.New[event](),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins a tracking session.
//
// Start probes the source once and only enters Active with a position in
// hand. A probe failure moves to Faulted and is returned as a
// *location.Error. Start while Active is a no-op; Start while Faulted
// resets to Idle first.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.unlock()
		return ErrClosed
	}
	switch t.session.Status {
	case StatusActive:
		t.unlock()
		return nil
	case StatusAcquiringPermission:
		t.unlock()
		return ErrStartInProgress
	case StatusFaulted:
		t.teardownLocked()
		t.setStatusLocked(StatusIdle)
	}

	t.gen++
	gen := t.gen
	t.session = Session{ID: t.ids.Generate(), Status: StatusIdle}
	t.setStatusLocked(StatusAcquiringPermission)
	t.unlock()

	pos, err := t.src.ProbeOnce(ctx, t.cfg)

	t.mu.Lock()
	if t.gen != gen {
		t.unlock()
		return ErrStartAborted
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		t.teardownLocked()
		t.setStatusLocked(StatusIdle)
		t.unlock()
		return fmt.Errorf("start: %w", ctxErr)
	}
	if err == nil {
		err = pos.Validate()
	}
	if err != nil {
		le := source.Classify(err)
		t.faultLocked(le)
		t.unlock()
		return le
	}

	probe := copyPosition(pos)
	t.session.LastPosition = &probe
	t.session.HasSeenFirstSample = false

	// Queued before subscribing so the eager save precedes any update.
	t.events.Enqueue(event{kind: eventEager, gen: gen})

	sub, err := t.src.Subscribe(t.cfg, t.onUpdate(gen), t.onError(gen))
	if err != nil {
		le := source.Classify(err)
		t.faultLocked(le)
		t.unlock()
		return le
	}
	t.sub = sub
	t.startTickerLocked(gen)

	published := copyPosition(probe)
	t.notify(func() { t.observer.PositionUpdated(published) })
	t.setStatusLocked(StatusActive)
	t.unlock()
	return nil
}

// Stop ends the session. It is idempotent.
//
// The subscription and the ticker are cancelled before Stop returns.
// Events the session already queued are discarded. A save already in
// progress completes.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if t.session.Status == StatusIdle {
		t.unlock()
		return
	}
	t.teardownLocked()
	t.setStatusLocked(StatusIdle)
	t.unlock()
}

// Close stops the tracker for good and makes Run return.
func (t *Tracker) Close() {
	t.Stop()
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.events.Close()
}

// Status returns a snapshot of the session.
func (t *Tracker) Status() Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session.clone()
}

// Pending returns the number of queued events.
func (t *Tracker) Pending() int {
	return t.events.Len()
}

// Run is the single-writer event loop.
// Blocks until ctx is cancelled or Close is called. A cancelled ctx stops
// the active session before Run returns ctx.Err().
func (t *Tracker) Run(ctx context.Context) error {
	t.logger.Info("tracker starting")

	for {
		if ev, ok := t.events.TryDequeue(); ok {
			t.process(ctx, ev)
			continue
		}

		select {
		case <-ctx.Done():
			t.logger.Info("tracker stopping: context cancelled")
			t.Stop()
			return ctx.Err()

		case <-t.events.Wait():
			if t.events.Drained() {
				t.logger.Info("tracker stopping: closed")
				return nil
			}
		}
	}
}

// Drain applies every queued event on the calling goroutine and returns
// how many were processed.
func (t *Tracker) Drain(ctx context.Context) int {
	n := 0
	for {
		ev, ok := t.events.TryDequeue()
		if !ok {
			return n
		}
		t.process(ctx, ev)
		n++
	}
}

func (t *Tracker) onUpdate(gen uint64) func(location.Position) {
	return func(pos location.Position) {
		t.events.Enqueue(event{kind: eventPosition, gen: gen, pos: copyPosition(pos)})
	}
}

func (t *Tracker) onError(gen uint64) func(error) {
	return func(err error) {
		t.events.Enqueue(event{kind: eventError, gen: gen, err: err})
	}
}

func (t *Tracker) startTickerLocked(gen uint64) {
	tk := t.newTicker(t.savePeriod)
	stop := make(chan struct{})
	t.ticker = tk
	t.tickerStop = stop

	go func() {
		for {
			select {
			case <-stop:
				return
			case <-tk.C():
				t.events.Enqueue(event{kind: eventTick, gen: gen})
			}
		}
	}()
}

// teardownLocked cancels the subscription and ticker and retires the
// current generation.
func (t *Tracker) teardownLocked() {
	t.gen++
	if t.sub != nil {
		t.sub.Unsubscribe()
		t.sub = nil
	}
	if t.ticker != nil {
		close(t.tickerStop)
		t.ticker.Stop()
		t.ticker = nil
		t.tickerStop = nil
	}
}

func (t *Tracker) faultLocked(err *location.Error) {
	t.teardownLocked()
	t.session.LastError = err
	t.logger.Warn("tracking faulted",
		"session", t.session.ID,
		"kind", err.Kind,
		"error", err)
	t.setStatusLocked(StatusFaulted)
	t.notify(func() { t.observer.ErrorRaised(err) })
}

func (t *Tracker) setStatusLocked(to Status) {
	from := t.session.Status
	if from == to {
		return
	}
	t.session.Status = to
	t.metrics.RecordTransition(context.Background(), from.String(), to.String())
	t.logger.Info("tracking status changed",
		"session", t.session.ID,
		"from", from.String(),
		"to", to.String())

	snap := t.session.clone()
	t.notify(func() { t.observer.StatusChanged(snap) })
}

// notify queues an observer callback to run once the lock is released.
// Caller must hold t.mu.
func (t *Tracker) notify(f func()) {
	t.notes = append(t.notes, f)
}

// unlock releases t.mu and then delivers queued notifications.
func (t *Tracker) unlock() {
	notes := t.notes
	t.notes = nil
	t.mu.Unlock()
	for _, f := range notes {
		f()
	}
}

// process applies one event. Called only from Run or Drain.
func (t *Tracker) process(ctx context.Context, ev event) {
	t.mu.Lock()
	if ev.gen != t.gen || t.session.Status != StatusActive {
		t.logger.Debug("dropping stale event",
			"event", ev.kind.String(),
			"event_gen", ev.gen,
			"gen", t.gen)
		t.unlock()
		return
	}

	var trigger Trigger
	var pos location.Position

	switch ev.kind {
	case eventError:
		t.faultLocked(source.Classify(ev.err))
		t.unlock()
		return

	case eventPosition:
		if err := ev.pos.Validate(); err != nil {
			t.session.LastError = err
			t.logger.Warn("ignoring invalid position",
				"session", t.session.ID,
				"error", err)
			t.notify(func() { t.observer.ErrorRaised(err) })
			t.unlock()
			return
		}
		cached := copyPosition(ev.pos)
		t.session.LastPosition = &cached
		t.session.HasSeenFirstSample = true
		published := copyPosition(cached)
		t.notify(func() { t.observer.PositionUpdated(published) })
		trigger = TriggerUpdate
		pos = copyPosition(cached)

	case eventTick, eventEager:
		if t.session.LastPosition == nil {
			t.unlock()
			return
		}
		trigger = TriggerTimer
		if ev.kind == eventEager {
			trigger = TriggerEager
		}
		pos = copyPosition(*t.session.LastPosition)
	}

	id := t.session.ID
	t.unlock()

	t.save(ctx, ev.gen, id, pos, trigger)
}

func (t *Tracker) save(ctx context.Context, gen uint64, id string, pos location.Position, trigger Trigger) {
	sample, err := t.saver.Save(ctx, pos)
	t.metrics.RecordSave(ctx, string(trigger), err)

	t.mu.Lock()
	current := gen == t.gen
	if err != nil {
		if current {
			t.session.LastError = err
		}
		t.logger.Error("save failed",
			"session", id,
			"trigger", string(trigger),
			"error", err)
		t.notify(func() { t.observer.ErrorRaised(err) })
		t.unlock()
		return
	}

	if current {
		t.session.SavedCount++
	}
	t.logger.Debug("sample saved",
		"session", id,
		"trigger", string(trigger),
		"id", sample.ID)
	t.notify(func() { t.observer.SampleSaved(sample, trigger) })
	t.unlock()
}

func copyPosition(p location.Position) location.Position {
	p.Accuracy = location.CloneAccuracy(p.Accuracy)
	return p
}
