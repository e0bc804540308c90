package testutil

import (
	"context"
	"sync"

	"github.com/roach88/loctrack/internal/location"
	"github.com/roach88/loctrack/internal/source"
)

// Compile-time interface check.
var _ source.PositionSource = (*ScriptedSource)(nil)

// ScriptedSource is a position source whose probe result and stream are
// driven by the test.
//
// Emit and Fail invoke the callbacks synchronously on the calling goroutine.
type ScriptedSource struct {
	mu           sync.Mutex
	probe        location.Position
	probeErr     error
	subscribeErr error
	gate         chan struct{}
	probing      chan struct{}
	probeCalls   int
	lastConfig   source.Config
	subs         []*ScriptedSubscription
}

// NewScriptedSource creates a source whose probe answers with pos.
func NewScriptedSource(pos location.Position) *ScriptedSource {
	return &ScriptedSource{
		probe:   pos,
		probing: make(chan struct{}, 16),
	}
}

// SetProbe changes the probe result. A non-nil err makes the probe fail.
func (s *ScriptedSource) SetProbe(pos location.Position, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.probe = pos
	s.probeErr = err
}

// SetSubscribeError makes the next Subscribe calls fail with err.
func (s *ScriptedSource) SetSubscribeError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribeErr = err
}

// HoldProbe makes ProbeOnce block until the returned release func is
// called or the probe's context is done.
func (s *ScriptedSource) HoldProbe() (release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gate := make(chan struct{})
	s.gate = gate
	var once sync.Once
	return func() {
		once.Do(func() { close(gate) })
	}
}

// Probing signals each time ProbeOnce is entered.
func (s *ScriptedSource) Probing() <-chan struct{} {
	return s.probing
}

// ProbeOnce implements source.PositionSource.
func (s *ScriptedSource) ProbeOnce(ctx context.Context, cfg source.Config) (location.Position, error) {
	s.mu.Lock()
	s.probeCalls++
	s.lastConfig = cfg
	gate := s.gate
	pos, err := s.probe, s.probeErr
	s.mu.Unlock()

	select {
	case s.probing <- struct{}{}:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return location.Position{}, ctx.Err()
		}
	}

	pos.Accuracy = location.CloneAccuracy(pos.Accuracy)
	return pos, err
}

// Subscribe implements source.PositionSource.
func (s *ScriptedSource) Subscribe(cfg source.Config, onUpdate func(location.Position), onError func(error)) (source.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastConfig = cfg
	if s.subscribeErr != nil {
		return nil, s.subscribeErr
	}
	sub := &ScriptedSubscription{onUpdate: onUpdate, onError: onError}
	s.subs = append(s.subs, sub)
	return sub, nil
}

// Emit delivers pos to the live subscription.
// Returns false when nothing is subscribed.
func (s *ScriptedSource) Emit(pos location.Position) bool {
	sub := s.Active()
	if sub == nil {
		return false
	}
	sub.Deliver(pos)
	return true
}

// Fail delivers err to the live subscription.
// Returns false when nothing is subscribed.
func (s *ScriptedSource) Fail(err error) bool {
	sub := s.Active()
	if sub == nil {
		return false
	}
	sub.DeliverError(err)
	return true
}

// Active returns the newest subscription that is not cancelled, or nil.
func (s *ScriptedSource) Active() *ScriptedSubscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.subs) - 1; i >= 0; i-- {
		if !s.subs[i].Cancelled() {
			return s.subs[i]
		}
	}
	return nil
}

// Subscriptions returns every subscription created so far.
func (s *ScriptedSource) Subscriptions() []*ScriptedSubscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*ScriptedSubscription(nil), s.subs...)
}

// ProbeCalls returns how many times ProbeOnce was called.
func (s *ScriptedSource) ProbeCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.probeCalls
}

// LastConfig returns the config passed to the latest probe or subscribe.
func (s *ScriptedSource) LastConfig() source.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastConfig
}

// ScriptedSubscription records its callbacks and whether it was cancelled.
type ScriptedSubscription struct {
	mu        sync.Mutex
	onUpdate  func(location.Position)
	onError   func(error)
	cancelled bool
}

// Unsubscribe implements source.Subscription.
func (s *ScriptedSubscription) Unsubscribe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = true
}

// Cancelled reports whether Unsubscribe has been called.
func (s *ScriptedSubscription) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// Deliver invokes the update callback even if cancelled, to simulate a
// callback racing with Unsubscribe.
func (s *ScriptedSubscription) Deliver(pos location.Position) {
	s.onUpdate(pos)
}

// DeliverError invokes the error callback even if cancelled.
func (s *ScriptedSubscription) DeliverError(err error) {
	s.onError(err)
}
