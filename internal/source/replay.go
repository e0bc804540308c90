package source

import (
	"context"
	"sync"
	"time"

	"github.com/roach88/loctrack/internal/location"
)

// Compile-time interface checks.
var (
	_ PositionSource = (*Replay)(nil)
	_ PositionSource = (*Static)(nil)
)

// DefaultInterval is the delay between replayed fixes.
const DefaultInterval = time.Second

// Replay plays a Track back. The probe answers with the first fix; a
// subscription then emits the remaining fixes one per interval. With loop
// set, the track restarts from the first fix once exhausted.
//
// A fix carrying an error is reported through onError and ends the stream.
type Replay struct {
	track    *Track
	interval time.Duration
	loop     bool
	now      func() time.Time
}

// ReplayOption configures a Replay.
type ReplayOption func(*Replay)

// WithInterval sets the delay between fixes.
func WithInterval(d time.Duration) ReplayOption {
	return func(r *Replay) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithLoop restarts the track after the last fix.
func WithLoop(loop bool) ReplayOption {
	return func(r *Replay) {
		r.loop = loop
	}
}

// WithNow sets the clock used to stamp fixes without a timestamp.
func WithNow(now func() time.Time) ReplayOption {
	return func(r *Replay) {
		r.now = now
	}
}

// NewReplay creates a replay source over track.
func NewReplay(track *Track, opts ...ReplayOption) *Replay {
	r := &Replay{
		track:    track,
		interval: DefaultInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ProbeOnce implements PositionSource.
func (r *Replay) ProbeOnce(ctx context.Context, _ Config) (location.Position, error) {
	if err := ctx.Err(); err != nil {
		return location.Position{}, err
	}
	return r.track.Fixes[0].resolve(r.now().UnixMilli())
}

// Subscribe implements PositionSource.
func (r *Replay) Subscribe(_ Config, onUpdate func(location.Position), onError func(error)) (Subscription, error) {
	fixes := r.track.Fixes
	s := newStream()

	go func() {
		defer close(s.done)

		next := 1
		if next >= len(fixes) {
			if !r.loop {
				return
			}
			next = 0
		}

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
			}

			pos, err := fixes[next].resolve(r.now().UnixMilli())
			if err != nil {
				onError(err)
				return
			}
			onUpdate(pos)

			next++
			if next >= len(fixes) {
				if !r.loop {
					return
				}
				next = 0
			}
		}
	}()

	return s, nil
}

// Static reports the same coordinates on every probe and every interval.
type Static struct {
	pos      location.Position
	interval time.Duration
	now      func() time.Time
}

// NewStatic creates a static source. A zero interval emits nothing after
// the probe.
func NewStatic(latitude, longitude float64, accuracy *float64, interval time.Duration) *Static {
	return &Static{
		pos: location.Position{
			Latitude:  latitude,
			Longitude: longitude,
			Accuracy:  location.CloneAccuracy(accuracy),
		},
		interval: interval,
		now:      time.Now,
	}
}

func (s *Static) fix() location.Position {
	p := s.pos
	p.Accuracy = location.CloneAccuracy(s.pos.Accuracy)
	p.Timestamp = s.now().UnixMilli()
	return p
}

// ProbeOnce implements PositionSource.
func (s *Static) ProbeOnce(ctx context.Context, _ Config) (location.Position, error) {
	if err := ctx.Err(); err != nil {
		return location.Position{}, err
	}
	return s.fix(), nil
}

// Subscribe implements PositionSource.
func (s *Static) Subscribe(_ Config, onUpdate func(location.Position), _ func(error)) (Subscription, error) {
	st := newStream()
	if s.interval <= 0 {
		close(st.done)
		return st, nil
	}

	go func() {
		defer close(st.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-st.stop:
				return
			case <-ticker.C:
				onUpdate(s.fix())
			}
		}
	}()
	return st, nil
}

// stream is the Subscription shared by the built-in sources.
type stream struct {
	once sync.Once
	stop chan struct{}
	done chan struct{}
}

func newStream() *stream {
	return &stream{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Unsubscribe stops the stream and waits for its goroutine to exit.
// Must not be called from inside a callback.
func (s *stream) Unsubscribe() {
	s.once.Do(func() {
		close(s.stop)
	})
	<-s.done
}
