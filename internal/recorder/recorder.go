package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/loctrack/internal/durability"
	"github.com/roach88/loctrack/internal/location"
	"github.com/roach88/loctrack/internal/store"
)

// Flusher is the durability surface the recorder needs.
// Implemented by *durability.Manager.
type Flusher interface {
	Enqueue(snap location.Snapshot) *durability.Pending
	Load(ctx context.Context) (location.Snapshot, bool, error)
}

// Compile-time interface check.
var _ Flusher = (*durability.Manager)(nil)

// Recorder persists positions and serves read views over them.
//
// Thread-safety: all methods are safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex // serializes mutate + snapshot + enqueue
	store     *store.Store
	flusher   Flusher
	loadErr   error
	logger    *slog.Logger
	now       func() time.Time
	storeOpts []store.Option
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithExportClock sets the clock used for export dates and file names.
func WithExportClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

// WithStoreOptions passes options to the underlying store.
func WithStoreOptions(opts ...store.Option) Option {
	return func(r *Recorder) {
		r.storeOpts = append(r.storeOpts, opts...)
	}
}

// Open loads the last snapshot and returns a Recorder over it.
//
// A snapshot that cannot be loaded does not fail Open: the recorder starts
// empty and the failure is reported by LoadErr. Open only fails when ctx is
// done before loading finishes.
func Open(ctx context.Context, flusher Flusher, opts ...Option) (*Recorder, error) {
	r := &Recorder{
		flusher: flusher,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	snap, ok, err := flusher.Load(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	switch {
	case err != nil:
		r.loadErr = err
	case ok:
		s, buildErr := store.FromSnapshot(snap, r.storeOpts...)
		if buildErr == nil {
			r.store = s
			r.logger.Info("samples restored",
				"count", s.Count(),
				"next_id", s.NextID())
			return r, nil
		}
		r.loadErr = location.WrapError(location.KindDurabilityLoadFailed, "rebuild store from snapshot", buildErr)
	}

	if r.loadErr != nil {
		r.logger.Warn("starting with an empty store",
			"error", r.loadErr)
	}
	r.store = store.New(r.storeOpts...)
	return r, nil
}

// LoadErr returns the error that prevented the stored snapshot from
// loading, or nil.
func (r *Recorder) LoadErr() error {
	return r.loadErr
}

// Save appends pos and waits for the flush.
//
// On a flush failure the returned sample is still valid: the sample is in
// memory and the error is KindDurabilityWriteFailed.
func (r *Recorder) Save(ctx context.Context, pos location.Position) (location.Sample, error) {
	r.mu.Lock()
	sample, err := r.store.Append(pos)
	if err != nil {
		r.mu.Unlock()
		return location.Sample{}, err
	}
	pending := r.flusher.Enqueue(r.store.Snapshot())
	r.mu.Unlock()

	if err := pending.Wait(ctx); err != nil {
		return sample, err
	}
	r.logger.Debug("sample saved",
		"id", sample.ID,
		"timestamp", sample.Timestamp)
	return sample, nil
}

// Clear removes every sample and waits for the flush.
// The ID counter is not reset.
func (r *Recorder) Clear(ctx context.Context) error {
	r.mu.Lock()
	r.store.Clear()
	pending := r.flusher.Enqueue(r.store.Snapshot())
	r.mu.Unlock()

	if err := pending.Wait(ctx); err != nil {
		return err
	}
	r.logger.Info("samples cleared")
	return nil
}

// History returns samples newest first.
func (r *Recorder) History(limit, offset int) ([]location.Sample, error) {
	return r.store.Query(limit, offset)
}

// Count returns the number of stored samples.
func (r *Recorder) Count() uint64 {
	return r.store.Count()
}
