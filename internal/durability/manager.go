package durability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/loctrack/internal/blob"
	"github.com/roach88/loctrack/internal/location"
	"github.com/roach88/loctrack/internal/observability"
	"github.com/roach88/loctrack/internal/queue"
)

// DefaultKey is the blob key holding the snapshot.
const DefaultKey = "main"

// corruptSuffix is appended to the key when an undecodable value is set aside.
const corruptSuffix = ".corrupt"

// ErrClosed is returned for flushes issued after Close.
var ErrClosed = errors.New("durability: manager closed")

// Manager serializes snapshot writes to a blob backend.
//
// Thread-safety model:
//   - Enqueue/Flush: safe from any goroutine; issue order is write order
//   - Load: safe from any goroutine, but meant to be called once at startup
//     before any flush is issued
//   - Close: safe to call more than once
//
// The Manager does not own the backend; callers close it after Close returns.
type Manager struct {
	backend blob.Backend
	key     string
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager

	requests  *queue.Queue[*flushRequest]
	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a Manager.
type Option func(*Manager)

// WithKey sets the blob key. Default: "main".
func WithKey(key string) Option {
	return func(m *Manager) {
		m.key = key
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithMetrics sets the metrics recorder. Default: no-op.
func WithMetrics(metrics observability.MetricsRecorder) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithSpans sets the span manager. Default: no-op.
func WithSpans(spans observability.SpanManager) Option {
	return func(m *Manager) {
		m.spans = spans
	}
}

type flushRequest struct {
	snap location.Snapshot
	done chan struct{}
	err  error
}

// Pending is a flush that has been issued but may not have completed.
type Pending struct {
	req *flushRequest
}

// Wait blocks until the write completes or ctx is done.
// Abandoning the wait does not cancel the write.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.req.done:
		return p.req.err
	case <-ctx.Done():
		return fmt.Errorf("wait for flush: %w", ctx.Err())
	}
}

// Done returns a channel closed when the write completes.
func (p *Pending) Done() <-chan struct{} {
	return p.req.done
}

// New creates a Manager and starts its writer goroutine.
func New(backend blob.Backend, opts ...Option) *Manager {
	m := &Manager{
		backend:  backend,
		key:      DefaultKey,
		logger:   slog.Default(),
		metrics:  observability.NoopMetrics{},
		spans:    observability.NoopSpanManager{},
		requests: queue.New[*flushRequest](),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	go m.run()
	return m
}

// Key returns the blob key the manager writes to.
func (m *Manager) Key() string {
	return m.key
}

// Enqueue issues a flush of snap without waiting for it.
// The snapshot must not be modified after the call.
func (m *Manager) Enqueue(snap location.Snapshot) *Pending {
	req := &flushRequest{snap: snap, done: make(chan struct{})}
	if !m.requests.Enqueue(req) {
		req.err = location.WrapError(location.KindDurabilityWriteFailed, "flush rejected", ErrClosed)
		close(req.done)
	}
	return &Pending{req: req}
}

// Flush writes snap and waits for the write to complete.
func (m *Manager) Flush(ctx context.Context, snap location.Snapshot) error {
	return m.Enqueue(snap).Wait(ctx)
}

// Load returns the last flushed snapshot.
// The bool is false when nothing has been written yet.
//
// A value that cannot be decoded is copied to "<key>.corrupt" before
// KindDurabilityLoadFailed is returned, so the next flush does not destroy
// the only copy.
func (m *Manager) Load(ctx context.Context) (location.Snapshot, bool, error) {
	ctx, span := m.spans.StartLoadSpan(ctx, m.key)

	data, err := m.backend.Get(ctx, m.key)
	if errors.Is(err, blob.ErrNotFound) {
		m.spans.EndSpanWithError(span, nil)
		return location.Snapshot{}, false, nil
	}
	if err != nil {
		m.spans.EndSpanWithError(span, err)
		return location.Snapshot{}, false, location.WrapError(
			location.KindDurabilityLoadFailed, "read snapshot "+m.key, err)
	}

	snap, err := Decode(data)
	if err != nil {
		m.spans.EndSpanWithError(span, err)
		m.quarantine(ctx, data)
		return location.Snapshot{}, false, location.WrapError(
			location.KindDurabilityLoadFailed, "decode snapshot "+m.key, err)
	}

	m.spans.EndSpanWithError(span, nil)
	m.logger.Debug("snapshot loaded",
		"key", m.key,
		"samples", len(snap.Samples),
		"next_id", snap.NextID)
	return snap, true, nil
}

func (m *Manager) quarantine(ctx context.Context, data []byte) {
	key := m.key + corruptSuffix
	if err := m.backend.Put(ctx, key, data); err != nil {
		m.logger.Error("failed to set aside corrupt snapshot",
			"key", key,
			"error", err)
		return
	}
	m.logger.Warn("corrupt snapshot set aside",
		"key", key,
		"bytes", len(data))
}

// Close stops accepting flushes and waits for queued flushes to finish.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.requests.Close()
	})
	<-m.done
	return nil
}

// run is the single writer. It exits once the queue is closed and drained.
func (m *Manager) run() {
	defer close(m.done)

	for {
		if req, ok := m.requests.TryDequeue(); ok {
			m.write(req)
			continue
		}

		<-m.requests.Wait()
		if m.requests.Drained() {
			return
		}
	}
}

func (m *Manager) write(req *flushRequest) {
	defer close(req.done)

	ctx, span := m.spans.StartFlushSpan(context.Background(), m.key, len(req.snap.Samples))
	start := time.Now()

	data, err := Encode(req.snap)
	if err == nil {
		err = m.backend.Put(ctx, m.key, data)
	}

	m.spans.EndSpanWithError(span, err)
	m.metrics.RecordFlush(ctx, time.Since(start), int64(len(data)), err)

	if err != nil {
		m.logger.Error("snapshot flush failed",
			"key", m.key,
			"samples", len(req.snap.Samples),
			"error", err)
		req.err = location.WrapError(location.KindDurabilityWriteFailed, "flush snapshot "+m.key, err)
		return
	}

	m.logger.Debug("snapshot flushed",
		"key", m.key,
		"samples", len(req.snap.Samples),
		"bytes", len(data))
}
