package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/roach88/loctrack/internal/location"
)

// DefaultExportLimit bounds ExportAll when the caller passes no limit.
const DefaultExportLimit = 10000

// Store holds location samples in memory.
//
// INVARIANTS:
//   - samples is sorted ascending by (Timestamp, ID)
//   - nextID is greater than every ID ever issued by this store or carried
//     by the snapshot it was loaded from
//
// Thread-safety: all methods are safe for concurrent use. Readers share an
// RWMutex read lock; Append and Clear take the write lock.
type Store struct {
	mu      sync.RWMutex
	samples []location.Sample
	nextID  uint64
	clock   *CreationClock
}

// Option configures a Store.
type Option func(*Store)

// WithNow sets the wall clock used for created_at stamps.
func WithNow(now func() time.Time) Option {
	return func(s *Store) {
		s.clock = NewCreationClock(now)
	}
}

// New creates an empty store. The first appended sample gets ID 1.
func New(opts ...Option) *Store {
	s := &Store{
		samples: make([]location.Sample, 0, 64),
		nextID:  1,
		clock:   NewCreationClock(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FromSnapshot rebuilds a store from a durable snapshot.
//
// Samples are re-sorted, so a snapshot written by an older ordering is still
// accepted. Duplicate IDs or non-finite coordinates are rejected. A NextID
// that does not exceed the largest sample ID is raised to maxID+1 so that IDs
// are never reused.
func FromSnapshot(snap location.Snapshot, opts ...Option) (*Store, error) {
	s := New(opts...)

	seen := make(map[uint64]struct{}, len(snap.Samples))
	var maxID uint64
	var maxCreated int64
	for _, sample := range snap.Samples {
		if sample.ID == 0 {
			return nil, fmt.Errorf("from snapshot: sample with zero id")
		}
		if _, dup := seen[sample.ID]; dup {
			return nil, fmt.Errorf("from snapshot: duplicate sample id %d", sample.ID)
		}
		seen[sample.ID] = struct{}{}
		if err := sample.Position().Validate(); err != nil {
			return nil, fmt.Errorf("from snapshot: sample %d: %w", sample.ID, err)
		}
		maxID = max(maxID, sample.ID)
		maxCreated = max(maxCreated, sample.CreatedAt)
	}

	restored := snap.Clone()
	s.samples = restored.Samples
	sort.Slice(s.samples, func(i, j int) bool {
		return less(s.samples[i], s.samples[j])
	})

	s.nextID = max(snap.NextID, maxID+1, 1)
	s.clock.Advance(maxCreated)
	return s, nil
}

// Append validates p, assigns the next ID and a creation time, and inserts
// the resulting sample. Nothing is mutated when validation fails.
func (s *Store) Append(p location.Position) (location.Sample, error) {
	if err := p.Validate(); err != nil {
		return location.Sample{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sample := location.Sample{
		ID:        s.nextID,
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Accuracy:  location.CloneAccuracy(p.Accuracy),
		Timestamp: p.Timestamp,
		CreatedAt: s.clock.Stamp(),
	}
	s.nextID++

	// Common case: the source reports time moving forward, so the new sample
	// (highest ID) sorts last.
	n := len(s.samples)
	if n == 0 || !less(sample, s.samples[n-1]) {
		s.samples = append(s.samples, sample)
	} else {
		i := sort.Search(n, func(i int) bool { return less(sample, s.samples[i]) })
		s.samples = append(s.samples, location.Sample{})
		copy(s.samples[i+1:], s.samples[i:])
		s.samples[i] = sample
	}

	return cloneSample(sample), nil
}

// Clear removes every sample. The ID counter is left untouched.
// Clearing an empty store is a no-op.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Drop references so cleared samples can be collected.
	clear(s.samples)
	s.samples = s.samples[:0]
}

// NextID returns the ID the next Append will assign.
func (s *Store) NextID() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextID
}

// Snapshot returns a deep copy of the store's full state.
func (s *Store) Snapshot() location.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return location.Snapshot{NextID: s.nextID, Samples: s.samples}.Clone()
}

// less orders samples by (Timestamp, ID) ascending.
func less(a, b location.Sample) bool {
	if a.Timestamp != b.Timestamp {
		return a.Timestamp < b.Timestamp
	}
	return a.ID < b.ID
}

func cloneSample(s location.Sample) location.Sample {
	s.Accuracy = location.CloneAccuracy(s.Accuracy)
	return s
}
