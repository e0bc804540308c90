package store

import "github.com/roach88/loctrack/internal/location"

// Query returns up to limit samples starting at offset, newest first
// (timestamp descending, id descending).
//
// An offset at or beyond Count yields an empty slice, not an error.
// A negative limit or offset yields a KindStoreQuery error.
func (s *Store) Query(limit, offset int) ([]location.Sample, error) {
	if limit < 0 {
		return nil, location.NewQueryError("limit must be non-negative, got %d", limit)
	}
	if offset < 0 {
		return nil, location.NewQueryError("offset must be non-negative, got %d", offset)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.descending(limit, offset), nil
}

// ExportAll returns every sample in Query order, capped at maxRecords.
// maxRecords <= 0 means DefaultExportLimit.
func (s *Store) ExportAll(maxRecords int) []location.Sample {
	if maxRecords <= 0 {
		maxRecords = DefaultExportLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.descending(maxRecords, 0)
}

// Count returns the number of stored samples.
func (s *Store) Count() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.samples))
}

// First returns the sample with the smallest timestamp (smallest ID on ties).
func (s *Store) First() (location.Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.samples) == 0 {
		return location.Sample{}, false
	}
	return cloneSample(s.samples[0]), true
}

// Last returns the sample with the largest timestamp (largest ID on ties).
func (s *Store) Last() (location.Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.samples) == 0 {
		return location.Sample{}, false
	}
	return cloneSample(s.samples[len(s.samples)-1]), true
}

// descending walks samples from the back. Caller must hold the read lock.
func (s *Store) descending(limit, offset int) []location.Sample {
	n := len(s.samples)
	if offset >= n || limit == 0 {
		return []location.Sample{}
	}

	count := min(limit, n-offset)
	out := make([]location.Sample, 0, count)
	for i := n - 1 - offset; i >= 0 && len(out) < count; i-- {
		out = append(out, cloneSample(s.samples[i]))
	}
	return out
}
