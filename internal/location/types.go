package location

import "math"

// Position is a raw reading produced by a position source.
// It becomes a Sample once the store accepts it.
type Position struct {
	Latitude  float64  `json:"latitude" yaml:"latitude"`
	Longitude float64  `json:"longitude" yaml:"longitude"`
	Accuracy  *float64 `json:"accuracy" yaml:"accuracy,omitempty"` // metres, nil when the source omits it
	Timestamp int64    `json:"timestamp" yaml:"timestamp"`         // epoch millis, caller-supplied
}

// Sample is one stored position record. Immutable once appended.
type Sample struct {
	ID        uint64   `json:"id"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy"`
	Timestamp int64    `json:"timestamp"`  // epoch millis from the source
	CreatedAt int64    `json:"created_at"` // epoch millis assigned by the store
}

// Position returns the reading the sample was created from.
func (s Sample) Position() Position {
	return Position{
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		Accuracy:  CloneAccuracy(s.Accuracy),
		Timestamp: s.Timestamp,
	}
}

// Snapshot is the unit of durability: every sample in (timestamp, id)
// ascending order plus the next ID the store will assign.
type Snapshot struct {
	NextID  uint64   `json:"next_id"`
	Samples []Sample `json:"samples"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{NextID: s.NextID, Samples: make([]Sample, len(s.Samples))}
	for i, sample := range s.Samples {
		sample.Accuracy = CloneAccuracy(sample.Accuracy)
		out.Samples[i] = sample
	}
	return out
}

// Accuracy returns a pointer to v, for building positions inline.
func Accuracy(v float64) *float64 {
	return &v
}

// CloneAccuracy copies an optional accuracy so samples never share storage.
func CloneAccuracy(a *float64) *float64 {
	if a == nil {
		return nil
	}
	v := *a
	return &v
}

// Validate rejects positions the store cannot hold.
// Latitude and longitude must be finite; a present accuracy must be finite
// because JSON cannot carry NaN or Inf. Ranges are not checked.
func (p Position) Validate() error {
	if !isFinite(p.Latitude) {
		return NewInvalidSample("latitude is not finite: %v", p.Latitude)
	}
	if !isFinite(p.Longitude) {
		return NewInvalidSample("longitude is not finite: %v", p.Longitude)
	}
	if p.Accuracy != nil && !isFinite(*p.Accuracy) {
		return NewInvalidSample("accuracy is not finite: %v", *p.Accuracy)
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
