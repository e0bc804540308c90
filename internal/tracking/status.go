package tracking

import (
	"fmt"

	"github.com/roach88/loctrack/internal/location"
)

// Status is the tracker state.
type Status int

const (
	StatusIdle Status = iota
	StatusAcquiringPermission
	StatusActive
	StatusFaulted
)

// String returns the state name.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusAcquiringPermission:
		return "AcquiringPermission"
	case StatusActive:
		return "Active"
	case StatusFaulted:
		return "Faulted"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Trigger labels why a save happened.
type Trigger string

const (
	TriggerEager  Trigger = "eager"
	TriggerUpdate Trigger = "update"
	TriggerTimer  Trigger = "timer"
	TriggerManual Trigger = "manual"
)

// Session is a read-only view of the tracker state.
type Session struct {
	ID                 string             `json:"id,omitempty"`
	Status             Status             `json:"status"`
	LastPosition       *location.Position `json:"last_position,omitempty"`
	LastError          error              `json:"-"`
	HasSeenFirstSample bool               `json:"has_seen_first_sample"`
	SavedCount         uint64             `json:"saved_count"`
}

func (s Session) clone() Session {
	if s.LastPosition != nil {
		p := *s.LastPosition
		p.Accuracy = location.CloneAccuracy(p.Accuracy)
		s.LastPosition = &p
	}
	return s
}
