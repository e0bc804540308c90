package tracking

import "github.com/roach88/loctrack/internal/location"

// Observer receives tracker notifications.
//
// Callbacks run outside the tracker's lock, so they may call Status. They
// must not block for long: the event loop waits for them.
type Observer interface {
	StatusChanged(session Session)
	PositionUpdated(pos location.Position)
	SampleSaved(sample location.Sample, trigger Trigger)
	ErrorRaised(err error)
}

// NopObserver ignores every notification.
type NopObserver struct{}

// Compile-time interface check.
var _ Observer = NopObserver{}

func (NopObserver) StatusChanged(Session) {}
func (NopObserver) PositionUpdated(location.Position) {}
func (NopObserver) SampleSaved(location.Sample, Trigger) {}
func (NopObserver) ErrorRaised(error) {}
