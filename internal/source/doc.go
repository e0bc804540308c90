// Package source defines where positions come from.
//
// A PositionSource answers one-shot probes and pushes a stream of fixes to
// subscribers. The tracker never calls back into a source from inside a
// callback; callbacks may run on any goroutine.
//
// Two concrete sources ship with loctrack: Replay plays back a YAML track
// file, and Static reports fixed coordinates.
package source
