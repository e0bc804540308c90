// Package tracking implements the capture state machine.
//
// A Tracker moves between four states:
//
//	Idle ──start──▶ AcquiringPermission ──probe ok──▶ Active
//	                        │                           │
//	                   probe fails              subscription error
//	                        ▼                           ▼
//	                     Faulted ◀──────────────────────┘
//
// Stop returns any state to Idle. Start from Faulted resets to Idle first.
//
// While Active, every position from the source is cached and saved at
// once, and a backstop ticker re-saves the cached position every save
// period. Entering Active saves the probe position once (the eager save).
//
// Source callbacks and the ticker only enqueue events. Events are applied
// by one goroutine (Run, or Drain for hosts that drive the loop), and each
// event carries the generation of the session that produced it. Events
// from a stopped or faulted session are dropped.
package tracking
