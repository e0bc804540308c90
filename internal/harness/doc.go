// Package harness runs tracker scenarios as executable contract tests.
//
// A scenario drives a real Tracker and Recorder against a scripted position
// source, a manual clock and an in-memory blob backend, so every run of the
// same scenario produces the same trace.
//
// # Scenario Format
//
//	name: eager_update_timer
//	description: "Eager save, one update, one backstop tick"
//	probe:
//	  latitude: 35.681236
//	  longitude: 139.767125
//	  accuracy: 8
//	  timestamp: 1700000000000
//	save_period_ms: 30000
//	steps:
//	  - action: start
//	  - action: position
//	    position: { latitude: 35.6815, longitude: 139.7668, timestamp: 1700000005000 }
//	  - action: tick
//	  - action: stop
//	assertions:
//	  - type: status
//	    status: Idle
//	  - type: trigger_order
//	    triggers: [eager, update, timer]
//
// # Step Actions
//
//   - start: calls Tracker.Start; expect_error names the error kind when the
//     start is meant to fail
//   - stop: calls Tracker.Stop
//   - position: delivers a fix through the active subscription
//   - position_error: delivers a source failure (error: permission_denied,
//     unavailable, timeout or other)
//   - tick: advances the clock by the save period and fires the backstop
//   - set_probe: replaces the fix (or error) returned by the next probe
//   - fail_writes: makes blob writes fail (fail: true) or succeed again
//
// Every step is followed by draining the tracker queue.
//
// # Assertion Types
//
//   - status: the final session status
//   - trigger_count: how many saves carried a trigger
//   - trigger_order: saved triggers appear in this relative order
//   - sample_count: samples held by the recorder at the end
//   - last_error: the kind of the session's last error ("" for none)
//   - error_count: how many errors the observer saw
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/permission_denied.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
