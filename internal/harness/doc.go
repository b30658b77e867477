// Package harness runs reactor networks as executable test scenarios.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: timer-three-ticks
//	description: "What this scenario validates"
//	network: ../networks/timer      # CUE directory, relative to the scenario file
//	options:
//	  timeout: "3 ms"               # overrides the network's options
//	  workers: 2
//	assertions:
//	  - type: fires_count
//	    reaction: main/clk#0
//	    expected: 3
//	  - type: fires_order
//	    reactions: [main/clk#0, main/sink#0]
//	  - type: value_at
//	    reaction: main/sink
//	    label: in
//	    tag: "2 ms/0"
//	    value: 2
//	  - type: values
//	    reaction: main/sink#0
//	    label: in
//	    values: [0, 1, 2]
//	  - type: stops_at
//	    tag: "3 ms"
//
// # Assertion Types
//
//   - fires_count: a reaction executed exactly N times
//   - fires_order: reactions first executed in the given order
//   - value_at: a recorded value at a tag
//   - values: the full sequence of recorded values, read back from the store
//   - stops_at: the tag the run shut down at
//
// A reaction name without "#n" matches every reaction of that reactor.
//
// # Deterministic Testing
//
// Every scenario runs with:
//   - fast-forward logical time
//   - a manual physical clock that never advances (testutil.ManualClock)
//   - a fixed run id (from scenario.run_id or a default)
//   - an in-memory SQLite store (isolated per scenario)
//
// so two runs produce identical traces and golden files can be compared
// byte for byte.
package harness
