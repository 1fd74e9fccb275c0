// Package harness runs conformance scenarios against a gateway.
//
// A scenario sends a sequence of commands and checks the replies, the
// resulting command trace and the final host state. By default every
// scenario gets a fresh in-process gateway over the simulated host, so
// node identifiers and results are reproducible and traces can be compared
// against golden files.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	scene: scenes/terrain.yaml        # optional, relative to the scenario
//	setup:
//	  - command: create_graph
//	    params: { graph_name: Rock }
//	steps:
//	  - command: create_node
//	    params: { graph_identifier: Rock, definition_id: blend }
//	    expect:
//	      status: success
//	      result: { definition: "sbs::compositing::blend" }
//	  - command: connect_nodes
//	    params: { from_node_id: "1", to_node_id: "9" }
//	    expect:
//	      status: error
//	      message: "not found"
//	assertions:
//	  - type: trace_contains
//	    command: create_node
//	    params: { definition_id: blend }
//	  - type: trace_order
//	    commands: [create_graph, create_node]
//	  - type: trace_count
//	    command: connect_nodes
//	    count: 1
//	  - type: final_state
//	    command: get_graph_info
//	    params: { graph_identifier: Rock }
//	    expect: { node_count: 1 }
//
// # Matching
//
// Expected results, params and final state use subset semantics: only the
// keys a scenario names are compared, at any depth. Lists must match in
// length and element by element. Numbers compare by value, so 1 and 1.0
// are equal. An expected error message matches as a substring.
//
// # Assertion Types
//
//   - trace_contains: a command appears in the trace with matching params
//   - trace_order: commands first appear in the given order
//   - trace_count: a command appears exactly N times
//   - final_state: a read-only command's result matches after all steps
//
// Setup commands must succeed. Their replies are traced but not checked
// against expectations.
package harness
