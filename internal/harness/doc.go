// Package harness runs scripted scenarios against the contacts store.
//
// A scenario drives a real contacts.Store over an in-memory backend wrapped
// in a fault injector, records every backend call each step makes, and checks
// step outcomes and final state.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	flow:
//	  - op: save
//	    record: { uid: u1, tel: [{ value: "555-1111" }] }
//	    expect: { outcome: ok, value: 2 }
//	  - op: remove
//	    uid: u1
//	    flush: true
//	    fail: { op: update, key: 1, error: "disk full", times: 1 }
//	    expect: { outcome: error, code: BACKEND }
//	assertions:
//	  - type: call_count
//	    call: update(1)
//	    count: 3
//	  - type: final_index
//	    index: { byUid: {} }
//	  - type: dirty
//	    dirty: true
//
// Step ops are initialize, save, update, remove, clear, flush, get, find,
// count and refresh. A step's fail clause installs a backend fault before the
// step runs; heal: true removes all faults first.
//
// # Assertion Types
//
//   - call_count: a backend call such as "update(1)" or "add" was made exactly N times
//   - call_order: the listed calls appear in this order (gaps allowed)
//   - final_index: the in-memory index maps match exactly (only listed maps are checked)
//   - persisted_index: as final_index, for the index stored at the reserved key
//   - dirty: the store's dirty flag after the flow
//
// # Deterministic Testing
//
// Every step waits for its result before the next is submitted, so the call
// trace of a scenario is identical across runs and can be compared against
// golden files.
package harness
