// Package harness runs craftloop scenarios end to end.
//
// A scenario plays a sandbox world through the real controller against a
// fresh store, then checks assertions on the final knowledge and, in tests,
// compares the cycle trace against a golden file.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: steam_to_cloud
//	description: "Exploration reaches a goal two steps deep"
//	world:
//	  primitives: [Water, Fire]
//	  recipes:
//	    - {a: Water, b: Fire, result: Steam}
//	goals:
//	  - category: Weather
//	    items: [Cloud]
//	seed:
//	  discovered: [Steam]
//	  recipes: [{a: Steam, b: Water, result: Cloud}]
//	  attempts: [{a: Fire, b: Fire}]
//	  unlocked: [Steam]
//	max_cycles: 20
//	mode: exhaustive
//	assertions:
//	  - type: discovered_contains
//	    elements: [Steam, Cloud]
//	  - type: recipe
//	    a: Water
//	    b: Fire
//	    result: Steam
//	  - type: reward
//	    total: 12
//	  - type: stop
//	    state: exhausted
//	  - type: attempts
//	    count: 10
//
// # Assertion Types
//
//   - discovered_contains: every listed element is in the discovered set
//   - achieved: every listed goal item is achieved
//   - recipe: the pair maps to the result
//   - reward: the reward total equals total
//   - stop: the run stopped in the named state
//   - attempts: the ledger holds exactly count pairs
//
// # Deterministic Testing
//
// Every scenario runs with a fixed run id ("scenario-" + name), a logical
// clock starting at 0, millisecond backoffs and a store in a fresh temp
// dir, so traces are identical across runs.
package harness
