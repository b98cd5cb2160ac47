// Package harness runs YAML transformation scenarios through a real
// pipeline and checks the results.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	units:
//	  com/ex/A:
//	    super: com/ex/Base
//	    flags: [private]
//	    methods:
//	      - name: run
//	        body: [ret]
//	  com/ex/Empty: null
//	platform: [java/]
//	passes:
//	  access: [com/ex/A]
//	  interfaces: { com/ex/A: [weaver/Traced] }
//	manifests:
//	  - manifests/extra.cue
//	steps:
//	  - unit: com/ex/A
//	    expect:
//	      outcome: recompute_metadata
//	      selected: [weaver:access_widener, weaver:compute_frames]
//	  - unit: com/ex/Base
//	    stop_before: weaver:interface_injector
//	assertions:
//	  - type: order
//	    passes: [weaver:access_widener, weaver:compute_frames]
//	  - type: audit
//	    unit: com/ex/A
//	    applied: [weaver:access_widener]
//	  - type: frames
//	    unit: com/ex/A
//	    ancestors: [com/ex/Base]
//
// A null unit is an empty unit. Manifest paths are relative to the
// scenario file. A step with stop_before runs a partial walk that is not
// recorded as a definition; every other step defines the unit through the
// loader.
//
// # Assertion Types
//
//   - order: the full pass order, marker included
//   - reachable: the passes allowed to request metadata recomputation
//   - audit: the passes asked and applied for a unit, read back from the store
//   - frames: the recomputed ancestors and interfaces of a defined unit
//   - report: a substring of the unit's audit report
//
// # Isolation
//
// Each scenario runs against a fresh in-memory SQLite store with a fixed
// run ID and a fresh audit trail, so traces are identical across runs and
// can be compared with golden files.
package harness
