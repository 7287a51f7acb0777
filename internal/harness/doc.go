// Package harness runs matching scenarios end to end.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: deadbeef
//	description: "Identical assembly hashes match, different ones do not"
//	fixture: ../fixtures/pair.yaml   # relative to the scenario file
//	task:
//	  source: libfoo-1.0             # fixture version key
//	  target_file: libbar            # or target_project: <project key>
//	  start: 0x1000                  # optional inclusive offset range
//	  end: 0x1fff
//	  strategy: all_strategy
//	  matchers: [assembly_hash]
//	assertions:
//	  - type: task_status
//	    status: done
//	  - type: match_contains
//	    from: libfoo-1.0@0x1000
//	    to: libbar-1.0@0x1000
//
// Instances are referred to by fixture.InstanceKey: "<version key>@<offset>".
//
// # Assertion Types
//
//   - task_status: the task ended in status
//   - progress: progress and/or max equal the given values
//   - match_count: number of matches, optionally of one match_type
//   - match_contains: some match has the given from, to, match_type, score
//   - match_absent: no match has the given from, to, match_type
//   - min_score: every match scores at least score
//   - error_contains: the run returned an error containing the text
//
// # Deterministic Testing
//
// Every scenario runs against a fresh SQLite store in a temp dir with a
// deterministic clock and a fixed run id, so the sorted match list is
// stable and can be compared to a golden file (RunWithGolden).
package harness
