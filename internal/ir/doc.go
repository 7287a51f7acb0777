// Package ir defines the record types shared by every layer of rematch.
//
// The package holds data definitions and payload helpers only. All other
// internal packages import ir; ir imports nothing internal, so the storage,
// matching and orchestration layers can exchange Instances, Vectors, Matches
// and Tasks without depending on each other.
//
// Conventions:
//   - All JSON tags use snake_case
//   - Identifiers are int64 row ids assigned by the store
//   - Nullable columns are pointers (Instance.Offset, Task.SourceStart, ...)
//   - Vector payloads stay opaque strings until a matcher parses them
package ir
