// Package strategy turns task parameters into an ordered list of steps.
//
// A Step binds one matcher to the source and target predicates it runs on.
// A Strategy is built once per task run from the requested matcher types and
// the task's scope, and never touches the store: every filter it hands out
// is a pure queryir value.
//
// Two strategies exist:
//
//   - all_strategy: one step per matcher, no size restriction
//   - binning_strategy: one step per matcher and size bucket, so distance
//     matchers only compare instances of similar size
//
// Binning misses pairs whose sizes fall in different buckets. That is the
// price of bounding the quadratic matchers.
package strategy
