// Package engine runs matching tasks.
//
// Runner.RunMatch is the single entry point. It loads a pending task, builds
// its strategy, claims the task and executes every step in order:
//
//  1. Build the strategy. Configuration errors fail the task while it is
//     still pending; it never reaches started.
//  2. Claim the task: pending → started, progress 0 of len(steps), run id.
//  3. For each step, count both vector sets. An empty side skips the step.
//     Otherwise stream candidates from the matcher, drop non-finite scores
//     (logged) and scores below the threshold, and insert the rest in
//     batches. The final partial batch is always flushed.
//  4. Increment progress after each step succeeds.
//  5. Check progress == progress_max, then mark the task done.
//
// Any error after the claim marks the task failed with a finish time and is
// returned to the caller. The engine never retries.
//
// Steps of one task run strictly one after another. Different tasks may run
// concurrently on different runners; their writes only touch their own
// task row and match rows.
package engine
