// Package matcher holds the comparison algorithms of the engine.
//
// A Matcher consumes two vector sets of one category and produces a stream
// of scored candidate pairs. Two families exist:
//
//   - Hash matchers treat the payload as an opaque key. The target set is
//     indexed in one pass and the source set is streamed against the index.
//     Every hit gets the matcher's fixed confidence. O(N+M).
//   - Distance matchers compare every source vector with every target
//     vector and map the distance to a score in [0, 100]. O(N×M), which is
//     why they are run behind size binning and the minimum score cutoff.
//
// In both families only the target side is held in memory. The source side
// is pulled one vector at a time while the caller consumes the stream.
//
// The selectable matchers live in a Registry. Abstract bases (the generic
// hash and dictionary matchers) cannot be registered.
package matcher
