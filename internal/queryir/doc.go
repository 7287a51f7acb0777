// Package queryir is the predicate language used to select vectors.
//
// Strategy steps describe which vectors a matcher sees as a conjunction of
// small predicates over a fixed set of fields. The same predicate value is
// compiled to SQL by package querysql and can be evaluated in memory with
// Eval, which is how the two are kept in agreement by tests.
//
// Predicate is a sealed interface. Only the types in this package implement
// it, so backends can switch over it exhaustively.
//
// Comparisons follow SQL semantics for absent values: a NULL offset or a file
// without a project never satisfies Equals, NotEquals, In or Between.
package queryir
