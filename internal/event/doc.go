// Package event defines the immutable unit of cube history.
//
// An Event is one commit (or, in future, any other kind of fact) recorded in a
// cube. Ids are assigned at append time as last_valid_id+1 and the parent of
// event n is always the id of event n-1 in the same cube, forming a single
// linked chain with no branches.
//
// Timestamps are exposed in UTC milliseconds since the Unix epoch no matter how
// they were stored. Older records carry nanoseconds; NormalizeTimestamp folds
// them back to milliseconds on decode so old cubes never need rewriting.
package event
