// Package repo ties the cube store, timeline engine, snapshots and index
// together into the operations the ak command exposes.
//
// A Repository is bound to a working directory, a data directory layout, an
// author identity and a clock. Seal is the only operation that writes a
// record; it holds the cube's advisory lock from reading the last valid id
// until the new frame is on disk.
//
// Reads are keyed by (period, author). A period is YYYY-MM, or a bare MM for
// read-only cubes left by the original tool.
package repo
