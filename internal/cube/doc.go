// Package cube stores events in append-only, per-author, per-period files.
//
// A cube is the file cubes/<YYYY-MM>/<author>.cube under the data directory.
// Each author writes only their own cube, so there is one writer per file;
// an advisory lock guards the read-last-id-then-append sequence against a
// second process racing on the same key.
//
// Bytes are never rewritten. The only mutation besides append is Repair,
// which truncates an incomplete trailing frame and nothing else.
//
// Fault model:
//   - A short or checksum-failing final frame is an interrupted append. Readers
//     stop before it and report it as the scanner Tail; it is not an error.
//   - A bad frame with valid data after it is corruption, reported as an
//     *Error with code CORRUPT_RECORD, the path, and the byte offset.
//   - A missing cube is an empty history.
package cube
