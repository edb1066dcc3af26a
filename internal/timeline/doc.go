// Package timeline replays cubes as ordered event sequences.
//
// Replay is lazy and single pass. It decodes each frame, normalizes the
// timestamp, and checks the parent chain in append order before any filter
// runs, so a filter can never hide a broken chain. The first fatal condition
// ends the sequence: events before it are delivered, nothing after it is.
//
// Interlace merges the timelines of several cubes into one global order.
package timeline
