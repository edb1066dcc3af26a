// Package record serializes events to cube bytes and back.
//
// # File layout
//
// A cube file starts with a 16 byte header followed by zero or more frames:
//
//	header  MAGIC "AKLA" [0,4) | VERSION u16 LE [4,6) | RESERVED [6,16)
//	frame   LENGTH u32 LE | PAYLOAD | CRC32 u32 LE
//
// LENGTH counts PAYLOAD plus the 4 CRC bytes, so a reader always knows how far
// a frame extends and can tell a short trailing write from a complete one
// without reading past end of file. CRC32 (IEEE) covers PAYLOAD.
//
// # Payload, version 2
//
//	UNIT u8 | TS i64 | ID u64 | PARENT u64 | KIND_LEN u16 | AUTHOR_LEN u16 |
//	EMAIL_LEN u16 | CONTENT_LEN u32 | KIND | AUTHOR | EMAIL | CONTENT
//
// All integers are little-endian. CONTENT is canonical JSON. PARENT 0 means the
// event has no parent. UNIT tags the timestamp unit so new records are never
// ambiguous.
//
// # Payload, version 1 (read only)
//
//	TS u128 (nanoseconds) | ID u64 | PH_LEN u16 | NO_LEN u16 | PH | NO
//
// Version 1 files were written by the original tool, whose reserved header
// bytes held a next-id hint that was rewritten in place. The hint is ignored:
// the log itself is the index.
package record
