// Package payload holds the structured content carried by cube events.
//
// A commit's content is an Object with at least "summary" and "body", but the
// format is open: any future event kind can put arbitrary structured data in
// an Object. Values are restricted to a JSON subset without floats so the
// canonical encoding is stable byte for byte:
//
//   - Null, String, Int (int64), Bool, Array, Object
//   - MarshalCanonical produces RFC 8785 canonical JSON (UTF-16 key order,
//     NFC strings, no HTML escaping)
//
// Canonical bytes are what the record codec stores and what Fingerprint
// hashes, so two equal payloads always encode identically.
package payload
