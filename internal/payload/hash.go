package payload

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// Domains for content-addressed fingerprints. The version suffix leaves room
// for a future algorithm change without colliding with old values.
const (
	DomainSnapshot = "akasha/snapshot/v1"
	DomainContent  = "akasha/content/v1"
	DomainFile     = "akasha/file/v1"
)

// Fingerprint returns hex(SHA256(domain || 0x00 || data)).
// The zero byte keeps domain and data from running into each other.
func Fingerprint(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// FingerprintValue fingerprints the canonical encoding of v.
func FingerprintValue(domain string, v Value) (string, error) {
	data, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return Fingerprint(domain, data), nil
}

// FingerprintReader is Fingerprint over the bytes of r, streamed.
func FingerprintReader(domain string, r io.Reader) (string, int64, error) {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
