package event

import "fmt"

// Unit tags how a record's timestamp was written.
type Unit uint8

const (
	// UnitUnspecified means the writer did not say; the magnitude decides.
	UnitUnspecified Unit = 0
	// UnitMillis is milliseconds since the epoch, the canonical unit.
	UnitMillis Unit = 1
	// UnitNanos is nanoseconds since the epoch, used by the original v1 layout.
	UnitNanos Unit = 2
)

// NanosThreshold separates milliseconds from nanoseconds for untagged values.
// 1e16 ms lies hundreds of thousands of years ahead, while 1e16 ns is April 1970,
// so any real millisecond value sits far below it and any real nanosecond value
// from this era sits far above it.
const NanosThreshold int64 = 10_000_000_000_000_000

const nanosPerMilli = 1_000_000

// String implements fmt.Stringer.
func (u Unit) String() string {
	switch u {
	case UnitUnspecified:
		return "unspecified"
	case UnitMillis:
		return "ms"
	case UnitNanos:
		return "ns"
	default:
		return fmt.Sprintf("unit(%d)", uint8(u))
	}
}

// Valid reports whether u is a known unit.
func (u Unit) Valid() bool {
	return u <= UnitNanos
}

// NormalizeTimestamp converts a stored timestamp to UTC milliseconds.
// A millisecond value passes through unchanged, so the function is idempotent.
func NormalizeTimestamp(raw int64, unit Unit) int64 {
	switch unit {
	case UnitMillis:
		return raw
	case UnitNanos:
		return raw / nanosPerMilli
	default:
		if raw > NanosThreshold || raw < -NanosThreshold {
			return raw / nanosPerMilli
		}
		return raw
	}
}
