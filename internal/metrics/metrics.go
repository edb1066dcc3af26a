// Package metrics holds the process counters for cube I/O.
//
// Counters live in a private set so tests can read them without touching the
// global registry. The CLI dumps them in Prometheus text format with --metrics.
package metrics

import (
	"fmt"
	"io"
	"time"

	vm "github.com/VictoriaMetrics/metrics"
)

var set = vm.NewSet()

var (
	recordsAppended = set.NewCounter("ak_records_appended_total")
	recordsScanned  = set.NewCounter("ak_records_scanned_total")
	truncatedTails  = set.NewCounter("ak_truncated_tails_total")
	repairs         = set.NewCounter("ak_repairs_total")
	appendDuration  = set.NewSummary("ak_append_duration_seconds")
)

// Appended records one successful append that started at start.
func Appended(start time.Time) {
	recordsAppended.Inc()
	appendDuration.UpdateDuration(start)
}

// Scanned records one frame read back from a cube.
func Scanned() {
	recordsScanned.Inc()
}

// TruncatedTail records a trailing fragment found at the end of a cube.
func TruncatedTail() {
	truncatedTails.Inc()
}

// Repaired records one explicit tail truncation.
func Repaired() {
	repairs.Inc()
}

// Corruption records a fatal fault, labelled by error code.
func Corruption(code string) {
	set.GetOrCreateCounter(fmt.Sprintf(`ak_corruptions_total{code=%q}`, code)).Inc()
}

// Snapshot returns the current values of the cube counters.
func Snapshot() Counters {
	return Counters{
		Appended:       recordsAppended.Get(),
		Scanned:        recordsScanned.Get(),
		TruncatedTails: truncatedTails.Get(),
		Repairs:        repairs.Get(),
	}
}

// Counters is a point-in-time copy of the cube counters.
type Counters struct {
	Appended       uint64 `json:"appended"`
	Scanned        uint64 `json:"scanned"`
	TruncatedTails uint64 `json:"truncated_tails"`
	Repairs        uint64 `json:"repairs"`
}

// Write emits all metrics in Prometheus text format. When process is true the
// Go runtime and process metrics are included.
func Write(w io.Writer, process bool) {
	set.WritePrometheus(w)
	if process {
		vm.WriteProcessMetrics(w)
	}
}
