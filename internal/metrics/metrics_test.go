package metrics

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCountersAdvance(t *testing.T) {
	before := Snapshot()

	Appended(time.Now())
	Scanned()
	Scanned()
	TruncatedTail()
	Repaired()

	after := Snapshot()
	assert.Equal(t, before.Appended+1, after.Appended)
	assert.Equal(t, before.Scanned+2, after.Scanned)
	assert.Equal(t, before.TruncatedTails+1, after.TruncatedTails)
	assert.Equal(t, before.Repairs+1, after.Repairs)
}

func TestWritePrometheus(t *testing.T) {
	Appended(time.Now())
	Corruption("CORRUPT_RECORD")

	var buf bytes.Buffer
	Write(&buf, false)

	out := buf.String()
	assert.Contains(t, out, "ak_records_appended_total")
	assert.Contains(t, out, `ak_corruptions_total{code="CORRUPT_RECORD"}`)
	assert.Contains(t, out, "ak_append_duration_seconds")
}
