package mcaemetrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNopRecorderDiscardsEverything(t *testing.T) {
	r := Nop()
	assert.NotPanics(t, func() {
		r.ObserveCacheGet("memory", true)
		r.ObserveCacheEviction("t1", "capacity")
		r.ObserveExtractionScored("decision", true)
		r.ObserveAssemble(5*time.Millisecond, false)
		r.ObserveSummaryLMCall("claude-sonnet-4-20250514", true)
	})
}

func TestPrometheusRecorderImplementsRecorder(t *testing.T) {
	var _ Recorder = NewPrometheusRecorder()
}
