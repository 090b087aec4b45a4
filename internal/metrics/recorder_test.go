package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoopRecorder_SatisfiesInterface(t *testing.T) {
	var r Recorder = NoopRecorder{}
	assert.NotPanics(t, func() {
		r.ObserveStageDuration("reset", time.Millisecond)
		r.ObserveBuildDuration(time.Millisecond)
		r.IncStageResult("reset", ResultSuccess)
		r.IncBuildOutcome(BuildOutcomeSuccess)
		r.AddPagesWritten("en", 1)
		r.IncFileFailure("docs")
		r.AddLinkWarnings(1)
		r.ObserveSyncDuration(time.Millisecond, false)
	})
}

func TestPrometheusRecorder_SatisfiesInterface(t *testing.T) {
	var _ Recorder = (*PrometheusRecorder)(nil)
}
