package eventstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendRun(t *testing.T, store Store, runID, outcome string, fingerprints map[string]string) {
	t.Helper()
	ctx := t.Context()

	started, err := NewBuildStarted(runID, BuildStartedPayload{SourceRoot: "./src", Trigger: "build"})
	require.NoError(t, err)
	require.NoError(t, AppendEvent(ctx, store, started))

	stage, err := NewStageCompleted(runID, "examples", "success", 20*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, AppendEvent(ctx, store, stage))

	synced, err := NewSourceSynced(runID, SourceSyncedPayload{URL: "https://x/y.git", Commit: "abc123"})
	require.NoError(t, err)
	require.NoError(t, AppendEvent(ctx, store, synced))

	done, err := NewBuildCompleted(runID, BuildCompletedPayload{
		Outcome:      outcome,
		Pages:        len(fingerprints),
		Failures:     []string{"ex2/README.md: missing title"},
		Warnings:     1,
		Fingerprints: fingerprints,
	})
	require.NoError(t, err)
	require.NoError(t, AppendEvent(ctx, store, done))
}

func TestHistoryProjection_Rebuild(t *testing.T) {
	store := newTestStore(t)
	appendRun(t, store, "run-1", "success", map[string]string{"cookbook/a.en.md": "1"})
	appendRun(t, store, "run-2", "warning", map[string]string{"cookbook/a.en.md": "2", "cookbook/b.en.md": "3"})

	p := NewHistoryProjection(store, 10)
	require.NoError(t, p.Rebuild(t.Context()))

	history := p.History()
	require.Len(t, history, 2)

	last := p.LastCompleted()
	require.NotNil(t, last)
	assert.Equal(t, "warning", last.Status)
	assert.Equal(t, "abc123", last.Commit)
	assert.Equal(t, 2, last.Pages)
	assert.Equal(t, 1, last.Failures)
	assert.Equal(t, "build", last.Trigger)
	assert.Equal(t, map[string]string{"examples": "success"}, last.Stages)

	run1, ok := p.Run("run-1")
	require.True(t, ok)
	assert.Equal(t, []string{"cookbook/a.en.md", "cookbook/b.en.md"}, ChangedPages(run1, last))
	assert.Equal(t, []string{"cookbook/a.en.md"}, ChangedPages(nil, run1))
}

func TestHistoryProjection_BoundedHistory(t *testing.T) {
	store := newTestStore(t)
	for _, id := range []string{"r1", "r2", "r3"} {
		appendRun(t, store, id, "success", nil)
	}

	p := NewHistoryProjection(store, 2)
	require.NoError(t, p.Rebuild(t.Context()))
	assert.Len(t, p.History(), 2)
}

func TestHistoryProjection_ApplyRunning(t *testing.T) {
	p := NewHistoryProjection(nil, 0)
	started, err := NewBuildStarted("live", BuildStartedPayload{Trigger: "watch"})
	require.NoError(t, err)
	p.Apply(started)

	run, ok := p.Run("live")
	require.True(t, ok)
	assert.Equal(t, "running", run.Status)
	assert.Nil(t, p.LastCompleted())
}
