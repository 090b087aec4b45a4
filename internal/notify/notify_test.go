package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
	"git.home.luguber.info/inful/docsite/internal/retry"
)

func TestConnectWithoutURLIsNoop(t *testing.T) {
	n, err := Connect(context.Background(), "", "", retry.DefaultPolicy(), nil)
	require.NoError(t, err)
	assert.IsType(t, Noop{}, n)
	require.NoError(t, n.Notify(context.Background(), BuildNotice{RunID: "r1"}))
	n.Close()
}

func TestConnectUnreachableServer(t *testing.T) {
	policy := retry.NewPolicy(retry.BackoffFixed, 10*time.Millisecond, 10*time.Millisecond, 1)
	_, err := Connect(context.Background(), "nats://127.0.0.1:1", "", policy, nil)
	require.Error(t, err)

	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, errors.CategoryNetwork, ce.Category())
}

func TestEncode(t *testing.T) {
	finished := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	data, err := Encode(BuildNotice{
		RunID:      "run-1",
		Outcome:    "warning",
		Pages:      12,
		Failures:   1,
		Warnings:   3,
		DurationMS: 420,
		Changed:    []string{"cookbook/hello.en.md"},
		FinishedAt: finished,
	})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.Equal(t, "warning", decoded["outcome"])
	assert.InDelta(t, 12, decoded["pages"], 0)
	assert.Equal(t, "2026-01-02T03:04:05Z", decoded["finished_at"])
	assert.NotContains(t, decoded, "error")
	assert.NotContains(t, decoded, "commit")
}
