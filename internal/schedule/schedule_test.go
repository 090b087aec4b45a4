package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRequiresInterval(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)
	defer func() { _ = s.Stop() }()

	_, err = s.Add("site", 0, "", func(context.Context) error { return nil })
	require.Error(t, err)
}

func TestAddRejectsInvalidCron(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)
	defer func() { _ = s.Stop() }()

	_, err = s.Add("site", 0, "not a cron", func(context.Context) error { return nil })
	require.Error(t, err)
}

func TestIntervalJobRuns(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)

	var runs atomic.Int32
	id, err := s.Add("site", 50*time.Millisecond, "", func(context.Context) error {
		runs.Add(1)
		return nil
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	s.Start()
	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Stop())
}

func TestFailingTaskKeepsScheduling(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)

	var runs atomic.Int32
	_, err = s.Add("site", 50*time.Millisecond, "", func(context.Context) error {
		runs.Add(1)
		return errors.New("sync failed")
	})
	require.NoError(t, err)

	s.Start()
	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Stop())
}

func TestCronJobNextRun(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)

	_, err = s.Add("nightly", 0, "0 3 * * *", func(context.Context) error { return nil })
	require.NoError(t, err)
	s.Start()
	defer func() { _ = s.Stop() }()

	next, ok := s.NextRun("nightly")
	require.True(t, ok)
	assert.Equal(t, 3, next.Hour())
	assert.True(t, next.After(time.Now()))

	_, ok = s.NextRun("missing")
	assert.False(t, ok)
}

func TestRunNowTriggersJob(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)

	done := make(chan struct{}, 1)
	_, err = s.Add("nightly", 0, "0 3 * * *", func(context.Context) error {
		select {
		case done <- struct{}{}:
		default:
		}
		return nil
	})
	require.NoError(t, err)
	s.Start()
	defer func() { _ = s.Stop() }()

	require.NoError(t, s.RunNow())
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestStopCancelsTaskContext(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)

	started := make(chan struct{})
	cancelled := make(chan struct{})
	_, err = s.Add("site", time.Hour, "", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	})
	require.NoError(t, err)
	s.Start()
	require.NoError(t, s.RunNow())

	<-started
	require.NoError(t, s.Stop())
	select {
	case <-cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("task context not cancelled")
	}
}
