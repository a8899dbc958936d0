package sched

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makisuo/confect-plus/internal/effect"
	"github.com/Makisuo/confect-plus/internal/platform"
	"github.com/Makisuo/confect-plus/internal/wire"
)

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func openTestQueue(t *testing.T) *Queue {
	t.Helper()
	n := 0
	q, err := Open(filepath.Join(t.TempDir(), "jobs.db"),
		WithIDFunc(func() (platform.JobID, error) {
			n++
			return platform.JobID(fmt.Sprintf("job-%d", n)), nil
		}),
		WithClock(func() time.Time { return testEpoch }),
	)
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })
	return q
}

func TestSchedule_DueAfterRunTime(t *testing.T) {
	q := openTestQueue(t)
	ctx := context.Background()

	args := wire.NewObject(wire.F("n", wire.Int(1)))
	id, err := q.Schedule(ctx, testEpoch.Add(time.Minute), "demo/notify", args)
	require.NoError(t, err)
	assert.EqualValues(t, "job-1", id)

	due, err := q.Due(ctx, testEpoch)
	require.NoError(t, err)
	assert.Empty(t, due, "job is not due yet")

	due, err = q.Due(ctx, testEpoch.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, id, due[0].ID)
	assert.EqualValues(t, "demo/notify", due[0].Ref)
	assert.True(t, wire.Equal(args, due[0].Args))
	assert.Equal(t, testEpoch.Add(time.Minute), due[0].RunAt)
}

func TestDue_OrdersByRunTimeThenID(t *testing.T) {
	q := openTestQueue(t)
	ctx := context.Background()

	late, err := q.Schedule(ctx, testEpoch.Add(2*time.Minute), "b", wire.Null{})
	require.NoError(t, err)
	early, err := q.Schedule(ctx, testEpoch.Add(time.Minute), "a", wire.Null{})
	require.NoError(t, err)

	due, err := q.Due(ctx, testEpoch.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, early, due[0].ID)
	assert.Equal(t, late, due[1].ID)
}

func TestCancel_PendingJob(t *testing.T) {
	q := openTestQueue(t)
	ctx := context.Background()

	id, err := q.Schedule(ctx, testEpoch.Add(time.Minute), "demo/notify", wire.Null{})
	require.NoError(t, err)
	require.NoError(t, q.Cancel(ctx, id))

	state, err := q.State(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "canceled", state)

	due, err := q.Due(ctx, testEpoch.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestCancel_MissingOrSettledIsNotFound(t *testing.T) {
	q := openTestQueue(t)
	ctx := context.Background()

	err := q.Cancel(ctx, "job-404")
	require.Error(t, err)
	assert.True(t, effect.HasCode(err, effect.CodeNotFound))

	id, err := q.Schedule(ctx, testEpoch, "demo/notify", wire.Null{})
	require.NoError(t, err)
	require.NoError(t, q.MarkDone(ctx, id))

	err = q.Cancel(ctx, id)
	require.Error(t, err)
	assert.True(t, effect.HasCode(err, effect.CodeNotFound))
}

func TestSettle_RemovesFromDue(t *testing.T) {
	q := openTestQueue(t)
	ctx := context.Background()

	done, err := q.Schedule(ctx, testEpoch, "a", wire.Null{})
	require.NoError(t, err)
	failed, err := q.Schedule(ctx, testEpoch, "b", wire.Null{})
	require.NoError(t, err)

	require.NoError(t, q.MarkDone(ctx, done))
	require.NoError(t, q.MarkFailed(ctx, failed, "handler blew up"))

	due, err := q.Due(ctx, testEpoch.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)

	state, err := q.State(ctx, failed)
	require.NoError(t, err)
	assert.Equal(t, "failed", state)
}

func TestSettle_TwiceFails(t *testing.T) {
	q := openTestQueue(t)
	ctx := context.Background()

	id, err := q.Schedule(ctx, testEpoch, "a", wire.Null{})
	require.NoError(t, err)
	require.NoError(t, q.MarkDone(ctx, id))
	assert.Error(t, q.MarkDone(ctx, id))
}

func TestState_Missing(t *testing.T) {
	q := openTestQueue(t)

	_, err := q.State(context.Background(), "job-404")
	require.Error(t, err)
	assert.True(t, effect.HasCode(err, effect.CodeNotFound))
}
