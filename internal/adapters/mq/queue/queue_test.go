package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueDequeue(t *testing.T) {
	ctx := context.Background()
	q := NewInMemoryQueue(WithCapacity(4))
	t.Cleanup(func() { _ = q.Close() })

	require.True(t, q.Enqueue(ctx, Job{RecordID: "rec-1", Cause: "neighbor-ingest"}))
	require.True(t, q.Enqueue(ctx, Job{RecordID: "rec-2", Cause: "neighbor-ingest"}))
	assert.Equal(t, 2, q.Len(ctx))

	got := <-q.Dequeue(ctx)
	assert.Equal(t, "rec-1", got.RecordID)
	assert.Equal(t, "neighbor-ingest", got.Cause)
	assert.Equal(t, 1, q.Len(ctx))
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	ctx := context.Background()
	q := NewInMemoryQueue(WithCapacity(2))
	t.Cleanup(func() { _ = q.Close() })

	require.True(t, q.Enqueue(ctx, Job{RecordID: "rec-1"}))
	require.True(t, q.Enqueue(ctx, Job{RecordID: "rec-2"}))

	// Third job exceeds capacity and must be dropped, not block.
	assert.False(t, q.Enqueue(ctx, Job{RecordID: "rec-3"}))
	assert.Equal(t, 2, q.Len(ctx))
}

func TestEnqueueAfterClose(t *testing.T) {
	ctx := context.Background()
	q := NewInMemoryQueue(WithCapacity(2))

	require.True(t, q.Enqueue(ctx, Job{RecordID: "rec-1"}))
	require.NoError(t, q.Close())

	assert.False(t, q.Enqueue(ctx, Job{RecordID: "rec-2"}))

	// Close is idempotent.
	assert.NoError(t, q.Close())
}

func TestCloseDrainsRemainingJobs(t *testing.T) {
	ctx := context.Background()
	q := NewInMemoryQueue(WithCapacity(4))

	require.True(t, q.Enqueue(ctx, Job{RecordID: "rec-1"}))
	require.True(t, q.Enqueue(ctx, Job{RecordID: "rec-2"}))
	require.NoError(t, q.Close())

	jobs := q.Dequeue(ctx)
	first, ok := <-jobs
	require.True(t, ok)
	assert.Equal(t, "rec-1", first.RecordID)

	second, ok := <-jobs
	require.True(t, ok)
	assert.Equal(t, "rec-2", second.RecordID)

	_, ok = <-jobs
	assert.False(t, ok, "channel closes once drained")
}

func TestDefaultCapacity(t *testing.T) {
	q := NewInMemoryQueue()
	t.Cleanup(func() { _ = q.Close() })

	assert.Equal(t, defaultCapacity, cap(q.jobs))
}
