package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return client, cleanup
}

func TestNewQueue(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "test_queue")

	assert.NotNil(t, q)
	assert.Equal(t, "test_queue", q.queueName)
}

func TestQueue_PushPop(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	q := NewQueue(client, "export_jobs")

	requested := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, q.Push(ctx, &ExportMessage{JobID: 42, RequestedAt: requested}))

	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)

	msg, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, int64(42), msg.JobID)
	assert.True(t, requested.Equal(msg.RequestedAt))
}

func TestQueue_FIFO(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	q := NewQueue(client, "test_fifo_queue")

	for i := 1; i <= 3; i++ {
		require.NoError(t, q.Push(ctx, &ExportMessage{JobID: int64(i)}))
	}

	for i := 1; i <= 3; i++ {
		msg, err := q.Pop(ctx, time.Second)
		require.NoError(t, err)
		require.NotNil(t, msg)
		assert.Equal(t, int64(i), msg.JobID)
	}
}

func TestQueue_PopEmpty(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "test_empty_queue")

	msg, err := q.Pop(context.Background(), 10*time.Millisecond)

	// miniredis 的 BRPop 超时行为与真实 Redis 不完全一致
	if err == nil {
		assert.Nil(t, msg)
	}
}

func TestQueue_PopMalformed(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	q := NewQueue(client, "test_bad_queue")
	require.NoError(t, client.LPush(ctx, "test_bad_queue", "{not json").Err())

	msg, err := q.Pop(ctx, time.Second)
	assert.Error(t, err)
	assert.Nil(t, msg)
}
