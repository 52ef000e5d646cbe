package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Praneyaarora/Murgamon-project/internal/models"
)

func msgWith(id string) *models.DecodedMessage {
	return &models.DecodedMessage{
		Payload:    map[string]interface{}{"id": id},
		RSSI:       -50,
		ReceivedAt: time.Now(),
	}
}

func TestQueue_FIFOOrder(t *testing.T) {
	q := NewQueue(10)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Put(ctx, msgWith(id)))
	}

	for _, want := range []string{"a", "b", "c"} {
		msg, err := q.Get(ctx, time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, msg.Payload["id"])
	}
}

func TestQueue_GetTimeout(t *testing.T) {
	q := NewQueue(10)

	start := time.Now()
	_, err := q.Get(context.Background(), 50*time.Millisecond)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestQueue_PutBlocksWhenFull(t *testing.T) {
	q := NewQueue(1)
	ctx := context.Background()

	require.NoError(t, q.Put(ctx, msgWith("first")))

	// 队列满：第二次 Put 阻塞，直到消费端取走一条
	done := make(chan error, 1)
	go func() {
		done <- q.Put(ctx, msgWith("second"))
	}()

	select {
	case <-done:
		t.Fatal("Put should block while queue is full")
	case <-time.After(50 * time.Millisecond):
	}

	msg, err := q.Get(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "first", msg.Payload["id"])

	require.NoError(t, <-done)

	msg, err = q.Get(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "second", msg.Payload["id"])
}

func TestQueue_PutUnblocksOnCancel(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, q.Put(ctx, msgWith("first")))

	done := make(chan error, 1)
	go func() {
		done <- q.Put(ctx, msgWith("second"))
	}()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Put should return after context cancellation")
	}
}

func TestQueue_GetObservesCancel(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := q.Get(ctx, 10*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueue_DefaultSize(t *testing.T) {
	q := NewQueue(0)
	assert.Equal(t, DefaultQueueSize, q.Cap())
}
