package redis_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcel-gateway/internal/domain/entity"
	redisrepo "parcel-gateway/internal/infra/adapter/persistence/redis"
)

func task(id, platform string, priority int) *entity.WorkTask {
	return &entity.WorkTask{
		TaskID:    id,
		Type:      entity.DefaultTaskType,
		Platform:  platform,
		Target:    json.RawMessage(`{"parcel_id":"` + id + `"}`),
		Priority:  priority,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func ids(tasks []*entity.WorkTask) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.TaskID
	}
	return out
}

func TestTaskQueue_CheckoutOrdersByPriorityThenFIFO(t *testing.T) {
	_, rdb := newTestRedis(t)
	q := redisrepo.NewTaskQueue(rdb)
	ctx := context.Background()

	for _, tk := range []*entity.WorkTask{
		task("a", "fl", 1),
		task("b", "fl", 3),
		task("c", "fl", 2),
		task("d", "fl", 1),
	} {
		require.NoError(t, q.Enqueue(ctx, tk))
	}

	got, err := q.Checkout(ctx, "w1", []string{"fl"}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "d", "c", "b"}, ids(got))

	inflight, err := q.InFlight(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), inflight)
}

func TestTaskQueue_CheckoutRespectsCapacityAndPlatformOrder(t *testing.T) {
	_, rdb := newTestRedis(t)
	q := redisrepo.NewTaskQueue(rdb)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, task("tx-low", "tx", 4)))
	require.NoError(t, q.Enqueue(ctx, task("fl-1", "fl", 2)))
	require.NoError(t, q.Enqueue(ctx, task("fl-2", "fl", 2)))
	require.NoError(t, q.Enqueue(ctx, task("fl-3", "fl", 2)))

	got, err := q.Checkout(ctx, "w1", []string{"tx", "fl"}, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"tx-low", "fl-1", "fl-2"}, ids(got))

	depth, err := q.Depth(ctx, "fl", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)
}

func TestTaskQueue_CheckoutEmptyLanes(t *testing.T) {
	_, rdb := newTestRedis(t)
	q := redisrepo.NewTaskQueue(rdb)

	got, err := q.Checkout(context.Background(), "w1", []string{"fl", "ca"}, 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = q.Checkout(context.Background(), "w1", []string{"fl"}, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTaskQueue_TaskLivesInExactlyOneList(t *testing.T) {
	mr, rdb := newTestRedis(t)
	q := redisrepo.NewTaskQueue(rdb)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, task("t1", "fl", 2)))
	lane := redisrepo.LaneKey("fl", 2)
	proc := redisrepo.ProcessingKey("w1")

	lst, err := mr.List(lane)
	require.NoError(t, err)
	assert.Len(t, lst, 1)
	assert.False(t, mr.Exists(proc))

	_, err = q.Checkout(ctx, "w1", []string{"fl"}, 1)
	require.NoError(t, err)
	assert.False(t, mr.Exists(lane), "lane is emptied")
	lst, err = mr.List(proc)
	require.NoError(t, err)
	assert.Len(t, lst, 1)

	ok, err := q.Acknowledge(ctx, "w1", "t1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, mr.Exists(proc))
}

func TestTaskQueue_AcknowledgeIsOneShot(t *testing.T) {
	_, rdb := newTestRedis(t)
	q := redisrepo.NewTaskQueue(rdb)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, task("t1", "fl", 1)))
	require.NoError(t, q.Enqueue(ctx, task("t2", "fl", 1)))
	_, err := q.Checkout(ctx, "w1", []string{"fl"}, 2)
	require.NoError(t, err)

	ok, err := q.Acknowledge(ctx, "w1", "t1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = q.Acknowledge(ctx, "w1", "t1")
	require.NoError(t, err)
	assert.False(t, ok, "second ack finds nothing")

	ok, err = q.Acknowledge(ctx, "w2", "t2")
	require.NoError(t, err)
	assert.False(t, ok, "another worker cannot ack")

	inflight, err := q.InFlight(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), inflight)
}

func TestTaskQueue_UndecodablePayloadStaysInProcessing(t *testing.T) {
	mr, rdb := newTestRedis(t)
	q := redisrepo.NewTaskQueue(rdb)
	ctx := context.Background()

	_, err := mr.Lpush(redisrepo.LaneKey("fl", 1), "{not json")
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(ctx, task("good", "fl", 1)))

	got, err := q.Checkout(ctx, "w1", []string{"fl"}, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"good"}, ids(got))

	inflight, err := q.InFlight(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), inflight)
}

func TestTaskQueue_EnqueueValidates(t *testing.T) {
	_, rdb := newTestRedis(t)
	q := redisrepo.NewTaskQueue(rdb)
	ctx := context.Background()

	tests := []struct {
		name string
		task *entity.WorkTask
	}{
		{"nil", nil},
		{"missing id", task("", "fl", 1)},
		{"bad platform", task("x", "FL!", 1)},
		{"priority zero", task("x", "fl", 0)},
		{"priority five", task("x", "fl", 5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := q.Enqueue(ctx, tt.task)
			require.Error(t, err)
			assert.True(t, errors.Is(err, entity.ErrInvalidInput))
		})
	}
}

func TestTaskQueue_CheckoutConcurrentWorkersNeverShareTasks(t *testing.T) {
	_, rdb := newTestRedis(t)
	q := redisrepo.NewTaskQueue(rdb)
	ctx := context.Background()

	for i := 0; i < 40; i++ {
		require.NoError(t, q.Enqueue(ctx, task(fmt.Sprintf("t%02d", i), "fl", 1+i%4)))
	}

	results := make(chan []*entity.WorkTask, 4)
	for w := 0; w < 4; w++ {
		go func(w int) {
			got, err := q.Checkout(ctx, fmt.Sprintf("w%d", w), []string{"fl"}, 15)
			assert.NoError(t, err)
			results <- got
		}(w)
	}

	seen := map[string]bool{}
	total := 0
	for w := 0; w < 4; w++ {
		for _, tk := range <-results {
			assert.False(t, seen[tk.TaskID], "task %s handed out twice", tk.TaskID)
			seen[tk.TaskID] = true
			total++
		}
	}
	assert.Equal(t, 40, total)
}
