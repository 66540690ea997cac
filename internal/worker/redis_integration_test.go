//go:build integration

package worker

// Queue round trips against a real Redis. Run with:
//   go test -tags integration ./internal/worker/...

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"magirls/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	rdC, err := tcRedis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	url, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestDispatcher_FailedJobGoesToDLQAndIsReplayed(t *testing.T) {
	rdb := startRedis(t)
	ctx := context.Background()
	d := NewDispatcher(rdb)

	sender := &fakeSender{failures: emailMaxAttempts}
	handlers := &WorkerHandlers{Email: newTestEmailWorker(sender, "")}

	require.NoError(t, d.EnqueueEmail(ctx, EmailJobPayload{ToEmail: "ana@example.com", Subject: "Receipt"}))

	res, err := rdb.BRPop(ctx, time.Second, QueueEmail).Result()
	require.NoError(t, err)
	processJob(ctx, rdb, handlers, res[0], res[1])

	n, err := DLQLength(ctx, rdb, QueueEmail)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	replayDLQ(ctx, RetryCronConfig{RDB: rdb, CB: infra.NewCircuitBreaker(infra.DefaultCBConfig()), Dispatcher: d})

	n, _ = DLQLength(ctx, rdb, QueueEmail)
	assert.Zero(t, n)
	res, err = rdb.BRPop(ctx, time.Second, QueueEmail).Result()
	require.NoError(t, err)
	processJob(ctx, rdb, handlers, res[0], res[1])

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ana@example.com", sender.sent[0].to)
}

func TestReplayDLQ_ParksExhaustedJobs(t *testing.T) {
	rdb := startRedis(t)
	ctx := context.Background()

	SendToDLQ(ctx, rdb, QueueEmail, Job{
		Type:    JobEmail,
		Payload: []byte(`{"to_email":"x@example.com","ticket_number":9}`),
		Replays: maxReplays,
	}, "smtp down")
	replayDLQ(ctx, RetryCronConfig{RDB: rdb, CB: infra.NewCircuitBreaker(infra.DefaultCBConfig()), Dispatcher: NewDispatcher(rdb)})

	n, err := DLQLength(ctx, rdb, QueueEmail)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	queued, err := rdb.LLen(ctx, QueueEmail).Result()
	require.NoError(t, err)
	assert.Zero(t, queued)

	entry, err := popDLQ(ctx, rdb, QueueEmail)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, int64(9), entry.TicketNumber)
	assert.Equal(t, "x@example.com", entry.Recipient)
	assert.Equal(t, maxReplays, entry.Job.Replays)
}

func TestReplayDLQ_ReceiptsReplayWhileMailCircuitIsOpen(t *testing.T) {
	rdb := startRedis(t)
	ctx := context.Background()
	saleID := "5f0c6c1e-8a64-4a4e-9d8b-0b6f4f3c9a11"

	SendToDLQ(ctx, rdb, QueueReceipt, Job{Type: JobReceipt, Payload: []byte(`{"sale_id":"` + saleID + `"}`)}, "disk full")
	SendToDLQ(ctx, rdb, QueueEmail, Job{Type: JobEmail, Payload: []byte(`{"to_email":"ana@example.com"}`)}, "smtp down")

	total, err := DeadLetterCount(ctx, rdb)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	open := infra.NewCircuitBreaker(infra.CircuitBreakerConfig{Name: "test-open", FailureThreshold: 1})
	_ = open.Execute(func() error { return assert.AnError })
	replayDLQ(ctx, RetryCronConfig{RDB: rdb, CB: open, Dispatcher: NewDispatcher(rdb)})

	receipts, _ := DLQLength(ctx, rdb, QueueReceipt)
	emails, _ := DLQLength(ctx, rdb, QueueEmail)
	assert.Zero(t, receipts)
	assert.Equal(t, int64(1), emails)

	res, err := rdb.BRPop(ctx, time.Second, QueueReceipt).Result()
	require.NoError(t, err)
	var job Job
	require.NoError(t, json.Unmarshal([]byte(res[1]), &job))
	assert.Equal(t, JobReceipt, job.Type)
	assert.Equal(t, 1, job.Replays)
}

func TestStartWorkerPool_ProcessesLowStockAlerts(t *testing.T) {
	rdb := startRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender := &fakeSender{}
	StartWorkerPool(ctx, rdb, &WorkerHandlers{Email: newTestEmailWorker(sender, "owner@example.com")}, 1)

	require.NoError(t, NewDispatcher(rdb).EnqueueLowStockAlert(ctx, LowStockJobPayload{
		TicketNumber: 3,
		Items:        []LowStockItem{{ProductName: "Beret", QtyOnHand: 0}},
	}))

	assert.Eventually(t, func() bool { return sender.sentCount() == 1 }, 10*time.Second, 50*time.Millisecond)
}
