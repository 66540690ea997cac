package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"magirls/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueReceipt = "jobs:receipt"
	QueueEmail   = "jobs:email"
)

const (
	JobReceipt  = "receipt"
	JobEmail    = "email"
	JobLowStock = "low_stock"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Replays int             `json:"replays,omitempty"` // times re-queued from the DLQ
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueReceipt schedules PDF rendering (and optional mailing) for a sale.
func (d *Dispatcher) EnqueueReceipt(ctx context.Context, payload ReceiptJobPayload) error {
	return d.enqueue(ctx, QueueReceipt, JobReceipt, payload)
}

func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailJobPayload) error {
	return d.enqueue(ctx, QueueEmail, JobEmail, payload)
}

// EnqueueLowStockAlert schedules the low stock notification to the store owner.
func (d *Dispatcher) EnqueueLowStockAlert(ctx context.Context, payload LowStockJobPayload) error {
	return d.enqueue(ctx, QueueEmail, JobLowStock, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return d.push(ctx, queue, Job{Type: jobType, Payload: data})
}

func (d *Dispatcher) push(ctx context.Context, queue string, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// WorkerHandlers groups the per-type job processors used by the pool.
type WorkerHandlers struct {
	Receipt *ReceiptWorker
	Email   *EmailWorker
}

// StartWorkerPool launches numWorkers goroutines consuming both queues.
// Each goroutine blocks on BRPOP, so idle workers cost no CPU.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, handlers, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

// Backoff between BRPOP attempts while Redis is failing.
var (
	pollErrorBase = 500 * time.Millisecond
	pollErrorMax  = 30 * time.Second
)

// pollBackoff doubles from pollErrorBase per consecutive failure, capped at pollErrorMax.
func pollBackoff(failures int) time.Duration {
	if failures < 1 {
		return 0
	}
	d := pollErrorBase
	for i := 1; i < failures && d < pollErrorMax; i++ {
		d *= 2
	}
	return min(d, pollErrorMax)
}

func runWorker(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, id int) {
	queues := []string{QueueReceipt, QueueEmail}
	failures := 0
	for {
		if ctx.Err() != nil {
			log.Info().Msgf("worker %d shutting down", id)
			return
		}

		// Blocking pop, waits up to 5s then loops to check ctx
		result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
		switch {
		case errors.Is(err, redis.Nil):
			failures = 0
			continue
		case err != nil:
			if ctx.Err() != nil {
				continue
			}
			failures++
			wait := pollBackoff(failures)
			log.Warn().Err(err).Int("worker", id).Dur("backoff", wait).Msg("worker: queue poll failed")
			select {
			case <-ctx.Done():
			case <-time.After(wait):
			}
			continue
		}
		failures = 0
		if len(result) < 2 {
			continue
		}
		processJob(ctx, rdb, handlers, result[0], result[1])
	}
}

func processJob(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		infra.JobsProcessedTotal.WithLabelValues(queue, "invalid").Inc()
		return
	}

	var err error
	switch job.Type {
	case JobReceipt:
		err = handlers.Receipt.Process(ctx, job.Payload)
	case JobEmail:
		err = handlers.Email.Process(ctx, job.Payload)
	case JobLowStock:
		err = handlers.Email.ProcessLowStock(ctx, job.Payload)
	default:
		log.Warn().Str("type", job.Type).Str("queue", queue).Msg("unknown job type")
		infra.JobsProcessedTotal.WithLabelValues(queue, "unknown").Inc()
		return
	}

	if err != nil {
		log.Error().Err(err).Str("type", job.Type).Str("queue", queue).Msg("job failed")
		infra.JobsProcessedTotal.WithLabelValues(queue, "failed").Inc()
		SendToDLQ(ctx, rdb, queue, job, err.Error())
		return
	}
	infra.JobsProcessedTotal.WithLabelValues(queue, "ok").Inc()
}
