package worker

// retry_cron.go
// Background goroutine that moves parked jobs back onto their queue. Email
// jobs wait until the SMTP circuit breaker is no longer open.

import (
	"context"
	"time"

	"magirls/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	retryTickInterval = time.Minute
	retryBatchSize    = 10
	maxReplays        = 3
)

// RetryCronConfig holds all dependencies for the retry goroutine.
type RetryCronConfig struct {
	RDB        *redis.Client
	CB         *infra.CircuitBreaker
	Dispatcher *Dispatcher
}

// StartRetryCron ticks every minute and replays up to retryBatchSize parked
// jobs per queue. It stops when ctx is cancelled.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				replayDLQ(ctx, cfg)
			}
		}
	}()
}

func replayDLQ(ctx context.Context, cfg RetryCronConfig) {
	replayQueue(ctx, cfg, QueueReceipt)
	if cfg.CB != nil && cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("retry_cron: mail circuit is open, email jobs stay parked")
		return
	}
	replayQueue(ctx, cfg, QueueEmail)
}

func replayQueue(ctx context.Context, cfg RetryCronConfig, queue string) {
	pending, err := DLQLength(ctx, cfg.RDB, queue)
	if err != nil || pending == 0 {
		return
	}

	n := min(int(pending), retryBatchSize)
	for i := 0; i < n; i++ {
		entry, err := popDLQ(ctx, cfg.RDB, queue)
		if err != nil {
			log.Error().Err(err).Str("queue", queue).Msg("retry_cron: failed to read parked job")
			return
		}
		if entry == nil {
			return
		}

		if entry.Job.Replays >= maxReplays {
			// Exhausted: keep it parked, unchanged, for manual inspection.
			if err := parkDeadLetter(ctx, cfg.RDB, *entry); err != nil {
				log.Error().Err(err).Str("sale_id", entry.SaleID).Msg("retry_cron: failed to re-park job")
			}
			continue
		}

		job := entry.Job
		job.Replays++
		if err := cfg.Dispatcher.push(ctx, queue, job); err != nil {
			log.Error().Err(err).Str("queue", queue).Msg("retry_cron: failed to requeue job")
			_ = parkDeadLetter(ctx, cfg.RDB, *entry)
			return
		}
		log.Info().
			Str("job_type", job.Type).
			Str("sale_id", entry.SaleID).
			Int64("ticket_number", entry.TicketNumber).
			Int("replay", job.Replays).
			Msg("retry_cron: job requeued")
	}
}
