package worker

// dlq.go: failed jobs are parked per source queue (dlq:{queue}). Each entry
// keeps the sale it was produced for, so a missing receipt or alert can be
// traced back to its ticket.

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DLQPrefix = "dlq:"

// DeadLetter is a failed job plus the sale context pulled from its payload.
type DeadLetter struct {
	Queue        string    `json:"queue"`
	Job          Job       `json:"job"`
	SaleID       string    `json:"sale_id,omitempty"`
	TicketNumber int64     `json:"ticket_number,omitempty"`
	Recipient    string    `json:"recipient,omitempty"`
	Reason       string    `json:"reason"`
	FailedAt     time.Time `json:"failed_at"`
}

// saleRef holds the fields every job payload may carry.
type saleRef struct {
	SaleID       string `json:"sale_id"`
	TicketNumber int64  `json:"ticket_number"`
	ToEmail      string `json:"to_email"`
}

func newDeadLetter(queue string, job Job, reason string, failedAt time.Time) DeadLetter {
	var ref saleRef
	_ = json.Unmarshal(job.Payload, &ref)
	return DeadLetter{
		Queue:        queue,
		Job:          job,
		SaleID:       ref.SaleID,
		TicketNumber: ref.TicketNumber,
		Recipient:    ref.ToEmail,
		Reason:       reason,
		FailedAt:     failedAt,
	}
}

// SendToDLQ parks a failed job on the dead letter list of its queue.
func SendToDLQ(ctx context.Context, rdb *redis.Client, queue string, job Job, reason string) {
	entry := newDeadLetter(queue, job, reason, time.Now().UTC())
	if err := parkDeadLetter(ctx, rdb, entry); err != nil {
		log.Error().Err(err).Str("queue", queue).Str("sale_id", entry.SaleID).Msg("dlq: failed to park job")
		return
	}
	log.Warn().
		Str("queue", queue).
		Str("job_type", job.Type).
		Str("sale_id", entry.SaleID).
		Int64("ticket_number", entry.TicketNumber).
		Int("replays", job.Replays).
		Str("reason", reason).
		Msg("dlq: job parked")
}

func parkDeadLetter(ctx context.Context, rdb *redis.Client, entry DeadLetter) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return rdb.LPush(ctx, DLQPrefix+entry.Queue, data).Err()
}

// DLQLength returns the number of parked jobs of one queue.
func DLQLength(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, DLQPrefix+queue).Result()
}

// DeadLetterCount sums the parked jobs of every job queue.
func DeadLetterCount(ctx context.Context, rdb *redis.Client) (int64, error) {
	var total int64
	for _, q := range []string{QueueReceipt, QueueEmail} {
		n, err := DLQLength(ctx, rdb, q)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// popDLQ removes and returns the oldest parked job, or nil when empty.
func popDLQ(ctx context.Context, rdb *redis.Client, queue string) (*DeadLetter, error) {
	raw, err := rdb.RPop(ctx, DLQPrefix+queue).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entry DeadLetter
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
