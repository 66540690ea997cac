package worker

// email_worker.go
// Processes jobs from QueueEmail: receipt mails to customers and low stock
// alerts to the store owner. SMTP calls go through a circuit breaker and are
// retried with exponential backoff before the job fails.

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"magirls/internal/infra"

	"github.com/rs/zerolog/log"
)

const emailMaxAttempts = 3

// EmailJobPayload is the job envelope sent to QueueEmail.
// SaleID and TicketNumber are set for receipt mails.
type EmailJobPayload struct {
	ToEmail        string `json:"to_email"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
	AttachmentPath string `json:"attachment_path,omitempty"`
	SaleID         string `json:"sale_id,omitempty"`
	TicketNumber   int64  `json:"ticket_number,omitempty"`
}

// LowStockItem is one variant at or below the alert threshold.
type LowStockItem struct {
	ProductName string  `json:"product_name"`
	VariantName *string `json:"variant_name,omitempty"`
	QtyOnHand   int     `json:"qty_on_hand"`
}

type LowStockJobPayload struct {
	TicketNumber int64          `json:"ticket_number"`
	Items        []LowStockItem `json:"items"`
}

// MailSender is satisfied by infra.Mailer.
type MailSender interface {
	Enabled() bool
	Send(msg infra.Mail) error
}

type EmailWorker struct {
	mailer    MailSender
	cb        *infra.CircuitBreaker
	alertTo   string
	storeName string
	retryBase time.Duration
}

// NewEmailWorker wires the mailer and breaker. alertTo receives low stock
// alerts; an empty value disables them.
func NewEmailWorker(mailer MailSender, cb *infra.CircuitBreaker, alertTo, storeName string) *EmailWorker {
	return &EmailWorker{mailer: mailer, cb: cb, alertTo: alertTo, storeName: storeName, retryBase: time.Second}
}

// Process sends one email, optionally with an attachment.
func (w *EmailWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("email_worker: invalid payload: %w", err)
	}
	if payload.ToEmail == "" {
		log.Warn().Msg("email_worker: empty to_email, skipping")
		return nil
	}
	return w.deliver(ctx, payload)
}

// ProcessLowStock mails the low stock summary produced after a checkout.
func (w *EmailWorker) ProcessLowStock(ctx context.Context, raw json.RawMessage) error {
	var payload LowStockJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("email_worker: invalid low stock payload: %w", err)
	}
	if w.alertTo == "" || len(payload.Items) == 0 {
		return nil
	}
	return w.deliver(ctx, EmailJobPayload{
		ToEmail: w.alertTo,
		Subject: fmt.Sprintf("%s: low stock after ticket #%d", w.storeName, payload.TicketNumber),
		Body:    lowStockBody(payload),
	})
}

func (w *EmailWorker) deliver(ctx context.Context, p EmailJobPayload) error {
	if !w.mailer.Enabled() {
		log.Warn().Str("to", p.ToEmail).Int64("ticket_number", p.TicketNumber).Msg("email_worker: mail disabled, dropping message")
		return nil
	}
	msg := infra.Mail{To: p.ToEmail, Subject: p.Subject, Body: p.Body, ReceiptPath: p.AttachmentPath}
	err := withRetry(ctx, emailMaxAttempts, w.retryBase, func(attempt int) error {
		return w.cb.Execute(func() error { return w.mailer.Send(msg) })
	})
	if err != nil {
		return fmt.Errorf("email_worker: send to %s: %w", p.ToEmail, err)
	}
	log.Info().Str("to", p.ToEmail).Str("subject", p.Subject).Msg("email_worker: sent")
	return nil
}

func lowStockBody(p LowStockJobPayload) string {
	var b strings.Builder
	b.WriteString("The following items are running low:\n\n")
	for _, it := range p.Items {
		name := it.ProductName
		if it.VariantName != nil && *it.VariantName != "" {
			name += " (" + *it.VariantName + ")"
		}
		fmt.Fprintf(&b, "- %s: %d left\n", name, it.QtyOnHand)
	}
	return b.String()
}

// withRetry calls fn up to maxAttempts times, doubling the wait between
// attempts starting at base.
func withRetry(ctx context.Context, maxAttempts int, base time.Duration, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := base * time.Duration(1<<uint(i-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}
