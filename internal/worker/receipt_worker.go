package worker

// receipt_worker.go
// Renders the PDF receipt of a confirmed sale and, when the customer left an
// email address, queues the mail that carries it.

import (
	"context"
	"encoding/json"
	"fmt"

	"magirls/internal/infra"
	"magirls/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ReceiptJobPayload is the job envelope sent to QueueReceipt.
type ReceiptJobPayload struct {
	SaleID        string  `json:"sale_id"`
	CustomerEmail *string `json:"customer_email,omitempty"`
}

type emailQueue interface {
	EnqueueEmail(ctx context.Context, payload EmailJobPayload) error
}

type ReceiptWorker struct {
	sales       repository.SaleRepository
	emails      emailQueue
	storeName   string
	storagePath string
}

func NewReceiptWorker(sales repository.SaleRepository, emails emailQueue, storeName, storagePath string) *ReceiptWorker {
	return &ReceiptWorker{sales: sales, emails: emails, storeName: storeName, storagePath: storagePath}
}

func (w *ReceiptWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ReceiptJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("receipt_worker: invalid payload: %w", err)
	}
	saleID, err := uuid.Parse(payload.SaleID)
	if err != nil {
		return fmt.Errorf("receipt_worker: invalid sale_id %q", payload.SaleID)
	}

	sale, err := w.sales.FindByID(ctx, saleID)
	if err != nil {
		return fmt.Errorf("receipt_worker: load sale %s: %w", saleID, err)
	}

	path, err := infra.GenerateReceiptPDF(sale, w.storeName, w.storagePath)
	if err != nil {
		return fmt.Errorf("receipt_worker: %w", err)
	}
	log.Info().Int64("ticket_number", sale.TicketNumber).Str("path", path).Msg("receipt_worker: receipt rendered")

	if payload.CustomerEmail == nil || *payload.CustomerEmail == "" || w.emails == nil {
		return nil
	}
	return w.emails.EnqueueEmail(ctx, EmailJobPayload{
		ToEmail:        *payload.CustomerEmail,
		Subject:        fmt.Sprintf("%s: receipt #%d", w.storeName, sale.TicketNumber),
		Body:           fmt.Sprintf("Thank you for shopping at %s. Your receipt is attached.", w.storeName),
		AttachmentPath: path,
		SaleID:         sale.ID.String(),
		TicketNumber:   sale.TicketNumber,
	})
}
