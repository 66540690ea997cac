package service

import (
	"context"

	"magirls/internal/worker"

	"github.com/shopspring/decimal"
)

const (
	EventSaleConfirmed = "sale.confirmed"
	EventStockUpdated  = "stock.updated"
)

// EventPublisher fans out post-commit notifications to live clients.
type EventPublisher interface {
	Publish(eventType string, payload interface{})
}

// JobQueue accepts post-commit background work. Implemented by worker.Dispatcher.
type JobQueue interface {
	EnqueueReceipt(ctx context.Context, payload worker.ReceiptJobPayload) error
	EnqueueLowStockAlert(ctx context.Context, payload worker.LowStockJobPayload) error
}

type StockUpdatedEvent struct {
	VariantID string `json:"variant_id"`
	QtyOnHand int    `json:"qty_on_hand"`
}

type SaleConfirmedEvent struct {
	SaleID       string          `json:"sale_id"`
	TicketNumber int64           `json:"ticket_number"`
	Total        decimal.Decimal `json:"total"`
	Currency     string          `json:"currency"`
}
