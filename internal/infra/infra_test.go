package infra

import (
	"bytes"
	"context"
	"errors"
	"net/smtp"
	"os"
	"path/filepath"
	"testing"
	"time"

	"magirls/internal/config"
	"magirls/internal/model"

	"github.com/google/uuid"
	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var errSMTP = errors.New("smtp down")

func testBreaker(now *time.Time) *CircuitBreaker {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "test",
		FailureThreshold: 2,
		SuccessThreshold: 2,
		OpenTimeout:      time.Minute,
	})
	cb.now = func() time.Time { return *now }
	return cb
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := testBreaker(&now)

	fail := func() error { return errSMTP }
	assert.ErrorIs(t, cb.Execute(fail), errSMTP)
	assert.Equal(t, CBClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(fail), errSMTP)
	assert.Equal(t, CBOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	now := time.Now()
	cb := testBreaker(&now)

	_ = cb.Execute(func() error { return errSMTP })
	require.NoError(t, cb.Execute(func() error { return nil }))
	_ = cb.Execute(func() error { return errSMTP })
	assert.Equal(t, CBClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := testBreaker(&now)
	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return errSMTP })
	}
	require.Equal(t, CBOpen, cb.State())

	now = now.Add(time.Minute)
	assert.Equal(t, CBHalfOpen, cb.State())
	assert.Equal(t, "half-open", cb.State().String())

	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, CBHalfOpen, cb.State())
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, CBClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := testBreaker(&now)
	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return errSMTP })
	}
	now = now.Add(2 * time.Minute)
	require.Equal(t, CBHalfOpen, cb.State())

	_ = cb.Execute(func() error { return errSMTP })
	assert.Equal(t, CBOpen, cb.State())
}

func TestGenerateReceiptPDF(t *testing.T) {
	dir := t.TempDir() + "/nested"
	sale := &model.Sale{
		ID:           uuid.New(),
		TicketNumber: 5,
		Total:        decimal.RequireFromString("75.50"),
		Subtotal:     decimal.RequireFromString("75.50"),
		Currency:     "USD",
		CreatedAt:    time.Date(2026, 4, 1, 12, 30, 0, 0, time.UTC),
		Items: []model.SaleItem{
			{ProductName: "Embroidered Linen Summer Dress With Long Name", Qty: 1, UnitPrice: decimal.RequireFromString("50.50"), LineTotal: decimal.RequireFromString("50.50")},
			{ProductName: "Beret", Qty: 2, UnitPrice: decimal.RequireFromString("12.50"), LineTotal: decimal.RequireFromString("25")},
		},
	}

	path, err := GenerateReceiptPDF(sale, "Ma' Girls", dir)
	require.NoError(t, err)
	assert.Equal(t, ReceiptPath(dir, 5), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF-")))
}

func TestMovementsXLSX(t *testing.T) {
	saleID := uuid.New()
	reason := "Sale checkout"
	movements := []model.StockMovement{
		{
			ID:              uuid.New(),
			WarehouseID:     uuid.New(),
			BatchID:         uuid.New(),
			VariantID:       uuid.New(),
			Kind:            model.MovementDecreaseSale,
			QtyDelta:        -2,
			Reason:          &reason,
			ReferenceSaleID: &saleID,
			PerformedBy:     uuid.New(),
			CreatedAt:       time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC),
		},
		{Kind: model.MovementIncreaseScan, QtyDelta: 5},
	}

	raw, err := MovementsXLSX(movements)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Movements")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{
		"created_at", "movement_type", "qty_delta", "variant_id", "batch_id",
		"warehouse_id", "reference_sale_id", "reason", "performed_by_user_id",
	}, rows[0])
	assert.Equal(t, "2026-02-03T04:05:06Z", rows[1][0])
	assert.Equal(t, "-2", rows[1][2])
	assert.Equal(t, saleID.String(), rows[1][6])
	assert.Equal(t, "Sale checkout", rows[1][7])
	assert.Equal(t, "INCREASE_SCAN", rows[2][1])
}

func TestPriceCache_NilIsNoop(t *testing.T) {
	c := NewPriceCache(nil, time.Minute)
	assert.Nil(t, c)

	ctx := context.Background()
	var dst map[string]string
	assert.False(t, c.Get(ctx, "123", &dst))
	assert.NoError(t, c.Set(ctx, "123", "x"))
	assert.NoError(t, c.Evict(ctx, "123"))
}

func testMailer(host string) (*Mailer, *[]*email.Email) {
	m := NewMailer(&config.Config{
		SMTPHost:  host,
		SMTPPort:  587,
		SMTPUser:  "store@example.com",
		StoreName: "Ma' Girls",
	})
	var sent []*email.Email
	m.send = func(e *email.Email, addr string, _ smtp.Auth) error {
		if addr != host+":587" {
			return errors.New("unexpected addr " + addr)
		}
		sent = append(sent, e)
		return nil
	}
	return m, &sent
}

func TestMailer_DisabledWithoutHost(t *testing.T) {
	m, sent := testMailer("")
	assert.False(t, m.Enabled())
	assert.ErrorIs(t, m.Send(Mail{To: "ana@example.com"}), ErrMailerDisabled)
	assert.Empty(t, *sent)
}

func TestMailer_SendsReceiptAsPDF(t *testing.T) {
	m, sent := testMailer("smtp.example.com")
	receipt := filepath.Join(t.TempDir(), "receipt_5.pdf")
	require.NoError(t, os.WriteFile(receipt, []byte("%PDF-1.3"), 0o644))

	err := m.Send(Mail{To: "ana@example.com", Subject: "Ma' Girls: receipt #5", Body: "thanks", ReceiptPath: receipt})
	require.NoError(t, err)
	require.Len(t, *sent, 1)

	e := (*sent)[0]
	assert.Equal(t, `"Ma' Girls" <store@example.com>`, e.From)
	assert.Equal(t, []string{"ana@example.com"}, e.To)
	require.Len(t, e.Attachments, 1)
	assert.Equal(t, "receipt_5.pdf", e.Attachments[0].Filename)
	assert.Equal(t, "application/pdf", e.Attachments[0].ContentType)
}

func TestMailer_ComposeErrors(t *testing.T) {
	m, sent := testMailer("smtp.example.com")
	assert.Error(t, m.Send(Mail{To: "  "}))
	assert.Error(t, m.Send(Mail{To: "ana@example.com", ReceiptPath: filepath.Join(t.TempDir(), "missing.pdf")}))
	assert.Empty(t, *sent)
}
