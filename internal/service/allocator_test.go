package service_test

import (
	"context"
	"errors"
	"testing"

	"magirls/internal/model"
	"magirls/internal/repository"
	"magirls/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// refusingLedger refuses every decrement, as the store would for a balance
// changed behind the allocator's back.
type refusingLedger struct{ stubLedger }

func (l refusingLedger) Adjust(ctx context.Context, warehouseID, batchID uuid.UUID, delta int) (int, error) {
	if delta < 0 {
		return 0, repository.ErrNegativeBalance
	}
	return l.stubLedger.Adjust(ctx, warehouseID, batchID, delta)
}

func allocate(f *fixture, a *service.StockAllocator, variantID uuid.UUID, qty int) (*service.AllocationResult, error) {
	var res *service.AllocationResult
	err := stubTx{f.m}.RunInTx(context.Background(), func(txCtx context.Context) error {
		var err error
		res, err = a.Allocate(txCtx, service.AllocationRequest{
			WarehouseID: f.warehouseID(),
			VariantID:   variantID,
			Product:     "Test Product",
			Qty:         qty,
			Actor:       f.actor,
			SaleID:      uuid.New(),
		})
		return err
	})
	return res, err
}

func TestAllocate_OldestBatchFirst(t *testing.T) {
	f := newFixture()
	v := f.seedVariant("8800001", "Tote", "10.00", 1)
	mid := f.receiveBatch(v, "LOT-B", 2)
	newest := f.receiveBatch(v, "LOT-C", 4)
	oldest := f.m.st.batches[0].ID

	res, err := allocate(f, f.allocator, v, 5)
	require.NoError(t, err)

	require.Len(t, res.Takes, 3)
	assert.Equal(t, service.BatchTake{BatchID: oldest, Qty: 1, BalanceAfter: 0}, res.Takes[0])
	assert.Equal(t, service.BatchTake{BatchID: mid, Qty: 2, BalanceAfter: 0}, res.Takes[1])
	assert.Equal(t, service.BatchTake{BatchID: newest, Qty: 2, BalanceAfter: 2}, res.Takes[2])
}

func TestAllocate_SkipsEmptyBatches(t *testing.T) {
	f := newFixture()
	v := f.seedVariant("8800002", "Clutch", "10.00", 0)
	lot := f.receiveBatch(v, "LOT-1", 3)

	res, err := allocate(f, f.allocator, v, 2)
	require.NoError(t, err)
	require.Len(t, res.Takes, 1)
	assert.Equal(t, lot, res.Takes[0].BatchID)
}

func TestAllocate_MovementPerTake(t *testing.T) {
	f := newFixture()
	v := f.seedVariant("8800003", "Poncho", "10.00", 2)
	f.receiveBatch(v, "LOT-2", 2)

	_, err := allocate(f, f.allocator, v, 3)
	require.NoError(t, err)

	sum := 0
	n := 0
	for _, mv := range f.movementsFor(v) {
		if mv.Kind == model.MovementDecreaseSale {
			n++
			sum += mv.QtyDelta
			require.NotNil(t, mv.Reason)
			assert.Equal(t, "Sale checkout", *mv.Reason)
		}
	}
	assert.Equal(t, 2, n)
	assert.Equal(t, -3, sum)
}

func TestAllocate_NoBatches(t *testing.T) {
	f := newFixture()
	variantID := uuid.New()

	_, err := allocate(f, f.allocator, variantID, 1)

	var noBatches *service.NoBatchesError
	require.ErrorAs(t, err, &noBatches)
	assert.Equal(t, "No available stock batches for Test Product", err.Error())
}

func TestAllocate_DrainedBatchesIsRace(t *testing.T) {
	f := newFixture()
	v := f.seedVariant("8800004", "Cape", "10.00", 0)

	_, err := allocate(f, f.allocator, v, 1)

	var race *service.StockRaceError
	assert.ErrorAs(t, err, &race)
}

func TestAllocate_ShortfallIsRace(t *testing.T) {
	f := newFixture()
	v := f.seedVariant("8800005", "Vest", "10.00", 2)

	_, err := allocate(f, f.allocator, v, 3)

	var race *service.StockRaceError
	require.ErrorAs(t, err, &race)
	// the partial decrement was undone with the unit of work
	assert.Equal(t, 2, f.m.onHand(v))
}

func TestAllocate_LedgerRefusal(t *testing.T) {
	f := newFixture()
	v := f.seedVariant("8800006", "Shawl", "10.00", 2)
	m := f.m
	a := service.NewStockAllocator(stubBatches{m}, refusingLedger{stubLedger{m}}, stubMovements{m})

	_, err := allocate(f, a, v, 1)

	assert.True(t, errors.Is(err, repository.ErrNegativeBalance))
	var neg *service.NegativeBalanceError
	require.ErrorAs(t, err, &neg)
	assert.Equal(t, -1, neg.Delta)
	assert.Equal(t, 2, f.m.onHand(v))
}

func TestAllocate_RejectsNonPositiveQty(t *testing.T) {
	f := newFixture()
	v := f.seedVariant("8800007", "Gloves", "10.00", 2)

	_, err := allocate(f, f.allocator, v, 0)
	assert.ErrorIs(t, err, service.ErrInvalidQuantity)
}

func TestReceive_DefaultAndNamedBatches(t *testing.T) {
	f := newFixture()
	v := f.seedVariant("8800008", "Socks", "3.00", 0)
	w := f.warehouseID()

	var def, named *service.ReceiptResult
	err := stubTx{f.m}.RunInTx(context.Background(), func(ctx context.Context) error {
		var err error
		if def, err = f.receiver.Receive(ctx, service.ReceiptRequest{
			WarehouseID: w, VariantID: v, Qty: 4, Actor: f.actor, Reason: "delivery",
		}); err != nil {
			return err
		}
		named, err = f.receiver.Receive(ctx, service.ReceiptRequest{
			WarehouseID: w, VariantID: v, Qty: 6, Actor: f.actor, Reason: "delivery", BatchCode: "LOT-9",
		})
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, model.DefaultBatchCode, def.Batch.BatchCode)
	assert.Equal(t, 4, def.BatchBalance)
	assert.Equal(t, "LOT-9", named.Batch.BatchCode)
	assert.Equal(t, 6, named.BatchBalance)
	assert.Equal(t, 10, f.m.onHand(v))

	increases := 0
	for _, mv := range f.movementsFor(v) {
		if mv.Kind == model.MovementIncreaseScan {
			increases++
			assert.Positive(t, mv.QtyDelta)
		}
	}
	assert.Equal(t, 2, increases)
}

func TestReceive_RejectsNonPositiveQty(t *testing.T) {
	f := newFixture()
	_, err := f.receiver.Receive(context.Background(), service.ReceiptRequest{
		WarehouseID: uuid.New(), VariantID: uuid.New(), Qty: -1,
	})
	assert.ErrorIs(t, err, service.ErrInvalidQuantity)
	assert.Empty(t, f.m.st.batches)
}
