package service_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"magirls/internal/config"
	"magirls/internal/dto"
	"magirls/internal/model"
	"magirls/internal/repository"
	"magirls/internal/service"
	"magirls/internal/worker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ── In-memory store ───────────────────────────────────────────────────────────

type balanceKey struct {
	warehouseID uuid.UUID
	batchID     uuid.UUID
}

// memState is everything a unit of work can change. It is copied on
// RunInTx and restored when the callback fails.
type memState struct {
	warehouses []model.Warehouse
	products   map[uuid.UUID]model.Product
	variants   map[uuid.UUID]model.ProductVariant
	barcodes   map[string]model.VariantBarcode
	batches    []model.InventoryBatch
	balances   map[balanceKey]int
	movements  []model.StockMovement
	customers  []model.Customer
	sales      []model.Sale
}

func (s memState) clone() memState {
	c := memState{
		warehouses: append([]model.Warehouse(nil), s.warehouses...),
		products:   make(map[uuid.UUID]model.Product, len(s.products)),
		variants:   make(map[uuid.UUID]model.ProductVariant, len(s.variants)),
		barcodes:   make(map[string]model.VariantBarcode, len(s.barcodes)),
		batches:    append([]model.InventoryBatch(nil), s.batches...),
		balances:   make(map[balanceKey]int, len(s.balances)),
		movements:  append([]model.StockMovement(nil), s.movements...),
		customers:  append([]model.Customer(nil), s.customers...),
		sales:      append([]model.Sale(nil), s.sales...),
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.variants {
		c.variants[k] = v
	}
	for k, v := range s.barcodes {
		c.barcodes[k] = v
	}
	for k, v := range s.balances {
		c.balances[k] = v
	}
	return c
}

// memStore backs every repository stub below. Ticket numbers live outside
// the state because a sequence is not rolled back either.
type memStore struct {
	st        memState
	ticketSeq int64
	clock     time.Time

	// fault injection
	failMovementAfter int // fail the Nth movement Create (1-based); 0 disables
	movementCreates   int
	beforeFIFO        func(warehouseID, variantID uuid.UUID)
}

func newMemStore() *memStore {
	return &memStore{
		st: memState{
			products: make(map[uuid.UUID]model.Product),
			variants: make(map[uuid.UUID]model.ProductVariant),
			barcodes: make(map[string]model.VariantBarcode),
			balances: make(map[balanceKey]int),
		},
		clock: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) onHand(variantID uuid.UUID) int {
	total := 0
	for _, b := range m.st.batches {
		if b.VariantID == variantID {
			total += m.st.balances[balanceKey{b.WarehouseID, b.ID}]
		}
	}
	return total
}

func (m *memStore) batchBalance(batchID uuid.UUID) int {
	for _, b := range m.st.batches {
		if b.ID == batchID {
			return m.st.balances[balanceKey{b.WarehouseID, b.ID}]
		}
	}
	return 0
}

// ── TxManager ─────────────────────────────────────────────────────────────────

type txKey struct{}

type stubTx struct{ m *memStore }

func (t stubTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	snapshot := t.m.st.clone()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		t.m.st = snapshot
		return err
	}
	return nil
}

// ── Warehouses ────────────────────────────────────────────────────────────────

type stubWarehouses struct{ m *memStore }

func (r stubWarehouses) EnsureDefault(_ context.Context, name string) (*model.Warehouse, error) {
	if len(r.m.st.warehouses) == 0 {
		r.m.st.warehouses = append(r.m.st.warehouses, model.Warehouse{ID: uuid.New(), Name: name, CreatedAt: r.m.tick()})
	}
	w := r.m.st.warehouses[0]
	return &w, nil
}

// ── Catalog ───────────────────────────────────────────────────────────────────

type stubCatalog struct{ m *memStore }

func (r stubCatalog) active(variantID uuid.UUID) (model.ProductVariant, model.Product, bool) {
	v, ok := r.m.st.variants[variantID]
	if !ok || !v.IsActive {
		return v, model.Product{}, false
	}
	p, ok := r.m.st.products[v.ProductID]
	if !ok || !p.IsActive {
		return v, p, false
	}
	return v, p, true
}

func (r stubCatalog) primaryCode(variantID uuid.UUID) *string {
	var codes []model.VariantBarcode
	for _, b := range r.m.st.barcodes {
		if b.VariantID == variantID {
			codes = append(codes, b)
		}
	}
	if len(codes) == 0 {
		return nil
	}
	sort.Slice(codes, func(i, j int) bool {
		if codes[i].IsPrimary != codes[j].IsPrimary {
			return codes[i].IsPrimary
		}
		return codes[i].CreatedAt.Before(codes[j].CreatedAt)
	})
	return &codes[0].BarcodeCode
}

func (r stubCatalog) item(v model.ProductVariant, p model.Product) model.InventoryItem {
	return model.InventoryItem{
		VariantID:     v.ID,
		ProductID:     p.ID,
		ProductName:   p.Name,
		VariantName:   v.DisplayName(),
		Brand:         p.Brand,
		Category:      p.Category,
		Description:   p.Description,
		PhotoURL:      p.PhotoURL,
		Color:         v.Color,
		Size:          v.Size,
		Location:      v.Location,
		SalePrice:     v.SalePrice,
		PurchasePrice: v.PurchasePrice,
		QtyOnHand:     r.m.onHand(v.ID),
		PrimaryCode:   r.primaryCode(v.ID),
	}
}

func (r stubCatalog) FindByCode(_ context.Context, code string) (*model.VariantSnapshot, error) {
	bc, ok := r.m.st.barcodes[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	v, p, ok := r.active(bc.VariantID)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &model.VariantSnapshot{
		Code:          code,
		VariantID:     v.ID,
		ProductName:   p.Name,
		VariantName:   v.DisplayName(),
		SalePrice:     v.SalePrice,
		PurchasePrice: v.PurchasePrice,
		QtyOnHand:     r.m.onHand(v.ID),
	}, nil
}

func (r stubCatalog) FindItem(_ context.Context, variantID uuid.UUID) (*model.InventoryItem, error) {
	v, p, ok := r.active(variantID)
	if !ok {
		return nil, repository.ErrNotFound
	}
	it := r.item(v, p)
	return &it, nil
}

func (r stubCatalog) ListItems(_ context.Context) ([]model.InventoryItem, error) {
	var out []model.InventoryItem
	for id := range r.m.st.variants {
		if v, p, ok := r.active(id); ok {
			out = append(out, r.item(v, p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductName < out[j].ProductName })
	return out, nil
}

func (r stubCatalog) ListLowStock(ctx context.Context, threshold int) ([]model.InventoryItem, error) {
	all, _ := r.ListItems(ctx)
	var out []model.InventoryItem
	for _, it := range all {
		if it.QtyOnHand <= threshold {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].QtyOnHand < out[j].QtyOnHand })
	return out, nil
}

func (r stubCatalog) CodesForVariant(_ context.Context, variantID uuid.UUID) ([]string, error) {
	var codes []string
	for code, b := range r.m.st.barcodes {
		if b.VariantID == variantID {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes, nil
}

func (r stubCatalog) CreateProduct(_ context.Context, p *model.Product) error {
	p.ID = uuid.New()
	p.CreatedAt = r.m.tick()
	for i := range p.Variants {
		p.Variants[i].ID = uuid.New()
		p.Variants[i].ProductID = p.ID
		p.Variants[i].CreatedAt = p.CreatedAt
		r.m.st.variants[p.Variants[i].ID] = p.Variants[i]
	}
	stored := *p
	stored.Variants = nil
	r.m.st.products[p.ID] = stored
	return nil
}

func (r stubCatalog) CreateBarcode(_ context.Context, b *model.VariantBarcode) error {
	if _, exists := r.m.st.barcodes[b.BarcodeCode]; exists {
		return repository.ErrConflict
	}
	b.CreatedAt = r.m.tick()
	r.m.st.barcodes[b.BarcodeCode] = *b
	return nil
}

func (r stubCatalog) FindVariant(_ context.Context, variantID uuid.UUID) (*model.ProductVariant, error) {
	v, ok := r.m.st.variants[variantID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p := r.m.st.products[v.ProductID]
	v.Product = &p
	return &v, nil
}

func (r stubCatalog) SaveProduct(_ context.Context, p *model.Product) error {
	stored := *p
	stored.Variants = nil
	r.m.st.products[p.ID] = stored
	return nil
}

func (r stubCatalog) SaveVariant(_ context.Context, v *model.ProductVariant) error {
	stored := *v
	stored.Product = nil
	r.m.st.variants[v.ID] = stored
	return nil
}

func (r stubCatalog) DeactivateVariant(_ context.Context, variantID uuid.UUID) (bool, error) {
	v, ok := r.m.st.variants[variantID]
	if !ok {
		return false, repository.ErrNotFound
	}
	v.IsActive = false
	r.m.st.variants[variantID] = v
	for _, other := range r.m.st.variants {
		if other.ProductID == v.ProductID && other.IsActive {
			return false, nil
		}
	}
	p := r.m.st.products[v.ProductID]
	p.IsActive = false
	r.m.st.products[p.ID] = p
	return true, nil
}

// ── Batches and ledger ────────────────────────────────────────────────────────

type stubBatches struct{ m *memStore }

func (r stubBatches) Ensure(_ context.Context, warehouseID, variantID uuid.UUID, code string, expiresAt *time.Time) (*model.InventoryBatch, error) {
	for _, b := range r.m.st.batches {
		if b.WarehouseID == warehouseID && b.VariantID == variantID && b.BatchCode == code {
			found := b
			return &found, nil
		}
	}
	b := model.InventoryBatch{
		ID:          uuid.New(),
		WarehouseID: warehouseID,
		VariantID:   variantID,
		BatchCode:   code,
		ExpiresAt:   expiresAt,
		CreatedAt:   r.m.tick(),
	}
	r.m.st.batches = append(r.m.st.batches, b)
	return &b, nil
}

func (r stubBatches) FindByID(_ context.Context, id uuid.UUID) (*model.InventoryBatch, error) {
	for _, b := range r.m.st.batches {
		if b.ID == id {
			found := b
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r stubBatches) ListAvailableFIFO(_ context.Context, warehouseID, variantID uuid.UUID) ([]model.AvailableBatch, error) {
	if r.m.beforeFIFO != nil {
		r.m.beforeFIFO(warehouseID, variantID)
	}
	var out []model.AvailableBatch
	for _, b := range r.m.st.batches {
		if b.WarehouseID != warehouseID || b.VariantID != variantID {
			continue
		}
		if qty := r.m.st.balances[balanceKey{warehouseID, b.ID}]; qty > 0 {
			out = append(out, model.AvailableBatch{BatchID: b.ID, BatchCode: b.BatchCode, QtyOnHand: qty, CreatedAt: b.CreatedAt})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].BatchID.String() < out[j].BatchID.String()
	})
	return out, nil
}

func (r stubBatches) CountForVariant(_ context.Context, warehouseID, variantID uuid.UUID) (int64, error) {
	var n int64
	for _, b := range r.m.st.batches {
		if b.WarehouseID == warehouseID && b.VariantID == variantID {
			n++
		}
	}
	return n, nil
}

type stubLedger struct{ m *memStore }

func (l stubLedger) Adjust(_ context.Context, warehouseID, batchID uuid.UUID, delta int) (int, error) {
	k := balanceKey{warehouseID, batchID}
	next := l.m.st.balances[k] + delta
	if next < 0 {
		return 0, repository.ErrNegativeBalance
	}
	l.m.st.balances[k] = next
	return next, nil
}

func (l stubLedger) Balance(_ context.Context, warehouseID, batchID uuid.UUID) (int, error) {
	return l.m.st.balances[balanceKey{warehouseID, batchID}], nil
}

func (l stubLedger) SumForVariant(_ context.Context, warehouseID, variantID uuid.UUID) (int, error) {
	total := 0
	for _, b := range l.m.st.batches {
		if b.WarehouseID == warehouseID && b.VariantID == variantID {
			total += l.m.st.balances[balanceKey{warehouseID, b.ID}]
		}
	}
	return total, nil
}

// ── Movements ─────────────────────────────────────────────────────────────────

var errInjected = errors.New("injected failure")

type stubMovements struct{ m *memStore }

func (r stubMovements) Create(_ context.Context, mv *model.StockMovement) error {
	r.m.movementCreates++
	if r.m.failMovementAfter > 0 && r.m.movementCreates == r.m.failMovementAfter {
		return errInjected
	}
	mv.ID = uuid.New()
	mv.CreatedAt = r.m.tick()
	r.m.st.movements = append(r.m.st.movements, *mv)
	return nil
}

func (r stubMovements) List(_ context.Context, f dto.MovementFilter) ([]model.StockMovement, int64, error) {
	var matched []model.StockMovement
	for i := len(r.m.st.movements) - 1; i >= 0; i-- {
		mv := r.m.st.movements[i]
		if f.VariantID != "" && mv.VariantID.String() != f.VariantID {
			continue
		}
		if f.SaleID != "" && (mv.ReferenceSaleID == nil || mv.ReferenceSaleID.String() != f.SaleID) {
			continue
		}
		if f.Kind != "" && string(mv.Kind) != f.Kind {
			continue
		}
		matched = append(matched, mv)
	}
	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 100
	}
	start := (page - 1) * limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], int64(len(matched)), nil
}

func (r stubMovements) SumDeltasForBatch(_ context.Context, warehouseID, batchID uuid.UUID) (int, error) {
	sum := 0
	for _, mv := range r.m.st.movements {
		if mv.WarehouseID == warehouseID && mv.BatchID == batchID {
			sum += mv.QtyDelta
		}
	}
	return sum, nil
}

// ── Customers and sales ───────────────────────────────────────────────────────

type stubCustomers struct{ m *memStore }

func (r stubCustomers) FindOrCreate(_ context.Context, fullName string, phone, email *string) (*model.Customer, error) {
	key := ""
	if phone != nil {
		key = strings.TrimSpace(*phone)
	}
	for _, c := range r.m.st.customers {
		existing := ""
		if c.Phone != nil {
			existing = *c.Phone
		}
		if c.FullName == fullName && existing == key {
			found := c
			return &found, nil
		}
	}
	c := model.Customer{ID: uuid.New(), FullName: fullName, Email: email, CreatedAt: r.m.tick()}
	if key != "" {
		c.Phone = &key
	}
	r.m.st.customers = append(r.m.st.customers, c)
	return &c, nil
}

type stubSales struct{ m *memStore }

func (r stubSales) NextTicketNumber(_ context.Context) (int64, error) {
	r.m.ticketSeq++
	return r.m.ticketSeq, nil
}

func (r stubSales) Create(_ context.Context, s *model.Sale) error {
	s.ID = uuid.New()
	s.CreatedAt = r.m.tick()
	for i := range s.Items {
		s.Items[i].ID = uuid.New()
		s.Items[i].SaleID = s.ID
	}
	stored := *s
	stored.Items = append([]model.SaleItem(nil), s.Items...)
	r.m.st.sales = append(r.m.st.sales, stored)
	return nil
}

func (r stubSales) FindByID(_ context.Context, id uuid.UUID) (*model.Sale, error) {
	for _, s := range r.m.st.sales {
		if s.ID == id {
			found := s
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r stubSales) List(_ context.Context, _ dto.SaleFilter) ([]model.Sale, int64, error) {
	out := append([]model.Sale(nil), r.m.st.sales...)
	sort.Slice(out, func(i, j int) bool { return out[i].TicketNumber > out[j].TicketNumber })
	return out, int64(len(out)), nil
}

var (
	_ repository.TxManager               = stubTx{}
	_ repository.WarehouseRepository     = stubWarehouses{}
	_ repository.CatalogRepository       = stubCatalog{}
	_ repository.BatchRepository         = stubBatches{}
	_ repository.StockLedger             = stubLedger{}
	_ repository.StockMovementRepository = stubMovements{}
	_ repository.CustomerRepository      = stubCustomers{}
	_ repository.SaleRepository          = stubSales{}
)

// ── Side-effect recorders ─────────────────────────────────────────────────────

type recordedEvent struct {
	Type    string
	Payload interface{}
}

type stubEvents struct{ events []recordedEvent }

func (e *stubEvents) Publish(eventType string, payload interface{}) {
	e.events = append(e.events, recordedEvent{Type: eventType, Payload: payload})
}

func (e *stubEvents) ofType(t string) []recordedEvent {
	var out []recordedEvent
	for _, ev := range e.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type stubJobs struct {
	receipts []worker.ReceiptJobPayload
	lowStock []worker.LowStockJobPayload
}

func (j *stubJobs) EnqueueReceipt(_ context.Context, p worker.ReceiptJobPayload) error {
	j.receipts = append(j.receipts, p)
	return nil
}

func (j *stubJobs) EnqueueLowStockAlert(_ context.Context, p worker.LowStockJobPayload) error {
	j.lowStock = append(j.lowStock, p)
	return nil
}

type stubPriceCache struct {
	entries map[string]dto.PriceCheckResponse
	gets    int
	hits    int
}

func newStubPriceCache() *stubPriceCache {
	return &stubPriceCache{entries: make(map[string]dto.PriceCheckResponse)}
}

func (c *stubPriceCache) Get(_ context.Context, code string, dst interface{}) bool {
	c.gets++
	v, ok := c.entries[code]
	if !ok {
		return false
	}
	c.hits++
	*(dst.(*dto.PriceCheckResponse)) = v
	return true
}

func (c *stubPriceCache) Set(_ context.Context, code string, v interface{}) error {
	c.entries[code] = *(v.(*dto.PriceCheckResponse))
	return nil
}

func (c *stubPriceCache) Evict(_ context.Context, codes ...string) error {
	for _, code := range codes {
		delete(c.entries, code)
	}
	return nil
}

// ── Fixture ───────────────────────────────────────────────────────────────────

type fixture struct {
	m      *memStore
	cfg    *config.Config
	events *stubEvents
	jobs   *stubJobs
	cache  *stubPriceCache
	actor  uuid.UUID

	sales     service.SaleService
	catalog   service.CatalogService
	inventory service.InventoryService
	allocator *service.StockAllocator
	receiver  *service.StockReceiver
}

func newTestCfg() *config.Config {
	return &config.Config{
		JWTSecret:            "test-secret",
		JWTExpiresMinutes:    60,
		DefaultWarehouseName: "Main Warehouse",
		Currency:             "USD",
		LowStockThreshold:    1,
		StoreName:            "Ma' Girls",
	}
}

func newFixture() *fixture {
	m := newMemStore()
	f := &fixture{
		m:      m,
		cfg:    newTestCfg(),
		events: &stubEvents{},
		jobs:   &stubJobs{},
		cache:  newStubPriceCache(),
		actor:  uuid.New(),
	}
	f.cfg.ReceiptStoragePath = ""

	f.allocator = service.NewStockAllocator(stubBatches{m}, stubLedger{m}, stubMovements{m})
	f.receiver = service.NewStockReceiver(stubBatches{m}, stubLedger{m}, stubMovements{m})
	f.sales = service.NewSaleService(stubTx{m}, stubWarehouses{m}, stubCatalog{m}, stubLedger{m},
		stubCustomers{m}, stubSales{m}, f.allocator, f.jobs, f.events, f.cfg)
	f.catalog = service.NewCatalogService(stubTx{m}, stubCatalog{m}, stubWarehouses{m}, stubBatches{m},
		f.receiver, f.cache, f.cfg)
	f.inventory = service.NewInventoryService(stubTx{m}, stubCatalog{m}, stubWarehouses{m}, stubBatches{m},
		stubLedger{m}, stubMovements{m}, f.receiver, f.events, f.cfg)
	return f
}

// seedVariant registers code with the given sale price and initial stock in
// the default batch.
func (f *fixture) seedVariant(code, name string, price string, qty int) uuid.UUID {
	resp, err := f.catalog.ScanUpsert(context.Background(), f.actor, dto.ScanUpsertRequest{
		Code:          code,
		ProductName:   name,
		PurchasePrice: decimal.RequireFromString(price).Div(decimal.NewFromInt(2)),
		SalePrice:     decimal.RequireFromString(price),
		InitialQty:    qty,
	})
	if err != nil {
		panic(err)
	}
	return uuid.MustParse(resp.Variant.VariantID)
}

// receiveBatch adds qty to a named batch of the variant.
func (f *fixture) receiveBatch(variantID uuid.UUID, batchCode string, qty int) uuid.UUID {
	resp, err := f.inventory.ReceiveStock(context.Background(), f.actor, dto.ReceiveStockRequest{
		VariantID: variantID.String(),
		Qty:       qty,
		BatchCode: batchCode,
	})
	if err != nil {
		panic(err)
	}
	return uuid.MustParse(resp.BatchID)
}

func (f *fixture) warehouseID() uuid.UUID {
	w, _ := stubWarehouses{f.m}.EnsureDefault(context.Background(), f.cfg.DefaultWarehouseName)
	return w.ID
}

func (f *fixture) movementsFor(variantID uuid.UUID) []model.StockMovement {
	var out []model.StockMovement
	for _, mv := range f.m.st.movements {
		if mv.VariantID == variantID {
			out = append(out, mv)
		}
	}
	return out
}

func strPtr(s string) *string { return &s }
