package orders

import (
	"context"
	"strings"
	"testing"

	"github.com/PremPatel1010/primetech-backend/internal/inventory"
	"github.com/PremPatel1010/primetech-backend/internal/manufacturing"
	"github.com/PremPatel1010/primetech-backend/internal/products"
	"github.com/PremPatel1010/primetech-backend/pkg/config"
	"github.com/PremPatel1010/primetech-backend/pkg/db/models"
	dbtypes "github.com/PremPatel1010/primetech-backend/pkg/db/types"
	"github.com/PremPatel1010/primetech-backend/pkg/enums"
	pkgerrors "github.com/PremPatel1010/primetech-backend/pkg/errors"
	"github.com/PremPatel1010/primetech-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type fakeOrderRepo struct {
	orders map[uuid.UUID]*models.SalesOrder
	last   string
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[uuid.UUID]*models.SalesOrder{}}
}

func (f *fakeOrderRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeOrderRepo) CreateOrder(ctx context.Context, order *models.SalesOrder) error {
	order.ID = uuid.New()
	for i := range order.Items {
		order.Items[i].ID = uuid.New()
		order.Items[i].OrderID = order.ID
	}
	copied := *order
	f.orders[order.ID] = &copied
	f.last = order.OrderNumber
	return nil
}

func (f *fakeOrderRepo) FindOrder(ctx context.Context, id uuid.UUID) (*models.SalesOrder, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (f *fakeOrderRepo) ListOrders(ctx context.Context, params listOrdersParams) ([]models.SalesOrder, *pagination.Cursor, error) {
	var out []models.SalesOrder
	for _, order := range f.orders {
		if params.Status != nil && order.Status != *params.Status {
			continue
		}
		out = append(out, *order)
	}
	return out, nil, nil
}

func (f *fakeOrderRepo) UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	order, ok := f.orders[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if status, ok := updates["status"].(enums.SalesOrderStatus); ok {
		order.Status = status
	}
	return nil
}

func (f *fakeOrderRepo) LinkItemBatches(ctx context.Context, itemID uuid.UUID, batchIDs dbtypes.UUIDArray) error {
	for _, order := range f.orders {
		for i := range order.Items {
			if order.Items[i].ID == itemID {
				order.Items[i].BatchIDs = batchIDs
				return nil
			}
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeOrderRepo) MaxOrderNumber(ctx context.Context, prefix string) (string, error) {
	if strings.HasPrefix(f.last, prefix) {
		return f.last, nil
	}
	return "", nil
}

type fakeCatalog struct {
	products.Repository
	items map[uuid.UUID]*models.Product
}

func (f *fakeCatalog) WithTx(tx *gorm.DB) products.Repository { return f }

func (f *fakeCatalog) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	seen := map[uuid.UUID]bool{}
	var out []models.Product
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if product, ok := f.items[id]; ok {
			out = append(out, *product)
		}
	}
	return out, nil
}

type fakeStock struct {
	inventory.Repository
	finished  map[uuid.UUID]int
	materials map[uuid.UUID]*models.RawMaterial
}

func (f *fakeStock) WithTx(tx *gorm.DB) inventory.Repository { return f }

func (f *fakeStock) FindFinishedByProducts(ctx context.Context, productIDs []uuid.UUID) ([]models.FinishedProduct, error) {
	var out []models.FinishedProduct
	for _, id := range productIDs {
		if qty, ok := f.finished[id]; ok {
			out = append(out, models.FinishedProduct{ProductID: id, QuantityAvailable: qty})
		}
	}
	return out, nil
}

func (f *fakeStock) FindMaterialsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.RawMaterial, error) {
	var out []models.RawMaterial
	for _, id := range ids {
		if material, ok := f.materials[id]; ok {
			out = append(out, *material)
		}
	}
	return out, nil
}

// DeductFinished mirrors the conditional decrement: it fails rather than
// going negative.
func (f *fakeStock) DeductFinished(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if f.finished[productID] < qty {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient finished stock")
	}
	f.finished[productID] -= qty
	return nil
}

type fakeBatchCreator struct {
	created []manufacturing.OrderBatchInput
}

func (f *fakeBatchCreator) CreateForOrder(ctx context.Context, tx *gorm.DB, input manufacturing.OrderBatchInput) (*models.ManufacturingBatch, error) {
	f.created = append(f.created, input)
	return &models.ManufacturingBatch{
		ID:           uuid.New(),
		BatchNumber:  "MB-1",
		ProductID:    input.ProductID,
		Quantity:     input.Quantity,
		SalesOrderID: &input.SalesOrderID,
		Status:       enums.BatchStatusInProgress,
	}, nil
}

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

type orderEmitter struct {
	orders    int
	batches   int
	shortages int
}

func (e *orderEmitter) OrderCreated(ctx context.Context, orderNumber, customerName string) {
	e.orders++
}
func (e *orderEmitter) BatchCreated(ctx context.Context, batchNumber, productName string, quantity int) {
	e.batches++
}
func (e *orderEmitter) StageCompleted(ctx context.Context, batchNumber, stage string)  {}
func (e *orderEmitter) BatchCompleted(ctx context.Context, batchNumber, productName string, quantity int) {
}
func (e *orderEmitter) StockShortage(ctx context.Context, materialName string, shortfall decimal.Decimal, unit string) {
	e.shortages++
}
func (e *orderEmitter) LowStock(ctx context.Context, materialName string, stock, minimum decimal.Decimal, unit string) {
}
func (e *orderEmitter) PurchaseOrderReceived(ctx context.Context, poNumber string) {}

type orderHarness struct {
	svc     Service
	repo    *fakeOrderRepo
	stock   *fakeStock
	batches *fakeBatchCreator
	emitter *orderEmitter
	pump    *models.Product
	steelID uuid.UUID
}

// newOrderHarness wires an intake pipeline around one product that needs two
// units of steel per produced unit.
func newOrderHarness(t *testing.T) *orderHarness {
	t.Helper()

	steelID := uuid.New()
	pump := &models.Product{
		ID:        uuid.New(),
		Name:      "Submersible Pump",
		UnitPrice: decimal.NewFromInt(100),
		BOM: []models.BOMItem{
			{MaterialID: steelID, QuantityPerUnit: decimal.NewFromInt(2), Unit: "kg"},
		},
	}

	repo := newFakeOrderRepo()
	stock := &fakeStock{
		finished: map[uuid.UUID]int{},
		materials: map[uuid.UUID]*models.RawMaterial{
			steelID: {ID: steelID, Name: "Steel", Unit: "kg", StockQuantity: decimal.NewFromInt(1000)},
		},
	}
	batches := &fakeBatchCreator{}
	emitter := &orderEmitter{}

	svc, err := NewService(ServiceParams{
		Repo:      repo,
		Products:  &fakeCatalog{items: map[uuid.UUID]*models.Product{pump.ID: pump}},
		Inventory: stock,
		Finished:  stock,
		Batches:   batches,
		Tx:        fakeTx{},
		Emitter:   emitter,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	return &orderHarness{
		svc:     svc,
		repo:    repo,
		stock:   stock,
		batches: batches,
		emitter: emitter,
		pump:    pump,
		steelID: steelID,
	}
}

func TestCreateOrderFullyFromStock(t *testing.T) {
	h := newOrderHarness(t)
	h.stock.finished[h.pump.ID] = 10

	result, err := h.svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerName: "Acme Waterworks",
		Items:        []OrderLineInput{{ProductID: h.pump.ID, Quantity: 4}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if result.Order.Status != enums.SalesOrderStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", result.Order.Status)
	}
	if len(result.Batches) != 0 {
		t.Fatalf("no batches expected, got %d", len(result.Batches))
	}
	if h.stock.finished[h.pump.ID] != 6 {
		t.Fatalf("expected finished stock drawn down to 6, got %d", h.stock.finished[h.pump.ID])
	}
	item := result.Order.Items[0]
	if item.QuantityFromStock != 4 || item.QuantityToManufacture != 0 {
		t.Fatalf("unexpected split: %+v", item)
	}
	if !result.Order.TotalValue.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("expected total 400, got %s", result.Order.TotalValue)
	}
	if h.emitter.orders != 1 {
		t.Fatalf("expected order created notification, got %d", h.emitter.orders)
	}
}

func TestCreateOrderPartialSplitSpawnsBatch(t *testing.T) {
	h := newOrderHarness(t)
	h.stock.finished[h.pump.ID] = 2

	result, err := h.svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerName: "Acme Waterworks",
		Items:        []OrderLineInput{{ProductID: h.pump.ID, Quantity: 5}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if result.Order.Status != enums.SalesOrderStatusInProduction {
		t.Fatalf("expected in_production, got %s", result.Order.Status)
	}
	item := result.Order.Items[0]
	if item.QuantityFromStock != 2 || item.QuantityToManufacture != 3 {
		t.Fatalf("expected split 2/3, got %+v", item)
	}
	if len(h.batches.created) != 1 || h.batches.created[0].Quantity != 3 {
		t.Fatalf("expected one batch of 3, got %+v", h.batches.created)
	}
	if h.batches.created[0].SalesOrderID != result.Order.ID {
		t.Fatalf("batch must reference the order")
	}

	stored, _ := h.repo.FindOrder(context.Background(), result.Order.ID)
	if len(stored.Items[0].BatchIDs) != 1 {
		t.Fatalf("order line must link its batch, got %+v", stored.Items[0].BatchIDs)
	}
	if h.emitter.batches != 1 {
		t.Fatalf("expected batch created notification, got %d", h.emitter.batches)
	}
}

func TestCreateOrderShortMaterialsAwaits(t *testing.T) {
	h := newOrderHarness(t)
	h.stock.materials[h.steelID].StockQuantity = decimal.NewFromInt(4)

	result, err := h.svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerName: "Acme Waterworks",
		Items:        []OrderLineInput{{ProductID: h.pump.ID, Quantity: 5}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if result.Order.Status != enums.SalesOrderStatusAwaitingMaterials {
		t.Fatalf("expected awaiting_materials, got %s", result.Order.Status)
	}
	if len(result.Shortages) != 1 {
		t.Fatalf("expected one shortage, got %+v", result.Shortages)
	}
	if !result.Shortages[0].Shortfall.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("expected shortfall 6, got %s", result.Shortages[0].Shortfall)
	}
	// The batch still starts; production waits on purchasing.
	if len(h.batches.created) != 1 {
		t.Fatalf("expected batch despite shortage, got %d", len(h.batches.created))
	}
	if h.emitter.shortages != 1 {
		t.Fatalf("expected shortage notification, got %d", h.emitter.shortages)
	}
}

func TestCreateOrderNumbersIncrement(t *testing.T) {
	h := newOrderHarness(t)
	h.stock.finished[h.pump.ID] = 100

	first, err := h.svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerName: "Acme Waterworks",
		Items:        []OrderLineInput{{ProductID: h.pump.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	second, err := h.svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerName: "Acme Waterworks",
		Items:        []OrderLineInput{{ProductID: h.pump.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if !strings.HasPrefix(first.Order.OrderNumber, "SO-") || !strings.HasSuffix(first.Order.OrderNumber, "-0001") {
		t.Fatalf("unexpected first number %q", first.Order.OrderNumber)
	}
	if !strings.HasSuffix(second.Order.OrderNumber, "-0002") {
		t.Fatalf("unexpected second number %q", second.Order.OrderNumber)
	}
}

func TestCreateOrderValidates(t *testing.T) {
	h := newOrderHarness(t)

	cases := []CreateOrderInput{
		{CustomerName: " ", Items: []OrderLineInput{{ProductID: h.pump.ID, Quantity: 1}}},
		{CustomerName: "Acme"},
		{CustomerName: "Acme", Items: []OrderLineInput{{ProductID: h.pump.ID, Quantity: 0}}},
		{CustomerName: "Acme", Items: []OrderLineInput{{ProductID: uuid.Nil, Quantity: 1}}},
		{
			CustomerName:    "Acme",
			DiscountPercent: decimal.NewFromInt(101),
			Items:           []OrderLineInput{{ProductID: h.pump.ID, Quantity: 1}},
		},
	}
	for i, input := range cases {
		if _, err := h.svc.CreateOrder(context.Background(), input); pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}

	_, err := h.svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerName: "Acme",
		Items:        []OrderLineInput{{ProductID: uuid.New(), Quantity: 1}},
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown product, got %v", err)
	}
}

func TestUpdateStatusFollowsTransitionTable(t *testing.T) {
	h := newOrderHarness(t)
	h.stock.finished[h.pump.ID] = 10

	result, err := h.svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerName: "Acme Waterworks",
		Items:        []OrderLineInput{{ProductID: h.pump.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	orderID := result.Order.ID

	updated, err := h.svc.UpdateStatus(context.Background(), orderID, enums.SalesOrderStatusFulfilled)
	if err != nil {
		t.Fatalf("fulfill order: %v", err)
	}
	if updated.Status != enums.SalesOrderStatusFulfilled {
		t.Fatalf("expected fulfilled, got %s", updated.Status)
	}

	// Fulfilled is terminal.
	_, err = h.svc.UpdateStatus(context.Background(), orderID, enums.SalesOrderStatusCancelled)
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict from terminal status, got %v", err)
	}

	// Same-status updates are a no-op.
	if _, err := h.svc.UpdateStatus(context.Background(), orderID, enums.SalesOrderStatusFulfilled); err != nil {
		t.Fatalf("idempotent status update: %v", err)
	}

	_, err = h.svc.UpdateStatus(context.Background(), orderID, enums.SalesOrderStatus("shipped"))
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}

	_, err = h.svc.UpdateStatus(context.Background(), uuid.New(), enums.SalesOrderStatusCancelled)
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateOrderAppliesDefaultGST(t *testing.T) {
	h := newOrderHarness(t)
	h.stock.finished[h.pump.ID] = 10

	svc, err := NewService(ServiceParams{
		Config:    config.OrdersConfig{NumberPrefix: "SO", DefaultGSTPercent: 18},
		Repo:      h.repo,
		Products:  &fakeCatalog{items: map[uuid.UUID]*models.Product{h.pump.ID: h.pump}},
		Inventory: h.stock,
		Finished:  h.stock,
		Batches:   h.batches,
		Tx:        fakeTx{},
		Emitter:   h.emitter,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	result, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerName: "Acme Waterworks",
		Items:        []OrderLineInput{{ProductID: h.pump.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	// 100 plus the configured 18% tax.
	if !result.Order.TotalValue.Equal(decimal.NewFromInt(118)) {
		t.Fatalf("expected total 118, got %s", result.Order.TotalValue)
	}
}
