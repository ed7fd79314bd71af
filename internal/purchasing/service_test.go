package purchasing

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/PremPatel1010/primetech-backend/internal/inventory"
	"github.com/PremPatel1010/primetech-backend/pkg/db/models"
	"github.com/PremPatel1010/primetech-backend/pkg/enums"
	pkgerrors "github.com/PremPatel1010/primetech-backend/pkg/errors"
	"github.com/PremPatel1010/primetech-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type fakeRepo struct {
	suppliers map[uuid.UUID]*models.Supplier
	orders    map[uuid.UUID]*models.PurchaseOrder
	lastPO    string
	refs      int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		suppliers: map[uuid.UUID]*models.Supplier{},
		orders:    map[uuid.UUID]*models.PurchaseOrder{},
	}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) CreateSupplier(ctx context.Context, supplier *models.Supplier) error {
	supplier.ID = uuid.New()
	f.suppliers[supplier.ID] = supplier
	return nil
}

func (f *fakeRepo) FindSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	supplier, ok := f.suppliers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *supplier
	return &copied, nil
}

func (f *fakeRepo) ListSuppliers(ctx context.Context, params listParams) ([]models.Supplier, *pagination.Cursor, error) {
	var out []models.Supplier
	for _, supplier := range f.suppliers {
		out = append(out, *supplier)
	}
	return out, nil, nil
}

func (f *fakeRepo) UpdateSupplier(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	supplier, ok := f.suppliers[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if name, ok := updates["name"].(string); ok {
		supplier.Name = name
	}
	return nil
}

func (f *fakeRepo) DeleteSupplier(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.suppliers[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.suppliers, id)
	return nil
}

func (f *fakeRepo) CountOrdersForSupplier(ctx context.Context, supplierID uuid.UUID) (int64, error) {
	return f.refs, nil
}

func (f *fakeRepo) CreatePurchaseOrder(ctx context.Context, order *models.PurchaseOrder) error {
	order.ID = uuid.New()
	for i := range order.Items {
		order.Items[i].ID = uuid.New()
		order.Items[i].PurchaseOrderID = order.ID
	}
	f.orders[order.ID] = order
	f.lastPO = order.PONumber
	return nil
}

func (f *fakeRepo) FindPurchaseOrder(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (f *fakeRepo) FindPurchaseOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	return f.FindPurchaseOrder(ctx, id)
}

func (f *fakeRepo) FindPurchaseOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.PurchaseOrderItem, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, nil
	}
	return append([]models.PurchaseOrderItem(nil), order.Items...), nil
}

func (f *fakeRepo) ListPurchaseOrders(ctx context.Context, params listPurchaseOrdersParams) ([]models.PurchaseOrder, *pagination.Cursor, error) {
	var out []models.PurchaseOrder
	for _, order := range f.orders {
		if params.Status != nil && order.Status != *params.Status {
			continue
		}
		out = append(out, *order)
	}
	return out, nil, nil
}

func (f *fakeRepo) UpdatePurchaseOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	order, ok := f.orders[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if status, ok := updates["status"].(enums.PurchaseOrderStatus); ok {
		order.Status = status
	}
	if orderedAt, ok := updates["ordered_at"].(time.Time); ok {
		order.OrderedAt = &orderedAt
	}
	if receivedAt, ok := updates["received_at"].(time.Time); ok {
		order.ReceivedAt = &receivedAt
	}
	return nil
}

func (f *fakeRepo) MaxPONumber(ctx context.Context, prefix string) (string, error) {
	if strings.HasPrefix(f.lastPO, prefix) {
		return f.lastPO, nil
	}
	return "", nil
}

type fakeMaterials struct {
	inventory.Repository
	stocks     map[uuid.UUID]*models.RawMaterial
	increments []decimal.Decimal
}

func (f *fakeMaterials) WithTx(tx *gorm.DB) inventory.Repository { return f }

func (f *fakeMaterials) FindMaterialsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.RawMaterial, error) {
	var out []models.RawMaterial
	for _, id := range ids {
		if material, ok := f.stocks[id]; ok {
			out = append(out, *material)
		}
	}
	return out, nil
}

func (f *fakeMaterials) IncrementRaw(ctx context.Context, id uuid.UUID, qty decimal.Decimal) error {
	f.increments = append(f.increments, qty)
	if material, ok := f.stocks[id]; ok {
		material.StockQuantity = material.StockQuantity.Add(qty)
	}
	return nil
}

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

type receiveEmitter struct {
	received int
}

func (e *receiveEmitter) OrderCreated(ctx context.Context, orderNumber, customerName string) {}
func (e *receiveEmitter) BatchCreated(ctx context.Context, batchNumber, productName string, quantity int) {
}
func (e *receiveEmitter) StageCompleted(ctx context.Context, batchNumber, stage string) {}
func (e *receiveEmitter) BatchCompleted(ctx context.Context, batchNumber, productName string, quantity int) {
}
func (e *receiveEmitter) StockShortage(ctx context.Context, materialName string, shortfall decimal.Decimal, unit string) {
}
func (e *receiveEmitter) LowStock(ctx context.Context, materialName string, stock, minimum decimal.Decimal, unit string) {
}
func (e *receiveEmitter) PurchaseOrderReceived(ctx context.Context, poNumber string) {
	e.received++
}

type purchasingHarness struct {
	svc       Service
	repo      *fakeRepo
	materials *fakeMaterials
	emitter   *receiveEmitter
	supplier  *models.Supplier
	steelID   uuid.UUID
}

func newPurchasingHarness(t *testing.T) *purchasingHarness {
	t.Helper()

	steelID := uuid.New()
	repo := newFakeRepo()
	materials := &fakeMaterials{stocks: map[uuid.UUID]*models.RawMaterial{
		steelID: {ID: steelID, Name: "Steel", Unit: "kg", StockQuantity: decimal.NewFromInt(10)},
	}}
	emitter := &receiveEmitter{}

	svc, err := NewService(repo, materials, fakeTx{}, emitter)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	supplier := &models.Supplier{Name: "Bharat Alloys"}
	if err := repo.CreateSupplier(context.Background(), supplier); err != nil {
		t.Fatalf("seed supplier: %v", err)
	}

	return &purchasingHarness{
		svc:       svc,
		repo:      repo,
		materials: materials,
		emitter:   emitter,
		supplier:  supplier,
		steelID:   steelID,
	}
}

func (h *purchasingHarness) draftOrder(t *testing.T, qty int64) *models.PurchaseOrder {
	t.Helper()
	order, err := h.svc.CreatePurchaseOrder(context.Background(), CreatePurchaseOrderInput{
		SupplierID: h.supplier.ID,
		Items: []PurchaseOrderLineInput{
			{MaterialID: h.steelID, Quantity: decimal.NewFromInt(qty), UnitPrice: decimal.NewFromInt(50)},
		},
	})
	if err != nil {
		t.Fatalf("create purchase order: %v", err)
	}
	return order
}

func TestCreatePurchaseOrder(t *testing.T) {
	h := newPurchasingHarness(t)

	order := h.draftOrder(t, 20)
	if order.Status != enums.PurchaseOrderStatusDraft {
		t.Fatalf("expected draft, got %s", order.Status)
	}
	if !strings.HasPrefix(order.PONumber, "PO-") || !strings.HasSuffix(order.PONumber, "-0001") {
		t.Fatalf("unexpected po number %q", order.PONumber)
	}
	if !order.TotalValue.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected total 1000, got %s", order.TotalValue)
	}

	second := h.draftOrder(t, 5)
	if !strings.HasSuffix(second.PONumber, "-0002") {
		t.Fatalf("unexpected second po number %q", second.PONumber)
	}
}

func TestCreatePurchaseOrderValidates(t *testing.T) {
	h := newPurchasingHarness(t)

	_, err := h.svc.CreatePurchaseOrder(context.Background(), CreatePurchaseOrderInput{SupplierID: h.supplier.ID})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for empty lines, got %v", err)
	}

	_, err = h.svc.CreatePurchaseOrder(context.Background(), CreatePurchaseOrderInput{
		SupplierID: h.supplier.ID,
		Items:      []PurchaseOrderLineInput{{MaterialID: h.steelID, Quantity: decimal.Zero}},
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for zero quantity, got %v", err)
	}

	_, err = h.svc.CreatePurchaseOrder(context.Background(), CreatePurchaseOrderInput{
		SupplierID: uuid.New(),
		Items:      []PurchaseOrderLineInput{{MaterialID: h.steelID, Quantity: decimal.NewFromInt(1)}},
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown supplier, got %v", err)
	}

	_, err = h.svc.CreatePurchaseOrder(context.Background(), CreatePurchaseOrderInput{
		SupplierID: h.supplier.ID,
		Items:      []PurchaseOrderLineInput{{MaterialID: uuid.New(), Quantity: decimal.NewFromInt(1)}},
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown material, got %v", err)
	}
}

func TestReceivePurchaseOrderIncrementsStock(t *testing.T) {
	h := newPurchasingHarness(t)
	order := h.draftOrder(t, 20)

	if _, err := h.svc.MarkOrdered(context.Background(), order.ID); err != nil {
		t.Fatalf("mark ordered: %v", err)
	}

	received, err := h.svc.ReceivePurchaseOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("receive purchase order: %v", err)
	}
	if received.Status != enums.PurchaseOrderStatusReceived || received.ReceivedAt == nil {
		t.Fatalf("expected received with timestamp, got %+v", received)
	}
	if !h.materials.stocks[h.steelID].StockQuantity.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected stock 30, got %s", h.materials.stocks[h.steelID].StockQuantity)
	}
	if h.emitter.received != 1 {
		t.Fatalf("expected receive notification, got %d", h.emitter.received)
	}

	// Receiving again must not double the stock.
	_, err = h.svc.ReceivePurchaseOrder(context.Background(), order.ID)
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict on second receive, got %v", err)
	}
	if len(h.materials.increments) != 1 {
		t.Fatalf("stock must be incremented exactly once, got %d increments", len(h.materials.increments))
	}
}

func TestReceiveRequiresOrderedStatus(t *testing.T) {
	h := newPurchasingHarness(t)
	order := h.draftOrder(t, 5)

	_, err := h.svc.ReceivePurchaseOrder(context.Background(), order.ID)
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict receiving a draft, got %v", err)
	}
	if len(h.materials.increments) != 0 {
		t.Fatalf("draft receive must not touch stock")
	}
}

func TestCancelPurchaseOrder(t *testing.T) {
	h := newPurchasingHarness(t)
	order := h.draftOrder(t, 5)

	cancelled, err := h.svc.CancelPurchaseOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("cancel purchase order: %v", err)
	}
	if cancelled.Status != enums.PurchaseOrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}

	// Cancelled is terminal.
	_, err = h.svc.MarkOrdered(context.Background(), order.ID)
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestDeleteSupplierRefusesWithHistory(t *testing.T) {
	h := newPurchasingHarness(t)

	h.repo.refs = 1
	err := h.svc.DeleteSupplier(context.Background(), h.supplier.ID)
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict with purchase order history, got %v", err)
	}

	h.repo.refs = 0
	if err := h.svc.DeleteSupplier(context.Background(), h.supplier.ID); err != nil {
		t.Fatalf("delete supplier: %v", err)
	}
	if _, err := h.svc.GetSupplier(context.Background(), h.supplier.ID); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected supplier gone, got %v", err)
	}
}

func TestCreateSupplierValidates(t *testing.T) {
	h := newPurchasingHarness(t)

	_, err := h.svc.CreateSupplier(context.Background(), SupplierInput{Name: "  "})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
