package purchasing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PremPatel1010/primetech-backend/internal/inventory"
	"github.com/PremPatel1010/primetech-backend/internal/notifications"
	"github.com/PremPatel1010/primetech-backend/pkg/db"
	"github.com/PremPatel1010/primetech-backend/pkg/db/models"
	"github.com/PremPatel1010/primetech-backend/pkg/enums"
	pkgerrors "github.com/PremPatel1010/primetech-backend/pkg/errors"
	"github.com/PremPatel1010/primetech-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines supplier and purchase order operations.
type Service interface {
	CreateSupplier(ctx context.Context, input SupplierInput) (*models.Supplier, error)
	GetSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	ListSuppliers(ctx context.Context, params ListParams) (*SupplierList, error)
	UpdateSupplier(ctx context.Context, id uuid.UUID, input SupplierInput) (*models.Supplier, error)
	DeleteSupplier(ctx context.Context, id uuid.UUID) error

	CreatePurchaseOrder(ctx context.Context, input CreatePurchaseOrderInput) (*models.PurchaseOrder, error)
	GetPurchaseOrder(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error)
	ListPurchaseOrders(ctx context.Context, params ListPurchaseOrdersParams) (*PurchaseOrderList, error)
	MarkOrdered(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error)
	ReceivePurchaseOrder(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error)
	CancelPurchaseOrder(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error)
}

// SupplierInput captures supplier master data.
type SupplierInput struct {
	Name         string  `json:"name" validate:"required"`
	ContactEmail *string `json:"contact_email" validate:"omitempty,email"`
	Phone        *string `json:"phone"`
	Address      *string `json:"address"`
}

// PurchaseOrderLineInput is one material line of a new purchase order.
type PurchaseOrderLineInput struct {
	MaterialID uuid.UUID       `json:"material_id" validate:"required"`
	Quantity   decimal.Decimal `json:"quantity" validate:"required"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

// CreatePurchaseOrderInput captures a new draft purchase order.
type CreatePurchaseOrderInput struct {
	SupplierID uuid.UUID                `json:"supplier_id" validate:"required"`
	Items      []PurchaseOrderLineInput `json:"items" validate:"required,min=1,dive"`
}

// ListParams configures supplier pagination.
type ListParams struct {
	Limit  int
	Cursor string
}

// ListPurchaseOrdersParams configures purchase order pagination and filtering.
type ListPurchaseOrdersParams struct {
	Limit      int
	Cursor     string
	Status     *enums.PurchaseOrderStatus
	SupplierID *uuid.UUID
}

// SupplierList wraps a page of suppliers.
type SupplierList struct {
	Items  []models.Supplier `json:"items"`
	Cursor string            `json:"cursor"`
}

// PurchaseOrderList wraps a page of purchase orders.
type PurchaseOrderList struct {
	Items  []models.PurchaseOrder `json:"items"`
	Cursor string                 `json:"cursor"`
}

// materialStock covers the receive flow's stock increment and existence
// checks on draft lines.
type materialStock interface {
	WithTx(tx *gorm.DB) inventory.Repository
	FindMaterialsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.RawMaterial, error)
}

type service struct {
	repo      Repository
	materials materialStock
	tx        txRunner
	emitter   notifications.Emitter
}

// NewService wires the purchasing pipeline.
func NewService(repo Repository, materials inventory.Repository, tx txRunner, emitter notifications.Emitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("purchasing repository required")
	}
	if materials == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("notification emitter required")
	}
	return &service{repo: repo, materials: materials, tx: tx, emitter: emitter}, nil
}

func (s *service) CreateSupplier(ctx context.Context, input SupplierInput) (*models.Supplier, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier name required")
	}
	supplier := &models.Supplier{
		Name:         name,
		ContactEmail: input.ContactEmail,
		Phone:        input.Phone,
		Address:      input.Address,
	}
	if err := s.repo.CreateSupplier(ctx, supplier); err != nil {
		if db.IsUniqueViolation(err, "idx_suppliers_name") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "supplier name already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create supplier")
	}
	return supplier, nil
}

func (s *service) GetSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id required")
	}
	supplier, err := s.repo.FindSupplier(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
	}
	return supplier, nil
}

func (s *service) ListSuppliers(ctx context.Context, params ListParams) (*SupplierList, error) {
	query := listParams{Limit: params.Limit}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}
	rows, next, err := s.repo.ListSuppliers(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list suppliers")
	}
	list := &SupplierList{Items: rows}
	if next != nil {
		list.Cursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

func (s *service) UpdateSupplier(ctx context.Context, id uuid.UUID, input SupplierInput) (*models.Supplier, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id required")
	}
	updates := map[string]any{}
	if name := strings.TrimSpace(input.Name); name != "" {
		updates["name"] = name
	}
	if input.ContactEmail != nil {
		updates["contact_email"] = *input.ContactEmail
	}
	if input.Phone != nil {
		updates["phone"] = *input.Phone
	}
	if input.Address != nil {
		updates["address"] = *input.Address
	}
	if len(updates) == 0 {
		return s.GetSupplier(ctx, id)
	}
	if err := s.repo.UpdateSupplier(ctx, id, updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}
		if db.IsUniqueViolation(err, "idx_suppliers_name") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "supplier name already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update supplier")
	}
	return s.GetSupplier(ctx, id)
}

// DeleteSupplier removes a supplier with no purchase order history.
func (s *service) DeleteSupplier(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "supplier id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		count, err := repo.CountOrdersForSupplier(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check supplier references")
		}
		if count > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "supplier has purchase orders")
		}
		if err := repo.DeleteSupplier(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete supplier")
		}
		return nil
	})
}

func (s *service) CreatePurchaseOrder(ctx context.Context, input CreatePurchaseOrderInput) (*models.PurchaseOrder, error) {
	if input.SupplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one material line required")
	}
	for _, line := range input.Items {
		if line.MaterialID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "material id required on every line")
		}
		if !line.Quantity.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
		if line.UnitPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must not be negative")
		}
	}

	var order *models.PurchaseOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.FindSupplier(ctx, input.SupplierID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
		}

		ids := make([]uuid.UUID, 0, len(input.Items))
		for _, line := range input.Items {
			ids = append(ids, line.MaterialID)
		}
		known, err := s.materials.WithTx(tx).FindMaterialsByIDs(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load materials")
		}
		byID := make(map[uuid.UUID]bool, len(known))
		for _, material := range known {
			byID[material.ID] = true
		}
		for _, line := range input.Items {
			if !byID[line.MaterialID] {
				return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("material %s not found", line.MaterialID))
			}
		}

		number, err := s.nextPONumber(ctx, tx)
		if err != nil {
			return err
		}

		total := decimal.Zero
		items := make([]models.PurchaseOrderItem, 0, len(input.Items))
		for _, line := range input.Items {
			items = append(items, models.PurchaseOrderItem{
				MaterialID: line.MaterialID,
				Quantity:   line.Quantity,
				UnitPrice:  line.UnitPrice,
			})
			total = total.Add(line.Quantity.Mul(line.UnitPrice))
		}

		order = &models.PurchaseOrder{
			PONumber:   number,
			SupplierID: input.SupplierID,
			Status:     enums.PurchaseOrderStatusDraft,
			TotalValue: total.Round(2),
			Items:      items,
		}
		if err := repo.CreatePurchaseOrder(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "idx_purchase_orders_po_number") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "purchase order number already allocated, retry")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create purchase order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// nextPONumber allocates the next PO-YYYYMM-NNNN number in the monthly
// sequence.
func (s *service) nextPONumber(ctx context.Context, tx *gorm.DB) (string, error) {
	prefix := fmt.Sprintf("PO-%s-", time.Now().UTC().Format("200601"))
	last, err := s.repo.WithTx(tx).MaxPONumber(ctx, prefix)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate purchase order number")
	}
	sequence := 1
	if last != "" {
		parsed, err := strconv.Atoi(strings.TrimPrefix(last, prefix))
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "parse purchase order number")
		}
		sequence = parsed + 1
	}
	return fmt.Sprintf("%s%04d", prefix, sequence), nil
}

func (s *service) GetPurchaseOrder(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase order id required")
	}
	order, err := s.repo.FindPurchaseOrder(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase order")
	}
	return order, nil
}

func (s *service) ListPurchaseOrders(ctx context.Context, params ListPurchaseOrdersParams) (*PurchaseOrderList, error) {
	query := listPurchaseOrdersParams{
		Limit:      params.Limit,
		Status:     params.Status,
		SupplierID: params.SupplierID,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}
	rows, next, err := s.repo.ListPurchaseOrders(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchase orders")
	}
	list := &PurchaseOrderList{Items: rows}
	if next != nil {
		list.Cursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

// MarkOrdered moves a draft order to ordered and stamps the order time.
func (s *service) MarkOrdered(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	return s.transition(ctx, id, enums.PurchaseOrderStatusOrdered, func(now time.Time) map[string]any {
		return map[string]any{
			"status":     enums.PurchaseOrderStatusOrdered,
			"ordered_at": now,
		}
	})
}

// CancelPurchaseOrder abandons an order that has not been received.
func (s *service) CancelPurchaseOrder(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	return s.transition(ctx, id, enums.PurchaseOrderStatusCancelled, func(now time.Time) map[string]any {
		return map[string]any{"status": enums.PurchaseOrderStatusCancelled}
	})
}

func (s *service) transition(ctx context.Context, id uuid.UUID, target enums.PurchaseOrderStatus, buildUpdates func(now time.Time) map[string]any) (*models.PurchaseOrder, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase order id required")
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindPurchaseOrderForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock purchase order")
		}
		if !order.Status.CanTransitionTo(target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move purchase order from %s to %s", order.Status, target))
		}
		if err := repo.UpdatePurchaseOrder(ctx, id, buildUpdates(time.Now().UTC())); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetPurchaseOrder(ctx, id)
}

// ReceivePurchaseOrder books the delivery: every line's quantity lands on the
// matching raw-material balance and the order becomes received, all in one
// transaction. The row lock makes a double receive impossible.
func (s *service) ReceivePurchaseOrder(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase order id required")
	}

	var poNumber string
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindPurchaseOrderForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock purchase order")
		}
		if !order.Status.CanTransitionTo(enums.PurchaseOrderStatusReceived) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot receive purchase order in status %s", order.Status))
		}

		items, err := repo.FindPurchaseOrderItems(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase order lines")
		}
		materials := s.materials.WithTx(tx)
		for _, item := range items {
			if err := materials.IncrementRaw(ctx, item.MaterialID, item.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment raw material stock")
			}
		}

		now := time.Now().UTC()
		if err := repo.UpdatePurchaseOrder(ctx, id, map[string]any{
			"status":      enums.PurchaseOrderStatusReceived,
			"received_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase order")
		}
		poNumber = order.PONumber
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitter.PurchaseOrderReceived(ctx, poNumber)
	return s.GetPurchaseOrder(ctx, id)
}
