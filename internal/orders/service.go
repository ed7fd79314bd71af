package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PremPatel1010/primetech-backend/internal/inventory"
	"github.com/PremPatel1010/primetech-backend/internal/manufacturing"
	"github.com/PremPatel1010/primetech-backend/internal/notifications"
	"github.com/PremPatel1010/primetech-backend/internal/products"
	"github.com/PremPatel1010/primetech-backend/pkg/config"
	"github.com/PremPatel1010/primetech-backend/pkg/db"
	"github.com/PremPatel1010/primetech-backend/pkg/db/models"
	dbtypes "github.com/PremPatel1010/primetech-backend/pkg/db/types"
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

// finishedDeducter removes finished stock inside the intake transaction.
type finishedDeducter interface {
	DeductFinished(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}

// batchCreator spawns production batches inside the intake transaction.
type batchCreator interface {
	CreateForOrder(ctx context.Context, tx *gorm.DB, input manufacturing.OrderBatchInput) (*models.ManufacturingBatch, error)
}

// Service defines order intake and lifecycle operations.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderResult, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.SalesOrder, error)
	ListOrders(ctx context.Context, params ListParams) (*OrderList, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, target enums.SalesOrderStatus) (*models.SalesOrder, error)
}

// OrderLineInput is one requested product line.
type OrderLineInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// CreateOrderInput captures an incoming order.
type CreateOrderInput struct {
	CustomerName    string           `json:"customer_name" validate:"required"`
	DiscountPercent decimal.Decimal  `json:"discount_percent"`
	GSTPercent      decimal.Decimal  `json:"gst_percent"`
	Items           []OrderLineInput `json:"items" validate:"required,min=1,dive"`
}

// OrderResult is the intake outcome: the stored order plus what the resolver
// and feasibility checker decided.
type OrderResult struct {
	Order     *models.SalesOrder          `json:"order"`
	Batches   []models.ManufacturingBatch `json:"batches,omitempty"`
	Shortages []manufacturing.Shortage    `json:"shortages,omitempty"`
}

// ListParams configures order pagination and filtering.
type ListParams struct {
	Limit  int
	Cursor string
	Status *enums.SalesOrderStatus
}

// OrderList wraps a page of orders.
type OrderList struct {
	Items  []models.SalesOrder `json:"items"`
	Cursor string              `json:"cursor"`
}

type service struct {
	cfg       config.OrdersConfig
	repo      Repository
	products  products.Repository
	inventory inventory.Repository
	finished  finishedDeducter
	batches   batchCreator
	tx        txRunner
	emitter   notifications.Emitter
}

// ServiceParams bundles order service dependencies.
type ServiceParams struct {
	Config    config.OrdersConfig
	Repo      Repository
	Products  products.Repository
	Inventory inventory.Repository
	Finished  finishedDeducter
	Batches   batchCreator
	Tx        txRunner
	Emitter   notifications.Emitter
}

// NewService wires the order intake pipeline.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.Finished == nil {
		return nil, fmt.Errorf("finished stock deducter required")
	}
	if params.Batches == nil {
		return nil, fmt.Errorf("batch creator required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Emitter == nil {
		return nil, fmt.Errorf("notification emitter required")
	}
	cfg := params.Config
	if cfg.NumberPrefix == "" {
		cfg.NumberPrefix = "SO"
	}
	return &service{
		cfg:       cfg,
		repo:      params.Repo,
		products:  params.Products,
		inventory: params.Inventory,
		finished:  params.Finished,
		batches:   params.Batches,
		tx:        params.Tx,
		emitter:   params.Emitter,
	}, nil
}

// CreateOrder runs the whole intake pipeline in one transaction: resolve
// availability against finished stock, deduct what stock covers, check raw
// material feasibility for the remainder, spawn one batch per short line, and
// derive the order status from what happened.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderResult, error) {
	if strings.TrimSpace(input.CustomerName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one order line required")
	}
	for _, line := range input.Items {
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required on every line")
		}
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
	}
	if input.DiscountPercent.IsNegative() || input.DiscountPercent.GreaterThan(hundred) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount percent must be between 0 and 100")
	}
	if input.GSTPercent.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gst percent must not be negative")
	}
	gst := input.GSTPercent
	if gst.IsZero() && s.cfg.DefaultGSTPercent > 0 {
		gst = decimal.NewFromInt(int64(s.cfg.DefaultGSTPercent))
	}

	result := &OrderResult{}
	productNames := map[uuid.UUID]string{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		productIDs := make([]uuid.UUID, 0, len(input.Items))
		for _, line := range input.Items {
			productIDs = append(productIDs, line.ProductID)
		}

		catalog, err := s.products.WithTx(tx).FindByIDs(ctx, productIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
		}
		productsByID := make(map[uuid.UUID]*models.Product, len(catalog))
		for i := range catalog {
			productsByID[catalog[i].ID] = &catalog[i]
			productNames[catalog[i].ID] = catalog[i].Name
		}
		for _, line := range input.Items {
			if _, ok := productsByID[line.ProductID]; !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", line.ProductID))
			}
		}

		inv := s.inventory.WithTx(tx)
		balances, err := inv.FindFinishedByProducts(ctx, productIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load finished stock")
		}
		stock := make(map[uuid.UUID]int, len(balances))
		for _, balance := range balances {
			stock[balance.ProductID] = balance.QuantityAvailable
		}

		lines := make([]RequestedLine, 0, len(input.Items))
		for _, line := range input.Items {
			lines = append(lines, RequestedLine{ProductID: line.ProductID, Quantity: line.Quantity})
		}
		allocations := ResolveAvailability(lines, stock)

		number, err := s.nextOrderNumber(ctx, tx)
		if err != nil {
			return err
		}

		order := &models.SalesOrder{
			OrderNumber:     number,
			CustomerName:    strings.TrimSpace(input.CustomerName),
			Status:          enums.SalesOrderStatusPending,
			DiscountPercent: input.DiscountPercent,
			GSTPercent:      gst,
		}
		quantities := make([]int, 0, len(allocations))
		unitPrices := make([]decimal.Decimal, 0, len(allocations))
		for _, allocation := range allocations {
			product := productsByID[allocation.ProductID]
			order.Items = append(order.Items, models.SalesOrderItem{
				ProductID:             allocation.ProductID,
				Quantity:              allocation.Quantity,
				UnitPrice:             product.UnitPrice,
				QuantityFromStock:     allocation.FromStock,
				QuantityToManufacture: allocation.ToManufacture,
			})
			quantities = append(quantities, allocation.Quantity)
			unitPrices = append(unitPrices, product.UnitPrice)
		}
		order.TotalValue = ComputeTotal(quantities, unitPrices, input.DiscountPercent, gst)

		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrder(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "idx_sales_orders_order_number") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order number already allocated, retry")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		anyProduction := false
		for i, allocation := range allocations {
			if allocation.FromStock > 0 {
				if err := s.finished.DeductFinished(ctx, tx, allocation.ProductID, allocation.FromStock); err != nil {
					return err
				}
			}
			if allocation.ToManufacture == 0 {
				continue
			}
			anyProduction = true

			product := productsByID[allocation.ProductID]
			shortages, err := s.materialShortages(ctx, tx, product, allocation.ToManufacture)
			if err != nil {
				return err
			}
			result.Shortages = append(result.Shortages, shortages...)

			batch, err := s.batches.CreateForOrder(ctx, tx, manufacturing.OrderBatchInput{
				ProductID:    allocation.ProductID,
				Quantity:     allocation.ToManufacture,
				SalesOrderID: order.ID,
			})
			if err != nil {
				return err
			}
			result.Batches = append(result.Batches, *batch)
			order.Items[i].BatchIDs = dbtypes.UUIDArray{batch.ID}
			if err := repo.LinkItemBatches(ctx, order.Items[i].ID, order.Items[i].BatchIDs); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link batch to order line")
			}
		}

		status := enums.SalesOrderStatusConfirmed
		if anyProduction {
			status = enums.SalesOrderStatusInProduction
			if len(result.Shortages) > 0 {
				status = enums.SalesOrderStatusAwaitingMaterials
			}
		}
		order.Status = status
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{"status": status}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set order status")
		}

		result.Order = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitter.OrderCreated(ctx, result.Order.OrderNumber, result.Order.CustomerName)
	for _, batch := range result.Batches {
		s.emitter.BatchCreated(ctx, batch.BatchNumber, productNames[batch.ProductID], batch.Quantity)
	}
	for _, shortage := range result.Shortages {
		s.emitter.StockShortage(ctx, shortage.Name, shortage.Shortfall, shortage.Unit)
	}

	return result, nil
}

// materialShortages runs the feasibility check for one production remainder.
// Shortages are reported, never fatal: the batch still starts and the order
// waits on materials.
func (s *service) materialShortages(ctx context.Context, tx *gorm.DB, product *models.Product, quantity int) ([]manufacturing.Shortage, error) {
	if len(product.BOM) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(product.BOM))
	for _, line := range product.BOM {
		ids = append(ids, line.MaterialID)
	}
	materials, err := s.inventory.WithTx(tx).FindMaterialsByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load materials")
	}
	check := manufacturing.CheckFeasibility(product.BOM, materials, quantity)
	return check.Shortages, nil
}

// nextOrderNumber allocates the next SO-YYYYMM-NNNN number. The sequence
// restarts every month; a concurrent allocation of the same number trips the
// unique index on insert and surfaces as a retryable conflict.
func (s *service) nextOrderNumber(ctx context.Context, tx *gorm.DB) (string, error) {
	prefix := fmt.Sprintf("%s-%s-", s.cfg.NumberPrefix, time.Now().UTC().Format("200601"))
	last, err := s.repo.WithTx(tx).MaxOrderNumber(ctx, prefix)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate order number")
	}
	sequence := 1
	if last != "" {
		suffix := strings.TrimPrefix(last, prefix)
		parsed, err := strconv.Atoi(suffix)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "parse order number")
		}
		sequence = parsed + 1
	}
	return fmt.Sprintf("%s%04d", prefix, sequence), nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*models.SalesOrder, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrder(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) ListOrders(ctx context.Context, params ListParams) (*OrderList, error) {
	query := listOrdersParams{Limit: params.Limit, Status: params.Status}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListOrders(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	list := &OrderList{Items: rows}
	if next != nil {
		list.Cursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

// UpdateStatus applies one transition from the order status table. Invalid
// targets are rejected, invalid transitions conflict with current state.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, target enums.SalesOrderStatus) (*models.SalesOrder, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status %q", target))
	}

	var updated *models.SalesOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status == target {
			updated = order
			return nil
		}
		if !order.Status.CanTransitionTo(target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move order from %s to %s", order.Status, target))
		}
		if err := repo.UpdateOrder(ctx, id, map[string]any{"status": target}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = target
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
