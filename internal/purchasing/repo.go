package purchasing

import (
	"context"

	"github.com/PremPatel1010/primetech-backend/pkg/db/models"
	"github.com/PremPatel1010/primetech-backend/pkg/enums"
	"github.com/PremPatel1010/primetech-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository exposes persistence helpers for suppliers and purchase orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateSupplier(ctx context.Context, supplier *models.Supplier) error
	FindSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	ListSuppliers(ctx context.Context, params listParams) ([]models.Supplier, *pagination.Cursor, error)
	UpdateSupplier(ctx context.Context, id uuid.UUID, updates map[string]any) error
	DeleteSupplier(ctx context.Context, id uuid.UUID) error
	CountOrdersForSupplier(ctx context.Context, supplierID uuid.UUID) (int64, error)

	CreatePurchaseOrder(ctx context.Context, order *models.PurchaseOrder) error
	FindPurchaseOrder(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error)
	FindPurchaseOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error)
	FindPurchaseOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.PurchaseOrderItem, error)
	ListPurchaseOrders(ctx context.Context, params listPurchaseOrdersParams) ([]models.PurchaseOrder, *pagination.Cursor, error)
	UpdatePurchaseOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error
	MaxPONumber(ctx context.Context, prefix string) (string, error)
}

type listParams struct {
	Limit  int
	Cursor *pagination.Cursor
}

type listPurchaseOrdersParams struct {
	Limit      int
	Cursor     *pagination.Cursor
	Status     *enums.PurchaseOrderStatus
	SupplierID *uuid.UUID
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a purchasing repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) CreateSupplier(ctx context.Context, supplier *models.Supplier) error {
	return r.db.WithContext(ctx).Create(supplier).Error
}

func (r *repositoryImpl) FindSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.db.WithContext(ctx).First(&supplier, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *repositoryImpl) ListSuppliers(ctx context.Context, params listParams) ([]models.Supplier, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Supplier{})
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var suppliers []models.Supplier
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&suppliers).Error; err != nil {
		return nil, nil, err
	}
	if len(suppliers) > normalized {
		next := suppliers[normalized]
		suppliers = suppliers[:normalized]
		return suppliers, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return suppliers, nil, nil
}

func (r *repositoryImpl) UpdateSupplier(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.Supplier{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repositoryImpl) DeleteSupplier(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Supplier{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repositoryImpl) CountOrdersForSupplier(ctx context.Context, supplierID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PurchaseOrder{}).
		Where("supplier_id = ?", supplierID).
		Count(&count).Error
	return count, err
}

func (r *repositoryImpl) CreatePurchaseOrder(ctx context.Context, order *models.PurchaseOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repositoryImpl) FindPurchaseOrder(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindPurchaseOrderForUpdate locks the order row without preloads so the
// receive flow serializes on it.
func (r *repositoryImpl) FindPurchaseOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repositoryImpl) FindPurchaseOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.PurchaseOrderItem, error) {
	var items []models.PurchaseOrderItem
	err := r.db.WithContext(ctx).
		Where("purchase_order_id = ?", orderID).
		Find(&items).Error
	return items, err
}

func (r *repositoryImpl) ListPurchaseOrders(ctx context.Context, params listPurchaseOrdersParams) ([]models.PurchaseOrder, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.PurchaseOrder{}).Preload("Items")
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.SupplierID != nil {
		query = query.Where("supplier_id = ?", *params.SupplierID)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var orders []models.PurchaseOrder
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&orders).Error; err != nil {
		return nil, nil, err
	}
	if len(orders) > normalized {
		next := orders[normalized]
		orders = orders[:normalized]
		return orders, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return orders, nil, nil
}

func (r *repositoryImpl) UpdatePurchaseOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.PurchaseOrder{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MaxPONumber returns the highest purchase order number with the given
// prefix, or an empty string when none exists yet.
func (r *repositoryImpl) MaxPONumber(ctx context.Context, prefix string) (string, error) {
	var number string
	err := r.db.WithContext(ctx).
		Model(&models.PurchaseOrder{}).
		Select("po_number").
		Where("po_number LIKE ?", prefix+"%").
		Order("po_number DESC").
		Limit(1).
		Scan(&number).Error
	if err != nil {
		return "", err
	}
	return number, nil
}
