package orders

import (
	"context"

	"github.com/PremPatel1010/primetech-backend/pkg/db/models"
	dbtypes "github.com/PremPatel1010/primetech-backend/pkg/db/types"
	"github.com/PremPatel1010/primetech-backend/pkg/enums"
	"github.com/PremPatel1010/primetech-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes persistence helpers for sales orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.SalesOrder) error
	FindOrder(ctx context.Context, id uuid.UUID) (*models.SalesOrder, error)
	ListOrders(ctx context.Context, params listOrdersParams) ([]models.SalesOrder, *pagination.Cursor, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error
	LinkItemBatches(ctx context.Context, itemID uuid.UUID, batchIDs dbtypes.UUIDArray) error
	MaxOrderNumber(ctx context.Context, prefix string) (string, error)
}

type listOrdersParams struct {
	Limit  int
	Cursor *pagination.Cursor
	Status *enums.SalesOrderStatus
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an orders repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) CreateOrder(ctx context.Context, order *models.SalesOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repositoryImpl) FindOrder(ctx context.Context, id uuid.UUID) (*models.SalesOrder, error) {
	var order models.SalesOrder
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repositoryImpl) ListOrders(ctx context.Context, params listOrdersParams) ([]models.SalesOrder, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.SalesOrder{}).Preload("Items")
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var orders []models.SalesOrder
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

func (r *repositoryImpl) UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.SalesOrder{}).
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

func (r *repositoryImpl) LinkItemBatches(ctx context.Context, itemID uuid.UUID, batchIDs dbtypes.UUIDArray) error {
	result := r.db.WithContext(ctx).
		Model(&models.SalesOrderItem{}).
		Where("id = ?", itemID).
		Update("batch_ids", batchIDs)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MaxOrderNumber returns the highest order number with the given prefix, or
// an empty string when none exists yet. Order numbers share a fixed-width
// suffix so lexicographic max equals numeric max.
func (r *repositoryImpl) MaxOrderNumber(ctx context.Context, prefix string) (string, error) {
	var number string
	err := r.db.WithContext(ctx).
		Model(&models.SalesOrder{}).
		Select("order_number").
		Where("order_number LIKE ?", prefix+"%").
		Order("order_number DESC").
		Limit(1).
		Scan(&number).Error
	if err != nil {
		return "", err
	}
	return number, nil
}
