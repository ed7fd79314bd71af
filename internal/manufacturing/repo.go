package manufacturing

import (
	"context"

	"github.com/PremPatel1010/primetech-backend/pkg/db/models"
	"github.com/PremPatel1010/primetech-backend/pkg/enums"
	"github.com/PremPatel1010/primetech-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository exposes persistence helpers for batches and their workflow steps.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateBatch(ctx context.Context, batch *models.ManufacturingBatch) error
	FindBatch(ctx context.Context, id uuid.UUID) (*models.ManufacturingBatch, error)
	FindBatchForUpdate(ctx context.Context, id uuid.UUID) (*models.ManufacturingBatch, error)
	FindSteps(ctx context.Context, batchID uuid.UUID) ([]models.WorkflowStep, error)
	ListBatches(ctx context.Context, params listBatchesParams) ([]models.ManufacturingBatch, *pagination.Cursor, error)
	UpdateBatch(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpdateStep(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CreateMaterialUsages(ctx context.Context, usages []models.BatchMaterialUsage) error
	CountOrderItemsReferencing(ctx context.Context, batchID uuid.UUID) (int64, error)
	DeleteBatch(ctx context.Context, id uuid.UUID) error
}

type listBatchesParams struct {
	Limit     int
	Cursor    *pagination.Cursor
	Status    *enums.BatchStatus
	ProductID *uuid.UUID
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a manufacturing repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) CreateBatch(ctx context.Context, batch *models.ManufacturingBatch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

func (r *repositoryImpl) FindBatch(ctx context.Context, id uuid.UUID) (*models.ManufacturingBatch, error) {
	var batch models.ManufacturingBatch
	err := r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Preload("MaterialsUsed").
		Where("id = ?", id).
		First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// FindBatchForUpdate locks the batch row for the remainder of the enclosing
// transaction. Steps are loaded separately so the row lock stays narrow.
func (r *repositoryImpl) FindBatchForUpdate(ctx context.Context, id uuid.UUID) (*models.ManufacturingBatch, error) {
	var batch models.ManufacturingBatch
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *repositoryImpl) FindSteps(ctx context.Context, batchID uuid.UUID) ([]models.WorkflowStep, error) {
	var steps []models.WorkflowStep
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("sequence ASC").
		Find(&steps).Error
	if err != nil {
		return nil, err
	}
	return steps, nil
}

func (r *repositoryImpl) ListBatches(ctx context.Context, params listBatchesParams) ([]models.ManufacturingBatch, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.ManufacturingBatch{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.ProductID != nil {
		query = query.Where("product_id = ?", *params.ProductID)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var batches []models.ManufacturingBatch
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&batches).Error; err != nil {
		return nil, nil, err
	}
	if len(batches) > normalized {
		next := batches[normalized]
		batches = batches[:normalized]
		return batches, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return batches, nil, nil
}

func (r *repositoryImpl) UpdateBatch(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.ManufacturingBatch{}).
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

func (r *repositoryImpl) UpdateStep(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.WorkflowStep{}).
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

func (r *repositoryImpl) CreateMaterialUsages(ctx context.Context, usages []models.BatchMaterialUsage) error {
	if len(usages) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&usages).Error
}

// CountOrderItemsReferencing reports how many sales order lines link to the
// batch through their batch_ids array.
func (r *repositoryImpl) CountOrderItemsReferencing(ctx context.Context, batchID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SalesOrderItem{}).
		Where("? = ANY(batch_ids)", batchID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repositoryImpl) DeleteBatch(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ManufacturingBatch{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
