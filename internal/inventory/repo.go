package inventory

import (
	"context"

	"github.com/PremPatel1010/primetech-backend/pkg/db/models"
	"github.com/PremPatel1010/primetech-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository exposes persistence helpers for raw materials and finished goods.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateMaterial(ctx context.Context, material *models.RawMaterial) error
	FindMaterial(ctx context.Context, id uuid.UUID) (*models.RawMaterial, error)
	FindMaterialsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.RawMaterial, error)
	ListMaterials(ctx context.Context, params listParams) ([]models.RawMaterial, *pagination.Cursor, error)
	UpdateMaterial(ctx context.Context, id uuid.UUID, updates map[string]any) error
	DeleteMaterial(ctx context.Context, id uuid.UUID) error
	DeductRawClamped(ctx context.Context, id uuid.UUID, qty decimal.Decimal) error
	IncrementRaw(ctx context.Context, id uuid.UUID, qty decimal.Decimal) error

	FindFinishedByProduct(ctx context.Context, productID uuid.UUID) (*models.FinishedProduct, error)
	FindFinishedByProducts(ctx context.Context, productIDs []uuid.UUID) ([]models.FinishedProduct, error)
	ListFinished(ctx context.Context, params listParams) ([]models.FinishedProduct, *pagination.Cursor, error)
	UpsertFinishedIncrement(ctx context.Context, productID uuid.UUID, qty int) error
	DecrementFinished(ctx context.Context, productID uuid.UUID, qty int) (bool, error)
}

type listParams struct {
	Limit  int
	Cursor *pagination.Cursor
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) CreateMaterial(ctx context.Context, material *models.RawMaterial) error {
	return r.db.WithContext(ctx).Create(material).Error
}

func (r *repositoryImpl) FindMaterial(ctx context.Context, id uuid.UUID) (*models.RawMaterial, error) {
	var material models.RawMaterial
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&material).Error; err != nil {
		return nil, err
	}
	return &material, nil
}

func (r *repositoryImpl) FindMaterialsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.RawMaterial, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var materials []models.RawMaterial
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&materials).Error; err != nil {
		return nil, err
	}
	return materials, nil
}

func (r *repositoryImpl) ListMaterials(ctx context.Context, params listParams) ([]models.RawMaterial, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.RawMaterial{})
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var materials []models.RawMaterial
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&materials).Error; err != nil {
		return nil, nil, err
	}
	if len(materials) > normalized {
		next := materials[normalized]
		materials = materials[:normalized]
		return materials, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return materials, nil, nil
}

func (r *repositoryImpl) UpdateMaterial(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.RawMaterial{}).
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

func (r *repositoryImpl) DeleteMaterial(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.RawMaterial{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeductRawClamped subtracts qty from the balance, clamping at zero so a
// concurrent over-deduction can never drive the column negative.
func (r *repositoryImpl) DeductRawClamped(ctx context.Context, id uuid.UUID, qty decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&models.RawMaterial{}).
		Where("id = ?", id).
		Update("stock_quantity", gorm.Expr("GREATEST(stock_quantity - ?, 0)", qty))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repositoryImpl) IncrementRaw(ctx context.Context, id uuid.UUID, qty decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&models.RawMaterial{}).
		Where("id = ?", id).
		Update("stock_quantity", gorm.Expr("stock_quantity + ?", qty))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repositoryImpl) FindFinishedByProduct(ctx context.Context, productID uuid.UUID) (*models.FinishedProduct, error) {
	var finished models.FinishedProduct
	if err := r.db.WithContext(ctx).Where("product_id = ?", productID).First(&finished).Error; err != nil {
		return nil, err
	}
	return &finished, nil
}

func (r *repositoryImpl) FindFinishedByProducts(ctx context.Context, productIDs []uuid.UUID) ([]models.FinishedProduct, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	var finished []models.FinishedProduct
	if err := r.db.WithContext(ctx).Where("product_id IN ?", productIDs).Find(&finished).Error; err != nil {
		return nil, err
	}
	return finished, nil
}

func (r *repositoryImpl) ListFinished(ctx context.Context, params listParams) ([]models.FinishedProduct, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.FinishedProduct{})
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var finished []models.FinishedProduct
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&finished).Error; err != nil {
		return nil, nil, err
	}
	if len(finished) > normalized {
		next := finished[normalized]
		finished = finished[:normalized]
		return finished, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return finished, nil, nil
}

// UpsertFinishedIncrement adds qty to the product's finished balance,
// creating the row when the product has never been stocked before.
func (r *repositoryImpl) UpsertFinishedIncrement(ctx context.Context, productID uuid.UUID, qty int) error {
	finished := models.FinishedProduct{
		ProductID:         productID,
		QuantityAvailable: qty,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity_available": gorm.Expr("finished_products.quantity_available + ?", qty),
		}),
	}).Create(&finished).Error
}

// DecrementFinished subtracts qty only when enough stock is available. The
// boolean result reports whether the conditional update matched a row.
func (r *repositoryImpl) DecrementFinished(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.FinishedProduct{}).
		Where("product_id = ? AND quantity_available >= ?", productID, qty).
		Update("quantity_available", gorm.Expr("quantity_available - ?", qty))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
