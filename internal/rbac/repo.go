package rbac

import (
	"context"

	"github.com/PremPatel1010/primetech-backend/pkg/db/models"
	"github.com/PremPatel1010/primetech-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes persistence helpers for route permissions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, permission *models.RoutePermission) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByRole(ctx context.Context, role enums.UserRole) ([]models.RoutePermission, error)
	ListAll(ctx context.Context) ([]models.RoutePermission, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a route permission repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, permission *models.RoutePermission) error {
	return r.db.WithContext(ctx).Create(permission).Error
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.RoutePermission{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repositoryImpl) ListByRole(ctx context.Context, role enums.UserRole) ([]models.RoutePermission, error) {
	var permissions []models.RoutePermission
	err := r.db.WithContext(ctx).
		Where("role = ?", role).
		Order("route_path ASC").
		Find(&permissions).Error
	if err != nil {
		return nil, err
	}
	return permissions, nil
}

func (r *repositoryImpl) ListAll(ctx context.Context) ([]models.RoutePermission, error) {
	var permissions []models.RoutePermission
	err := r.db.WithContext(ctx).
		Order("role ASC, route_path ASC").
		Find(&permissions).Error
	if err != nil {
		return nil, err
	}
	return permissions, nil
}
