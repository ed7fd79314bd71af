package inventory

import (
	"context"
	"strings"

	"github.com/PremPatel1010/primetech-backend/internal/notifications"
	"github.com/PremPatel1010/primetech-backend/pkg/db"
	"github.com/PremPatel1010/primetech-backend/pkg/db/models"
	pkgerrors "github.com/PremPatel1010/primetech-backend/pkg/errors"
	"github.com/PremPatel1010/primetech-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service defines raw material and finished goods operations.
type Service interface {
	CreateMaterial(ctx context.Context, input CreateMaterialInput) (*models.RawMaterial, error)
	GetMaterial(ctx context.Context, id uuid.UUID) (*models.RawMaterial, error)
	ListMaterials(ctx context.Context, params ListParams) (*MaterialList, error)
	UpdateMaterial(ctx context.Context, id uuid.UUID, input UpdateMaterialInput) (*models.RawMaterial, error)
	DeleteMaterial(ctx context.Context, id uuid.UUID) error
	AdjustStock(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (*models.RawMaterial, error)

	ListFinished(ctx context.Context, params ListParams) (*FinishedList, error)
	GetFinishedByProduct(ctx context.Context, productID uuid.UUID) (*models.FinishedProduct, error)

	// Tx-scoped helpers for the order and manufacturing flows.
	DeductFinished(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
	AddFinished(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}

// CreateMaterialInput captures a new raw material row.
type CreateMaterialInput struct {
	Name          string
	Unit          string
	StockQuantity decimal.Decimal
	UnitPrice     decimal.Decimal
	MinimumStock  decimal.Decimal
}

// UpdateMaterialInput carries optional field updates for a material.
type UpdateMaterialInput struct {
	Name         *string
	Unit         *string
	UnitPrice    *decimal.Decimal
	MinimumStock *decimal.Decimal
}

// ListParams configures cursor pagination.
type ListParams struct {
	Limit  int
	Cursor string
}

// MaterialList wraps a page of raw materials.
type MaterialList struct {
	Items  []models.RawMaterial `json:"items"`
	Cursor string               `json:"cursor"`
}

// FinishedList wraps a page of finished product balances.
type FinishedList struct {
	Items  []models.FinishedProduct `json:"items"`
	Cursor string                   `json:"cursor"`
}

type service struct {
	repo    Repository
	emitter notifications.Emitter
}

// NewService wires inventory dependencies.
func NewService(repo Repository, emitter notifications.Emitter) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inventory repository required")
	}
	if emitter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification emitter required")
	}
	return &service{repo: repo, emitter: emitter}, nil
}

func (s *service) CreateMaterial(ctx context.Context, input CreateMaterialInput) (*models.RawMaterial, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "material name required")
	}
	if strings.TrimSpace(input.Unit) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "material unit required")
	}
	if input.StockQuantity.IsNegative() || input.MinimumStock.IsNegative() || input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantities and price must not be negative")
	}

	material := &models.RawMaterial{
		Name:          name,
		Unit:          strings.TrimSpace(input.Unit),
		StockQuantity: input.StockQuantity,
		UnitPrice:     input.UnitPrice,
		MinimumStock:  input.MinimumStock,
	}
	if err := s.repo.CreateMaterial(ctx, material); err != nil {
		if db.IsUniqueViolation(err, "idx_raw_materials_name") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "material name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create material")
	}
	return material, nil
}

func (s *service) GetMaterial(ctx context.Context, id uuid.UUID) (*models.RawMaterial, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "material id required")
	}
	material, err := s.repo.FindMaterial(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "material not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load material")
	}
	return material, nil
}

func (s *service) ListMaterials(ctx context.Context, params ListParams) (*MaterialList, error) {
	query := listParams{Limit: params.Limit}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListMaterials(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list materials")
	}
	list := &MaterialList{Items: rows}
	if next != nil {
		list.Cursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

func (s *service) UpdateMaterial(ctx context.Context, id uuid.UUID, input UpdateMaterialInput) (*models.RawMaterial, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "material id required")
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "material name must not be empty")
		}
		updates["name"] = name
	}
	if input.Unit != nil {
		unit := strings.TrimSpace(*input.Unit)
		if unit == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "material unit must not be empty")
		}
		updates["unit"] = unit
	}
	if input.UnitPrice != nil {
		if input.UnitPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must not be negative")
		}
		updates["unit_price"] = *input.UnitPrice
	}
	if input.MinimumStock != nil {
		if input.MinimumStock.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum stock must not be negative")
		}
		updates["minimum_stock"] = *input.MinimumStock
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	if err := s.repo.UpdateMaterial(ctx, id, updates); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "material not found")
		}
		if db.IsUniqueViolation(err, "idx_raw_materials_name") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "material name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update material")
	}
	return s.GetMaterial(ctx, id)
}

func (s *service) DeleteMaterial(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "material id required")
	}
	if err := s.repo.DeleteMaterial(ctx, id); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "material not found")
		}
		if db.IsForeignKeyViolation(err) {
			return pkgerrors.New(pkgerrors.CodeConflict, "material is referenced by other records")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete material")
	}
	return nil
}

// AdjustStock applies a signed delta to a material balance. Negative deltas
// clamp at zero rather than failing, matching the physical-count use case.
func (s *service) AdjustStock(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (*models.RawMaterial, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "material id required")
	}
	if delta.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment must not be zero")
	}

	var err error
	if delta.IsNegative() {
		err = s.repo.DeductRawClamped(ctx, id, delta.Neg())
	} else {
		err = s.repo.IncrementRaw(ctx, id, delta)
	}
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "material not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust stock")
	}

	material, loadErr := s.GetMaterial(ctx, id)
	if loadErr != nil {
		return nil, loadErr
	}
	if material.BelowMinimum() {
		s.emitter.LowStock(ctx, material.Name, material.StockQuantity, material.MinimumStock, material.Unit)
	}
	return material, nil
}

func (s *service) ListFinished(ctx context.Context, params ListParams) (*FinishedList, error) {
	query := listParams{Limit: params.Limit}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListFinished(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list finished products")
	}
	list := &FinishedList{Items: rows}
	if next != nil {
		list.Cursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

func (s *service) GetFinishedByProduct(ctx context.Context, productID uuid.UUID) (*models.FinishedProduct, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	finished, err := s.repo.FindFinishedByProduct(ctx, productID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "finished product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load finished product")
	}
	return finished, nil
}

// DeductFinished removes qty from a product's finished balance inside the
// caller's transaction. Fails with a state conflict when stock is short.
func (s *service) DeductFinished(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	ok, err := s.repo.WithTx(tx).DecrementFinished(ctx, productID, qty)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement finished stock")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient finished stock")
	}
	return nil
}

// AddFinished increments a product's finished balance inside the caller's
// transaction, creating the balance row on first stock-in.
func (s *service) AddFinished(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if err := s.repo.WithTx(tx).UpsertFinishedIncrement(ctx, productID, qty); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment finished stock")
	}
	return nil
}
