package manufacturing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/PremPatel1010/primetech-backend/internal/inventory"
	"github.com/PremPatel1010/primetech-backend/internal/notifications"
	"github.com/PremPatel1010/primetech-backend/internal/products"
	"github.com/PremPatel1010/primetech-backend/pkg/db"
	"github.com/PremPatel1010/primetech-backend/pkg/db/models"
	"github.com/PremPatel1010/primetech-backend/pkg/enums"
	pkgerrors "github.com/PremPatel1010/primetech-backend/pkg/errors"
	"github.com/PremPatel1010/primetech-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const batchNumberAttempts = 3

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type finishedStock interface {
	AddFinished(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}

// Service defines batch orchestration and stage transition operations.
type Service interface {
	CreateBatch(ctx context.Context, input CreateBatchInput) (*models.ManufacturingBatch, error)
	CreateForOrder(ctx context.Context, tx *gorm.DB, input OrderBatchInput) (*models.ManufacturingBatch, error)
	GetBatch(ctx context.Context, id uuid.UUID) (*models.ManufacturingBatch, error)
	ListBatches(ctx context.Context, params ListParams) (*BatchList, error)
	AdvanceStage(ctx context.Context, batchID uuid.UUID, stage string) (*models.ManufacturingBatch, error)
	DeleteBatch(ctx context.Context, id uuid.UUID) error
	CheckFeasibilityForProduct(ctx context.Context, productID uuid.UUID, quantity int) (*FeasibilityResult, error)
}

// CreateBatchInput captures a directly requested production run.
type CreateBatchInput struct {
	ProductID           uuid.UUID
	Quantity            int
	EstimatedCompletion *time.Time
}

// OrderBatchInput captures a batch spawned by order intake inside the order's
// transaction.
type OrderBatchInput struct {
	ProductID    uuid.UUID
	Quantity     int
	SalesOrderID uuid.UUID
}

// ListParams configures batch pagination and filtering.
type ListParams struct {
	Limit     int
	Cursor    string
	Status    *enums.BatchStatus
	ProductID *uuid.UUID
}

// BatchList wraps a page of batches.
type BatchList struct {
	Items  []models.ManufacturingBatch `json:"items"`
	Cursor string                      `json:"cursor"`
}

type service struct {
	repo      Repository
	products  products.Repository
	materials inventory.Repository
	finished  finishedStock
	tx        txRunner
	emitter   notifications.Emitter
}

// ServiceParams bundles manufacturing service dependencies.
type ServiceParams struct {
	Repo      Repository
	Products  products.Repository
	Materials inventory.Repository
	Finished  finishedStock
	Tx        txRunner
	Emitter   notifications.Emitter
}

// NewService wires the batch orchestrator and stage engine.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("manufacturing repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if params.Materials == nil {
		return nil, fmt.Errorf("material inventory required")
	}
	if params.Finished == nil {
		return nil, fmt.Errorf("finished stock required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Emitter == nil {
		return nil, fmt.Errorf("notification emitter required")
	}
	return &service{
		repo:      params.Repo,
		products:  params.Products,
		materials: params.Materials,
		finished:  params.Finished,
		tx:        params.Tx,
		emitter:   params.Emitter,
	}, nil
}

func (s *service) CreateBatch(ctx context.Context, input CreateBatchInput) (*models.ManufacturingBatch, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var batch *models.ManufacturingBatch
	var productName string
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		product, err := s.products.WithTx(tx).Find(ctx, input.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		productName = product.Name

		batch, err = s.persistBatch(ctx, tx, product, input.Quantity, nil, input.EstimatedCompletion)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.emitter.BatchCreated(ctx, batch.BatchNumber, productName, batch.Quantity)
	return batch, nil
}

// CreateForOrder builds a batch inside the caller's transaction. The caller
// owns commit and notification emission.
func (s *service) CreateForOrder(ctx context.Context, tx *gorm.DB, input OrderBatchInput) (*models.ManufacturingBatch, error) {
	if input.ProductID == uuid.Nil || input.SalesOrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product and order ids required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.products.WithTx(tx).Find(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	orderID := input.SalesOrderID
	return s.persistBatch(ctx, tx, product, input.Quantity, &orderID, nil)
}

func (s *service) persistBatch(ctx context.Context, tx *gorm.DB, product *models.Product, quantity int, salesOrderID *uuid.UUID, eta *time.Time) (*models.ManufacturingBatch, error) {
	plan := ResolvePlan(product)
	steps := make([]models.WorkflowStep, 0, len(plan))
	now := time.Now().UTC()
	for i, stage := range plan {
		step := models.WorkflowStep{
			Name:           stage.Name,
			Sequence:       i,
			Status:         enums.WorkflowStepStatusNotStarted,
			SubComponentID: stage.SubComponentID,
		}
		if i == 0 {
			step.Status = enums.WorkflowStepStatusInProgress
			startedAt := now
			step.StartedAt = &startedAt
		}
		steps = append(steps, step)
	}

	repo := s.repo.WithTx(tx)
	var lastErr error
	for attempt := 0; attempt < batchNumberAttempts; attempt++ {
		batch := &models.ManufacturingBatch{
			BatchNumber:         fmt.Sprintf("MB-%d", time.Now().UnixMilli()+int64(attempt)),
			ProductID:           product.ID,
			Quantity:            quantity,
			CurrentStage:        plan[0].Name,
			Progress:            0,
			Status:              enums.BatchStatusInProgress,
			SalesOrderID:        salesOrderID,
			StageCompletions:    map[string]*time.Time{},
			EstimatedCompletion: eta,
			Steps:               steps,
		}
		if err := repo.CreateBatch(ctx, batch); err != nil {
			if db.IsUniqueViolation(err, "idx_manufacturing_batches_batch_number") {
				lastErr = err
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create batch")
		}
		return batch, nil
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, lastErr, "allocate batch number")
}

func (s *service) GetBatch(ctx context.Context, id uuid.UUID) (*models.ManufacturingBatch, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch id required")
	}
	batch, err := s.repo.FindBatch(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load batch")
	}
	return batch, nil
}

func (s *service) ListBatches(ctx context.Context, params ListParams) (*BatchList, error) {
	query := listBatchesParams{
		Limit:     params.Limit,
		Status:    params.Status,
		ProductID: params.ProductID,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListBatches(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list batches")
	}
	list := &BatchList{Items: rows}
	if next != nil {
		list.Cursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

// stageOutcome collects the notifications to emit once the stage transition
// transaction has committed.
type stageOutcome struct {
	batchNumber    string
	productName    string
	quantity       int
	completedStage string
	completedBatch bool
	lowStock       []models.RawMaterial
}

// AdvanceStage completes the named stage for a batch. The whole transition
// runs in one transaction holding a row lock on the batch, so concurrent
// requests serialize and the materials deduction fires exactly once.
// Advancing to a stage that already completed re-stamps its completion time
// without repeating any side effects, so client retries stay safe.
func (s *service) AdvanceStage(ctx context.Context, batchID uuid.UUID, stage string) (*models.ManufacturingBatch, error) {
	if batchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch id required")
	}
	if stage == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stage name required")
	}

	var outcome stageOutcome
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		batch, err := repo.FindBatchForUpdate(ctx, batchID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock batch")
		}
		if batch.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("batch is %s", batch.Status))
		}

		steps, err := repo.FindSteps(ctx, batchID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load workflow steps")
		}
		plan := make([]string, len(steps))
		for i, step := range steps {
			plan[i] = step.Name
		}

		targetIdx := StageIndex(plan, stage)
		if targetIdx < 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "stage not found")
		}
		currentIdx := StageIndex(plan, batch.CurrentStage)
		if currentIdx < 0 {
			currentIdx = 0
		}

		now := time.Now().UTC()
		if batch.StageCompletions == nil {
			batch.StageCompletions = map[string]*time.Time{}
		}

		if targetIdx < currentIdx {
			// The stage already completed on an earlier call. Refresh its
			// completion timestamp and stop: progress, status and the
			// material deduction were all settled on the first pass.
			completedAt := now
			batch.StageCompletions[plan[targetIdx]] = &completedAt
			if err := repo.UpdateStep(ctx, steps[targetIdx].ID, map[string]any{
				"completed_at": now,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete workflow step")
			}
			completions, err := json.Marshal(batch.StageCompletions)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode stage completions")
			}
			if err := repo.UpdateBatch(ctx, batch.ID, map[string]any{
				"stage_completions": string(completions),
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update batch")
			}
			return nil
		}

		product, err := s.products.WithTx(tx).Find(ctx, batch.ProductID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}

		if batch.MaterialsDeductedAt == nil {
			lowStock, err := s.deductMaterials(ctx, tx, batch, product, now)
			if err != nil {
				return err
			}
			outcome.lowStock = lowStock
			batch.MaterialsDeductedAt = &now
		}

		for i := currentIdx; i <= targetIdx; i++ {
			completedAt := now
			batch.StageCompletions[plan[i]] = &completedAt
			if err := repo.UpdateStep(ctx, steps[i].ID, map[string]any{
				"status":       enums.WorkflowStepStatusCompleted,
				"completed_at": now,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete workflow step")
			}
		}

		// Map-form Updates bypasses the model's json serializer tag, so the
		// completions map is encoded here before it reaches the driver.
		completions, err := json.Marshal(batch.StageCompletions)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode stage completions")
		}

		terminal := targetIdx == len(plan)-1
		updates := map[string]any{
			"progress":              ProgressAt(targetIdx, len(plan)),
			"stage_completions":     string(completions),
			"materials_deducted_at": batch.MaterialsDeductedAt,
		}
		if terminal {
			updates["current_stage"] = plan[targetIdx]
			updates["status"] = enums.BatchStatusCompleted
			updates["progress"] = 100
			if err := s.finished.AddFinished(ctx, tx, batch.ProductID, batch.Quantity); err != nil {
				return err
			}
			outcome.completedBatch = true
		} else {
			updates["current_stage"] = plan[targetIdx+1]
			if err := repo.UpdateStep(ctx, steps[targetIdx+1].ID, map[string]any{
				"status":     enums.WorkflowStepStatusInProgress,
				"started_at": now,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "start next workflow step")
			}
		}

		if err := repo.UpdateBatch(ctx, batch.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update batch")
		}

		outcome.batchNumber = batch.BatchNumber
		outcome.productName = product.Name
		outcome.quantity = batch.Quantity
		outcome.completedStage = plan[targetIdx]
		return nil
	})
	if err != nil {
		return nil, err
	}

	if outcome.completedStage != "" {
		s.emitter.StageCompleted(ctx, outcome.batchNumber, outcome.completedStage)
	}
	if outcome.completedBatch {
		s.emitter.BatchCompleted(ctx, outcome.batchNumber, outcome.productName, outcome.quantity)
	}
	for _, material := range outcome.lowStock {
		s.emitter.LowStock(ctx, material.Name, material.StockQuantity, material.MinimumStock, material.Unit)
	}

	return s.GetBatch(ctx, batchID)
}

// deductMaterials consumes the BOM for the batch quantity, clamped at zero,
// and snapshots the consumption into the usage ledger. Returns materials that
// ended up below their minimum after deduction.
func (s *service) deductMaterials(ctx context.Context, tx *gorm.DB, batch *models.ManufacturingBatch, product *models.Product, now time.Time) ([]models.RawMaterial, error) {
	if len(product.BOM) == 0 {
		return nil, nil
	}

	materials := s.materials.WithTx(tx)
	qty := decimal.NewFromInt(int64(batch.Quantity))
	usages := make([]models.BatchMaterialUsage, 0, len(product.BOM))
	ids := make([]uuid.UUID, 0, len(product.BOM))
	for _, line := range product.BOM {
		required := line.QuantityPerUnit.Mul(qty)
		if err := materials.DeductRawClamped(ctx, line.MaterialID, required); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deduct raw material")
		}
		usages = append(usages, models.BatchMaterialUsage{
			BatchID:    batch.ID,
			MaterialID: line.MaterialID,
			Quantity:   required,
			Unit:       line.Unit,
			CreatedAt:  now,
		})
		ids = append(ids, line.MaterialID)
	}
	if err := s.repo.WithTx(tx).CreateMaterialUsages(ctx, usages); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record material usage")
	}

	remaining, err := materials.FindMaterialsByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload materials")
	}
	var low []models.RawMaterial
	for _, material := range remaining {
		if material.BelowMinimum() {
			low = append(low, material)
		}
	}
	return low, nil
}

// DeleteBatch removes a batch that no sales order line references. Linked
// batches are part of an order's history and cannot be deleted.
func (s *service) DeleteBatch(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "batch id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		count, err := repo.CountOrderItemsReferencing(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check batch references")
		}
		if count > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "batch is linked to a sales order")
		}
		if err := repo.DeleteBatch(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete batch")
		}
		return nil
	})
}

// CheckFeasibilityForProduct answers whether a hypothetical batch could start
// right now. Insufficient stock is reported in the result, not as an error.
func (s *service) CheckFeasibilityForProduct(ctx context.Context, productID uuid.UUID, quantity int) (*FeasibilityResult, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.products.Find(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	ids := make([]uuid.UUID, 0, len(product.BOM))
	for _, line := range product.BOM {
		ids = append(ids, line.MaterialID)
	}
	materials, err := s.materials.FindMaterialsByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load materials")
	}

	result := CheckFeasibility(product.BOM, materials, quantity)
	return &result, nil
}
