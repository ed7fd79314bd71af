package manufacturing

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/PremPatel1010/primetech-backend/internal/inventory"
	"github.com/PremPatel1010/primetech-backend/internal/products"
	"github.com/PremPatel1010/primetech-backend/pkg/db/models"
	"github.com/PremPatel1010/primetech-backend/pkg/enums"
	pkgerrors "github.com/PremPatel1010/primetech-backend/pkg/errors"
	"github.com/PremPatel1010/primetech-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type fakeBatchRepo struct {
	batches   map[uuid.UUID]*models.ManufacturingBatch
	steps     map[uuid.UUID][]*models.WorkflowStep
	usages    []models.BatchMaterialUsage
	orderRefs int64
}

func newFakeBatchRepo() *fakeBatchRepo {
	return &fakeBatchRepo{
		batches: map[uuid.UUID]*models.ManufacturingBatch{},
		steps:   map[uuid.UUID][]*models.WorkflowStep{},
	}
}

func (f *fakeBatchRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeBatchRepo) CreateBatch(ctx context.Context, batch *models.ManufacturingBatch) error {
	batch.ID = uuid.New()
	for i := range batch.Steps {
		batch.Steps[i].ID = uuid.New()
		batch.Steps[i].BatchID = batch.ID
		step := batch.Steps[i]
		f.steps[batch.ID] = append(f.steps[batch.ID], &step)
	}
	stored := *batch
	stored.Steps = nil
	f.batches[batch.ID] = &stored
	return nil
}

func (f *fakeBatchRepo) FindBatch(ctx context.Context, id uuid.UUID) (*models.ManufacturingBatch, error) {
	batch, ok := f.batches[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *batch
	steps, _ := f.FindSteps(ctx, id)
	copied.Steps = steps
	copied.MaterialsUsed = append([]models.BatchMaterialUsage(nil), f.usages...)
	return &copied, nil
}

func (f *fakeBatchRepo) FindBatchForUpdate(ctx context.Context, id uuid.UUID) (*models.ManufacturingBatch, error) {
	batch, ok := f.batches[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *batch
	return &copied, nil
}

func (f *fakeBatchRepo) FindSteps(ctx context.Context, batchID uuid.UUID) ([]models.WorkflowStep, error) {
	stored := f.steps[batchID]
	out := make([]models.WorkflowStep, 0, len(stored))
	for _, step := range stored {
		out = append(out, *step)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (f *fakeBatchRepo) ListBatches(ctx context.Context, params listBatchesParams) ([]models.ManufacturingBatch, *pagination.Cursor, error) {
	var out []models.ManufacturingBatch
	for _, batch := range f.batches {
		if params.Status != nil && batch.Status != *params.Status {
			continue
		}
		out = append(out, *batch)
	}
	return out, nil, nil
}

func (f *fakeBatchRepo) UpdateBatch(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	batch, ok := f.batches[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if stage, ok := updates["current_stage"].(string); ok {
		batch.CurrentStage = stage
	}
	if progress, ok := updates["progress"].(int); ok {
		batch.Progress = progress
	}
	if status, ok := updates["status"].(enums.BatchStatus); ok {
		batch.Status = status
	}
	if raw, ok := updates["stage_completions"].(string); ok {
		completions := map[string]*time.Time{}
		if err := json.Unmarshal([]byte(raw), &completions); err != nil {
			return err
		}
		batch.StageCompletions = completions
	}
	if deducted, ok := updates["materials_deducted_at"].(*time.Time); ok {
		batch.MaterialsDeductedAt = deducted
	}
	return nil
}

func (f *fakeBatchRepo) UpdateStep(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	for _, steps := range f.steps {
		for _, step := range steps {
			if step.ID != id {
				continue
			}
			if status, ok := updates["status"].(enums.WorkflowStepStatus); ok {
				step.Status = status
			}
			if startedAt, ok := updates["started_at"].(time.Time); ok {
				step.StartedAt = &startedAt
			}
			if completedAt, ok := updates["completed_at"].(time.Time); ok {
				step.CompletedAt = &completedAt
			}
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeBatchRepo) CreateMaterialUsages(ctx context.Context, usages []models.BatchMaterialUsage) error {
	f.usages = append(f.usages, usages...)
	return nil
}

func (f *fakeBatchRepo) CountOrderItemsReferencing(ctx context.Context, batchID uuid.UUID) (int64, error) {
	return f.orderRefs, nil
}

func (f *fakeBatchRepo) DeleteBatch(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.batches[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.batches, id)
	delete(f.steps, id)
	return nil
}

type fakeProducts struct {
	products.Repository
	items map[uuid.UUID]*models.Product
}

func (f *fakeProducts) WithTx(tx *gorm.DB) products.Repository { return f }

func (f *fakeProducts) Find(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, ok := f.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *product
	return &copied, nil
}

type deduction struct {
	materialID uuid.UUID
	qty        decimal.Decimal
}

type fakeMaterials struct {
	inventory.Repository
	stocks  map[uuid.UUID]*models.RawMaterial
	deducts []deduction
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

func (f *fakeMaterials) DeductRawClamped(ctx context.Context, id uuid.UUID, qty decimal.Decimal) error {
	f.deducts = append(f.deducts, deduction{materialID: id, qty: qty})
	if material, ok := f.stocks[id]; ok {
		material.StockQuantity = material.StockQuantity.Sub(qty)
		if material.StockQuantity.IsNegative() {
			material.StockQuantity = decimal.Zero
		}
	}
	return nil
}

type fakeFinished struct {
	adds []int
}

func (f *fakeFinished) AddFinished(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	f.adds = append(f.adds, qty)
	return nil
}

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

type stageEmitter struct {
	batchesCreated   int
	stagesCompleted  []string
	batchesCompleted int
	lowStock         int
}

func (e *stageEmitter) OrderCreated(ctx context.Context, orderNumber, customerName string) {}
func (e *stageEmitter) BatchCreated(ctx context.Context, batchNumber, productName string, quantity int) {
	e.batchesCreated++
}
func (e *stageEmitter) StageCompleted(ctx context.Context, batchNumber, stage string) {
	e.stagesCompleted = append(e.stagesCompleted, stage)
}
func (e *stageEmitter) BatchCompleted(ctx context.Context, batchNumber, productName string, quantity int) {
	e.batchesCompleted++
}
func (e *stageEmitter) StockShortage(ctx context.Context, materialName string, shortfall decimal.Decimal, unit string) {
}
func (e *stageEmitter) LowStock(ctx context.Context, materialName string, stock, minimum decimal.Decimal, unit string) {
	e.lowStock++
}
func (e *stageEmitter) PurchaseOrderReceived(ctx context.Context, poNumber string) {}

type manufacturingHarness struct {
	svc       Service
	repo      *fakeBatchRepo
	materials *fakeMaterials
	finished  *fakeFinished
	emitter   *stageEmitter
	product   *models.Product
	steelID   uuid.UUID
}

// newHarness wires a service around a product with a three stage plan and a
// one line bill of materials of two units of steel per produced unit.
func newHarness(t *testing.T) *manufacturingHarness {
	t.Helper()

	steelID := uuid.New()
	product := &models.Product{
		ID:                 uuid.New(),
		Name:               "Submersible Pump",
		ManufacturingSteps: []string{"Inward", "QC", "Completed"},
		BOM: []models.BOMItem{
			{MaterialID: steelID, QuantityPerUnit: decimal.NewFromInt(2), Unit: "kg"},
		},
	}

	repo := newFakeBatchRepo()
	materials := &fakeMaterials{stocks: map[uuid.UUID]*models.RawMaterial{
		steelID: {
			ID:            steelID,
			Name:          "Steel",
			Unit:          "kg",
			StockQuantity: decimal.NewFromInt(100),
			MinimumStock:  decimal.NewFromInt(10),
		},
	}}
	finished := &fakeFinished{}
	emitter := &stageEmitter{}

	svc, err := NewService(ServiceParams{
		Repo:      repo,
		Products:  &fakeProducts{items: map[uuid.UUID]*models.Product{product.ID: product}},
		Materials: materials,
		Finished:  finished,
		Tx:        fakeTx{},
		Emitter:   emitter,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	return &manufacturingHarness{
		svc:       svc,
		repo:      repo,
		materials: materials,
		finished:  finished,
		emitter:   emitter,
		product:   product,
		steelID:   steelID,
	}
}

func (h *manufacturingHarness) createBatch(t *testing.T, quantity int) *models.ManufacturingBatch {
	t.Helper()
	batch, err := h.svc.CreateBatch(context.Background(), CreateBatchInput{
		ProductID: h.product.ID,
		Quantity:  quantity,
	})
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	return batch
}

func TestCreateBatchBuildsStagePlan(t *testing.T) {
	h := newHarness(t)

	batch := h.createBatch(t, 5)
	if !strings.HasPrefix(batch.BatchNumber, "MB-") {
		t.Fatalf("unexpected batch number %q", batch.BatchNumber)
	}
	if batch.CurrentStage != "Inward" || batch.Progress != 0 {
		t.Fatalf("expected batch starting at Inward, got %q at %d%%", batch.CurrentStage, batch.Progress)
	}
	if batch.Status != enums.BatchStatusInProgress {
		t.Fatalf("expected in_progress, got %s", batch.Status)
	}

	steps, _ := h.repo.FindSteps(context.Background(), batch.ID)
	if len(steps) != 3 {
		t.Fatalf("expected 3 workflow steps, got %d", len(steps))
	}
	if steps[0].Status != enums.WorkflowStepStatusInProgress || steps[0].StartedAt == nil {
		t.Fatalf("first step must be started: %+v", steps[0])
	}
	if steps[1].Status != enums.WorkflowStepStatusNotStarted {
		t.Fatalf("later steps must not be started: %+v", steps[1])
	}
	if h.emitter.batchesCreated != 1 {
		t.Fatalf("expected one batch created notification, got %d", h.emitter.batchesCreated)
	}
}

func TestCreateBatchValidates(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.CreateBatch(context.Background(), CreateBatchInput{ProductID: h.product.ID})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for zero quantity, got %v", err)
	}

	_, err = h.svc.CreateBatch(context.Background(), CreateBatchInput{ProductID: uuid.New(), Quantity: 1})
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown product, got %v", err)
	}
}

func TestAdvanceStageDeductsMaterialsOnce(t *testing.T) {
	h := newHarness(t)
	batch := h.createBatch(t, 5)

	updated, err := h.svc.AdvanceStage(context.Background(), batch.ID, "Inward")
	if err != nil {
		t.Fatalf("advance stage: %v", err)
	}
	if len(h.materials.deducts) != 1 {
		t.Fatalf("expected one deduction, got %d", len(h.materials.deducts))
	}
	if !h.materials.deducts[0].qty.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected deduction of 10, got %s", h.materials.deducts[0].qty)
	}
	if updated.MaterialsDeductedAt == nil {
		t.Fatalf("deduction timestamp must be recorded")
	}
	if len(h.repo.usages) != 1 || !h.repo.usages[0].Quantity.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected one usage row of 10, got %+v", h.repo.usages)
	}
	if updated.CurrentStage != "QC" {
		t.Fatalf("expected current stage QC, got %q", updated.CurrentStage)
	}

	updated, err = h.svc.AdvanceStage(context.Background(), batch.ID, "QC")
	if err != nil {
		t.Fatalf("advance stage: %v", err)
	}
	if len(h.materials.deducts) != 1 {
		t.Fatalf("materials must be deducted exactly once, got %d deductions", len(h.materials.deducts))
	}
	if len(h.repo.usages) != 1 {
		t.Fatalf("usage ledger must not grow on later stages, got %d rows", len(h.repo.usages))
	}
	if updated.CurrentStage != "Completed" {
		t.Fatalf("expected current stage Completed, got %q", updated.CurrentStage)
	}
}

func TestAdvanceStageProgressIncreases(t *testing.T) {
	h := newHarness(t)
	batch := h.createBatch(t, 1)

	prev := -1
	for _, stage := range []string{"Inward", "QC", "Completed"} {
		updated, err := h.svc.AdvanceStage(context.Background(), batch.ID, stage)
		if err != nil {
			t.Fatalf("advance %s: %v", stage, err)
		}
		if updated.Progress <= prev {
			t.Fatalf("progress must increase: %s gave %d after %d", stage, updated.Progress, prev)
		}
		prev = updated.Progress
	}
	if prev != 100 {
		t.Fatalf("final stage must reach 100, got %d", prev)
	}
}

func TestAdvanceStageTerminalStocksFinishedGoods(t *testing.T) {
	h := newHarness(t)
	batch := h.createBatch(t, 7)

	// Jumping straight to the terminal stage completes every step in between.
	updated, err := h.svc.AdvanceStage(context.Background(), batch.ID, "completed")
	if err != nil {
		t.Fatalf("advance to terminal: %v", err)
	}
	if updated.Status != enums.BatchStatusCompleted || updated.Progress != 100 {
		t.Fatalf("expected completed batch at 100%%, got %s at %d%%", updated.Status, updated.Progress)
	}
	if len(h.finished.adds) != 1 || h.finished.adds[0] != 7 {
		t.Fatalf("expected finished stock increment of 7, got %v", h.finished.adds)
	}
	if h.emitter.batchesCompleted != 1 {
		t.Fatalf("expected batch completed notification, got %d", h.emitter.batchesCompleted)
	}
	if len(h.materials.deducts) != 1 {
		t.Fatalf("jump to terminal must still deduct materials once, got %d", len(h.materials.deducts))
	}

	steps, _ := h.repo.FindSteps(context.Background(), batch.ID)
	for _, step := range steps {
		if step.Status != enums.WorkflowStepStatusCompleted {
			t.Fatalf("all steps must be completed, found %+v", step)
		}
	}

	// A completed batch accepts no further transitions.
	_, err = h.svc.AdvanceStage(context.Background(), batch.ID, "QC")
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict on completed batch, got %v", err)
	}
	if len(h.finished.adds) != 1 {
		t.Fatalf("finished stock must not be incremented twice, got %v", h.finished.adds)
	}
}

func TestAdvanceStageRejectsBadTargets(t *testing.T) {
	h := newHarness(t)
	batch := h.createBatch(t, 1)

	_, err := h.svc.AdvanceStage(context.Background(), batch.ID, "Painting")
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for unknown stage, got %v", err)
	}

	_, err = h.svc.AdvanceStage(context.Background(), uuid.New(), "Inward")
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown batch, got %v", err)
	}
}

func TestAdvanceStageRestampsCompletedStage(t *testing.T) {
	h := newHarness(t)
	batch := h.createBatch(t, 1)

	advanced, err := h.svc.AdvanceStage(context.Background(), batch.ID, "QC")
	if err != nil {
		t.Fatalf("advance to QC: %v", err)
	}
	first := advanced.StageCompletions["Inward"]
	if first == nil {
		t.Fatalf("expected Inward completion stamp, got %+v", advanced.StageCompletions)
	}

	again, err := h.svc.AdvanceStage(context.Background(), batch.ID, "Inward")
	if err != nil {
		t.Fatalf("re-advance to Inward: %v", err)
	}
	second := again.StageCompletions["Inward"]
	if second == nil || second.Before(*first) {
		t.Fatalf("expected a refreshed Inward stamp, first %v second %v", first, second)
	}
	if again.CurrentStage != advanced.CurrentStage || again.Progress != advanced.Progress {
		t.Fatalf("re-advance must not move the batch, got %q at %d%%", again.CurrentStage, again.Progress)
	}
	if len(h.materials.deducts) != 1 {
		t.Fatalf("materials must be deducted exactly once, got %d deductions", len(h.materials.deducts))
	}
	if got := len(h.emitter.stagesCompleted); got != 1 {
		t.Fatalf("re-advance must not notify again, got %d stage notifications", got)
	}
}

func TestAdvanceStageEmitsLowStock(t *testing.T) {
	h := newHarness(t)
	h.materials.stocks[h.steelID].StockQuantity = decimal.NewFromInt(12)
	batch := h.createBatch(t, 2)

	// Deducting 4 leaves 8, below the minimum of 10.
	if _, err := h.svc.AdvanceStage(context.Background(), batch.ID, "Inward"); err != nil {
		t.Fatalf("advance stage: %v", err)
	}
	if h.emitter.lowStock != 1 {
		t.Fatalf("expected one low stock notification, got %d", h.emitter.lowStock)
	}
}

func TestDeleteBatchRefusesWhileReferenced(t *testing.T) {
	h := newHarness(t)
	batch := h.createBatch(t, 1)

	h.repo.orderRefs = 1
	err := h.svc.DeleteBatch(context.Background(), batch.ID)
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict while referenced, got %v", err)
	}

	h.repo.orderRefs = 0
	if err := h.svc.DeleteBatch(context.Background(), batch.ID); err != nil {
		t.Fatalf("delete batch: %v", err)
	}
	if _, err := h.svc.GetBatch(context.Background(), batch.ID); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected batch gone, got %v", err)
	}
}

func TestCheckFeasibilityForProduct(t *testing.T) {
	h := newHarness(t)

	result, err := h.svc.CheckFeasibilityForProduct(context.Background(), h.product.ID, 10)
	if err != nil {
		t.Fatalf("check feasibility: %v", err)
	}
	if !result.Feasible {
		t.Fatalf("expected feasible with full stock, got %+v", result)
	}

	result, err = h.svc.CheckFeasibilityForProduct(context.Background(), h.product.ID, 100)
	if err != nil {
		t.Fatalf("check feasibility: %v", err)
	}
	if result.Feasible || len(result.Shortages) != 1 {
		t.Fatalf("expected steel shortage, got %+v", result)
	}
	if !result.Shortages[0].Shortfall.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected shortfall 100, got %s", result.Shortages[0].Shortfall)
	}
}
