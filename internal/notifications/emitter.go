package notifications

import (
	"context"
	"fmt"

	"github.com/PremPatel1010/primetech-backend/pkg/db/models"
	"github.com/PremPatel1010/primetech-backend/pkg/enums"
	pkgerrors "github.com/PremPatel1010/primetech-backend/pkg/errors"
	"github.com/PremPatel1010/primetech-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// Emitter records domain events as in-app notifications. Emission is
// best-effort: failures are logged and never propagated to the caller, so a
// notification hiccup cannot roll back the business operation that caused it.
type Emitter interface {
	OrderCreated(ctx context.Context, orderNumber, customerName string)
	BatchCreated(ctx context.Context, batchNumber, productName string, quantity int)
	StageCompleted(ctx context.Context, batchNumber, stage string)
	BatchCompleted(ctx context.Context, batchNumber, productName string, quantity int)
	StockShortage(ctx context.Context, materialName string, shortfall decimal.Decimal, unit string)
	LowStock(ctx context.Context, materialName string, stock, minimum decimal.Decimal, unit string)
	PurchaseOrderReceived(ctx context.Context, poNumber string)
}

type emitter struct {
	repo Repository
	logg *logger.Logger
}

// NewEmitter wires the notification emitter.
func NewEmitter(repo Repository, logg *logger.Logger) (Emitter, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &emitter{repo: repo, logg: logg}, nil
}

func (e *emitter) OrderCreated(ctx context.Context, orderNumber, customerName string) {
	link := "/sales-orders"
	e.emit(ctx, models.Notification{
		Type:    enums.NotificationTypeOrderCreated,
		Title:   "New sales order",
		Message: fmt.Sprintf("Order %s received from %s", orderNumber, customerName),
		Link:    &link,
	})
}

func (e *emitter) BatchCreated(ctx context.Context, batchNumber, productName string, quantity int) {
	link := "/manufacturing"
	e.emit(ctx, models.Notification{
		Type:    enums.NotificationTypeBatchCreated,
		Title:   "Manufacturing batch started",
		Message: fmt.Sprintf("Batch %s created for %d x %s", batchNumber, quantity, productName),
		Link:    &link,
	})
}

func (e *emitter) StageCompleted(ctx context.Context, batchNumber, stage string) {
	link := "/manufacturing"
	e.emit(ctx, models.Notification{
		Type:    enums.NotificationTypeStageCompleted,
		Title:   "Stage completed",
		Message: fmt.Sprintf("Batch %s finished stage %s", batchNumber, stage),
		Link:    &link,
	})
}

func (e *emitter) BatchCompleted(ctx context.Context, batchNumber, productName string, quantity int) {
	link := "/manufacturing"
	e.emit(ctx, models.Notification{
		Type:    enums.NotificationTypeBatchCompleted,
		Title:   "Batch completed",
		Message: fmt.Sprintf("Batch %s completed, %d x %s moved to finished goods", batchNumber, quantity, productName),
		Link:    &link,
	})
}

func (e *emitter) StockShortage(ctx context.Context, materialName string, shortfall decimal.Decimal, unit string) {
	link := "/inventory"
	e.emit(ctx, models.Notification{
		Type:    enums.NotificationTypeStockShortage,
		Title:   "Material shortage",
		Message: fmt.Sprintf("Short %s %s of %s for pending production", shortfall.String(), unit, materialName),
		Link:    &link,
	})
}

func (e *emitter) LowStock(ctx context.Context, materialName string, stock, minimum decimal.Decimal, unit string) {
	link := "/inventory"
	e.emit(ctx, models.Notification{
		Type:    enums.NotificationTypeLowStock,
		Title:   "Low stock",
		Message: fmt.Sprintf("%s is at %s %s, below minimum %s", materialName, stock.String(), unit, minimum.String()),
		Link:    &link,
	})
}

func (e *emitter) PurchaseOrderReceived(ctx context.Context, poNumber string) {
	link := "/purchase-orders"
	e.emit(ctx, models.Notification{
		Type:    enums.NotificationTypePurchaseOrderReceived,
		Title:   "Purchase order received",
		Message: fmt.Sprintf("Purchase order %s received into stock", poNumber),
		Link:    &link,
	})
}

func (e *emitter) emit(ctx context.Context, notification models.Notification) {
	if err := e.repo.Create(ctx, &notification); err != nil {
		e.logg.Error(ctx, fmt.Sprintf("emit notification %s", notification.Type), err)
	}
}
