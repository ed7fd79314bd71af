package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/PremPatel1010/primetech-backend/pkg/enums"
)

// PurchaseOrder is an inbound order for raw materials from a supplier.
// Receiving it is the only operation that increments raw-material stock.
type PurchaseOrder struct {
	ID         uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PONumber   string                    `gorm:"column:po_number;not null;uniqueIndex"`
	SupplierID uuid.UUID                 `gorm:"column:supplier_id;type:uuid;not null;index"`
	Status     enums.PurchaseOrderStatus `gorm:"column:status;type:text;not null;default:'draft'"`
	TotalValue decimal.Decimal           `gorm:"column:total_value;type:numeric(14,2);not null;default:0"`
	Items      []PurchaseOrderItem       `gorm:"foreignKey:PurchaseOrderID;constraint:OnDelete:CASCADE"`
	OrderedAt  *time.Time                `gorm:"column:ordered_at"`
	ReceivedAt *time.Time                `gorm:"column:received_at"`
	CreatedAt  time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

// PurchaseOrderItem is one material line of a purchase order.
type PurchaseOrderItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PurchaseOrderID uuid.UUID       `gorm:"column:purchase_order_id;type:uuid;not null;index"`
	MaterialID      uuid.UUID       `gorm:"column:material_id;type:uuid;not null"`
	Quantity        decimal.Decimal `gorm:"column:quantity;type:numeric(14,4);not null"`
	UnitPrice       decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null;default:0"`
}
