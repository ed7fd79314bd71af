package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbtypes "github.com/PremPatel1010/primetech-backend/pkg/db/types"
	"github.com/PremPatel1010/primetech-backend/pkg/enums"
)

// SalesOrder is a customer order for finished goods.
type SalesOrder struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber     string                 `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerName    string                 `gorm:"column:customer_name;not null"`
	Status          enums.SalesOrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	DiscountPercent decimal.Decimal        `gorm:"column:discount_percent;type:numeric(5,2);not null;default:0"`
	GSTPercent      decimal.Decimal        `gorm:"column:gst_percent;type:numeric(5,2);not null;default:0"`
	TotalValue      decimal.Decimal        `gorm:"column:total_value;type:numeric(14,2);not null;default:0"`
	Items           []SalesOrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// SalesOrderItem is one product line of an order, carrying the
// partial-fulfillment breakdown once availability has been resolved.
// QuantityFromStock + QuantityToManufacture always equals Quantity.
type SalesOrderItem struct {
	ID                    uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID               uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID             uuid.UUID          `gorm:"column:product_id;type:uuid;not null"`
	Quantity              int                `gorm:"column:quantity;not null"`
	UnitPrice             decimal.Decimal    `gorm:"column:unit_price;type:numeric(12,2);not null"`
	QuantityFromStock     int                `gorm:"column:quantity_from_stock;not null;default:0"`
	QuantityToManufacture int                `gorm:"column:quantity_to_manufacture;not null;default:0"`
	BatchIDs              dbtypes.UUIDArray  `gorm:"column:batch_ids;type:uuid[]"`
	CreatedAt             time.Time          `gorm:"column:created_at;autoCreateTime"`
}
