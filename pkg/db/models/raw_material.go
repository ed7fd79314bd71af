package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RawMaterial tracks the current balance of one purchased material. Stock is
// a running balance, not an append-only ledger, and never goes below zero.
type RawMaterial struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string          `gorm:"column:name;not null;uniqueIndex"`
	Unit          string          `gorm:"column:unit;not null"`
	StockQuantity decimal.Decimal `gorm:"column:stock_quantity;type:numeric(14,4);not null;default:0"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null;default:0"`
	MinimumStock  decimal.Decimal `gorm:"column:minimum_stock;type:numeric(14,4);not null;default:0"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// BelowMinimum reports whether the current balance breaches the reorder floor.
func (m RawMaterial) BelowMinimum() bool {
	return m.StockQuantity.LessThan(m.MinimumStock)
}
