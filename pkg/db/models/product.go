package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product is the catalog entry the manufacturing core reads from. The catalog
// is maintained elsewhere; nothing in this repo mutates it outside of seeds.
type Product struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name               string          `gorm:"column:name;not null"`
	Category           string          `gorm:"column:category;not null"`
	UnitPrice          decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	ManufacturingSteps pq.StringArray  `gorm:"column:manufacturing_steps;type:text[]"`
	BOM                []BOMItem       `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	SubComponents      []SubComponent  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// BOMItem is one bill-of-materials line: material required per produced unit.
type BOMItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID       uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	MaterialID      uuid.UUID       `gorm:"column:material_id;type:uuid;not null"`
	QuantityPerUnit decimal.Decimal `gorm:"column:quantity_per_unit;type:numeric(12,4);not null"`
	Unit            string          `gorm:"column:unit;not null"`
}

// SubComponent is a named sub-assembly of a product carrying its own ordered
// stage list. Position fixes the flattening order when the parent product has
// no stage list of its own.
type SubComponent struct {
	ID                 uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID          uuid.UUID      `gorm:"column:product_id;type:uuid;not null;index"`
	Name               string         `gorm:"column:name;not null"`
	Position           int            `gorm:"column:position;not null;default:0"`
	ManufacturingSteps pq.StringArray `gorm:"column:manufacturing_steps;type:text[]"`
}
