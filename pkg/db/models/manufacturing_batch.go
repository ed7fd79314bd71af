package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/PremPatel1010/primetech-backend/pkg/enums"
)

// ManufacturingBatch is one production run of a product through an ordered
// stage sequence. MaterialsDeductedAt is the explicit once-only guard for the
// raw-material deduction side effect; the usage rows are the ledger snapshot.
type ManufacturingBatch struct {
	ID                  uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BatchNumber         string                `gorm:"column:batch_number;not null;uniqueIndex"`
	ProductID           uuid.UUID             `gorm:"column:product_id;type:uuid;not null;index"`
	Quantity            int                   `gorm:"column:quantity;not null"`
	CurrentStage        string                `gorm:"column:current_stage;not null"`
	Progress            int                   `gorm:"column:progress;not null;default:0"`
	Status              enums.BatchStatus     `gorm:"column:status;type:text;not null;default:'in_progress'"`
	SalesOrderID        *uuid.UUID            `gorm:"column:sales_order_id;type:uuid;index"`
	StageCompletions    map[string]*time.Time `gorm:"column:stage_completions;type:jsonb;serializer:json"`
	MaterialsDeductedAt *time.Time            `gorm:"column:materials_deducted_at"`
	EstimatedCompletion *time.Time            `gorm:"column:estimated_completion"`
	Steps               []WorkflowStep        `gorm:"foreignKey:BatchID;constraint:OnDelete:CASCADE"`
	MaterialsUsed       []BatchMaterialUsage  `gorm:"foreignKey:BatchID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// BatchMaterialUsage records how much of one material a batch consumed when
// its first manufacturing stage started.
type BatchMaterialUsage struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BatchID    uuid.UUID       `gorm:"column:batch_id;type:uuid;not null;index"`
	MaterialID uuid.UUID       `gorm:"column:material_id;type:uuid;not null"`
	Quantity   decimal.Decimal `gorm:"column:quantity;type:numeric(14,4);not null"`
	Unit       string          `gorm:"column:unit;not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}
