package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/PremPatel1010/primetech-backend/pkg/enums"
)

// WorkflowStep is one stage instance owned by a batch. Sequence mirrors the
// stage's index in the batch's resolved stage plan.
type WorkflowStep struct {
	ID             uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BatchID        uuid.UUID                `gorm:"column:batch_id;type:uuid;not null;index"`
	Name           string                   `gorm:"column:name;not null"`
	Sequence       int                      `gorm:"column:sequence;not null"`
	Status         enums.WorkflowStepStatus `gorm:"column:status;type:text;not null;default:'not_started'"`
	AssignedTeam   *string                  `gorm:"column:assigned_team"`
	SubComponentID *uuid.UUID               `gorm:"column:sub_component_id;type:uuid"`
	StartedAt      *time.Time               `gorm:"column:started_at"`
	CompletedAt    *time.Time               `gorm:"column:completed_at"`
	CreatedAt      time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
