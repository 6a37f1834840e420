package models

import (
	"time"

	"gorm.io/datatypes"
)

// PlanRequest records a completed plan generation keyed by the client's
// Idempotency-Key, so a retried request returns the same tasks.
type PlanRequest struct {
	ID             uint                        `gorm:"primaryKey"`
	StudyBlockID   string                      `gorm:"size:21;not null;uniqueIndex:idx_plan_block_key"`
	IdempotencyKey string                      `gorm:"size:100;not null;uniqueIndex:idx_plan_block_key"`
	UserID         string                      `gorm:"size:21;not null;index"`
	TaskIDs        datatypes.JSONSlice[string] `gorm:"not null"`
	CreatedAt      time.Time
}
