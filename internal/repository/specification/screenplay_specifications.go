package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByWorkflowID struct {
	WorkflowID uuid.UUID
}

func (s ByWorkflowID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("workflow_id = ?", s.WorkflowID)
}

// ByEntityType filters screenplay entities; an empty type matches all.
type ByEntityType struct {
	EntityType string
}

func (s ByEntityType) Apply(db *gorm.DB) *gorm.DB {
	if s.EntityType == "" {
		return db
	}
	return db.Where("entity_type = ?", s.EntityType)
}
