package models

import (
	"time"

	"gorm.io/datatypes"
)

type AuditEvent struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	ActorID   uint           `gorm:"index" json:"actor_id"`
	Action    string         `gorm:"size:50;index" json:"action"`
	Subject   string         `gorm:"size:100" json:"subject"`
	Metadata  datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
