package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Setting holds one category of restaurant settings as a JSON document.
type Setting struct {
	Category    string         `gorm:"primaryKey;size:50" json:"category"`
	Value       datatypes.JSON `gorm:"type:jsonb;not null" json:"value"`
	UpdatedByID *uint          `json:"updatedBy,omitempty"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// SettingsBackup is a point-in-time snapshot of every settings category.
type SettingsBackup struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Payload     datatypes.JSON `gorm:"type:jsonb;not null" json:"payload"`
	Categories  int            `gorm:"not null" json:"categories"`
	CreatedByID uint           `json:"createdBy"`
	CreatedAt   time.Time      `json:"createdAt"`
}
