package models

import (
	"time"

	"gorm.io/gorm"
)

type MedicalRecord struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	PatientID   uint           `gorm:"index" json:"patient_id"`
	Patient     *User          `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Title       string         `gorm:"size:255" json:"title"`
	Notes       string         `gorm:"type:text" json:"notes"`
	FileName    string         `gorm:"size:255" json:"file_name"`
	BlobKey     string         `gorm:"size:255;uniqueIndex" json:"-"`
	ContentType string         `gorm:"size:100" json:"content_type"`
	Size        int64          `json:"size"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
