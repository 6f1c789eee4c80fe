package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestDenied   = "denied"
)

// AccessRequest is a doctor asking a patient for access. On approval the
// patient picks the window and (optionally) which records it covers;
// RecordIDs empty means all of the patient's records.
type AccessRequest struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	DoctorID  uint           `gorm:"index" json:"doctor_id"`
	Doctor    *User          `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
	PatientID uint           `gorm:"index" json:"patient_id"`
	Patient   *User          `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Message   string         `gorm:"type:text" json:"message"`
	Status    string         `gorm:"size:20;default:'pending';index" json:"status"`
	RecordIDs datatypes.JSON `json:"record_ids,omitempty"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// ShareCode is a patient-minted numeric code. Only sha256(code) is stored.
// DoctorID is nil until some doctor redeems it; after redemption the row
// doubles as the access grant until ExpiresAt.
type ShareCode struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PatientID uint      `gorm:"index" json:"patient_id"`
	CodeHash  string    `gorm:"uniqueIndex;size:64" json:"-"`
	DoctorID  *uint     `gorm:"index" json:"doctor_id,omitempty"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
