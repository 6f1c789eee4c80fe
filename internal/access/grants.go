package access

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/medvault/medvault/internal/models"
)

// GrantChecker answers "may this doctor see this record right now". A
// grant exists while an approved request or a redeemed share code for the
// record's owner is still inside its window.
type GrantChecker struct {
	db *gorm.DB
}

func NewGrantChecker(db *gorm.DB) *GrantChecker {
	return &GrantChecker{db: db}
}

func (g *GrantChecker) CanAccess(doctorID, patientID, recordID uint) (bool, error) {
	now := time.Now()

	var codes int64
	err := g.db.Model(&models.ShareCode{}).
		Where("patient_id = ? AND doctor_id = ? AND expires_at > ?", patientID, doctorID, now).
		Count(&codes).Error
	if err != nil {
		return false, err
	}
	if codes > 0 {
		return true, nil
	}

	var requests []models.AccessRequest
	err = g.db.
		Where("doctor_id = ? AND patient_id = ? AND status = ? AND (expires_at IS NULL OR expires_at > ?)",
			doctorID, patientID, models.RequestApproved, now).
		Find(&requests).Error
	if err != nil {
		return false, err
	}

	for _, req := range requests {
		if len(req.RecordIDs) == 0 {
			return true, nil
		}
		var ids []uint
		if err := json.Unmarshal(req.RecordIDs, &ids); err != nil {
			continue
		}
		for _, id := range ids {
			if id == recordID {
				return true, nil
			}
		}
	}

	return false, nil
}
