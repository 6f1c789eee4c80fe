package auth

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/medvault/medvault/internal/models"
)

var errSessionNotFound = errors.New("refresh session not found")

// SessionLedger tracks which refresh tokens are currently live. Tokens are
// keyed by sha256 of the full token string; the raw value is never stored.
type SessionLedger struct {
	db *gorm.DB
}

func NewSessionLedger(db *gorm.DB) *SessionLedger {
	return &SessionLedger{db: db}
}

func (l *SessionLedger) Record(userID uint, tokenHash string, expiresAt time.Time) error {
	session := models.RefreshSession{
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
	}
	return l.db.Create(&session).Error
}

func (l *SessionLedger) Lookup(tokenHash string) (*models.RefreshSession, error) {
	var session models.RefreshSession
	err := l.db.Where("token_hash = ?", tokenHash).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

// Invalidate deletes the row for the exact token hash. Deleting a hash
// that is already gone is not an error.
func (l *SessionLedger) Invalidate(tokenHash string) error {
	return l.db.Unscoped().Where("token_hash = ?", tokenHash).Delete(&models.RefreshSession{}).Error
}

func (l *SessionLedger) PruneExpired() (int64, error) {
	result := l.db.Unscoped().Where("expires_at < ?", time.Now()).Delete(&models.RefreshSession{})
	return result.RowsAffected, result.Error
}
