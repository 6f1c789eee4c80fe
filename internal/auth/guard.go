package auth

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/medvault/medvault/internal/models"
)

// ReplayGuard enforces single-use redemption of refresh tokens. Each
// successfully rotated token leaves its jti behind; seeing that jti again
// means a stolen or stale copy is being replayed.
type ReplayGuard struct {
	db *gorm.DB
}

func NewReplayGuard(db *gorm.DB) *ReplayGuard {
	return &ReplayGuard{db: db}
}

func (g *ReplayGuard) HasBeenUsed(jti string) (bool, error) {
	var count int64
	err := g.db.Model(&models.UsedRefreshID{}).Where("jti = ?", jti).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkUsed inserts the jti. The unique index carries the concurrency
// guarantee: when two redemptions race, the loser's insert fails with a
// duplicate key and is reported as ErrTokenReuseDetected, so at most one
// caller ever wins a given jti.
func (g *ReplayGuard) MarkUsed(jti string, expiresAt time.Time) error {
	entry := models.UsedRefreshID{JTI: jti, ExpiresAt: expiresAt}
	err := g.db.Create(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrTokenReuseDetected
		}
		return err
	}
	return nil
}

// PruneExpired drops entries whose token would have expired anyway; they
// can no longer gate anything.
func (g *ReplayGuard) PruneExpired() (int64, error) {
	result := g.db.Where("expires_at < ?", time.Now()).Delete(&models.UsedRefreshID{})
	return result.RowsAffected, result.Error
}
