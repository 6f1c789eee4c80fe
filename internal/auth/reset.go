package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/medvault/medvault/internal/models"
	"github.com/medvault/medvault/internal/utils"
)

// RequestReset behaves identically whether or not the email is registered;
// only the side effects differ. Mail failures are logged, not returned, so
// delivery problems cannot leak account existence either.
func (s *Service) RequestReset(email string) error {
	var user models.User
	err := s.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	secret, err := utils.RandomSecret(32)
	if err != nil {
		return err
	}

	hash := utils.HashToken(secret)
	expiresAt := time.Now().Add(s.cfg.ResetTokenTTL)
	err = s.db.Model(&user).Updates(map[string]interface{}{
		"reset_token_hash":       hash,
		"reset_token_expires_at": expiresAt,
	}).Error
	if err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.cfg.FrontendURL, secret)
	body := fmt.Sprintf("A password reset was requested for your MedVault account.\n\nReset your password here: %s\n\nThe link expires in %s. If you did not request this, you can ignore this email.", resetURL, s.cfg.ResetTokenTTL)
	if err := s.mail.Send(user.Email, "MedVault password reset", body); err != nil {
		s.log.Error("failed to send reset email", zap.Uint("user_id", user.ID), zap.Error(err))
	}

	return nil
}

// ConsumeReset is single-use by construction: the matching hash and expiry
// are cleared in the same update that sets the new password.
func (s *Service) ConsumeReset(rawSecret, newPassword string) error {
	hash := utils.HashToken(rawSecret)

	var user models.User
	err := s.db.Where("reset_token_hash = ? AND reset_token_expires_at > ?", hash, time.Now()).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Expired and never-issued look identical from the outside.
			return ErrInvalidOrExpiredToken
		}
		return err
	}

	hashed, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}

	return s.db.Model(&user).Updates(map[string]interface{}{
		"password":               hashed,
		"reset_token_hash":       nil,
		"reset_token_expires_at": nil,
	}).Error
}
