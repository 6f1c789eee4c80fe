package auth

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/medvault/medvault/internal/audit"
	"github.com/medvault/medvault/internal/config"
	"github.com/medvault/medvault/internal/mailer"
	"github.com/medvault/medvault/internal/models"
	"github.com/medvault/medvault/internal/utils"
)

// Service owns registration, login, rotation and the reset flow. All
// collaborators are injected once at startup.
type Service struct {
	db     *gorm.DB
	issuer *TokenIssuer
	ledger *SessionLedger
	guard  *ReplayGuard
	audit  *audit.Recorder
	mail   mailer.Mailer
	cfg    *config.Config
	log    *zap.Logger
}

func NewService(db *gorm.DB, issuer *TokenIssuer, ledger *SessionLedger, guard *ReplayGuard, rec *audit.Recorder, mail mailer.Mailer, cfg *config.Config, log *zap.Logger) *Service {
	return &Service{
		db:     db,
		issuer: issuer,
		ledger: ledger,
		guard:  guard,
		audit:  rec,
		mail:   mail,
		cfg:    cfg,
		log:    log,
	}
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// IssuePair mints an access/refresh pair and records the refresh session.
func (s *Service) IssuePair(userID uint) (*TokenPair, error) {
	accessToken, err := s.issuer.IssueAccessToken(userID)
	if err != nil {
		return nil, err
	}

	refresh, err := s.issuer.IssueRefreshToken(userID)
	if err != nil {
		return nil, err
	}

	if err := s.ledger.Record(userID, utils.HashToken(refresh.Token), refresh.ExpiresAt); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refresh.Token,
		ExpiresIn:    s.issuer.AccessTTLSeconds(),
	}, nil
}

func (s *Service) Register(name, email, password, role string) (*models.User, *TokenPair, error) {
	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, nil, err
	}

	user := models.User{
		Name:     name,
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Password: hashed,
		Role:     role,
	}
	if err := s.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, nil, ErrDuplicateEmail
		}
		return nil, nil, err
	}

	pair, err := s.IssuePair(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return &user, pair, nil
}

// Login deliberately returns the same error for an unknown email and a
// wrong password.
func (s *Service) Login(email, password string) (*models.User, *TokenPair, error) {
	var user models.User
	err := s.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if !utils.CheckPasswordHash(password, user.Password) {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.IssuePair(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return &user, pair, nil
}

// Rotate redeems a refresh token exactly once. The ordering is
// load-bearing twice over: the replay check runs before expiry so a
// rotated-away token is reported as reuse even past its nominal expiry,
// and the replay entry is persisted before the old session row is deleted
// so a crash in between still leaves the token rejectable.
func (s *Service) Rotate(raw string) (*models.User, *TokenPair, error) {
	tokenHash := utils.HashToken(raw)

	session, err := s.ledger.Lookup(tokenHash)
	if err != nil && !errors.Is(err, errSessionNotFound) {
		return nil, nil, err
	}

	claims, err := s.issuer.ParseRefreshToken(raw)
	if err != nil {
		// Cryptographically dead; the row (if any) is useless too.
		if derr := s.ledger.Invalidate(tokenHash); derr != nil {
			return nil, nil, derr
		}
		return nil, nil, ErrInvalidSession
	}

	userID, err := subjectID(claims)
	if err != nil {
		return nil, nil, ErrInvalidSession
	}

	used, err := s.guard.HasBeenUsed(claims.ID)
	if err != nil {
		return nil, nil, err
	}
	if used {
		return nil, nil, s.rejectReuse(userID, tokenHash, claims.ID)
	}

	// No reuse evidence; from here an unknown or expired session is just a
	// dead session.
	if session == nil {
		return nil, nil, ErrInvalidSession
	}
	if time.Now().After(session.ExpiresAt) || claims.ExpiresAt == nil || time.Now().After(claims.ExpiresAt.Time) {
		if err := s.ledger.Invalidate(tokenHash); err != nil {
			return nil, nil, err
		}
		return nil, nil, ErrInvalidSession
	}

	if err := s.guard.MarkUsed(claims.ID, claims.ExpiresAt.Time); err != nil {
		if errors.Is(err, ErrTokenReuseDetected) {
			// Lost a race against a concurrent redemption of the same token.
			return nil, nil, s.rejectReuse(userID, tokenHash, claims.ID)
		}
		return nil, nil, err
	}

	var user models.User
	if err := s.db.First(&user, session.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if derr := s.ledger.Invalidate(tokenHash); derr != nil {
				return nil, nil, derr
			}
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, err
	}

	if err := s.ledger.Invalidate(tokenHash); err != nil {
		return nil, nil, err
	}

	pair, err := s.IssuePair(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return &user, pair, nil
}

func (s *Service) rejectReuse(userID uint, tokenHash, jti string) error {
	if err := s.ledger.Invalidate(tokenHash); err != nil {
		return err
	}
	s.log.Warn("refresh token reuse detected",
		zap.Uint("user_id", userID),
		zap.String("jti", jti))
	s.audit.Record(userID, audit.ActionTokenReuse, "refresh_token", map[string]interface{}{
		"jti": jti,
	})
	return ErrTokenReuseDetected
}

// Logout invalidates the presented refresh session. Unknown tokens are a
// no-op; the client is logging out either way.
func (s *Service) Logout(raw string) error {
	return s.ledger.Invalidate(utils.HashToken(raw))
}

// PruneExpired is the background sweep over sessions, replay entries and
// stale reset credentials.
func (s *Service) PruneExpired() {
	if n, err := s.ledger.PruneExpired(); err != nil {
		s.log.Error("failed to prune refresh sessions", zap.Error(err))
	} else if n > 0 {
		s.log.Info("pruned expired refresh sessions", zap.Int64("count", n))
	}

	if n, err := s.guard.PruneExpired(); err != nil {
		s.log.Error("failed to prune used refresh ids", zap.Error(err))
	} else if n > 0 {
		s.log.Info("pruned expired used refresh ids", zap.Int64("count", n))
	}

	err := s.db.Model(&models.User{}).
		Where("reset_token_expires_at < ?", time.Now()).
		Updates(map[string]interface{}{
			"reset_token_hash":       nil,
			"reset_token_expires_at": nil,
		}).Error
	if err != nil {
		s.log.Error("failed to clear expired reset tokens", zap.Error(err))
	}
}
