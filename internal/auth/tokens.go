package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/medvault/medvault/internal/config"
)

// TokenIssuer mints and verifies both halves of the token pair. Access and
// refresh tokens are signed with distinct secrets so one can never be
// presented in place of the other.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewTokenIssuer(cfg *config.Config) *TokenIssuer {
	return &TokenIssuer{
		accessSecret:  []byte(cfg.AccessTokenSecret),
		refreshSecret: []byte(cfg.RefreshTokenSecret),
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
	}
}

func (t *TokenIssuer) AccessTTLSeconds() int {
	return int(t.accessTTL.Seconds())
}

// RefreshTokenData is what IssueRefreshToken hands back: the signed token
// for the client plus the pieces the session ledger needs to persist.
type RefreshTokenData struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

func (t *TokenIssuer) IssueAccessToken(userID uint) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.accessTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.accessSecret)
}

// IssueRefreshToken embeds a fresh jti; persisting the session row is the
// caller's job.
func (t *TokenIssuer) IssueRefreshToken(userID uint) (*RefreshTokenData, error) {
	now := time.Now()
	jti := uuid.New().String()
	expiresAt := now.Add(t.refreshTTL)
	claims := jwt.RegisteredClaims{
		ID:        jti,
		Subject:   strconv.FormatUint(uint64(userID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.refreshSecret)
	if err != nil {
		return nil, err
	}

	return &RefreshTokenData{Token: signed, JTI: jti, ExpiresAt: expiresAt}, nil
}

func (t *TokenIssuer) ParseAccessToken(raw string) (uint, error) {
	claims, err := t.parse(raw, t.accessSecret)
	if err != nil {
		return 0, err
	}
	return subjectID(claims)
}

// ParseRefreshToken verifies the signature but deliberately not the expiry
// claim: the rotation flow needs the jti out of an expired token to tell a
// replayed copy apart from a merely stale one. Callers check expiry
// themselves.
func (t *TokenIssuer) ParseRefreshToken(raw string) (*jwt.RegisteredClaims, error) {
	return t.parse(raw, t.refreshSecret, jwt.WithoutClaimsValidation())
}

func (t *TokenIssuer) parse(raw string, secret []byte, opts ...jwt.ParserOption) (*jwt.RegisteredClaims, error) {
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		if err == nil {
			err = fmt.Errorf("invalid token")
		}
		return nil, err
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.ID == "" && claims.Subject == "" {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

func subjectID(claims *jwt.RegisteredClaims) (uint, error) {
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid subject claim: %w", err)
	}
	return uint(id), nil
}
