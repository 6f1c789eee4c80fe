package auth

import "errors"

// The closed failure set for the authentication core. Handlers translate
// these to HTTP via respondAuthError and must never branch on error text.
var (
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrDuplicateEmail        = errors.New("email already registered")
	ErrInvalidSession        = errors.New("invalid or expired session")
	ErrTokenReuseDetected    = errors.New("refresh token has already been used")
	ErrUserNotFound          = errors.New("user no longer exists")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired reset token")
	ErrUnauthorized          = errors.New("unauthorized")
)
