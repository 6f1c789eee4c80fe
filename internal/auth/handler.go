package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/medvault/medvault/internal/models"
	"github.com/medvault/medvault/internal/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type userSummary struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func summarize(u *models.User) userSummary {
	return userSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (r *registerRequest) validate() map[string]string {
	errs := map[string]string{}
	if r.Name == "" {
		errs["name"] = "name is required"
	}
	if r.Email == "" {
		errs["email"] = "email is required"
	}
	if len(r.Password) < 8 {
		errs["password"] = "password must be at least 8 characters"
	}
	if r.Role != models.RolePatient && r.Role != models.RoleDoctor {
		errs["role"] = "role must be patient or doctor"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (h *Handler) Register(c *fiber.Ctx) error {
	var body registerRequest
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", nil)
	}
	if errs := body.validate(); errs != nil {
		return response.ValidationError(c, errs)
	}

	user, pair, err := h.svc.Register(body.Name, body.Email, body.Password, body.Role)
	if err != nil {
		return respondAuthError(c, err)
	}

	return response.Created(c, fiber.Map{
		"user":          summarize(user),
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_in":    pair.ExpiresIn,
	}, "Registration successful")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *loginRequest) validate() map[string]string {
	errs := map[string]string{}
	if r.Email == "" {
		errs["email"] = "email is required"
	}
	if r.Password == "" {
		errs["password"] = "password is required"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var body loginRequest
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", nil)
	}
	if errs := body.validate(); errs != nil {
		return response.ValidationError(c, errs)
	}

	user, pair, err := h.svc.Login(body.Email, body.Password)
	if err != nil {
		return respondAuthError(c, err)
	}

	return response.Success(c, fiber.Map{
		"user":          summarize(user),
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_in":    pair.ExpiresIn,
	}, "Login successful")
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) Refresh(c *fiber.Ctx) error {
	var body refreshRequest
	if err := c.BodyParser(&body); err != nil || body.RefreshToken == "" {
		return response.ValidationError(c, map[string]string{
			"refresh_token": "refresh_token is required",
		})
	}

	user, pair, err := h.svc.Rotate(body.RefreshToken)
	if err != nil {
		return respondAuthError(c, err)
	}

	return response.Success(c, fiber.Map{
		"user":          summarize(user),
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_in":    pair.ExpiresIn,
	}, "Token refreshed successfully")
}

func (h *Handler) Logout(c *fiber.Ctx) error {
	var body refreshRequest
	if err := c.BodyParser(&body); err != nil || body.RefreshToken == "" {
		return response.ValidationError(c, map[string]string{
			"refresh_token": "refresh_token is required",
		})
	}

	if err := h.svc.Logout(body.RefreshToken); err != nil {
		return response.InternalError(c, "Logout failed")
	}
	return response.Success(c, nil, "Logout successful")
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *Handler) ForgotPassword(c *fiber.Ctx) error {
	var body forgotPasswordRequest
	if err := c.BodyParser(&body); err != nil || body.Email == "" {
		return response.ValidationError(c, map[string]string{
			"email": "email is required",
		})
	}

	if err := h.svc.RequestReset(body.Email); err != nil {
		return response.InternalError(c, "Failed to process reset request")
	}

	// Same body whether or not the account exists.
	return response.Success(c, nil, "If account exists, reset link has been sent")
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (r *resetPasswordRequest) validate() map[string]string {
	errs := map[string]string{}
	if r.Token == "" {
		errs["token"] = "token is required"
	}
	if len(r.NewPassword) < 8 {
		errs["new_password"] = "new_password must be at least 8 characters"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (h *Handler) ResetPassword(c *fiber.Ctx) error {
	var body resetPasswordRequest
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", nil)
	}
	if errs := body.validate(); errs != nil {
		return response.ValidationError(c, errs)
	}

	if err := h.svc.ConsumeReset(body.Token, body.NewPassword); err != nil {
		return respondAuthError(c, err)
	}
	return response.Success(c, nil, "Password reset successful")
}

func (h *Handler) Me(c *fiber.Ctx) error {
	user := CurrentUser(c)
	if user == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	return response.Success(c, summarize(user), "")
}

// respondAuthError is the single translation point from the closed error
// set to HTTP. Everything unrecognized is an infrastructure failure and
// stays opaque to the client.
func respondAuthError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrDuplicateEmail):
		return response.Conflict(c, "Email already registered")
	case errors.Is(err, ErrInvalidCredentials):
		return response.Unauthorized(c, "Invalid email or password")
	case errors.Is(err, ErrInvalidSession), errors.Is(err, ErrUserNotFound):
		return response.Unauthorized(c, "Invalid or expired session")
	case errors.Is(err, ErrTokenReuseDetected):
		return response.Unauthorized(c, "Invalid or expired session")
	case errors.Is(err, ErrInvalidOrExpiredToken):
		return response.BadRequest(c, "Invalid or expired token", nil)
	case errors.Is(err, ErrUnauthorized):
		return response.Unauthorized(c, "Unauthorized")
	default:
		return response.InternalError(c, "Something went wrong")
	}
}
